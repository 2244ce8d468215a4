// Package natsbus carries wall events over NATS core subjects.
//
// Events for a wall are published as JSON on memorywall.walls.<wallID>.tiles.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats.go"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/observability"
)

// Backend names this transport in hooks and metrics.
const Backend = "nats"

const subjectPrefix = "memorywall.walls."

// Subject returns the subject events for wallID are published on.
func Subject(wallID string) string {
	return subjectPrefix + wallID + ".tiles"
}

// Options configures the connection.
type Options struct {
	URL             string
	ConnectionName  string
	CredentialsFile string
	MaxReconnects   int
	ReconnectWait   time.Duration
}

// Bus publishes and subscribes to wall events on one NATS connection.
type Bus struct {
	nc     *nats.Conn
	logger *log.Logger
	owned  bool
}

// Connect dials NATS. The returned bus owns the connection.
func Connect(opts Options, logger *log.Logger) (*Bus, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.ConnectionName == "" {
		opts.ConnectionName = "memorywall"
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = 60
	}
	if logger == nil {
		logger = log.Default()
	}

	nopts := []nats.Option{
		nats.Name(opts.ConnectionName),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats async error", "err", err)
		}),
	}
	if opts.CredentialsFile != "" {
		nopts = append(nopts, nats.UserCredentials(opts.CredentialsFile))
	}

	nc, err := nats.Connect(opts.URL, nopts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to nats at %s", opts.URL)
	}
	logger.Debug("connected to nats", "url", nc.ConnectedUrl())
	return &Bus{nc: nc, logger: logger, owned: true}, nil
}

// New wraps an existing connection. Close leaves it open.
func New(nc *nats.Conn, logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{nc: nc, logger: logger}
}

func (b *Bus) Publish(ctx context.Context, ev notify.Event) error {
	if err := errors.ValidateID("wall", ev.WallID); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = b.nc.Publish(Subject(ev.WallID), data)
	observability.Notify().OnPublish(ctx, Backend, ev.WallID, err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "publish event for wall %s", ev.WallID)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, wallID string, h notify.Handler) error {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return err
	}
	msgs := make(chan *nats.Msg, 64)
	sub, err := b.nc.ChanSubscribe(Subject(wallID), msgs)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "subscribe to wall %s", wallID)
	}
	defer sub.Unsubscribe()

	// Flush so the subscription is registered before callers publish.
	if err := b.nc.FlushTimeout(5 * time.Second); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "flush subscription")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			var ev notify.Event
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				b.logger.Warn("dropping malformed event", "subject", msg.Subject, "err", err)
				continue
			}
			observability.Notify().OnReceive(ctx, Backend, wallID)
			h(ev)
		}
	}
}

// Close drains the connection if the bus owns it.
func (b *Bus) Close() error {
	if !b.owned {
		return nil
	}
	return b.nc.Drain()
}

var (
	_ notify.Notifier  = (*Bus)(nil)
	_ notify.Publisher = (*Bus)(nil)
)
