// Package realtime listens for new tiles through Supabase Realtime.
//
// Each subscription opens its own websocket, joins a channel configured for
// postgres_changes INSERT events on public.tiles filtered by wall_id, and
// keeps the Phoenix connection alive with heartbeats.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/observability"
)

// Backend names this transport in hooks and metrics.
const Backend = "supabase-realtime"

// DefaultHeartbeat is the Phoenix heartbeat interval.
const DefaultHeartbeat = 30 * time.Second

// Config configures the realtime listener.
type Config struct {
	ProjectURL string
	Key        string
	Heartbeat  time.Duration
	Logger     *log.Logger
}

// Notifier implements notify.Notifier on Supabase Realtime.
type Notifier struct {
	url       string
	heartbeat time.Duration
	logger    *log.Logger
}

// New validates cfg and derives the websocket endpoint.
func New(cfg Config) (*Notifier, error) {
	if cfg.ProjectURL == "" || cfg.Key == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "realtime needs a project URL and key")
	}
	u, err := url.Parse(strings.TrimRight(cfg.ProjectURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse project URL")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported project URL scheme %q", u.Scheme)
	}
	u.Path += "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {cfg.Key}, "vsn": {"1.0.0"}}.Encode()

	n := &Notifier{url: u.String(), heartbeat: cfg.Heartbeat, logger: cfg.Logger}
	if n.heartbeat <= 0 {
		n.heartbeat = DefaultHeartbeat
	}
	if n.logger == nil {
		n.logger = log.Default()
	}
	return n, nil
}

// message is a Phoenix channel frame.
type message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
	JoinRef *string         `json:"join_ref,omitempty"`
}

type changeConfig struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config struct {
		PostgresChanges []changeConfig `json:"postgres_changes"`
	} `json:"config"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type tileRecord struct {
	ID        string `json:"id"`
	WallID    string `json:"wall_id"`
	CreatedAt string `json:"created_at"`
}

// changePayload covers both the postgres_changes frame, which nests the
// change under data, and the older per-event frames.
type changePayload struct {
	Data *struct {
		Type   string     `json:"type"`
		Record tileRecord `json:"record"`
	} `json:"data"`
	Type   string     `json:"type"`
	Record tileRecord `json:"record"`
}

// Topic returns the channel topic used for wallID.
func Topic(wallID string) string { return "realtime:wall-" + wallID }

func (n *Notifier) Subscribe(ctx context.Context, wallID string, h notify.Handler) error {
	if err := errors.ValidateID("wall", wallID); err != nil {
		return err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, n.url, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "dial realtime")
	}
	defer conn.Close()

	topic := Topic(wallID)
	ref := 0
	send := func(topic, event string, payload any) error {
		ref++
		r := strconv.Itoa(ref)
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(message{Topic: topic, Event: event, Payload: raw, Ref: &r, JoinRef: &r})
	}

	var join joinPayload
	join.Config.PostgresChanges = []changeConfig{{
		Event: "INSERT", Schema: "public", Table: "tiles", Filter: "wall_id=eq." + wallID,
	}}
	if err := send(topic, "phx_join", join); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "join channel %s", topic)
	}

	frames := make(chan message)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			var m message
			if err := conn.ReadJSON(&m); err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- m:
			case <-stop:
				return
			}
		}
	}()

	ticker := time.NewTicker(n.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			send(topic, "phx_leave", struct{}{})
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(errors.ErrCodeNetwork, err, "realtime connection lost")
		case <-ticker.C:
			if err := send("phoenix", "heartbeat", struct{}{}); err != nil {
				return errors.Wrap(errors.ErrCodeNetwork, err, "send heartbeat")
			}
		case m := <-frames:
			if m.Topic != topic {
				continue
			}
			if err := n.dispatch(ctx, wallID, m, h); err != nil {
				return err
			}
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, wallID string, m message, h notify.Handler) error {
	switch m.Event {
	case "phx_reply":
		var r replyPayload
		if err := json.Unmarshal(m.Payload, &r); err == nil && r.Status == "error" {
			return errors.New(errors.ErrCodeForbidden, "realtime rejected channel: %s", string(r.Response))
		}
		return nil
	case "system", "presence_state", "presence_diff":
		return nil
	case "phx_error", "phx_close":
		return errors.New(errors.ErrCodeNetwork, "realtime channel closed: %s", m.Event)
	case "postgres_changes", "INSERT":
	default:
		n.logger.Debug("ignoring realtime frame", "event", m.Event)
		return nil
	}

	var p changePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		n.logger.Warn("dropping malformed realtime change", "err", err)
		return nil
	}
	typ, rec := p.Type, p.Record
	if p.Data != nil {
		typ, rec = p.Data.Type, p.Data.Record
	}
	if typ != "INSERT" {
		return nil
	}
	if rec.WallID != "" && rec.WallID != wallID {
		return nil
	}
	at, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	observability.Notify().OnReceive(ctx, Backend, wallID)
	h(notify.Event{WallID: wallID, TileID: rec.ID, Kind: notify.KindInsert, At: at})
	return nil
}

// String returns the websocket endpoint with the key redacted.
func (n *Notifier) String() string {
	u, err := url.Parse(n.url)
	if err != nil {
		return "realtime"
	}
	q := u.Query()
	q.Set("apikey", "REDACTED")
	u.RawQuery = q.Encode()
	return fmt.Sprintf("realtime(%s)", u)
}

var _ notify.Notifier = (*Notifier)(nil)
