package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/memorywall/internal/config"
	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/cache"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/notify"
	"github.com/matzehuels/memorywall/pkg/notify/natsbus"
	"github.com/matzehuels/memorywall/pkg/notify/realtime"
	"github.com/matzehuels/memorywall/pkg/pipeline"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/store/bolt"
	"github.com/matzehuels/memorywall/pkg/store/mongo"
	"github.com/matzehuels/memorywall/pkg/store/postgres"
	"github.com/matzehuels/memorywall/pkg/store/supabase"
)

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner opens the configured store and cache and wraps them in a
// pipeline runner. Closing the runner closes both.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ch, err := c.openCache(ctx, cfg, noCache)
	if err != nil {
		st.Close()
		return nil, err
	}
	return pipeline.NewRunner(st, ch, nil, c.Logger), nil
}

// openStore opens the configured store backend, instrumented for metrics.
func (c *CLI) openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	backend := cfg.Store.Backend
	switch backend {
	case store.BackendMemory:
		st = store.NewMemory()
	case store.BackendPostgres:
		var pg *postgres.Store
		pg, err = postgres.Open(ctx, cfg.Store.Postgres.DSN)
		if err == nil && cfg.Store.Postgres.Migrate {
			if err = pg.Migrate(ctx); err != nil {
				pg.Close()
			}
		}
		st = pg
	case store.BackendSupabase:
		st, err = supabase.New(supabase.Config{ProjectURL: cfg.Store.Supabase.URL, Key: cfg.Store.Supabase.Key})
	case store.BackendBolt:
		path := cfg.Store.Bolt.Path
		if path == "" {
			path, err = defaultBoltPath()
			if err != nil {
				return nil, err
			}
		}
		st, err = bolt.Open(path)
	case store.BackendMongo:
		st, err = mongo.Open(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	c.Logger.Debug("opened store", "backend", backend)
	return store.Instrument(st, backend), nil
}

func defaultBoltPath() (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(dir, appName+".db"), nil
}

// openCache opens the configured layout cache. A file cache that cannot be
// created degrades to no cache.
func (c *CLI) openCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "err", err)
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			c.Logger.Warn("file cache unavailable, caching disabled", "dir", dir, "err", err)
			return cache.NewNullCache(), nil
		}
		return fc, nil
	}
}

// events bundles the configured change notification backend. Publisher is
// nil when the backend publishes on its own (Supabase realtime follows
// table inserts).
type events struct {
	Notifier  notify.Notifier
	Publisher notify.Publisher
	close     func() error
}

func (e *events) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

// openEvents connects the configured notify backend. The memory backend only
// reaches subscribers in the same process.
func (c *CLI) openEvents(cfg *config.Config) (*events, error) {
	switch cfg.Notify.Backend {
	case config.NotifyNATS:
		n := cfg.Notify.NATS
		bus, err := natsbus.Connect(natsbus.Options{
			URL:             n.URL,
			ConnectionName:  n.ConnectionName,
			CredentialsFile: n.CredentialsFile,
			MaxReconnects:   n.MaxReconnects,
			ReconnectWait:   n.ReconnectWait.Duration(),
		}, c.Logger)
		if err != nil {
			return nil, err
		}
		return &events{Notifier: bus, Publisher: bus, close: bus.Close}, nil
	case config.NotifyRealtime:
		rt, err := realtime.New(realtime.Config{
			ProjectURL: cfg.Store.Supabase.URL,
			Key:        cfg.Store.Supabase.Key,
			Heartbeat:  cfg.Notify.Realtime.Heartbeat.Duration(),
			Logger:     c.Logger,
		})
		if err != nil {
			return nil, err
		}
		return &events{Notifier: rt}, nil
	default:
		b := notify.NewBroker()
		return &events{Notifier: b, Publisher: b}, nil
	}
}

// openBlobs opens the configured upload storage. The returned probe is nil
// when the backend has nothing to check.
func (c *CLI) openBlobs(ctx context.Context, cfg *config.Config) (blob.Store, func(context.Context) error, error) {
	if cfg.Blob.Backend != config.BlobS3 {
		c.Logger.Warn("uploads are kept in memory; configure blob.backend = \"s3\" to persist them")
		return blob.NewMemory(), nil, nil
	}
	client, err := blob.NewS3Client(ctx, cfg.Blob.S3)
	if err != nil {
		return nil, nil, err
	}
	s3 := blob.NewS3Store(client, cfg.Blob.S3)
	return s3, s3.Ping, nil
}
