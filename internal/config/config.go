// Package config loads the memorywall configuration file.
//
// The file is TOML. Every key is optional; a missing file yields the
// defaults. Secrets are usually supplied through the environment instead:
//
//	MEMORYWALL_STORE          store.backend
//	MEMORYWALL_SUPABASE_URL   store.supabase.url
//	MEMORYWALL_SUPABASE_KEY   store.supabase.key
//	MEMORYWALL_POSTGRES_DSN   store.postgres.dsn
//	MEMORYWALL_MONGO_URI      store.mongo.uri
//	MEMORYWALL_REDIS_ADDR     cache.redis.addr
//	MEMORYWALL_NATS_URL       notify.nats.url
//	MEMORYWALL_LISTEN         server.listen
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/errors"
	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/pipeline"
	"github.com/matzehuels/memorywall/pkg/store"
)

type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Notify NotifyConfig `toml:"notify"`
	Blob   BlobConfig   `toml:"blob"`
	Server ServerConfig `toml:"server"`
}

type LayoutConfig struct {
	Strategy string `toml:"strategy"`
	// Columns fixes the grid width; 0 derives it from the tile count.
	Columns     int           `toml:"columns"`
	Edge        string        `toml:"edge"`
	Spans       []layout.Span `toml:"spans"`
	SeedStride  uint32        `toml:"seed_stride"`
	ColumnWidth int           `toml:"column_width"`
	Seed        uint32        `toml:"seed"`
}

type StoreConfig struct {
	Backend  string         `toml:"backend"`
	Postgres PostgresConfig `toml:"postgres"`
	Supabase SupabaseConfig `toml:"supabase"`
	Bolt     BoltConfig     `toml:"bolt"`
	Mongo    MongoConfig    `toml:"mongo"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
	// Migrate applies the schema on startup.
	Migrate bool `toml:"migrate"`
}

type SupabaseConfig struct {
	URL string `toml:"url"`
	Key string `toml:"key"`
}

type BoltConfig struct {
	Path string `toml:"path"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	Redis   RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type NotifyConfig struct {
	Backend  string         `toml:"backend"`
	NATS     NATSConfig     `toml:"nats"`
	Realtime RealtimeConfig `toml:"realtime"`
}

type NATSConfig struct {
	URL             string   `toml:"url"`
	ConnectionName  string   `toml:"connection_name"`
	CredentialsFile string   `toml:"credentials_file"`
	MaxReconnects   int      `toml:"max_reconnects"`
	ReconnectWait   Duration `toml:"reconnect_wait"`
}

// RealtimeConfig tunes the Supabase realtime listener. The project URL and
// key come from store.supabase.
type RealtimeConfig struct {
	Heartbeat Duration `toml:"heartbeat"`
}

type BlobConfig struct {
	Backend string        `toml:"backend"`
	S3      blob.S3Config `toml:"s3"`
}

type ServerConfig struct {
	Listen          string   `toml:"listen"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Cache, notify and blob backend names.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	NotifyMemory   = "memory"
	NotifyNATS     = "nats"
	NotifyRealtime = "realtime"

	BlobMemory = "memory"
	BlobS3     = "s3"
)

// DefaultPath returns $XDG_CONFIG_HOME/memorywall/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	dir, err := userDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns $XDG_DATA_HOME/memorywall, falling back to
// ~/.local/share.
func DataDir() (string, error) {
	return userDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func userDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, fallback, appName), nil
}

const appName = "memorywall"

// Load reads the file at path on top of the defaults, applies environment
// overrides and validates the result. An empty path selects DefaultPath, which
// may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %v", path, undecoded)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for env, dst := range map[string]*string{
		"MEMORYWALL_STORE":        &c.Store.Backend,
		"MEMORYWALL_SUPABASE_URL": &c.Store.Supabase.URL,
		"MEMORYWALL_SUPABASE_KEY": &c.Store.Supabase.Key,
		"MEMORYWALL_POSTGRES_DSN": &c.Store.Postgres.DSN,
		"MEMORYWALL_MONGO_URI":    &c.Store.Mongo.URI,
		"MEMORYWALL_REDIS_ADDR":   &c.Cache.Redis.Addr,
		"MEMORYWALL_NATS_URL":     &c.Notify.NATS.URL,
		"MEMORYWALL_LISTEN":       &c.Server.Listen,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*dst = v
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.PipelineOptions(); err != nil {
		return err
	}

	switch c.Store.Backend {
	case store.BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return invalid("store.postgres.dsn is required")
		}
	case store.BackendSupabase:
		if err := c.Store.Supabase.validate(); err != nil {
			return err
		}
	case store.BackendMongo:
		if c.Store.Mongo.URI == "" {
			return invalid("store.mongo.uri is required")
		}
	case store.BackendMemory, store.BackendBolt:
	default:
		return invalid("store.backend must be one of %v, got %q", store.Backends, c.Store.Backend)
	}

	switch c.Cache.Backend {
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return invalid("cache.redis.addr is required")
		}
	case CacheFile, CacheNone:
	default:
		return invalid("cache.backend must be one of %v, got %q",
			[]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend)
	}

	switch c.Notify.Backend {
	case NotifyRealtime:
		if err := c.Store.Supabase.validate(); err != nil {
			return err
		}
	case NotifyMemory, NotifyNATS:
	default:
		return invalid("notify.backend must be one of %v, got %q",
			[]string{NotifyMemory, NotifyNATS, NotifyRealtime}, c.Notify.Backend)
	}

	switch c.Blob.Backend {
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return invalid("blob.s3.bucket is required")
		}
	case BlobMemory:
	default:
		return invalid("blob.backend must be one of %v, got %q", []string{BlobMemory, BlobS3}, c.Blob.Backend)
	}

	if c.Server.Listen == "" {
		return invalid("server.listen is required")
	}
	return nil
}

func (s SupabaseConfig) validate() error {
	if s.URL == "" || s.Key == "" {
		return invalid("store.supabase.url and store.supabase.key are required")
	}
	if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return invalid("store.supabase.url must be an http(s) URL, got %q", s.URL)
	}
	return nil
}

// PipelineOptions converts the layout section into validated pipeline
// options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		Strategy: c.Layout.Strategy,
		Columns:  c.Layout.Columns,
		Layout: layout.Options{
			Spans:       slices.Clone(c.Layout.Spans),
			Edge:        layout.EdgePolicy(c.Layout.Edge),
			SeedStride:  c.Layout.SeedStride,
			ColumnWidth: c.Layout.ColumnWidth,
			Seed:        c.Layout.Seed,
		},
	}
	check := opts
	if err := check.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, fmt.Errorf("layout: %w", err)
	}
	return opts, nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}

// Duration is a time.Duration written as a string such as "30s" or "5m".
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
