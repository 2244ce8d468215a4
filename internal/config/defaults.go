package config

import (
	"time"

	"github.com/matzehuels/memorywall/pkg/blob"
	"github.com/matzehuels/memorywall/pkg/layout"
	"github.com/matzehuels/memorywall/pkg/store"
)

func DefaultConfig() *Config {
	return &Config{
		Layout: LayoutConfig{
			Strategy: layout.DefaultStrategy,
			Edge:     string(layout.EdgeClamp),
		},
		Store: StoreConfig{
			Backend: store.BackendBolt,
			Mongo:   MongoConfig{Database: "memorywall"},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
		},
		Notify: NotifyConfig{
			Backend: NotifyMemory,
			NATS: NATSConfig{
				URL:            "nats://localhost:4222",
				ConnectionName: "memorywall",
				MaxReconnects:  60,
				ReconnectWait:  Duration(2 * time.Second),
			},
			Realtime: RealtimeConfig{
				Heartbeat: Duration(30 * time.Second),
			},
		},
		Blob: BlobConfig{
			Backend: BlobMemory,
			S3:      blob.S3Config{Bucket: blob.DefaultBucket},
		},
		Server: ServerConfig{
			Listen:          ":8080",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
	}
}
