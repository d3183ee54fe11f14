// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr    = "127.0.0.1:5090"
	DefaultHTTPSAddr   = "127.0.0.1:5443"
	DefaultLocalSocket = "/var/run/keyforge-server/keyforge-server.sock"

	DefaultDataDir     = "/var/lib/keyforge-server/data"
	DefaultGCInterval  = 10 * time.Minute
	DefaultGCThreshold = 0.5

	DefaultAuthTokenTTL  = 24 * time.Hour
	DefaultSweepInterval = time.Hour

	DefaultRateLimit = 25.0
	DefaultRateBurst = 50

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:        DefaultHTTPAddr,
				RateLimit:   DefaultRateLimit,
				RateBurst:   DefaultRateBurst,
				CORSOrigins: []string{"*"},
			},
			Local: LocalConfig{
				Path: DefaultLocalSocket,
			},
		},
		Storage: StorageSection{
			DataDir:     DefaultDataDir,
			SyncWrites:  true,
			GCInterval:  DefaultGCInterval,
			GCThreshold: DefaultGCThreshold,
		},
		Security: SecuritySection{
			AuthTokenTTL: DefaultAuthTokenTTL,
		},
		Sweeper: SweeperSection{
			Interval: DefaultSweepInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
