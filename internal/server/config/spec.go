// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for keyforge-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Storage  StorageSection  `koanf:"storage"`
	Security SecuritySection `koanf:"security"`
	Sweeper  SweeperSection  `koanf:"sweeper"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Local LocalConfig `koanf:"local"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// RateLimit is the per-client request budget in requests per second.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the per-client burst allowance on top of RateLimit.
	RateBurst int `koanf:"rate_burst"`

	// CORSOrigins lists the allowed cross-origin request origins.
	// "*" allows any origin.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LocalConfig configures the local management socket.
type LocalConfig struct {
	Path string `koanf:"path"`
}

// StorageSection configures storage behavior.
type StorageSection struct {
	DataDir     string        `koanf:"data_dir"`
	SyncWrites  bool          `koanf:"sync_writes"`
	GCInterval  time.Duration `koanf:"gc_interval"`
	GCThreshold float64       `koanf:"gc_threshold"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	// TokenSecret signs auth and connection tokens. Required.
	TokenSecret string `koanf:"token_secret"`

	// RootSecret is the out-of-band capability secret for privileged
	// operations. Empty disables those operations entirely.
	RootSecret string `koanf:"root_secret"`

	// AuthTokenTTL bounds how long a login token stays valid.
	AuthTokenTTL time.Duration `koanf:"auth_token_ttl"`

	// BackupKey encrypts backup exports. Empty writes plaintext backups.
	BackupKey string `koanf:"backup_key"`
}

// SweeperSection configures the expired-key sweeper.
type SweeperSection struct {
	Interval time.Duration `koanf:"interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
