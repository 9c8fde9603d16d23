package config

import "time"

// ChatClient definition chat_client YAML structure
type ChatClient struct {
	Socket   SocketConfig `mapstructure:"socket"`
	API      APIConfig    `mapstructure:"api"`
	Typing   TypingConfig `mapstructure:"typing"`
	CacheDir string       `mapstructure:"cache_dir"`
}

// ChatBackend definition chat_backend YAML structure
type ChatBackend struct {
	Port  string      `mapstructure:"port"`
	Redis RedisConfig `mapstructure:"redis"`
}

// SocketConfig definition realtime socket endpoint & reconnect policy
type SocketConfig struct {
	URL                  string        `mapstructure:"url"`
	ReconnectionDelay    time.Duration `mapstructure:"reconnection_delay"`
	ReconnectionAttempts int           `mapstructure:"reconnection_attempts"`
	HandshakeTimeout     time.Duration `mapstructure:"handshake_timeout"`
}

// APIConfig definition backend HTTP endpoint
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TypingConfig definition typing debounce & expiry windows
type TypingConfig struct {
	DebounceInterval time.Duration `mapstructure:"debounce_interval"`
	RemoteExpiry     time.Duration `mapstructure:"remote_expiry"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Enabled bool `mapstructure:"enabled"`
	RedisDB int  `mapstructure:"redis_db"`
}
