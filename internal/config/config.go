package config

import "time"

// ServerConfig describes one managed voice server: where its admin
// port lives and the system account used for the login handshake.
type ServerConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     uint16 `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Nickname string `mapstructure:"nickname" yaml:"nickname"`
	// Premoderated routes registrations into the approval queue
	// instead of creating accounts directly.
	Premoderated bool          `mapstructure:"premoderated" yaml:"premoderated"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
}

// HTTPConfig holds the registration API settings.
type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RegisterRateLimit caps POST /api/register calls per minute;
	// zero disables the limit.
	RegisterRateLimit int `mapstructure:"register_rate_limit" yaml:"register_rate_limit"`
}

// AdminConfig holds moderator authentication settings. PasswordHash is
// a bcrypt hash (see `vcadmin hash-password`), never the plaintext.
type AdminConfig struct {
	PasswordHash string        `mapstructure:"password_hash" yaml:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience  string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Config is the full resolved configuration.
type Config struct {
	LogLevel  string                  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string                  `mapstructure:"log_format" yaml:"log_format"`
	QueuePath string                  `mapstructure:"queue_path" yaml:"queue_path"`
	AuditPath string                  `mapstructure:"audit_path" yaml:"audit_path"`
	HTTP      HTTPConfig              `mapstructure:"http" yaml:"http"`
	Admin     AdminConfig             `mapstructure:"admin" yaml:"admin"`
	Servers   map[string]ServerConfig `mapstructure:"servers" yaml:"servers"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "console",
		QueuePath: "premod.json",
		AuditPath: "vcadmin.db",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			RegisterRateLimit: 30,
		},
		Admin: AdminConfig{
			JWTIssuer:   "vcadmin",
			JWTAudience: "vcadmin-moderators",
			TokenTTL:    12 * time.Hour,
		},
		Servers: map[string]ServerConfig{},
	}
}
