package config

import (
	"fmt"
	"time"
)

type (
	// APIServerConfig is the full configuration of the signage API server.
	// It is built once at startup and never mutated afterwards.
	APIServerConfig struct {
		Port          int               `yaml:"port"`
		PublicBaseURL string            `yaml:"public_base_url"`
		Database      DatabaseConfig    `yaml:"database"`
		Logger        LoggerConfig      `yaml:"logger"`
		JWT           JWTConfig         `yaml:"jwt"`
		Crypto        CryptoConfig      `yaml:"crypto"`
		Invitation    InvitationConfig  `yaml:"invitation"`
		Device        DeviceConfig      `yaml:"device"`
		GoogleOAuth   GoogleOAuthConfig `yaml:"google_oauth"`
		SMTP          SMTPConfig        `yaml:"smtp"`
		TokenStore    TokenStoreConfig  `yaml:"token_store"`
		Metrics       MetricsConfig     `yaml:"metrics"`
		Trace         TraceConfig       `yaml:"trace"`
	}

	DatabaseConfig struct {
		Type     string `yaml:"type"`     // mysql, postgres, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 3306 (for mysql), 5432 (for postgres)
		User     string `yaml:"user"`     // root (for mysql), postgres (for postgres)
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (for postgres)
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
	}

	JWTConfig struct {
		SecretKey       string        `yaml:"secret_key"`
		AccessDuration  time.Duration `yaml:"access_duration"`
		RefreshDuration time.Duration `yaml:"refresh_duration"`
	}

	CryptoConfig struct {
		MasterKey  string `yaml:"master_key"`
		Iterations int    `yaml:"iterations"` // PBKDF2 iterations, min 100000
	}

	InvitationConfig struct {
		TokenTTL time.Duration `yaml:"token_ttl"`
	}

	DeviceConfig struct {
		CodeTTL        time.Duration `yaml:"code_ttl"`
		OfflineTimeout time.Duration `yaml:"offline_timeout"`
		SweepInterval  time.Duration `yaml:"sweep_interval"`
	}

	GoogleOAuthConfig struct {
		ClientID     string        `yaml:"client_id"`
		ClientSecret string        `yaml:"client_secret"`
		RedirectURL  string        `yaml:"redirect_url"`
		Scopes       []string      `yaml:"scopes"`
		Timeout      time.Duration `yaml:"timeout"`
	}

	SMTPConfig struct {
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		From     string        `yaml:"from"`
		Timeout  time.Duration `yaml:"timeout"`
	}

	// TokenStoreConfig configures where used refresh-token IDs are kept.
	TokenStoreConfig struct {
		Type  string           `yaml:"type"` // "memory" or "redis"
		Redis RedisStoreConfig `yaml:"redis"`
	}

	RedisStoreConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	TraceConfig struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		Endpoint    string  `yaml:"endpoint"` // e.g. localhost:4317 or http://localhost:4318
		Protocol    string  `yaml:"protocol"` // grpc or http
		Insecure    bool    `yaml:"insecure"`
		SamplerRate float64 `yaml:"sampler_rate"` // 0.0~1.0
		Environment string  `yaml:"environment"`
	}
)

func (c *APIServerConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.JWT.AccessDuration == 0 {
		c.JWT.AccessDuration = 30 * time.Minute
	}
	if c.JWT.RefreshDuration == 0 {
		c.JWT.RefreshDuration = 7 * 24 * time.Hour
	}
	if c.Crypto.Iterations == 0 {
		c.Crypto.Iterations = 100000
	}
	if c.Invitation.TokenTTL == 0 {
		c.Invitation.TokenTTL = 72 * time.Hour
	}
	if c.Device.CodeTTL == 0 {
		c.Device.CodeTTL = 15 * time.Minute
	}
	if c.Device.OfflineTimeout == 0 {
		c.Device.OfflineTimeout = 5 * time.Minute
	}
	if c.Device.SweepInterval == 0 {
		c.Device.SweepInterval = time.Minute
	}
	if c.GoogleOAuth.Timeout == 0 {
		c.GoogleOAuth.Timeout = 10 * time.Second
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 10 * time.Second
	}
	if c.TokenStore.Type == "" {
		c.TokenStore.Type = "memory"
	}
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case "postgres":
		return c.getPostgresDSN()
	case "mysql":
		return c.getMySQLDSN()
	case "sqlite":
		return c.DBName // For SQLite, DBName is the file path
	default:
		return ""
	}
}

// getPostgresDSN returns PostgreSQL connection string
func (c *DatabaseConfig) getPostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// getMySQLDSN returns MySQL connection string
func (c *DatabaseConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
