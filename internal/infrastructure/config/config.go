package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Saleor    SaleorConfig
	APL       APLConfig
	Redis     RedisConfig
	Feed      FeedConfig
	Delivery  DeliveryConfig
	Sync      SyncConfig
	Storage   StorageConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	BaseURL string // public URL of this service, prefixes credential keys
}

// IsProduction reports whether the app runs in production mode
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite
	Path            string // sqlite database file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool
}

// SaleorConfig holds the source shop API settings
type SaleorConfig struct {
	APIURL           string // the only API url accepted from webhooks
	Channel          string
	Timeout          time.Duration
	PageSize         int
	MaxCategoryDepth int
}

// APLConfig selects the credential store
type APLConfig struct {
	Type     string // redis, file, static
	FilePath string
	Token    string // static store token
	AppID    string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// FeedConfig holds feed document settings
type FeedConfig struct {
	VariantURLTemplate string
	TaxRate            string // e.g. "21%"
	FileName           string
}

// DeliveryConfig holds delivery price settings
type DeliveryConfig struct {
	Currencies     []string
	CashOnDelivery bool
	CODSurcharge   string // decimal amount added to COD prices
}

// Surcharge parses CODSurcharge; empty means none
func (d DeliveryConfig) Surcharge() (*decimal.Decimal, error) {
	if strings.TrimSpace(d.CODSurcharge) == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(d.CODSurcharge))
	if err != nil {
		return nil, fmt.Errorf("delivery.cod_surcharge: %w", err)
	}
	return &v, nil
}

// SyncConfig holds event loop settings
type SyncConfig struct {
	QueueSize     int
	EventTimeout  time.Duration
	ResyncCron    string // empty disables scheduled resyncs
	ResyncOnStart bool
}

// StorageConfig selects where generated feeds are published
type StorageConfig struct {
	Type           string // local, s3, none
	LocalDir       string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Prefix       string
	S3UsePathStyle bool
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	MetricsEnabled    bool    // Whether to export metrics
	LogsEnabled       bool    // Whether to bridge zap logs to OTEL
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FEEDSYNC_ prefix (e.g., FEEDSYNC_SALEOR_API_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FEEDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			BaseURL: v.GetString("app.base_url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Saleor: SaleorConfig{
			APIURL:           v.GetString("saleor.api_url"),
			Channel:          v.GetString("saleor.channel"),
			Timeout:          v.GetDuration("saleor.timeout"),
			PageSize:         v.GetInt("saleor.page_size"),
			MaxCategoryDepth: v.GetInt("saleor.max_category_depth"),
		},
		APL: APLConfig{
			Type:     v.GetString("apl.type"),
			FilePath: v.GetString("apl.file_path"),
			Token:    v.GetString("apl.token"),
			AppID:    v.GetString("apl.app_id"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Feed: FeedConfig{
			VariantURLTemplate: v.GetString("feed.variant_url_template"),
			TaxRate:            v.GetString("feed.tax_rate"),
			FileName:           v.GetString("feed.file_name"),
		},
		Delivery: DeliveryConfig{
			Currencies:     splitList(v.GetStringSlice("delivery.currencies")),
			CashOnDelivery: v.GetBool("delivery.cash_on_delivery"),
			CODSurcharge:   v.GetString("delivery.cod_surcharge"),
		},
		Sync: SyncConfig{
			QueueSize:     v.GetInt("sync.queue_size"),
			EventTimeout:  v.GetDuration("sync.event_timeout"),
			ResyncCron:    v.GetString("sync.resync_cron"),
			ResyncOnStart: v.GetBool("sync.resync_on_start"),
		},
		Storage: StorageConfig{
			Type:           v.GetString("storage.type"),
			LocalDir:       v.GetString("storage.local_dir"),
			S3Bucket:       v.GetString("storage.s3_bucket"),
			S3Region:       v.GetString("storage.s3_region"),
			S3Endpoint:     v.GetString("storage.s3_endpoint"),
			S3AccessKey:    v.GetString("storage.s3_access_key"),
			S3SecretKey:    v.GetString("storage.s3_secret_key"),
			S3Prefix:       v.GetString("storage.s3_prefix"),
			S3UsePathStyle: v.GetBool("storage.s3_use_path_style"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  splitList(v.GetStringSlice("http.trusted_proxies")),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// splitList accepts both TOML arrays and comma separated env values
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "feedsync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "feedsync.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "feedsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Saleor.Timeout == 0 {
		cfg.Saleor.Timeout = 30 * time.Second
	}
	if cfg.Saleor.PageSize == 0 {
		cfg.Saleor.PageSize = 100
	}
	if cfg.Saleor.MaxCategoryDepth == 0 {
		cfg.Saleor.MaxCategoryDepth = 32
	}
	if cfg.APL.Type == "" {
		cfg.APL.Type = "file"
	}
	if cfg.APL.FilePath == "" {
		cfg.APL.FilePath = "apl.json"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Feed.VariantURLTemplate == "" {
		cfg.Feed.VariantURLTemplate = "https://example.com/products/{{ .Product.Slug }}?variant={{ .Variant.ID }}"
	}
	if cfg.Feed.FileName == "" {
		cfg.Feed.FileName = "heureka.xml"
	}
	if len(cfg.Delivery.Currencies) == 0 {
		cfg.Delivery.Currencies = []string{"CZK", "EUR"}
	}
	if cfg.Sync.QueueSize == 0 {
		cfg.Sync.QueueSize = 256
	}
	if cfg.Sync.EventTimeout == 0 {
		cfg.Sync.EventTimeout = 10 * time.Minute
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = "public"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// Feed requests wait for the whole build.
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 5 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.APL.Type {
	case "redis", "file", "static":
	default:
		return fmt.Errorf("apl.type must be redis, file or static, got %q", c.APL.Type)
	}
	switch c.Storage.Type {
	case "local", "none":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3_bucket is required when storage.type is s3")
		}
	default:
		return fmt.Errorf("storage.type must be local, s3 or none, got %q", c.Storage.Type)
	}

	if c.Saleor.APIURL != "" {
		u, err := url.Parse(c.Saleor.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("saleor.api_url must be an absolute URL, got %q", c.Saleor.APIURL)
		}
	}
	if c.Saleor.PageSize < 1 || c.Saleor.PageSize > 100 {
		return fmt.Errorf("saleor.page_size must be between 1 and 100, got %d", c.Saleor.PageSize)
	}
	if c.Saleor.MaxCategoryDepth < 1 {
		return fmt.Errorf("saleor.max_category_depth must be positive")
	}
	if _, err := c.Delivery.Surcharge(); err != nil {
		return err
	}
	if c.Sync.QueueSize < 1 {
		return fmt.Errorf("sync.queue_size must be positive")
	}

	if c.App.IsProduction() {
		if c.Saleor.APIURL == "" {
			return fmt.Errorf("saleor.api_url is required in production")
		}
		if c.Saleor.Channel == "" {
			return fmt.Errorf("saleor.channel is required in production")
		}
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		if c.APL.Type == "static" {
			return fmt.Errorf("apl.type=static is not allowed in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
