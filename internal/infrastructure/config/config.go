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
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Billing   BillingConfig
	Storage   StorageConfig
	Chrome    ChromeConfig
	Payment   PaymentConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs with production settings
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
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
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings. An empty Host selects the
// in-memory idempotency store.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// IdempotencyTTL is how long a processed Idempotency-Key is remembered
	IdempotencyTTL time.Duration
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds token verification settings
type JWTConfig struct {
	Secret          string
	Issuer          string
	ExpirationHours int
	// DevPharmacyHeader lets the X-Pharmacy-ID header stand in for a token outside production
	DevPharmacyHeader bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	// RateLimitRequests per RateLimitWindow and pharmacy; 0 disables limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// BillingConfig holds per-deployment billing defaults
type BillingConfig struct {
	DefaultCurrency    string
	DefaultCountryCode string
	// DefaultCreditLimit applies to clients created without an explicit limit
	DefaultCreditLimit decimal.Decimal
	// MaxRetries bounds the read-modify-write retries on a concurrency conflict
	MaxRetries int
	// PaymentTermDays sets the due date of invoices created without one
	PaymentTermDays int
}

// StorageConfig holds S3-compatible object storage settings. An empty
// Bucket selects the in-memory store.
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// Enabled reports whether S3 is configured
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// ChromeConfig holds headless Chrome settings used for invoice PDFs
type ChromeConfig struct {
	// RemoteURL connects to a running Chrome devtools endpoint instead of launching one
	RemoteURL  string
	ExecPath   string
	Timeout    time.Duration
	MaxWorkers int
}

// PaymentConfig holds Mercado Pago settings. An empty AccessToken disables
// payment links and the webhook.
type PaymentConfig struct {
	AccessToken         string
	WebhookSecret       string
	BaseURL             string
	NotificationURL     string
	SuccessURL          string
	FailureURL          string
	PendingURL          string
	StatementDescriptor string
	Sandbox             bool
	Timeout             time.Duration
	// SignatureTolerance bounds the age of a webhook signature; 0 disables the check
	SignatureTolerance time.Duration
}

// Enabled reports whether a payment gateway is configured
func (p PaymentConfig) Enabled() bool {
	return p.AccessToken != ""
}

// TelemetryConfig holds OpenTelemetry and profiling settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool

	MetricsEnabled         bool
	MetricsExportInterval  time.Duration
	MetricsCollectInterval time.Duration
	LogsEnabled            bool
	LogsLevel              string

	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilerEnabled       bool
	ProfilerServerAddress string
	ProfilerAuthUser      string
	ProfilerAuthPassword  string
	SpanProfilesEnabled   bool
}

// Load reads configuration from config.toml and PHARMA_* environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	v.SetEnvPrefix("PHARMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	creditLimit := decimal.Zero
	if raw := v.GetString("billing.default_credit_limit"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("billing.default_credit_limit: %w", err)
		}
		creditLimit = d
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
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
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:           v.GetString("redis.host"),
			Port:           v.GetInt("redis.port"),
			Password:       v.GetString("redis.password"),
			DB:             v.GetInt("redis.db"),
			IdempotencyTTL: v.GetDuration("redis.idempotency_ttl"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("jwt.secret"),
			Issuer:            v.GetString("jwt.issuer"),
			ExpirationHours:   v.GetInt("jwt.expiration_hours"),
			DevPharmacyHeader: v.GetBool("jwt.dev_pharmacy_header"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Billing: BillingConfig{
			DefaultCurrency:    strings.ToUpper(v.GetString("billing.default_currency")),
			DefaultCountryCode: v.GetString("billing.default_country_code"),
			DefaultCreditLimit: creditLimit,
			MaxRetries:         v.GetInt("billing.max_retries"),
			PaymentTermDays:    v.GetInt("billing.payment_term_days"),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Chrome: ChromeConfig{
			RemoteURL:  v.GetString("chrome.remote_url"),
			ExecPath:   v.GetString("chrome.exec_path"),
			Timeout:    v.GetDuration("chrome.timeout"),
			MaxWorkers: v.GetInt("chrome.max_workers"),
		},
		Payment: PaymentConfig{
			AccessToken:         v.GetString("payment.access_token"),
			WebhookSecret:       v.GetString("payment.webhook_secret"),
			BaseURL:             v.GetString("payment.base_url"),
			NotificationURL:     v.GetString("payment.notification_url"),
			SuccessURL:          v.GetString("payment.success_url"),
			FailureURL:          v.GetString("payment.failure_url"),
			PendingURL:          v.GetString("payment.pending_url"),
			StatementDescriptor: v.GetString("payment.statement_descriptor"),
			Sandbox:             v.GetBool("payment.sandbox"),
			Timeout:             v.GetDuration("payment.timeout"),
			SignatureTolerance:  v.GetDuration("payment.signature_tolerance"),
		},
		Telemetry: TelemetryConfig{
			Enabled:                v.GetBool("telemetry.enabled"),
			CollectorEndpoint:      v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:          v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:            v.GetString("telemetry.service_name"),
			Insecure:               v.GetBool("telemetry.insecure"),
			MetricsEnabled:         v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval:  v.GetDuration("telemetry.metrics_export_interval"),
			MetricsCollectInterval: v.GetDuration("telemetry.metrics_collect_interval"),
			LogsEnabled:            v.GetBool("telemetry.logs_enabled"),
			LogsLevel:              v.GetString("telemetry.logs_level"),
			DBTraceEnabled:         v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:           v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:      v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilerEnabled:        v.GetBool("telemetry.profiler_enabled"),
			ProfilerServerAddress:  v.GetString("telemetry.profiler_server_address"),
			ProfilerAuthUser:       v.GetString("telemetry.profiler_auth_user"),
			ProfilerAuthPassword:   v.GetString("telemetry.profiler_auth_password"),
			SpanProfilesEnabled:    v.GetBool("telemetry.span_profiles_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pharmabill"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "pharmabill"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.IdempotencyTTL == 0 {
		cfg.Redis.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "pharmabill"
	}
	if cfg.JWT.ExpirationHours == 0 {
		cfg.JWT.ExpirationHours = 24
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
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20
	}
	// No CORS origin default: cross-origin calls stay blocked until configured.
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Pharmacy-ID", "Idempotency-Key"}
	}
	if cfg.Billing.DefaultCurrency == "" {
		cfg.Billing.DefaultCurrency = "ARS"
	}
	if cfg.Billing.DefaultCountryCode == "" {
		cfg.Billing.DefaultCountryCode = "54"
	}
	if cfg.Billing.MaxRetries == 0 {
		cfg.Billing.MaxRetries = 3
	}
	if cfg.Billing.PaymentTermDays == 0 {
		cfg.Billing.PaymentTermDays = 30
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.Chrome.Timeout == 0 {
		cfg.Chrome.Timeout = 30 * time.Second
	}
	if cfg.Chrome.MaxWorkers == 0 {
		cfg.Chrome.MaxWorkers = 2
	}
	if cfg.Payment.Timeout == 0 {
		cfg.Payment.Timeout = 30 * time.Second
	}
	if cfg.Payment.SignatureTolerance == 0 {
		cfg.Payment.SignatureTolerance = 10 * time.Minute
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
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.MetricsCollectInterval == 0 {
		cfg.Telemetry.MetricsCollectInterval = 5 * time.Minute
	}
	if cfg.Telemetry.LogsLevel == "" {
		cfg.Telemetry.LogsLevel = "info"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.ProfilerServerAddress == "" {
		cfg.Telemetry.ProfilerServerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	if len(c.Billing.DefaultCurrency) != 3 {
		return fmt.Errorf("billing.default_currency must be a 3-letter ISO code, got %q", c.Billing.DefaultCurrency)
	}
	if c.Billing.DefaultCreditLimit.IsNegative() {
		return fmt.Errorf("billing.default_credit_limit cannot be negative")
	}
	if c.Billing.MaxRetries < 1 {
		return fmt.Errorf("billing.max_retries must be at least 1")
	}
	for _, r := range c.Billing.DefaultCountryCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("billing.default_country_code must contain digits only, got %q", c.Billing.DefaultCountryCode)
		}
	}

	if c.Storage.Enabled() && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage.access_key and storage.secret_key are required when storage.bucket is set")
	}

	if c.Payment.Enabled() {
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("payment.webhook_secret is required when payment.access_token is set")
		}
		if c.Payment.NotificationURL == "" {
			return fmt.Errorf("payment.notification_url is required when payment.access_token is set")
		}
	}
	if c.Payment.SignatureTolerance < 0 {
		return fmt.Errorf("payment.signature_tolerance cannot be negative")
	}

	if c.App.IsProduction() {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.JWT.DevPharmacyHeader {
			return fmt.Errorf("jwt.dev_pharmacy_header must be false in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
		if c.Payment.Sandbox {
			return fmt.Errorf("payment.sandbox must be false in production")
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
