package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/flexprice/recharge-sync/internal/types"
)

const envPrefix = "RECHARGE_SYNC"

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Postgres   PostgresConfig   `mapstructure:"postgres" validate:"required"`
	Recharge   RechargeConfig   `mapstructure:"recharge" validate:"required"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required,oneof=api sync"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level" validate:"required"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
}

type PostgresConfig struct {
	// DSN takes precedence over the discrete connection fields when set
	DSN                    string `mapstructure:"dsn"`
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RechargeConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	SortBy  string        `mapstructure:"sort_by" validate:"required"`
	Limit   int           `mapstructure:"limit" validate:"gt=0,lte=250"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is requests per second, zero disables limiting
	RateLimit      float64              `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int                  `mapstructure:"rate_burst" validate:"gte=0"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig controls the breaker around Recharge API calls. While
// open, calls fail immediately as upstream unavailable.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold uint32        `mapstructure:"failure_threshold" validate:"required_if=Enabled true"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
	// AllowUnsigned accepts deliveries without a signature check when no
	// secret is configured. Off by default: an unset secret rejects everything.
	AllowUnsigned bool `mapstructure:"allow_unsigned"`
	// SerializePerSubscription runs read, compare and upsert under a
	// per-subscription advisory lock.
	SerializePerSubscription bool `mapstructure:"serialize_per_subscription"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// NewConfig loads .env (if present), config.yaml (if present) and the
// environment, in increasing order of precedence.
func NewConfig() (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the original deployment
	_ = v.BindEnv("recharge.api_key", envPrefix+"_RECHARGE_API_KEY", "RECHARGE_API_KEY")
	_ = v.BindEnv("webhook.secret", envPrefix+"_WEBHOOK_SECRET", "RECHARGE_WEBHOOK_SECRET")
	_ = v.BindEnv("postgres.dsn", envPrefix+"_POSTGRES_DSN", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// GetDefaultConfig returns the configuration built from defaults only. It is
// used where a config is needed before NewConfig runs, e.g. the global logger.
func GetDefaultConfig() *Configuration {
	v := viper.New()
	setDefaults(v)

	var cfg Configuration
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeAPI))

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("logging.fluentd_enabled", false)
	v.SetDefault("logging.fluentd_port", 24224)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "recharge")
	v.SetDefault("postgres.dbname", "recharge")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.auto_migrate", false)

	v.SetDefault("recharge.base_url", "https://api.rechargeapps.com")
	v.SetDefault("recharge.sort_by", "updated_at-desc")
	v.SetDefault("recharge.limit", 50)
	v.SetDefault("recharge.timeout", "30s")
	v.SetDefault("recharge.rate_limit", 2)
	v.SetDefault("recharge.rate_burst", 40)
	v.SetDefault("recharge.circuit_breaker.enabled", true)
	v.SetDefault("recharge.circuit_breaker.failure_threshold", 5)
	v.SetDefault("recharge.circuit_breaker.open_timeout", "60s")

	v.SetDefault("webhook.allow_unsigned", false)
	v.SetDefault("webhook.serialize_per_subscription", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", 1.0)

	// Keys without a meaningful default still need registering, otherwise
	// AutomaticEnv never applies them during Unmarshal.
	for _, key := range []string{
		"logging.fluentd_host",
		"postgres.dsn",
		"postgres.password",
		"recharge.api_key",
		"webhook.secret",
		"sentry.dsn",
		"sentry.environment",
	} {
		v.SetDefault(key, "")
	}
}

// Validate checks struct constraints
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetDSN returns the lib/pq connection string
func (c PostgresConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetMigrateURL returns a postgres:// URL suitable for golang-migrate. A
// key=value DSN is converted so migrations target the same database as the
// server.
func (c PostgresConfig) GetMigrateURL() (string, error) {
	if c.DSN != "" {
		if strings.Contains(c.DSN, "://") {
			return c.DSN, nil
		}
		return keyValueDSNToURL(c.DSN)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String(), nil
}

func keyValueDSNToURL(dsn string) (string, error) {
	params, err := parseKeyValueDSN(dsn)
	if err != nil {
		return "", err
	}

	host := lo.CoalesceOrEmpty(params["host"], "localhost")
	port := lo.CoalesceOrEmpty(params["port"], "5432")

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   params["dbname"],
	}
	if user := params["user"]; user != "" {
		if password, ok := params["password"]; ok {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}

	q := url.Values{}
	for key, value := range params {
		switch key {
		case "host", "port", "dbname", "user", "password":
		default:
			q.Set(key, value)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// parseKeyValueDSN parses a libpq keyword/value connection string. Values may
// be single quoted, with backslash escapes inside quotes.
func parseKeyValueDSN(dsn string) (map[string]string, error) {
	params := make(map[string]string)
	r := []rune(dsn)
	i := 0

	skipSpace := func() {
		for i < len(r) && unicode.IsSpace(r[i]) {
			i++
		}
	}

	for {
		skipSpace()
		if i >= len(r) {
			break
		}

		start := i
		for i < len(r) && r[i] != '=' && !unicode.IsSpace(r[i]) {
			i++
		}
		key := string(r[start:i])
		skipSpace()
		if key == "" || i >= len(r) || r[i] != '=' {
			return nil, fmt.Errorf("invalid postgres dsn: missing \"=\" after %q", key)
		}
		i++
		skipSpace()

		var value strings.Builder
		if i < len(r) && r[i] == '\'' {
			i++
			closed := false
			for i < len(r) {
				switch r[i] {
				case '\\':
					i++
					if i < len(r) {
						value.WriteRune(r[i])
					}
				case '\'':
					closed = true
				default:
					value.WriteRune(r[i])
				}
				i++
				if closed {
					break
				}
			}
			if !closed {
				return nil, fmt.Errorf("invalid postgres dsn: unterminated quote for %q", key)
			}
		} else {
			for i < len(r) && !unicode.IsSpace(r[i]) {
				if r[i] == '\\' && i+1 < len(r) {
					i++
				}
				value.WriteRune(r[i])
				i++
			}
		}
		params[key] = value.String()
	}

	return params, nil
}
