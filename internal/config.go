package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment   string              `mapstructure:"environment" envconfig:"ENVIRONMENT" default:"development" validate:"oneof=development staging production"`
	Server        ServerConfig        `mapstructure:"http_server" envconfig:"HTTP_SERVER"`
	Database      DatabaseConfig      `mapstructure:"database" envconfig:"DATABASE"`
	Security      SecurityConfig      `mapstructure:"security" envconfig:"SECURITY"`
	Observability ObservabilityConfig `mapstructure:"observability" envconfig:"OBSERVABILITY"`
	Daraja        DarajaConfig        `mapstructure:"daraja" envconfig:"DARAJA"`
	Redis         RedisConfig         `mapstructure:"redis" envconfig:"REDIS"`
	Sweeper       SweeperConfig       `mapstructure:"sweeper" envconfig:"SWEEPER"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" envconfig:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" envconfig:"READ_HEADER_TIMEOUT" default:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"45s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"25" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"5" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME" default:"5m"`
	Source          string        `mapstructure:"source" envconfig:"SOURCE" validate:"required"`
}

type SecurityConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret" envconfig:"JWT_SECRET" validate:"required,min=32"`
	SessionTTL   time.Duration `mapstructure:"session_ttl" envconfig:"SESSION_TTL" default:"168h"`
	BCryptCost   int           `mapstructure:"bcrypt_cost" envconfig:"BCRYPT_COST" default:"12" validate:"min=4,max=15"`
	CookieSecure bool          `mapstructure:"cookie_secure" envconfig:"COOKIE_SECURE"`
	TicketSecret string        `mapstructure:"ticket_secret" envconfig:"TICKET_SECRET" validate:"required,min=32"`
}

type DarajaConfig struct {
	Environment            string          `mapstructure:"environment" envconfig:"ENVIRONMENT" default:"sandbox" validate:"oneof=sandbox production"`
	BaseURL                string          `mapstructure:"base_url" envconfig:"BASE_URL" validate:"omitempty,url"`
	ConsumerKey            string          `mapstructure:"consumer_key" envconfig:"CONSUMER_KEY" validate:"required"`
	ConsumerSecret         string          `mapstructure:"consumer_secret" envconfig:"CONSUMER_SECRET" validate:"required"`
	ShortCode              string          `mapstructure:"short_code" envconfig:"SHORT_CODE" validate:"required,numeric"`
	Passkey                string          `mapstructure:"passkey" envconfig:"PASSKEY" validate:"required"`
	TransactionType        string          `mapstructure:"transaction_type" envconfig:"TRANSACTION_TYPE" default:"CustomerPayBillOnline" validate:"oneof=CustomerPayBillOnline CustomerBuyGoodsOnline"`
	CallbackURL            string          `mapstructure:"callback_url" envconfig:"CALLBACK_URL" validate:"required,url"`
	Timeout                time.Duration   `mapstructure:"timeout" envconfig:"TIMEOUT" default:"30s"`
	TimeZone               string          `mapstructure:"time_zone" envconfig:"TIME_ZONE" default:"Africa/Nairobi"`
	CountryCode            string          `mapstructure:"country_code" envconfig:"COUNTRY_CODE" default:"254" validate:"numeric"`
	AccountReferencePrefix string          `mapstructure:"account_reference_prefix" envconfig:"ACCOUNT_REFERENCE_PREFIX" default:"LHU"`
	TransactionDesc        string          `mapstructure:"transaction_desc" envconfig:"TRANSACTION_DESC" default:"Payment for Link Up Hub Event"`
	Simulator              SimulatorConfig `mapstructure:"simulator" envconfig:"SIMULATOR"`
}

type SimulatorConfig struct {
	Port         int           `mapstructure:"port" envconfig:"PORT" default:"9090"`
	MaxWorkers   int           `mapstructure:"max_workers" envconfig:"MAX_WORKERS" default:"5"`
	JobQueueSize int           `mapstructure:"job_queue_size" envconfig:"JOB_QUEUE_SIZE" default:"100"`
	MinDelay     time.Duration `mapstructure:"min_delay" envconfig:"MIN_DELAY" default:"2s"`
	MaxDelay     time.Duration `mapstructure:"max_delay" envconfig:"MAX_DELAY" default:"8s"`
	SuccessRate  float64       `mapstructure:"success_rate" envconfig:"SUCCESS_RATE" default:"0.9" validate:"min=0,max=1"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled" envconfig:"ENABLED"`
	Addr        string        `mapstructure:"addr" envconfig:"ADDR" default:"localhost:6379" validate:"required_if=Enabled true"`
	Password    string        `mapstructure:"password" envconfig:"PASSWORD"`
	DB          int           `mapstructure:"db" envconfig:"DB" validate:"min=0"`
	CallbackTTL time.Duration `mapstructure:"callback_ttl" envconfig:"CALLBACK_TTL" default:"24h"`
}

type SweeperConfig struct {
	Embedded    bool          `mapstructure:"embedded" envconfig:"EMBEDDED"`
	Interval    time.Duration `mapstructure:"interval" envconfig:"INTERVAL" default:"1m"`
	QueryAfter  time.Duration `mapstructure:"query_after" envconfig:"QUERY_AFTER" default:"2m"`
	ExpireAfter time.Duration `mapstructure:"expire_after" envconfig:"EXPIRE_AFTER" default:"30m"`
	BatchSize   int           `mapstructure:"batch_size" envconfig:"BATCH_SIZE" default:"100" validate:"min=1"`
	LockKey     string        `mapstructure:"lock_key" envconfig:"LOCK_KEY" default:"linkup:sweeper:lock"`
	LockTTL     time.Duration `mapstructure:"lock_ttl" envconfig:"LOCK_TTL" default:"5m"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envconfig:"METRICS"`
	Tracing TracingConfig `mapstructure:"tracing" envconfig:"TRACING"`
	Logging LoggingConfig `mapstructure:"logging" envconfig:"LOGGING"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" envconfig:"ENABLED" default:"true"`
	Path    string `mapstructure:"path" envconfig:"PATH" default:"/metrics" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" envconfig:"ENABLED"`
	ServiceName  string  `mapstructure:"service_name" envconfig:"SERVICE_NAME" default:"linkup-hub" validate:"required_if=Enabled true"`
	SamplingRate float64 `mapstructure:"sampling_rate" envconfig:"SAMPLING_RATE" default:"1" validate:"min=0,max=1"`
	Endpoint     string  `mapstructure:"endpoint" envconfig:"ENDPOINT" validate:"required_if=Enabled true"`
	Insecure     bool    `mapstructure:"insecure" envconfig:"INSECURE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
}

const envPrefix = "LINKUP"

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadConfigFromEnv reads the whole configuration from LINKUP_* environment
// variables, e.g. LINKUP_DARAJA_CONSUMER_KEY.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Daraja.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("daraja config: %v", err))
	}

	if err := c.Sweeper.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("sweeper config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
			if strings.Contains(origin, "*") {
				return fmt.Errorf("allowed origin %s: wildcards cannot be combined with the session cookie", origin)
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

// Origins splits the comma separated allowed origins.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DarajaConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid time_zone %q: %w", c.TimeZone, err)
	}
	if c.Simulator.MinDelay > c.Simulator.MaxDelay {
		return errors.New("simulator min_delay cannot exceed max_delay")
	}
	return nil
}

// Location resolves the provider time zone used for request timestamps.
func (c *DarajaConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.FixedZone("EAT", 3*60*60)
	}
	return loc
}

func (c *SweeperConfig) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.ExpireAfter <= c.QueryAfter {
		return errors.New("expire_after must be greater than query_after")
	}
	return nil
}
