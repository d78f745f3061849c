package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	RoleAll    = "all"
	RoleAPI    = "api"
	RoleWorker = "worker"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	App         struct {
		Role string `yaml:"role" default:"all"`
	} `yaml:"app"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
	} `yaml:"server"`
	Logging struct {
		Level         string        `yaml:"level" default:"info"`
		Format        string        `yaml:"format" default:"json"`
		Output        string        `yaml:"output" default:"stdout"`
		CollectTopic  string        `yaml:"collect_topic"`
		CollectPeriod time.Duration `yaml:"collect_period" default:"30s"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Database struct {
		Driver          string        `yaml:"driver" default:"postgres"`
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"5m"`
	} `yaml:"database"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"redis"`
		Prefix        string        `yaml:"prefix" default:"signals"`
		SignalTTL     time.Duration `yaml:"signal_ttl" default:"60s"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"10000"`
	} `yaml:"cache"`
	Queue struct {
		KeyPrefix         string        `yaml:"key_prefix" default:"signals:queue"`
		Workers           int           `yaml:"workers" default:"2"`
		RetryLimit        int           `yaml:"retry_limit" default:"6"`
		RetryDelay        time.Duration `yaml:"retry_delay" default:"10s"`
		RetryPollInterval time.Duration `yaml:"retry_poll_interval" default:"5s"`
	} `yaml:"queue"`
	Worker struct {
		ProcessingDelay time.Duration `yaml:"processing_delay"`
		ClaimTimeout    time.Duration `yaml:"claim_timeout" default:"5m"`
		CandleWindow    int           `yaml:"candle_window" default:"50"`
	} `yaml:"worker"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`
	RateLimit struct {
		SubmitBurst     float64 `yaml:"submit_burst" default:"20"`
		SubmitPerSecond float64 `yaml:"submit_per_second" default:"2"`
	} `yaml:"ratelimit"`
	Stream struct {
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"stream"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			Signals string `yaml:"signals" default:"signals.generated"`
			Candles string `yaml:"candles" default:"candles.ingest"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"signals-backend"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"signals"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("APP_ROLE"); v != "" {
		c.App.Role = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("WORKER_PROCESSING_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WORKER_PROCESSING_DELAY: %w", err)
		}
		c.Worker.ProcessingDelay = d
	}
	return nil
}

// RunsAPI reports whether this process serves HTTP.
func (c *Config) RunsAPI() bool {
	return c.App.Role == RoleAll || c.App.Role == RoleAPI
}

// RunsWorker reports whether this process consumes the dispatch queue.
func (c *Config) RunsWorker() bool {
	return c.App.Role == RoleAll || c.App.Role == RoleWorker
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.App.Role {
	case RoleAll, RoleAPI, RoleWorker:
	default:
		return fmt.Errorf("app.role must be one of all, api, worker, got '%s'", c.App.Role)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite3', got '%s'", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Cache.Backend {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("cache.backend must be one of redis, memory, none, got '%s'", c.Cache.Backend)
	}
	if c.RunsAPI() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when serving http")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive")
	}
	if c.Worker.ProcessingDelay < 0 {
		return fmt.Errorf("worker.processing_delay cannot be negative")
	}
	if c.RunsWorker() {
		if span := queue.RetrySpan(c.Queue.RetryDelay, c.Queue.RetryLimit); span <= c.Worker.ClaimTimeout {
			return fmt.Errorf("queue retries end after %s, before worker.claim_timeout %s; raise queue.retry_limit or queue.retry_delay",
				span, c.Worker.ClaimTimeout)
		}
	}
	if c.Worker.CandleWindow < 20 {
		return fmt.Errorf("worker.candle_window must be at least 20")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("clickhouse archive is fed from kafka; enable kafka first")
	}
	return nil
}
