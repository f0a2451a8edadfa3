package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"logLevel"`
	Server      struct {
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		Enabled        bool          `mapstructure:"enabled"`
		URL            string        `mapstructure:"url"`
		Stream         string        `mapstructure:"stream"`        // JetStream stream holding lead events
		SubjectPrefix  string        `mapstructure:"subjectPrefix"` // e.g. v1.leads
		PublishTimeout time.Duration `mapstructure:"publishTimeout"`
	} `mapstructure:"nats"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	RateLimit struct {
		Backend string        `mapstructure:"backend"` // memory | redis
		Limit   int           `mapstructure:"limit"`
		Window  time.Duration `mapstructure:"window"`
	} `mapstructure:"rateLimit"`
	Import ImportConfig `mapstructure:"import"`
	Export struct {
		MaxRows int `mapstructure:"maxRows"`
	} `mapstructure:"export"`
	History struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"history"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
		Port    int  `mapstructure:"port"`
	} `mapstructure:"metrics"`
	WorkerPools struct {
		Validation ValidationWorkerPoolConfig `mapstructure:"validation"`
	} `mapstructure:"workerPools"`
}

// ImportConfig bounds a single CSV import.
type ImportConfig struct {
	MaxRows        int   `mapstructure:"maxRows"`
	MaxUploadBytes int64 `mapstructure:"maxUploadBytes"`
}

// ValidationWorkerPoolConfig holds configuration for the import validation worker pool
type ValidationWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Max tasks blocked waiting for a worker
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to wait for a row result
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("$HOME/.buyer-lead-crm")
	v.AddConfigPath("/etc/buyer-lead-crm")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		v.Set("redis.addr", addr)
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		v.Set("auth.jwtSecret", secret)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 20*time.Second)
	v.SetDefault("database.postgresAutoMigrate", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 2112)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream", "LEADS")
	v.SetDefault("nats.subjectPrefix", "v1.leads")
	v.SetDefault("nats.publishTimeout", 3*time.Second)

	v.SetDefault("redis.db", 0)

	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.limit", 10)
	v.SetDefault("rateLimit.window", time.Minute)

	v.SetDefault("import.maxRows", 200)
	v.SetDefault("import.maxUploadBytes", 5<<20)
	v.SetDefault("export.maxRows", 1000)
	v.SetDefault("history.limit", 5)

	// WorkerPools Defaults
	v.SetDefault("workerPools.validation.poolSize", 8)
	v.SetDefault("workerPools.validation.queueSize", 400)
	v.SetDefault("workerPools.validation.maxBlock", 5*time.Second)
	v.SetDefault("workerPools.validation.expiryTime", time.Minute)
}

func (c *Config) validate() error {
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid rateLimit.backend %q: expected memory or redis", c.RateLimit.Backend)
	}
	if c.RateLimit.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("rateLimit.backend is redis but redis.addr is empty")
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import.maxRows must be positive, got %d", c.Import.MaxRows)
	}
	if c.Export.MaxRows <= 0 {
		return fmt.Errorf("export.maxRows must be positive, got %d", c.Export.MaxRows)
	}
	return nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
