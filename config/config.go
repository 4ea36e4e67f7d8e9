package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

var (
	ErrInvalidDriver   = errors.New("invalid database driver")
	ErrInvalidMQDriver = errors.New("invalid mq driver")
)

// Config holds every setting for the server and the cli.
// Precedence: defaults, yaml file, .env file, process environment.
type Config struct {
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
	HTTPAddr    string `yaml:"httpAddr"    envconfig:"HTTP_ADDR"`
	LogLevel    string `yaml:"logLevel"    envconfig:"LOG_LEVEL"`

	DBDriver   string `yaml:"dbDriver"   envconfig:"DB_DRIVER"`
	DBUser     string `yaml:"dbUser"     envconfig:"DB_USER"`
	DBPassword string `yaml:"dbPassword" envconfig:"DB_PASSWORD"`
	DBHost     string `yaml:"dbHost"     envconfig:"DB_HOST"`
	DBPort     string `yaml:"dbPort"     envconfig:"DB_PORT"`
	DBName     string `yaml:"dbName"     envconfig:"DB_NAME"`
	SQLitePath string `yaml:"sqlitePath" envconfig:"SQLITE_PATH"`

	RedisAddr     string `yaml:"redisAddr"     envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redisPassword" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redisDB"       envconfig:"REDIS_DB"`

	MQDriver            string `yaml:"mqDriver"            envconfig:"MQ_DRIVER"`
	RocketMQNameSrvAddr string `yaml:"rocketmqNameSrvAddr" envconfig:"ROCKETMQ_NAMESRV_ADDR"`

	EnableRateLimit bool    `yaml:"enableRateLimit" envconfig:"ENABLE_RATE_LIMIT"`
	RateLimitRPS    float64 `yaml:"rateLimitRPS"    envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int     `yaml:"rateLimitBurst"  envconfig:"RATE_LIMIT_BURST"`

	TallyCacheTTL   time.Duration `yaml:"tallyCacheTTL"   envconfig:"TALLY_CACHE_TTL"`
	CatalogCacheTTL time.Duration `yaml:"catalogCacheTTL" envconfig:"CATALOG_CACHE_TTL"`

	SightingsEnabled bool `yaml:"sightingsEnabled" envconfig:"SIGHTINGS_ENABLED"`

	APIURL        string `yaml:"apiURL"        envconfig:"CRYPTID_API_URL"`
	WalletKeypair string `yaml:"walletKeypair" envconfig:"WALLET_KEYPAIR"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Environment:         EnvDevelopment,
		HTTPAddr:            ":8080",
		LogLevel:            "info",
		DBDriver:            "sqlite",
		DBUser:              "root",
		DBHost:              "localhost",
		DBPort:              "3306",
		DBName:              "cryptid_votes",
		SQLitePath:          "cryptid.db",
		RedisDB:             0,
		MQDriver:            "memory",
		RocketMQNameSrvAddr: "localhost:9876",
		RateLimitRPS:        20,
		RateLimitBurst:      40,
		TallyCacheTTL:       30 * time.Second,
		CatalogCacheTTL:     10 * time.Minute,
		APIURL:              "http://localhost:8080",
		WalletKeypair:       "wallet.json",
	}
}

// Load builds the configuration. An empty or missing path skips the yaml layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// .env only fills variables the process environment does not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.DBDriver)
	}
	switch c.MQDriver {
	case "memory", "redis", "rocketmq":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMQDriver, c.MQDriver)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// MySQLDSN composes the mysql connection string
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// SlogLevel parses LOG_LEVEL, falling back to info
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
