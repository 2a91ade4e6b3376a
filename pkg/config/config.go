package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/sakashimaa/order-orchestrator/pkg/breaker"
	"github.com/sakashimaa/order-orchestrator/pkg/utils"
)

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTP     `yaml:"http"`
	Postgres PG       `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Services Services `yaml:"services"`
	Gateway  Gateway  `yaml:"gateway"`
	Orders   Orders   `yaml:"orders"`
	Limiter  Limiter  `yaml:"limiter"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"10m"`
}

type Services struct {
	CustomersURL string `yaml:"customers_url" env:"CUSTOMERS_URL" env-default:"http://localhost:8081"`
	InventoryURL string `yaml:"inventory_url" env:"INVENTORY_URL" env-default:"http://localhost:8082"`
}

type Gateway struct {
	CallTimeout time.Duration    `yaml:"call_timeout" env:"GATEWAY_CALL_TIMEOUT" env-default:"2s"`
	Breaker     breaker.Settings `yaml:"breaker"`
}

type Orders struct {
	NumberPrefix   string        `yaml:"number_prefix" env-default:"ORD"`
	DeliveryWindow time.Duration `yaml:"delivery_window" env-default:"72h"`
}

type Limiter struct {
	Max        int           `yaml:"max" env-default:"20"`
	Expiration time.Duration `yaml:"expiration" env-default:"5s"`
}

func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

func (c *Config) Logger() LoggerConfig {
	return LoggerConfig{
		Level: c.LogLevel,
		Env:   c.Env,
	}
}
