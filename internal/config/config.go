// Package config предоставляет структуры и функции для загрузки конфига storyflow.
// Конфиг читается из YAML-файла, путь к которому задаёт CONFIG_PATH;
// секреты можно переопределить переменными окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env               string `yaml:"env" env-default:"local"`
	GRPCHealthAddress string `yaml:"grpc_health_address"`
	HTTPServer        `yaml:"http_server"`
	JWTToken          `yaml:"jwttoken"`
	Storage           Storage         `yaml:"storage"`
	Redis             RedisConnection `yaml:"redis_connection"`
	RabbitMQ          RabbitMQ        `yaml:"rabbitmq"`
	Premium           Premium         `yaml:"premium"`
	Payment           Payment         `yaml:"payment"`
	SMTP              SMTP            `yaml:"smtp"`
	Scheduler         Scheduler       `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"1h"`
}

// Storage выбор и настройки хранилища.
type Storage struct {
	Driver                   string `yaml:"driver" env-default:"postgres"`
	PostgresConnectionString string `yaml:"postgres_connection_string" env:"POSTGRES_DSN"`
	MigrationsPath           string `yaml:"migrations_path" env-default:"./migrations"`
	MongoURI                 string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase            string `yaml:"mongo_database" env-default:"storyFlow"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Addr        string        `yaml:"addressredis"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries" env-default:"3"`
	DialTimeout time.Duration `yaml:"dial_timeout" env-default:"5s"`
	Timeout     time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQ настройки брокера событий.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange   string        `yaml:"exchange" env-default:"storyflow.events"`
	Queue      string        `yaml:"queue" env-default:"notifications.email"`
}

// Premium настройки премиум-доступа.
type Premium struct {
	GrantDuration time.Duration `yaml:"grant_duration" env-default:"24h"`
}

// Payment настройки платёжного провайдера (Stripe).
type Payment struct {
	SecretKey string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	APIURL    string        `yaml:"api_url" env-default:"https://api.stripe.com/v1"`
	Currency  string        `yaml:"currency" env-default:"usd"`
	Timeout   time.Duration `yaml:"timeout" env-default:"10s"`
}

// SMTP настройки почтового сервера уведомлений.
type SMTP struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"587"`
	User string `yaml:"user"`
	Pass string `yaml:"pass" env:"SMTP_PASS"`
	From string `yaml:"from"`
}

// Scheduler настройки фоновой очистки истёкших премиум-доступов.
type Scheduler struct {
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"10m"`
	LockTTL       time.Duration `yaml:"lock_ttl" env-default:"1m"`
}

// Load читает конфиг из файла path.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("%s: jwttoken.jwt_secret_key is required", op)
	}
	switch cfg.Storage.Driver {
	case "postgres", "mongo":
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Storage.Driver)
	}
	if err := cfg.validateDurations(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// validateDurations требует, чтобы все интервалы были положительными.
func (c *Config) validateDurations() error {
	durations := []struct {
		key   string
		value time.Duration
	}{
		{"jwttoken.token_ttl", c.TokenTTL},
		{"premium.grant_duration", c.Premium.GrantDuration},
		{"scheduler.sweep_interval", c.Scheduler.SweepInterval},
		{"scheduler.lock_ttl", c.Scheduler.LockTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.value)
		}
	}
	return nil
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"GRPCHealthAddress: %s\n"+
			"Storage:\n"+
			"  Driver: %s\n"+
			"  PostgresConnectionString: %s\n"+
			"  MongoURI: %s\n"+
			"  MongoDatabase: %s\n"+
			"Redis:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"  Exchange: %s\n"+
			"JWTToken:\n"+
			"  JWTSecretKey: %s\n"+
			"  TokenTTL: %s\n"+
			"Premium:\n"+
			"  GrantDuration: %s\n"+
			"Payment:\n"+
			"  SecretKey: %s\n"+
			"  Currency: %s\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.GRPCHealthAddress,
		c.Storage.Driver,
		mask(c.Storage.PostgresConnectionString),
		mask(c.Storage.MongoURI),
		c.Storage.MongoDatabase,
		c.Redis.Addr,
		mask(c.Redis.Password),
		mask(c.RabbitMQ.URL),
		c.RabbitMQ.Exchange,
		mask(c.JWTSecretKey),
		c.TokenTTL,
		c.Premium.GrantDuration,
		mask(c.Payment.SecretKey),
		c.Payment.Currency,
	)
}
