// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"DATABASE_URL"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Completion              `yaml:"completion"`
	Midtrans                `yaml:"midtrans"`
	Quota                   `yaml:"quota"`
	RateLimit               `yaml:"rate_limit"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Scheduler               `yaml:"scheduler"`
	CORS                    `yaml:"cors"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP   string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP   time.Duration `yaml:"timeouthttp" env-default:"15s"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" env-default:"60s"`
	StreamTimeout time.Duration `yaml:"stream_timeout" env-default:"5m"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Completion настройки OpenAI-совместимого API для чата.
type Completion struct {
	BaseURL      string        `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	APIKey       string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	Model        string        `yaml:"model" env-default:"gpt-4o-mini"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout" env-default:"2m"`
}

// Midtrans настройки платежного шлюза.
type Midtrans struct {
	ServerKey   string `yaml:"server_key" env:"MIDTRANS_SERVER_KEY"`
	SnapBaseURL string `yaml:"snap_base_url" env-default:"https://app.sandbox.midtrans.com/snap/v1"`
	APIBaseURL  string `yaml:"api_base_url" env-default:"https://api.sandbox.midtrans.com/v1"`

	// SkipSignatureCheck отключает проверку signature_key, только для локальной разработки.
	SkipSignatureCheck bool `yaml:"skip_signature_check" env:"MIDTRANS_SKIP_SIGNATURE_CHECK"`
}

// Quota лимиты бесплатного тарифа.
type Quota struct {
	FreeDailyLimit int    `yaml:"free_daily_limit" env-default:"5"`
	Timezone       string `yaml:"timezone" env-default:"Asia/Jakarta"`
}

// RateLimit ограничение частоты запросов на одного пользователя.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"2"`
	Burst int     `yaml:"burst" env-default:"5"`
}

// RabbitMQ настройки брокера. Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// SMTP настройки почтового сервера для уведомлений.
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"pass" env:"SMTP_PASS"`
}

// Scheduler настройки фоновой проверки истекших подписок.
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env-default:"1h"`
}

// CORS разрешенные источники для браузерного клиента.
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:","`
}

// MustLoad функция для загрузки конфига. Перед чтением YAML подгружает .env, если он есть.
func MustLoad() *Config {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Load читает конфиг по указанному пути.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		return nil, fmt.Errorf("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// Location возвращает часовой пояс для суточного сброса лимита.
func (q Quota) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
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
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  StreamTimeout: %s\n"+
			"Completion:\n"+
			"  BaseURL: %s\n"+
			"  Model: %s\n"+
			"  APIKey: %s\n"+
			"Midtrans:\n"+
			"  ServerKey: %s\n"+
			"  SkipSignatureCheck: %t\n"+
			"Quota:\n"+
			"  FreeDailyLimit: %d\n"+
			"  Timezone: %s\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.StreamTimeout,
		c.BaseURL,
		c.Model,
		mask(c.APIKey),
		mask(c.ServerKey),
		c.SkipSignatureCheck,
		c.FreeDailyLimit,
		c.Timezone,
	)
}
