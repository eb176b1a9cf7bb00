// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	// DispatchModeDirect - рассылка событий HTTP-запросами прямо из процесса API.
	DispatchModeDirect = "direct"
	// DispatchModeQueue - события публикуются в RabbitMQ, рассылкой занимается sender.
	DispatchModeQueue = "queue"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string         `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string         `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string         `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	PaymentWebhook          PaymentWebhook `yaml:"payment_webhook"`
	Dispatcher              Dispatcher     `yaml:"dispatcher"`
	Reminder                Reminder       `yaml:"reminder"`
	SMTP                    SMTP           `yaml:"smtp"`
	Invite                  Invite         `yaml:"invite"`
	Cache                   Cache          `yaml:"cache"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
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

// RabbitMQ структура для подключения к брокеру в режиме очереди
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном администратора
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// PaymentWebhook настройки входящего вебхука платёжного провайдера
type PaymentWebhook struct {
	Secret       string `yaml:"secret" env:"PAYMENT_WEBHOOK_SECRET"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env-default:"262144"`
}

// Dispatcher настройки рассылки событий подписчикам
type Dispatcher struct {
	Mode        string        `yaml:"mode" env:"DISPATCHER_MODE" env-default:"direct"`
	Timeout     time.Duration `yaml:"timeout" env-default:"5s"`
	MaxParallel int           `yaml:"max_parallel" env-default:"8"`
}

// Reminder настройки сканера напоминаний о встречах
type Reminder struct {
	Interval       time.Duration `yaml:"interval" env-default:"5m"`
	Window         time.Duration `yaml:"window" env-default:"1h"`
	UTCOffsetHours int           `yaml:"utc_offset_hours" env-default:"-3"`
}

// SMTP настройки почтового сервера для приглашений
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
}

// Invite настройки приглашения "задайте пароль"
type Invite struct {
	BaseURL string        `yaml:"base_url" env:"INVITE_BASE_URL"`
	TTL     time.Duration `yaml:"ttl" env-default:"72h"`
}

// Cache настройки кеширования
type Cache struct {
	WebhooksTTL time.Duration `yaml:"webhooks_ttl" env-default:"5m"`
}

// MustLoad функция для загрузки конфига из файла CONFIG_PATH.
// Перед чтением подхватывает .env, если он есть, чтобы переменные окружения могли переопределить файл.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// ReminderLocation возвращает фиксированный часовой пояс, в котором заданы время встреч.
func (c *Config) ReminderLocation() *time.Location {
	return time.FixedZone("reminder", c.Reminder.UTCOffsetHours*int(time.Hour/time.Second))
}
