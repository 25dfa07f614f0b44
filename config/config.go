package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port      string     `yaml:"port" env:"PORT" env-default:"5000"`
	JWTSecret string     `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Admin     Admin      `yaml:"admin"`
	Database  Database   `yaml:"database"`
	Redis     Redis      `yaml:"redis"`
	Kafka     Kafka      `yaml:"kafka"`
	Calendar  Calendar   `yaml:"calendar"`
	Lock      Lock       `yaml:"lock"`
	Payment   Payment    `yaml:"payment"`
	Worker    Worker     `yaml:"worker"`
	Booking   Booking    `yaml:"booking"`
	RoomTypes []RoomType `yaml:"room_types"`
}

type Admin struct {
	Username     string `yaml:"username" env:"ADMIN_USERNAME" env-default:"admin"`
	PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH" env-default:""`
}

type Booking struct {
	// PendingTTLMinutes releases unpaid bookings after this many minutes.
	// Zero holds them until the payment callback arrives.
	PendingTTLMinutes int `yaml:"pending_ttl_minutes" env:"BOOKING_PENDING_TTL" env-default:"0"`
}

func (b *Booking) PendingTTL() time.Duration {
	return time.Duration(b.PendingTTLMinutes) * time.Minute
}

type Worker struct {
	MaxWorkers int `yaml:"max_workers" env:"WORKER_MAX_WORKERS" env-default:"5"`
}

type Database struct {
	// Driver is either "postgres" or "memory".
	Driver       string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	User         string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password     string `yaml:"password" env:"DB_PASSWORD" env-default:""`
	DatabaseName string `yaml:"database_name" env:"DB_NAME" env-default:"villa_booking"`
	Host         string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`

	// Connection Pool Settings
	MaxOpenConns    int `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME" env-default:"30"`
}

func (d *Database) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DatabaseName, d.SSLMode)
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

func (r *Redis) GetRedisURL() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type Kafka struct {
	Enabled           bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers           []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	NotificationTopic string   `yaml:"notification_topic" env:"KAFKA_NOTIFICATION_TOPIC" env-default:"villa-notifications"`
	ConsumerGroup     string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"villa-notification-worker"`
}

type Calendar struct {
	// FeedURL is the property-wide iCal export (e.g. the Booking.com extranet export link).
	FeedURL string `yaml:"feed_url" env:"CALENDAR_FEED_URL" env-default:""`
	// RoomFeeds maps a room type id to its own iCal export.
	RoomFeeds       map[string]string `yaml:"room_feeds" env:"CALENDAR_ROOM_FEEDS" env-separator:","`
	RequestTimeout  int               `yaml:"request_timeout_seconds" env:"CALENDAR_REQUEST_TIMEOUT" env-default:"5"`
	CacheTTL        int               `yaml:"cache_ttl_seconds" env:"CALENDAR_CACHE_TTL" env-default:"60"`
	InventoryScope  string            `yaml:"inventory_scope" env:"CALENDAR_INVENTORY_SCOPE" env-default:"room_type"`
	MaxIdleConns    int               `yaml:"max_idle_conns" env:"CALENDAR_MAX_IDLE_CONNS" env-default:"10"`
	IdleConnTimeout int               `yaml:"idle_conn_timeout_seconds" env:"CALENDAR_IDLE_CONN_TIMEOUT" env-default:"90"`
}

func (c *Calendar) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

type Lock struct {
	// Driver is either "local" (in-process) or "redis" (shared across replicas).
	Driver string `yaml:"driver" env:"LOCK_DRIVER" env-default:"local"`
	TTL    int    `yaml:"ttl_seconds" env:"LOCK_TTL" env-default:"30"`
}

type Payment struct {
	ProjectID    string `yaml:"project_id" env:"PAYSERA_PROJECT_ID" env-default:""`
	SignPassword string `yaml:"sign_password" env:"PAYSERA_SIGN_PASSWORD" env-default:""`
	BaseURL      string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:5000"`
	PayURL       string `yaml:"pay_url" env:"PAYSERA_PAY_URL" env-default:"https://bank.paysera.com/pay/"`
	Currency     string `yaml:"currency" env:"PAYSERA_CURRENCY" env-default:"EUR"`
	TestMode     bool   `yaml:"test_mode" env:"PAYSERA_TEST_MODE" env-default:"false"`
}

type RoomType struct {
	ID    string           `yaml:"id"`
	Name  string           `yaml:"name"`
	Rates map[int]RoomRate `yaml:"rates"`
}

type RoomRate struct {
	WithoutBreakfast float64 `yaml:"without_breakfast"`
	WithBreakfast    float64 `yaml:"with_breakfast"`
}

// WorkerConfig is the part of the configuration the notification worker
// reads. It leaves out the API secrets so the worker can run without them.
type WorkerConfig struct {
	Kafka  Kafka  `yaml:"kafka"`
	Worker Worker `yaml:"worker"`
}

func Initialise(configPath string, useEnv bool) (*Config, error) {
	cfg := &Config{}
	if err := load(configPath, useEnv, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func InitialiseWorker(configPath string, useEnv bool) (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := load(configPath, useEnv, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(configPath string, useEnv bool, cfg interface{}) error {
	if useEnv {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to read environment variables: %w", err)
		}
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			return nil
		}
	}

	// Fallback to environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read environment variables: %w", err)
	}

	return nil
}
