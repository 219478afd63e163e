package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Environment string
	LogLevel    string

	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	WebSocket WebSocketConfig
	Auth      AuthConfig
	Payments  PaymentsConfig
	Session   SessionConfig
}

type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver      string // memory, postgres or mongo
	PostgresDSN string
	MongoURI    string
	MongoName   string
	Timeout     time.Duration
}

// RedisConfig is optional. When Addr is empty presence stays in process memory.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PresenceTTL time.Duration
	Channel     string
}

// KafkaConfig is optional. When Brokers is empty lifecycle events are not streamed.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type WebSocketConfig struct {
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

type AuthConfig struct {
	JWTSecret string
}

type PaymentsConfig struct {
	RazorpayKeyID     string
	RazorpayKeySecret string
	WebhookSecret     string
	Currency          string
}

// AllowsAnyOrigin reports whether browser origins are unrestricted: the list
// is empty or contains "*".
func (h HTTPConfig) AllowsAnyOrigin() bool {
	return len(h.AllowedOrigins) == 0 || slices.Contains(h.AllowedOrigins, "*")
}

// Enabled reports whether Razorpay credentials were supplied.
func (p PaymentsConfig) Enabled() bool {
	return p.RazorpayKeyID != "" && p.RazorpayKeySecret != ""
}

type SessionConfig struct {
	DefaultAmount int64
	CallBaseURL   string
}

func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		HTTP: HTTPConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:    DriverMemory,
			MongoName: "campusconnect",
			Timeout:   10 * time.Second,
		},
		Redis: RedisConfig{
			PresenceTTL: 2 * time.Minute,
			Channel:     "campusconnect:relay",
		},
		Kafka: KafkaConfig{
			Topic: "session-events",
		},
		WebSocket: WebSocketConfig{
			PingInterval: 54 * time.Second,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			SendBuffer:   256,
		},
		Payments: PaymentsConfig{
			Currency: "INR",
		},
		Session: SessionConfig{
			DefaultAmount: 99,
			CallBaseURL:   "http://localhost:3000/call",
		},
	}
}

// Load reads .env when present and overlays environment variables on the defaults.
func Load() (*Config, error) {
	// a missing .env is fine, the process environment is used as is
	_ = godotenv.Load(".env")

	cfg := Default()

	cfg.Environment = getString("ENV", cfg.Environment)
	cfg.LogLevel = getString("LOG_LEVEL", cfg.LogLevel)

	cfg.HTTP.Host = getString("HTTP_HOST", cfg.HTTP.Host)
	cfg.HTTP.Port = getInt("PORT", cfg.HTTP.Port)
	cfg.HTTP.ReadTimeout = getDuration("HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout)
	cfg.HTTP.WriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout)
	cfg.HTTP.AllowedOrigins = getList("CLIENT_URL", cfg.HTTP.AllowedOrigins)

	cfg.Database.Driver = getString("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.PostgresDSN = getString("DB_DSN", cfg.Database.PostgresDSN)
	cfg.Database.MongoURI = getString("MONGODB_URI", cfg.Database.MongoURI)
	cfg.Database.MongoName = getString("MONGODB_NAME", cfg.Database.MongoName)
	cfg.Database.Timeout = getDuration("DB_TIMEOUT", cfg.Database.Timeout)

	cfg.Redis.Addr = getString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.PresenceTTL = getDuration("REDIS_PRESENCE_TTL", cfg.Redis.PresenceTTL)
	cfg.Redis.Channel = getString("REDIS_RELAY_CHANNEL", cfg.Redis.Channel)

	cfg.Kafka.Brokers = getList("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getString("KAFKA_SESSION_TOPIC", cfg.Kafka.Topic)

	cfg.WebSocket.PingInterval = getDuration("WS_PING_INTERVAL", cfg.WebSocket.PingInterval)
	cfg.WebSocket.ReadTimeout = getDuration("WS_READ_TIMEOUT", cfg.WebSocket.ReadTimeout)
	cfg.WebSocket.WriteTimeout = getDuration("WS_WRITE_TIMEOUT", cfg.WebSocket.WriteTimeout)
	cfg.WebSocket.SendBuffer = getInt("WS_SEND_BUFFER", cfg.WebSocket.SendBuffer)

	cfg.Auth.JWTSecret = getString("JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.Payments.RazorpayKeyID = getString("RAZORPAY_KEY_ID", cfg.Payments.RazorpayKeyID)
	cfg.Payments.RazorpayKeySecret = getString("RAZORPAY_KEY_SECRET", cfg.Payments.RazorpayKeySecret)
	cfg.Payments.WebhookSecret = getString("RAZORPAY_WEBHOOK_SECRET", cfg.Payments.WebhookSecret)
	cfg.Payments.Currency = getString("PAYMENT_CURRENCY", cfg.Payments.Currency)

	cfg.Session.DefaultAmount = int64(getInt("SESSION_AMOUNT", int(cfg.Session.DefaultAmount)))
	cfg.Session.CallBaseURL = getString("CALL_BASE_URL", cfg.Session.CallBaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("http timeouts must be positive")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("DB_DSN is required for the postgres driver")
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the mongo driver")
		}
		if c.Database.MongoName == "" {
			return fmt.Errorf("MONGODB_NAME cannot be empty")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Redis.Addr != "" && c.Redis.PresenceTTL <= 0 {
		return fmt.Errorf("redis presence ttl must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if c.WebSocket.PingInterval <= 0 || c.WebSocket.ReadTimeout <= 0 || c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket timings must be positive")
	}
	if c.WebSocket.PingInterval >= c.WebSocket.ReadTimeout {
		return fmt.Errorf("websocket ping interval must be shorter than the read timeout")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("websocket send buffer must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if (c.Payments.RazorpayKeyID == "") != (c.Payments.RazorpayKeySecret == "") {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}

	if c.Session.DefaultAmount <= 0 {
		return fmt.Errorf("session amount must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
