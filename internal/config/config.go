package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	LogLevel           string

	DB DBConfig

	CartStore    string // mongo or memory
	MongoURI     string
	MongoDBName  string
	GuestCartTTL time.Duration

	RedisAddr     string
	RedisPassword string

	KafkaBrokers     []string
	OrderEventsTopic string

	Media MediaConfig

	FreeDeliveryThreshold   decimal.Decimal
	DeliveryCharge          decimal.Decimal
	StrictStatusTransitions bool
}

type DBConfig struct {
	Driver         string // postgres or sqlite
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SQLitePath     string
	MigrationsPath string
}

type MediaConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	UploadsDir    string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	driver := getEnv("DB_DRIVER", "postgres")
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "9090"),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: int64(getInt("MAX_REQUEST_BODY_SIZE", 6<<20)), // image uploads are capped at 5MB
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DB: DBConfig{
			Driver:         driver,
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "veggie"),
			Password:       getEnv("DB_PASSWORD", "veggie"),
			Name:           getEnv("DB_NAME", "veggie"),
			SQLitePath:     getEnv("SQLITE_PATH", "veggie.db"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations/"+driver),
		},
		CartStore:        getEnv("CART_STORE", "mongo"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "veggie"),
		GuestCartTTL:     getDuration("GUEST_CART_TTL", 7*24*time.Hour),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		Media: MediaConfig{
			Endpoint:      getEnv("MEDIA_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MEDIA_ACCESS_KEY", ""),
			SecretKey:     getEnv("MEDIA_SECRET_KEY", ""),
			Bucket:        getEnv("MEDIA_BUCKET", "veggie-images"),
			UseSSL:        getBool("MEDIA_USE_SSL", false),
			PublicBaseURL: getEnv("MEDIA_PUBLIC_BASE_URL", ""),
			UploadsDir:    getEnv("UPLOADS_DIR", "uploads"),
		},
		FreeDeliveryThreshold:   getDecimal("FREE_DELIVERY_THRESHOLD", decimal.NewFromInt(199)),
		DeliveryCharge:          getDecimal("DELIVERY_CHARGE", decimal.NewFromInt(40)),
		StrictStatusTransitions: getBool("STRICT_STATUS_TRANSITIONS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if v, err := decimal.NewFromString(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
