package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	StorageDriver    string // "dynamo" | "memory"
	BrokerDriver     string // "memory" | "redis" | "nats"
	RevocationDriver string // "redis" | "memory"

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string

	SNSRegion         string
	SNSMirrorTopicARN string // empty disables the SNS mirror

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	WSAllowAnonymous     bool
	WSHandshakeTimeout   time.Duration
	WSWriteTimeout       time.Duration
	WSPingInterval       time.Duration
	ConversationPageSize int

	SeedUsers      string   // "1:alice@example.com,2:bob@example.com:admin"
	AllowedOrigins []string // CORS allowed origins

	// TrustProxyHeaders lets X-Forwarded-For / X-Real-IP replace the socket
	// address. Only enable behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Messages      string
	Notifications string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		StorageDriver:    getEnv("STORAGE_DRIVER", "dynamo"),
		BrokerDriver:     getEnv("BROKER_DRIVER", "redis"),
		RevocationDriver: getEnv("REVOCATION_DRIVER", "redis"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Messages:      getEnv("DYNAMO_TABLE_MESSAGES", "messages"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		NATSURL:       getEnv("NATS_URL", "nats://localhost:4222"),

		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSMirrorTopicARN: getEnv("SNS_MIRROR_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 7*24*time.Hour),

		WSAllowAnonymous:     getEnvBool("WS_ALLOW_ANONYMOUS", false),
		WSHandshakeTimeout:   getEnvDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		WSWriteTimeout:       getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		WSPingInterval:       getEnvDuration("WS_PING_INTERVAL", 30*time.Second),
		ConversationPageSize: getEnvInt("CONVERSATION_PAGE_SIZE", 20),

		SeedUsers:      getEnv("SEED_USERS", ""),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s", "168h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
