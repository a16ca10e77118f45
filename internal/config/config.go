package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Auth       AuthConfig
	Authz      AuthzConfig
	Storage    StorageConfig
	Tickets    TicketsConfig
	Pagination PaginationConfig
	LogLevel   string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// Dialect is "postgres" or "sqlite".
	Dialect      string
	// Driver selects the Postgres driver: "pq" (lib/pq) or "pgdriver" (bun's pgdriver).
	Driver       string
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled          bool
	Addr             string
	Password         string
	DB               int
	CategoryCacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type TopicConfig struct {
	EventLifecycle  string
	TicketValidated string
	TicketIssued    string
}

type AuthConfig struct {
	// Mode is "oidc" (Keycloak issuer) or "hmac" (shared secret, dev and tests).
	Mode          string
	OIDCIssuer    string
	OIDCClientID  string
	JWTSecret     string
	KeycloakURL   string
	KeycloakRealm string
	ClientID      string
	ClientSecret  string
}

type AuthzConfig struct {
	// MembershipSource is "database" or "remote".
	MembershipSource    string
	StructureServiceURL string
}

type StorageConfig struct {
	BaseURL        string
	PublicBaseURL  string
	MaxUploadBytes int64
}

type TicketsConfig struct {
	QRSecret string
}

type PaginationConfig struct {
	DefaultSize int
	MaxSize     int
}

// DSN returns the lib/pq connection string for the postgres dialect.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.Username +
		" password=" + d.Password +
		" dbname=" + d.Database +
		" sslmode=" + d.SSLMode
}

// URL returns the postgres URL form used by golang-migrate.
func (d DatabaseConfig) URL() string {
	return "postgres://" + d.Username + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Database + "?sslmode=" + d.SSLMode
}

func Load() *Config {
	keycloakURL := getEnv("KEYCLOAK_URL", "http://auth.ticketly.com:8080")
	keycloakRealm := getEnv("KEYCLOAK_REALM", "event-ticketing")

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8081"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Dialect:      getEnv("DB_DIALECT", "postgres"),
			Driver:       getEnv("DB_DRIVER", "pq"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "events_user"),
			Password:     getEnv("DB_PASSWORD", "events_pass"),
			Database:     getEnv("DB_NAME", "events"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "file::memory:?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:          getEnvBool("REDIS_ENABLED", true),
			Addr:             getEnv("REDIS_ADDR", "localhost:6379"),
			Password:         getEnv("REDIS_PASSWORD", ""),
			DB:               getEnvInt("REDIS_DB", 0),
			CategoryCacheTTL: getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:  getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID:  getEnv("KAFKA_GROUP_ID", "events-service-group"),
			Enabled:  getEnvBool("KAFKA_ENABLED", true),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
			Topics: TopicConfig{
				EventLifecycle:  getEnv("KAFKA_TOPIC_EVENT_LIFECYCLE", "ticketly.events.lifecycle"),
				TicketValidated: getEnv("KAFKA_TOPIC_TICKET_VALIDATED", "ticketly.tickets.validated"),
				TicketIssued:    getEnv("KAFKA_TOPIC_TICKET_ISSUED", "ticketly.tickets.issued"),
			},
		},
		Auth: AuthConfig{
			Mode:          getEnv("AUTH_MODE", "oidc"),
			OIDCIssuer:    getEnv("OIDC_ISSUER", keycloakURL+"/realms/"+keycloakRealm),
			OIDCClientID:  getEnv("OIDC_CLIENT_ID", ""),
			JWTSecret:     getEnv("JWT_SECRET", ""),
			KeycloakURL:   keycloakURL,
			KeycloakRealm: keycloakRealm,
			ClientID:      getEnv("EVENTS_SERVICE_CLIENT_ID", "events-service"),
			ClientSecret:  getEnv("EVENTS_SERVICE_CLIENT_SECRET", ""),
		},
		Authz: AuthzConfig{
			MembershipSource:    getEnv("AUTHZ_MEMBERSHIP_SOURCE", "database"),
			StructureServiceURL: getEnv("STRUCTURE_SERVICE_URL", "http://localhost:8082/api/structure-service"),
		},
		Storage: StorageConfig{
			BaseURL:        getEnv("STORAGE_BASE_URL", "file:///tmp/events-media"),
			PublicBaseURL:  getEnv("STORAGE_PUBLIC_BASE_URL", "/media"),
			MaxUploadBytes: int64(getEnvInt("STORAGE_MAX_UPLOAD_BYTES", 5<<20)),
		},
		Tickets: TicketsConfig{
			QRSecret: getEnv("TICKET_QR_SECRET", ""),
		},
		Pagination: PaginationConfig{
			DefaultSize: getEnvInt("PAGINATION_DEFAULT_SIZE", 20),
			MaxSize:     getEnvInt("PAGINATION_MAX_SIZE", 100),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
