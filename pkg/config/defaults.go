// Package config provides centralized default values for Glimpse
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Snapshot Cache Configuration
	AuthCacheTTL time.Duration

	// Flow Routing
	SignInPath      string
	SignUpPath      string
	ReturnParam     string
	AccountAreaPath string

	// Storage
	StorageDriver string // "memory", "sqlite3" or "libsql"
	SQLitePath    string
	TursoURL      string
	TursoToken    string

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Identity Provider Collaborator
	ReconcileJWTSecret string
	SDKSignInEnabled   bool
	SDKSignUpEnabled   bool

	// Avatar Proxy
	AvatarAESKey     string
	AvatarDir        string
	AvatarSize       int
	AvatarFetchLimit int64

	// SSE Configuration
	MaxSessionConnections       int
	SSEHeartbeatIntervalSeconds int
	SSEConnectionTimeoutMinutes int

	// Monitor Dashboard
	MonitorPassword     string
	MonitorJWTSecret    string
	MonitorTickInterval time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Snapshot Cache
	AuthCacheTTL = time.Duration(getEnvInt("AUTH_CACHE_TTL_HOURS", 24)) * time.Hour

	// Flow Routing
	SignInPath = getEnvString("SIGNIN_PATH", "/sign-in")
	SignUpPath = getEnvString("SIGNUP_PATH", "/sign-up")
	ReturnParam = getEnvString("RETURN_PARAM", "redirect_url")
	AccountAreaPath = getEnvString("ACCOUNT_AREA_PATH", "/dashboard")

	// Storage
	StorageDriver = getEnvString("STORAGE_DRIVER", "sqlite3")
	SQLitePath = getEnvString("SQLITE_PATH", "data/glimpse.db")
	TursoURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoToken = getEnvString("TURSO_AUTH_TOKEN", "")

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 500*time.Millisecond)

	// Identity Provider Collaborator
	ReconcileJWTSecret = getEnvString("RECONCILE_JWT_SECRET", "")
	SDKSignInEnabled = getEnvBool("SDK_SIGNIN_ENABLED", true)
	SDKSignUpEnabled = getEnvBool("SDK_SIGNUP_ENABLED", true)

	// Avatar Proxy
	AvatarAESKey = getEnvString("AVATAR_AES_KEY", "")
	AvatarDir = getEnvString("AVATAR_DIR", "data/avatars")
	AvatarSize = getEnvInt("AVATAR_SIZE", 48)
	AvatarFetchLimit = int64(getEnvInt("AVATAR_FETCH_LIMIT_KB", 2048)) * 1024

	// SSE Configuration
	MaxSessionConnections = getEnvInt("MAX_SESSION_CONNECTIONS", 3)
	SSEHeartbeatIntervalSeconds = getEnvInt("SSE_HEARTBEAT_INTERVAL_SECONDS", 30)
	SSEConnectionTimeoutMinutes = getEnvInt("SSE_CONNECTION_TIMEOUT_MINUTES", 30)

	// Monitor Dashboard
	MonitorPassword = getEnvString("MONITOR_PASSWORD", "")
	MonitorJWTSecret = getEnvString("MONITOR_JWT_SECRET", "")
	MonitorTickInterval = getEnvDuration("MONITOR_TICK_INTERVAL", 20*time.Second)
}
