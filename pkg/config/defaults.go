// Package config provides centralized default values for the duplication service
package config

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
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
			value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

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
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), defaultValue)
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

// secrets are never echoed to the startup log
func redact(key, val string) string {
	upper := strings.ToUpper(key)
	for _, marker := range []string{"PASSWORD", "SECRET", "TOKEN", "API_KEY"} {
		if strings.Contains(upper, marker) {
			return "****"
		}
	}
	if strings.Contains(upper, "REDIS_URL") && strings.Contains(val, "@") {
		return "****"
	}
	return val
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	CORSOrigins        []string

	// Tenancy
	DataDir    string
	MaxTenants int

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Logging
	LogLevel     string
	LogDirectory string
	LogToFile    bool
	LogJSON      bool

	// Network administration
	NetworkAdminPassword string
	NetworkJWTSecret     string
	TokenTTL             time.Duration

	// Operation log
	RedisURL     string
	OplogLockTTL time.Duration

	// Notifications
	ResendAPIKey string
	NotifyEmail  string
	EmailFrom    string

	// Duplication
	DuplicationTimeout time.Duration
)

func init() {
	Load()
}

// Load (re)reads every setting from the environment. init calls it once;
// tests call it again after os.Setenv.
func Load() {
	loadEnvFile()

	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	CORSOrigins = splitList(getEnvString("CORS_ORIGINS", "*"))

	DataDir = getEnvString("DATA_DIR", defaultDataDir())
	MaxTenants = getEnvInt("MAX_TENANTS", 16)

	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = time.Duration(getEnvInt("SLOW_QUERY_THRESHOLD_MS", 500)) * time.Millisecond

	LogLevel = getEnvString("LOG_LEVEL", "INFO")
	LogDirectory = getEnvString("LOG_DIRECTORY", filepath.Join(DataDir, "logs"))
	LogToFile = getEnvBool("LOG_TO_FILE", true)
	LogJSON = getEnvBool("LOG_JSON", true)

	NetworkAdminPassword = getEnvString("NETWORK_ADMIN_PASSWORD", "")
	NetworkJWTSecret = getEnvString("NETWORK_JWT_SECRET", "")
	TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)

	RedisURL = getEnvString("REDIS_URL", "")
	OplogLockTTL = getEnvDuration("OPLOG_LOCK_TTL", 5*time.Second)

	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	NotifyEmail = getEnvString("NOTIFY_EMAIL", "")
	EmailFrom = getEnvString("EMAIL_FROM", "postdup <noreply@example.com>")

	DuplicationTimeout = getEnvDuration("DUPLICATION_TIMEOUT", 60*time.Second)
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "postdup-data"
	}
	return filepath.Join(homeDir, "postdup-server")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
