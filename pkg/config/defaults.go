// Package config provides centralized default values for the offline gateway
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

// Names of the persisted state layout. The cache generation prefixes are
// versioned: bumping CacheVersion supersedes old generations wholesale.
const (
	DatabaseName        = "MediCareOfflineDB"
	SchemaVersion       = 1
	StaticCachePrefix   = "medicare-static-"
	DynamicCachePrefix  = "medicare-offline-"
	ResourceListingPath = "/api/medical-resources"
	SyncTag             = "medical-data-sync"
)

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Upstream Configuration
	UpstreamBaseURL        string
	UpstreamRequestTimeout time.Duration

	// Storage Configuration
	DataDir  string
	DBDriver string
	DBPath   string

	// Cache Configuration
	CacheVersion string
	ManifestPath string

	// Connectivity Observer
	ProbeInterval time.Duration
	ProbePath     string

	// Background Sync
	SyncInterval time.Duration

	// Operator Control Plane
	JWTSecret            string
	OperatorPasswordHash string

	// Logging
	LogDirectory  string
	VerboseProxy  bool
	SlowQueryWarn time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Upstream
	UpstreamBaseURL = getEnvString("UPSTREAM_BASE_URL", "http://localhost:5000")
	UpstreamRequestTimeout = getEnvDuration("UPSTREAM_REQUEST_TIMEOUT", 30*time.Second)

	// Storage
	DataDir = getEnvString("DATA_DIR", "data")
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "")

	// Cache
	CacheVersion = getEnvString("CACHE_VERSION", "v1")
	ManifestPath = getEnvString("CACHE_MANIFEST", "")

	// Connectivity
	ProbeInterval = getEnvDuration("PROBE_INTERVAL", 30*time.Second)
	ProbePath = getEnvString("PROBE_PATH", "/")

	// Background Sync
	SyncInterval = getEnvDuration("SYNC_INTERVAL", 30*time.Minute)

	// Operator Control Plane
	JWTSecret = getEnvString("JWT_SECRET", "")
	OperatorPasswordHash = getEnvString("OPERATOR_PASSWORD_HASH", "")

	// Logging
	LogDirectory = getEnvString("LOG_DIR", "logs")
	VerboseProxy = getEnvBool("VERBOSE_PROXY", false)
	SlowQueryWarn = getEnvDuration("SLOW_QUERY_WARN", 100*time.Millisecond)
}

// StaticCacheName returns the versioned static-asset generation name.
func StaticCacheName() string { return StaticCachePrefix + CacheVersion }

// DynamicCacheName returns the versioned dynamic-content generation name.
func DynamicCacheName() string { return DynamicCachePrefix + CacheVersion }
