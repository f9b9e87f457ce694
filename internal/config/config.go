package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers selectable with STORE_DRIVER.
const (
	StoreMongo     = "mongo"
	StoreDatastore = "datastore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// server config
	APP_PORT         string
	SHUTDOWN_TIMEOUT time.Duration
	STORE_DRIVER     string
	// mongo config
	MONGO_URL        string
	MONGO_DB         string
	MONGO_COLLECTION string
	MONGO_TIMEOUT    time.Duration
	// datastore config
	DATASTORE_PROJECT_ID string
	DATASTORE_KIND       string
	// postgres config
	DB_HOST              string
	DB_PORT              int
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_CONN_MAX_LIFETIME time.Duration
	DB_MAX_IDLE_CONNS    int
	DB_MAX_OPEN_CONNS    int
	// search mirror config, disabled when ELASTIC_URL is empty
	ELASTIC_URL   string
	ELASTIC_INDEX string
	// event config, disabled when NATS_URL is empty
	NATS_URL            string
	NATS_SUBJECT_PREFIX string
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
}

// LoadEnvConfig reads an optional .env file and then the process
// environment into DefaultEnvConfig.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	DefaultEnvConfig = &envConfig{
		APP_PORT:             getEnvString("APP_PORT", "8000"),
		SHUTDOWN_TIMEOUT:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		STORE_DRIVER:         strings.ToLower(getEnvString("STORE_DRIVER", StoreMongo)),
		MONGO_URL:            getEnvString("MONGO_URL", "mongodb://localhost:27017"),
		MONGO_DB:             getEnvString("MONGO_DB", "assessment_db"),
		MONGO_COLLECTION:     getEnvString("MONGO_COLLECTION", "employees"),
		MONGO_TIMEOUT:        getEnvDuration("MONGO_TIMEOUT", 10*time.Second),
		DATASTORE_PROJECT_ID: getEnvString("DATASTORE_PROJECT_ID", ""),
		DATASTORE_KIND:       getEnvString("DATASTORE_KIND", "Employee"),
		DB_HOST:              getEnvString("DB_HOST", "localhost"),
		DB_PORT:              getEnvInt("DB_PORT", 5432),
		DB_USER:              getEnvString("DB_USER", "postgres"),
		DB_PASSWORD:          getEnvString("DB_PASSWORD", "postgres"),
		DB_NAME:              getEnvString("DB_NAME", "postgres"),
		DB_SSL_MODE:          getEnvString("DB_SSL_MODE", "disable"),
		DB_CONN_MAX_LIFETIME: getEnvDuration("DB_CONN_MAX_LIFETIME", 20*time.Minute),
		DB_MAX_IDLE_CONNS:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DB_MAX_OPEN_CONNS:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		ELASTIC_URL:          getEnvString("ELASTIC_URL", ""),
		ELASTIC_INDEX:        getEnvString("ELASTIC_INDEX", "employees"),
		NATS_URL:             getEnvString("NATS_URL", ""),
		NATS_SUBJECT_PREFIX:  getEnvString("NATS_SUBJECT_PREFIX", "records"),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
