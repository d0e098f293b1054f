package params

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MemoryDB as DB_PATH keeps engine state in memory only.
const MemoryDB = "memory"

type Storage struct {
	DataDir string
	// DBPath is the Pebble directory. Empty means <DataDir>/db.
	DBPath string
	// EventJournal is a JSON-lines file every event is appended to.
	// Empty disables the journal.
	EventJournal string
}

type Log struct {
	File  string // empty logs to stdout only
	Level string
}

type API struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Engine struct {
	// Compaction is "swap" (default) or "stable"; see orderbook.Compaction.
	Compaction string
}

type Kafka struct {
	Brokers []string // empty disables event export
	Topic   string
}

type Config struct {
	Storage Storage
	Log     Log
	API     API
	Engine  Engine
	Kafka   Kafka
}

func Default() Config {
	return Config{
		Storage: Storage{
			DataDir: "./data",
		},
		Log: Log{
			Level: "info",
		},
		API: API{
			Addr:         ":8080",
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Engine: Engine{
			Compaction: "swap",
		},
		Kafka: Kafka{
			Topic: "hyperdex-events",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Storage.DataDir = getEnv("DATA_DIR", cfg.Storage.DataDir)
	cfg.Storage.DBPath = getEnv("DB_PATH", cfg.Storage.DBPath)
	cfg.Storage.EventJournal = getEnv("EVENT_JOURNAL", cfg.Storage.EventJournal)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}
	if ms := os.Getenv("API_READ_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			cfg.API.ReadTimeout = time.Duration(v) * time.Millisecond
		}
	}
	if ms := os.Getenv("API_WRITE_TIMEOUT_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			cfg.API.WriteTimeout = time.Duration(v) * time.Millisecond
		}
	}

	cfg.Engine.Compaction = strings.ToLower(getEnv("INDEX_COMPACTION", cfg.Engine.Compaction))

	// Brokers from comma-separated list, e.g. "kafka1:9092,kafka2:9092"
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	return cfg
}

// ResolvedDBPath returns where Pebble lives, or MemoryDB.
func (c Config) ResolvedDBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.Storage.DataDir, "db")
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
