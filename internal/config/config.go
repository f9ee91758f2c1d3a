package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	ListenAddr     string
	DataPath       string
	Store          string
	MongoURI       string
	MongoDB        string
	DBBusyTimeout  time.Duration
	DBLockTimeout  time.Duration
	AuthUser       string
	AuthPass       string
	AuthFile       string
	Private        bool
	HighlightStyle string
	MarkdownUnsafe bool
	MCPIdentity    string
	LogLevel       string
	LogPretty      bool
}

// Load reads the WIKI_* environment, after filling unset variables from a
// .env file in the working directory when one exists.
func Load() Config {
	_ = loadEnvFile(envFileName)
	cfg := Config{
		ListenAddr:     envOr("WIKI_LISTEN_ADDR", "127.0.0.1:8080"),
		DataPath:       envOr("WIKI_DATA_PATH", ".wiki"),
		Store:          strings.ToLower(envOr("WIKI_STORE", StoreSQLite)),
		MongoURI:       envOr("WIKI_MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        envOr("WIKI_MONGO_DB", "wikiDB"),
		AuthUser:       os.Getenv("WIKI_AUTH_USER"),
		AuthPass:       os.Getenv("WIKI_AUTH_PASS"),
		AuthFile:       os.Getenv("WIKI_AUTH_FILE"),
		HighlightStyle: envOr("WIKI_HIGHLIGHT_STYLE", "github"),
		MCPIdentity:    os.Getenv("WIKI_MCP_IDENTITY"),
		LogLevel:       envOr("WIKI_LOG_LEVEL", "info"),
	}

	cfg.DBBusyTimeout = parseDurationOr("WIKI_DB_BUSY_TIMEOUT", 5*time.Second)
	cfg.DBLockTimeout = parseDurationOr("WIKI_DB_LOCK_TIMEOUT", 2*time.Second)
	cfg.Private = parseBool("WIKI_PRIVATE")
	cfg.MarkdownUnsafe = parseBool("WIKI_MARKDOWN_UNSAFE")
	cfg.LogPretty = parseBool("WIKI_LOG_PRETTY")
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
	}
	return b
}
