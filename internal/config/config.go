// Package config centralises all environment configuration for the bot.
// It should be imported only by the cmd packages. Business-logic layers
// receive an already-built Config instance via dependency injection.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Session backends selectable with SESSION_BACKEND.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
)

// Config holds every runtime option the bot needs.
// Keep it flat and simple: prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// GitHub
	GitHubToken  string
	GitHubAPIURL string

	// Reasoning engine (Vertex AI)
	ProjectID       string
	Location        string
	CredentialsFile string
	Model           string

	// Conversation
	Language           string
	MaxToolRounds      int
	MaxConcurrentTurns int
	TurnTimeout        time.Duration

	// Sessions
	SessionBackend string
	MaxSessions    int
	MongoURI       string
	DBName         string
	SQLitePath     string

	// Aggregator limits
	MaxRepos            int
	TreeMaxDepth        int
	TreeMaxEntries      int
	TreeMaxRequests     int
	SnippetMaxChars     int
	SnippetCeilingBytes int

	// Telemetry
	TelemetryExporter string
	MetricInterval    time.Duration
}

// Load parses the environment (and an optional .env file) into Config.
// Variables required by the selected session backend are checked here so
// mis-configurations fail fast.
func Load() Config {
	// godotenv.Load() is a no-op if .env doesn't exist, safe in production.
	_ = godotenv.Load()

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  getDuration("READ_TIMEOUT_SEC", 5),
		WriteTimeout: getDuration("WRITE_TIMEOUT_SEC", 120),

		GitHubToken:  os.Getenv("GITHUB_TOKEN"),
		GitHubAPIURL: getEnv("GITHUB_API_URL", "https://api.github.com"),

		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Location:        getEnv("GCP_LOCATION", "us-central1"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Model:           getEnv("VERTEX_MODEL", "gemini-2.0-flash"),

		Language:           getEnv("ASSISTANT_LANGUAGE", "Ukrainian"),
		MaxToolRounds:      getInt("MAX_TOOL_ROUNDS", 10),
		MaxConcurrentTurns: getInt("MAX_CONCURRENT_TURNS", 16),
		TurnTimeout:        getDuration("TURN_TIMEOUT_SEC", 90),

		SessionBackend: getEnv("SESSION_BACKEND", BackendMemory),
		MaxSessions:    getInt("MAX_SESSIONS", 0),
		MongoURI:       os.Getenv("MONGODB_URI"),
		DBName:         getEnv("MONGODB_DB", "recruiter_bot"),
		SQLitePath:     getEnv("SQLITE_PATH", "data/sessions.db"),

		MaxRepos:            getInt("MAX_REPOS", 30),
		TreeMaxDepth:        getInt("TREE_MAX_DEPTH", 3),
		TreeMaxEntries:      getInt("TREE_MAX_ENTRIES", 500),
		TreeMaxRequests:     getInt("TREE_MAX_REQUESTS", 0),
		SnippetMaxChars:     getInt("SNIPPET_MAX_CHARS", 2000),
		SnippetCeilingBytes: getInt("SNIPPET_CEILING_BYTES", 1<<20),

		TelemetryExporter: getEnv("OTEL_EXPORTER", "none"),
		MetricInterval:    getDuration("OTEL_METRIC_INTERVAL_SEC", 60),
	}

	switch cfg.SessionBackend {
	case BackendMemory, BackendSQLite:
	case BackendMongo:
		cfg.MongoURI = must("MONGODB_URI")
	default:
		log.Printf("invalid SESSION_BACKEND=%q; using %s", cfg.SessionBackend, BackendMemory)
		cfg.SessionBackend = BackendMemory
	}
	if cfg.GitHubToken == "" {
		log.Printf("GITHUB_TOKEN not set; GitHub allows 60 unauthenticated requests per hour")
	}
	if cfg.TreeMaxRequests == 0 {
		// one tree walk must not spend the whole unauthenticated hour
		cfg.TreeMaxRequests = 20
		if cfg.GitHubToken == "" {
			cfg.TreeMaxRequests = 8
		}
	}
	return cfg
}

// RequireEngine checks the variables the Vertex engine cannot run without.
func (c Config) RequireEngine() {
	if c.ProjectID == "" {
		log.Fatalf("env var GCP_PROJECT_ID is required")
	}
}

// must fetches a required env var or terminates the program.
func must(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("env var %s is required", key)
	}
	return val
}

// getEnv returns env[key] if set, otherwise defaultVal.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt reads a non-negative integer from env, falling back to defaultVal.
func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		log.Printf("invalid %s=%q; using default %d", key, v, defaultVal)
	}
	return defaultVal
}

// getDuration reads an integer (seconds) from env, falling back to defaultSec.
func getDuration(key string, defaultSec int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			return time.Duration(sec) * time.Second
		}
		log.Printf("invalid %s=%q; using default %ds", key, v, defaultSec)
	}
	return time.Duration(defaultSec) * time.Second
}
