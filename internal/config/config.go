package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr       string
	CORSOrigin string
	// Airtable
	AirtableAPIKey    string
	AirtableBaseID    string
	AirtableAPIURL    string
	AirtableTimeout   time.Duration
	AirtablePageSize  int
	// Requests per second shared by every Airtable call
	AirtableRateLimit int
	// Session tokens
	JWTSecret string
	TokenTTL  time.Duration
	// Redis last-good cache; empty disables it
	RedisURL string
	CacheTTL time.Duration
	// Postgres approval audit; empty disables it
	DatabaseURL string
	// Meilisearch; empty disables it
	MeiliURL       string
	MeiliMasterKey string
	// SMTP - empty by default, email disabled if not configured
	SMTPHost         string
	SMTPPort         string
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	SMTPFromName     string
	RevisionNotifyTo string
	PortalURL        string
	// Serve fixtures without contacting Airtable
	MockData bool
}

// Load reads the environment after a best-effort .env load.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment as it is.
func FromEnv() Config {
	return Config{
		Addr:              getenv("API_ADDR", ":8787"),
		CORSOrigin:        getenv("CORS_ORIGIN", "*"),
		AirtableAPIKey:    getenv("AIRTABLE_API_KEY", ""),
		AirtableBaseID:    getenv("AIRTABLE_BASE_ID", ""),
		AirtableAPIURL:    getenv("AIRTABLE_API_URL", "https://api.airtable.com/v0"),
		AirtableTimeout:   time.Duration(getenvInt("AIRTABLE_TIMEOUT_MS", 8000)) * time.Millisecond,
		AirtablePageSize:  getenvInt("AIRTABLE_PAGE_SIZE", 100),
		AirtableRateLimit: getenvInt("AIRTABLE_RATE_LIMIT", 5),
		JWTSecret:         getenv("PORTAL_JWT_SECRET", "portal-dev-secret"),
		TokenTTL:          time.Duration(getenvInt("PORTAL_TOKEN_TTL_SECONDS", 86400)) * time.Second,
		RedisURL:          getenv("REDIS_URL", ""),
		CacheTTL:          time.Duration(getenvInt("CACHE_TTL_SECONDS", 900)) * time.Second,
		DatabaseURL:       getenv("DATABASE_URL", ""),
		MeiliURL:          getenv("MEILI_URL", ""),
		MeiliMasterKey:    getenv("MEILI_MASTER_KEY", ""),
		SMTPHost:          getenv("SMTP_HOST", ""),
		SMTPPort:          getenv("SMTP_PORT", "587"),
		SMTPUsername:      getenv("SMTP_USERNAME", ""),
		SMTPPassword:      getenv("SMTP_PASSWORD", ""),
		SMTPFrom:          getenv("SMTP_FROM", ""),
		SMTPFromName:      getenv("SMTP_FROM_NAME", "Client Portal"),
		RevisionNotifyTo:  getenv("REVISION_NOTIFY_TO", ""),
		PortalURL:         getenv("PORTAL_URL", ""),
		MockData:          getenvBool("MOCK_DATA", false),
	}
}

// AirtableConfigured reports whether both credentials are present.
func (c Config) AirtableConfigured() bool {
	return c.AirtableAPIKey != "" && c.AirtableBaseID != ""
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
