package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongoDB  = "mongodb"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Finance   FinanceConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	AI        AIConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StoreConfig selects the persistence backend and in-memory store policies.
type StoreConfig struct {
	Backend        string
	StrictLookups  bool
	PersistTimeout time.Duration
}

// PostgresConfig holds settings for PostgreSQL.
type PostgresConfig struct {
	URL string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// FinanceConfig tunes the ledger projection.
type FinanceConfig struct {
	DedupMode   string // structured | description
	TotalsScope string // filtered | unfiltered
	Timezone    string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	ManagerNumber string
	Supervisors   []string
}

// Enabled reports whether the WhatsApp integration has credentials.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	CashFlowRange   string
}

// Enabled reports whether ledger publication to Google Sheets is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	SnapshotSchedule string
	DigestSchedule   string
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	persistTimeout, err := time.ParseDuration(getenvWithDefault("STORE_PERSIST_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_PERSIST_TIMEOUT: %w", err)
	}

	strict, err := strconv.ParseBool(getenvWithDefault("STORE_STRICT_LOOKUPS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_STRICT_LOOKUPS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Store: StoreConfig{
			Backend:        strings.ToLower(getenvWithDefault("STORE_BACKEND", BackendMemory)),
			StrictLookups:  strict,
			PersistTimeout: persistTimeout,
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "guardops"),
		},
		Finance: FinanceConfig{
			DedupMode:   strings.ToLower(getenvWithDefault("FINANCE_DEDUP_MODE", "structured")),
			TotalsScope: strings.ToLower(getenvWithDefault("FINANCE_TOTALS_SCOPE", "filtered")),
			Timezone:    getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerNumber: os.Getenv("WHATSAPP_MANAGER_NUMBER"),
			Supervisors:   splitList(os.Getenv("WHATSAPP_SUPERVISORS")),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_LEDGER_ID"),
			CashFlowRange:   getenvWithDefault("GOOGLE_SHEET_CASHFLOW_RANGE", "FluxoDeCaixa!A:G"),
		},
		Reporting: ReportingConfig{
			SnapshotSchedule: getenvWithDefault("SNAPSHOT_CRON_SCHEDULE", "0 6 1 * *"),
			DigestSchedule:   getenvWithDefault("DIGEST_CRON_SCHEDULE", "0 18 * * 0"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres backend")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided for the mongodb backend")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Store.PersistTimeout <= 0 {
		return errors.New("STORE_PERSIST_TIMEOUT must be positive")
	}

	switch c.Finance.DedupMode {
	case "structured", "description":
	default:
		return fmt.Errorf("unsupported FINANCE_DEDUP_MODE %q", c.Finance.DedupMode)
	}

	switch c.Finance.TotalsScope {
	case "filtered", "unfiltered":
	default:
		return fmt.Errorf("unsupported FINANCE_TOTALS_SCOPE %q", c.Finance.TotalsScope)
	}

	if _, err := time.LoadLocation(c.Finance.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Finance.Timezone, err)
	}

	if c.WhatsApp.Enabled() && c.WhatsApp.VerifyToken == "" {
		return errors.New("META_VERIFY_TOKEN must be provided when WhatsApp is enabled")
	}

	if c.Reporting.SnapshotSchedule == "" || c.Reporting.DigestSchedule == "" {
		return errors.New("cron schedules must not be empty")
	}

	return nil
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Finance.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
