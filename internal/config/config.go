package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port string

	DBDriver    string
	DBDSN       string
	AutoMigrate bool

	DataDir         string
	RetailersFile   string
	RefreshSchedule string
	RatesCacheTTL   time.Duration

	LogLevel  string
	LogFormat string

	Email EmailConfig
	Alert AlertConfig
}

// EmailConfig selects and configures the checklist notification sender.
type EmailConfig struct {
	Provider    string // sendgrid, smtp, gmail or empty for disabled
	APIKey      string
	FromAddress string
	FromName    string
	To          []string

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPEncryption string // none, ssl or tls
}

// AlertConfig holds the refresh failure webhook settings.
type AlertConfig struct {
	WebhookURL  string
	WebhookType string
	MinFailures int
}

// Load reads an optional .env file into the environment and then returns
// FromEnv. Variables already set win over the file.
func Load(files ...string) Config {
	_ = godotenv.Load(files...)
	return FromEnv()
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	cfg := Config{
		Port:            getenv("PORT", "8000"),
		DBDriver:        strings.ToLower(getenv("TARIFFCOMPARE_DB_DRIVER", "memory")),
		DBDSN:           os.Getenv("TARIFFCOMPARE_DB_DSN"),
		AutoMigrate:     getbool("TARIFFCOMPARE_AUTO_MIGRATE", true),
		DataDir:         getenv("TARIFFCOMPARE_DATA_DIR", "data"),
		RetailersFile:   os.Getenv("TARIFFCOMPARE_RETAILERS_FILE"),
		RefreshSchedule: getenv("TARIFFCOMPARE_REFRESH_SCHEDULE", "0 */6 * * *"),
		RatesCacheTTL:   getduration("TARIFFCOMPARE_RATES_CACHE_TTL", 0),
		LogLevel:        getenv("TARIFFCOMPARE_LOG_LEVEL", "info"),
		LogFormat:       getenv("TARIFFCOMPARE_LOG_FORMAT", "json"),
		Email: EmailConfig{
			Provider:       strings.ToLower(os.Getenv("EMAIL_PROVIDER")),
			APIKey:         os.Getenv("EMAIL_API_KEY"),
			FromAddress:    os.Getenv("EMAIL_FROM_ADDRESS"),
			FromName:       getenv("EMAIL_FROM_NAME", "Tariff Compare"),
			To:             splitList(os.Getenv("EMAIL_TO")),
			SMTPHost:       os.Getenv("SMTP_HOST"),
			SMTPPort:       getint("SMTP_PORT", 587),
			SMTPUsername:   os.Getenv("SMTP_USERNAME"),
			SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
			SMTPEncryption: strings.ToLower(getenv("SMTP_ENCRYPTION", "tls")),
		},
		Alert: AlertConfig{
			WebhookURL:  os.Getenv("ALERT_WEBHOOK_URL"),
			WebhookType: strings.ToLower(os.Getenv("ALERT_WEBHOOK_TYPE")),
			MinFailures: getint("ALERT_MIN_FAILURES", 1),
		},
	}

	if cfg.DBDSN == "" {
		switch cfg.DBDriver {
		case "sqlite":
			cfg.DBDSN = filepath.Join(cfg.DataDir, "tariffcompare.db")
		case "file":
			cfg.DBDSN = cfg.DataDir
		}
	}
	if cfg.Alert.MinFailures < 1 {
		cfg.Alert.MinFailures = 1
	}
	return cfg
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getbool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getduration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
