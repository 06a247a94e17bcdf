package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	OutputDir string
	FeedsFile string
	LogLevel  string

	SpreadsheetID         string
	SpreadsheetLink       string
	GoogleCredentialsFile string

	PayrollBaseURL     string
	PayrollRowLimit    int
	PayrollMaxAttempts int

	HTTPTimeoutMs    int
	HTTPRateLimitRPS int
	HTTPMaxAttempts  int
	HTTPUserAgent    string

	MailProvider   string
	MailRecipients []string
	MailSender     string
	MailPassword   string
	SMTPHost       string
	SMTPPort       int

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	SyncIntervalMin int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		FeedsFile: getEnv("FEEDS_FILE", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		SpreadsheetID:         clean(getEnv("SPREADSHEET_ID", "")),
		SpreadsheetLink:       clean(getEnv("SPREADSHEET_LINK", "")),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", filepath.Join(cwd, "credentials.json")),

		PayrollBaseURL:     getEnv("PAYROLL_BASE_URL", "https://agtransparenciarhserviceprd.agapesistemas.com.br"),
		PayrollRowLimit:    getEnvInt("PAYROLL_ROW_LIMIT", 10000),
		PayrollMaxAttempts: getEnvInt("PAYROLL_MAX_ATTEMPTS", 12),

		HTTPTimeoutMs:    getEnvInt("HTTP_TIMEOUT_MS", 30000),
		HTTPRateLimitRPS: getEnvInt("HTTP_RATE_LIMIT_RPS", 2),
		HTTPMaxAttempts:  getEnvInt("HTTP_MAX_ATTEMPTS", 5),
		HTTPUserAgent:    getEnv("HTTP_USER_AGENT", "transparencia-sync/1.0"),

		MailProvider:   strings.ToLower(clean(getEnv("MAIL_PROVIDER", "smtp"))),
		MailRecipients: splitList(getEnv("EMAIL_DESTINATARIO", "")),
		MailSender:     clean(getEnv("EMAIL_REMETENTE", "")),
		MailPassword:   clean(getEnv("SENHA_EMAIL", "")),
		SMTPHost:       getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		SyncIntervalMin: getEnvInt("SYNC_INTERVAL_MIN", 1440),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func (c Config) MailEnabled() bool {
	return len(c.MailRecipients) > 0
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func clean(value string) string {
	return strings.TrimSpace(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
