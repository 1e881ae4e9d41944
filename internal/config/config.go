package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"churchclerk/internal/core"
	"churchclerk/internal/notify"
)

type Config struct {
	// HTTP Server
	Port         string `yaml:"port"         envconfig:"PORT"`
	SecureCookie bool   `yaml:"secureCookie" envconfig:"SECURE_COOKIE"`

	// Storage
	DataBackend  string `yaml:"dataBackend"  envconfig:"DATA_BACKEND"`
	SQLiteDBPath string `yaml:"sqliteDbPath" envconfig:"SQLITE_DB_PATH"`
	MediaDir     string `yaml:"mediaDir"     envconfig:"MEDIA_DIR"`

	// Logging
	LogLevel  string `yaml:"logLevel"  envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT"`

	// Site
	OrgName  string `yaml:"orgName"  envconfig:"ORG_NAME"`
	TimeZone string `yaml:"timeZone" envconfig:"TIME_ZONE"`

	// Staff sessions
	SessionSecret string        `yaml:"sessionSecret" envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `yaml:"sessionTTL"    envconfig:"SESSION_TTL"`
	AdminUsername string        `yaml:"adminUsername" envconfig:"ADMIN_USERNAME"`
	AdminPassword string        `yaml:"adminPassword" envconfig:"ADMIN_PASSWORD"`

	// Notification gateways
	HTTPSMSURL        string        `yaml:"httpsmsUrl"        envconfig:"HTTPSMS_URL"`
	HTTPSMSAPIKey     string        `yaml:"httpsmsApiKey"     envconfig:"HTTPSMS_API_KEY"`
	HTTPSMSFromNumber string        `yaml:"httpsmsFromNumber" envconfig:"HTTPSMS_FROM_NUMBER"`
	EmailHost         string        `yaml:"emailHost"         envconfig:"EMAIL_HOST"`
	EmailPort         int           `yaml:"emailPort"         envconfig:"EMAIL_PORT"`
	EmailHostUser     string        `yaml:"emailHostUser"     envconfig:"EMAIL_HOST_USER"`
	EmailHostPassword string        `yaml:"emailHostPassword" envconfig:"EMAIL_HOST_PASSWORD"`
	WhatsAppEnabled   bool          `yaml:"whatsappEnabled"   envconfig:"WHATSAPP_ENABLED"`
	WhatsAppDataDir   string        `yaml:"whatsappDataDir"   envconfig:"WHATSAPP_DATA_DIR"`
	GatewayTimeout    time.Duration `yaml:"gatewayTimeout"    envconfig:"GATEWAY_TIMEOUT"`

	// AMQP
	AMQPURL      string `yaml:"amqpUrl"      envconfig:"AMQP_URL"`
	AMQPExchange string `yaml:"amqpExchange" envconfig:"AMQP_EXCHANGE"`
	AMQPQueue    string `yaml:"amqpQueue"    envconfig:"AMQP_QUEUE"`

	// Google Sheets export
	GoogleSpreadsheetID string `yaml:"googleSpreadsheetId" envconfig:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName     string `yaml:"googleSheetName"     envconfig:"GOOGLE_SHEET_NAME"`

	// Reminder sweep (worker)
	ReminderSweepInterval time.Duration `yaml:"reminderSweepInterval" envconfig:"REMINDER_SWEEP_INTERVAL"`
	ReminderSweepMinAge   time.Duration `yaml:"reminderSweepMinAge"   envconfig:"REMINDER_SWEEP_MIN_AGE"`
	ReminderSweepMaxCount int           `yaml:"reminderSweepMaxCount" envconfig:"REMINDER_SWEEP_MAX_COUNT"`
	ReminderSweepChannel  string        `yaml:"reminderSweepChannel"  envconfig:"REMINDER_SWEEP_CHANNEL"`
}

func defaults() *Config {
	return &Config{
		Port:         "8081",
		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/clerk.db",
		MediaDir:     "./data/media",

		LogLevel:  "info",
		LogFormat: "text",

		OrgName:  "Newlife",
		TimeZone: "Africa/Nairobi",

		SessionTTL: 12 * time.Hour,

		HTTPSMSURL:      notify.DefaultHTTPSMSURL,
		EmailHost:       "smtp.gmail.com",
		EmailPort:       587,
		WhatsAppDataDir: "./data/whatsapp",
		GatewayTimeout:  20 * time.Second,

		AMQPExchange: "clerk",
		AMQPQueue:    "activity",

		GoogleSheetName: "Reports",

		ReminderSweepMinAge:   7 * 24 * time.Hour,
		ReminderSweepMaxCount: 3,
		ReminderSweepChannel:  string(core.ChannelSMS),
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CLERK_CONFIG (if any), then the environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CLERK_CONFIG"); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.MediaDir == "" {
		errors = append(errors, "media directory cannot be empty")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if strings.TrimSpace(c.OrgName) == "" {
		errors = append(errors, "organisation name cannot be empty")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid time zone '%s': %v", c.TimeZone, err))
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		errors = append(errors, "session secret must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errors = append(errors, "ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	if c.EmailPort < 1 || c.EmailPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid email port %d", c.EmailPort))
	}
	if c.HTTPSMSURL != "" {
		if u, err := url.Parse(c.HTTPSMSURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid httpSMS URL '%s'", c.HTTPSMSURL))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReminderSweepInterval < 0 {
		errors = append(errors, "reminder sweep interval cannot be negative")
	} else if c.ReminderSweepInterval > 0 && c.ReminderSweepInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid reminder sweep interval %v: must be at least 1 minute", c.ReminderSweepInterval))
	}
	if c.ReminderSweepMaxCount < 0 {
		errors = append(errors, "reminder sweep max count cannot be negative")
	}
	if !core.Channel(c.ReminderSweepChannel).Valid() {
		errors = append(errors, fmt.Sprintf("invalid reminder sweep channel '%s': must be sms, email or whatsapp", c.ReminderSweepChannel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// NotifyConfig is the gateway configuration derived from c.
func (c *Config) NotifyConfig() notify.Config {
	return notify.Config{
		OrgName:           c.OrgName,
		HTTPSMSURL:        c.HTTPSMSURL,
		HTTPSMSAPIKey:     c.HTTPSMSAPIKey,
		HTTPSMSFromNumber: c.HTTPSMSFromNumber,
		SMTPHost:          c.EmailHost,
		SMTPPort:          c.EmailPort,
		SMTPUsername:      c.EmailHostUser,
		SMTPPassword:      c.EmailHostPassword,
		WhatsAppEnabled:   c.WhatsAppEnabled,
		WhatsAppDataDir:   c.WhatsAppDataDir,
		Timeout:           c.GatewayTimeout,
	}
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}
