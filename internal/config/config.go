package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"otkaz/internal/core"
)

// Remote backends.
const (
	RemoteNone   = "none"
	RemoteMemory = "memory"
	RemoteSheets = "sheets"
)

var (
	validBackends = []string{RemoteNone, RemoteMemory, RemoteSheets}
	validPolicies = []string{"count", "union"}
)

type Config struct {
	// HTTP Server
	Port string

	// Local store
	SQLiteDBPath string

	// Remote store
	RemoteBackend string
	DataDirectory string

	GoogleSpreadsheetID          string
	GoogleSheetName              string
	GoogleServiceAccountJSON     string
	GoogleServiceAccountFile     string
	GoogleApplicationCredentials string

	// Host
	HostVersion string

	// Sync
	MergePolicy       string
	RemoteCeiling     int
	PushTimeout       time.Duration
	ReconcileInterval time.Duration

	// AMQP (optional: without it pushes run in-process)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// MQTT (optional)
	MQTTBroker      string
	MQTTTopicPrefix string
	MQTTUsername    string
	MQTTPassword    string

	// Advice
	GeminiAPIKey   string
	GeminiModel    string
	AdviceCacheTTL time.Duration

	// Telegram auth (optional)
	TelegramBotToken string
	AllowedUserID    int64
	InitDataMaxAge   time.Duration

	// Stats
	DefaultStartDate string
	TriggersFile     string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/otkaz.db"),

		RemoteBackend: getEnv("REMOTE_BACKEND", RemoteMemory),
		DataDirectory: getEnv("DATA_DIR", "data"),

		GoogleSpreadsheetID:          getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:              getEnv("GOOGLE_KV_SHEET_NAME", "Storage"),
		GoogleServiceAccountJSON:     getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:     getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		HostVersion: getEnv("HOST_VERSION", "7.0"),

		MergePolicy:       getEnv("MERGE_POLICY", "count"),
		RemoteCeiling:     getEnvInt("REMOTE_CEILING", 4096),
		PushTimeout:       getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 15*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "otkaz"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "cloud_sync"),

		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "otkaz"),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AdviceCacheTTL: getEnvDuration("ADVICE_CACHE_TTL", 10*time.Minute),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AllowedUserID:    getEnvInt64("TELEGRAM_ALLOWED_USER_ID", 0),
		InitDataMaxAge:   getEnvDuration("INIT_DATA_MAX_AGE", 24*time.Hour),

		DefaultStartDate: getEnv("DEFAULT_START_DATE", "2025-11-10"),
		TriggersFile:     getEnv("TRIGGERS_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	}

	if !slices.Contains(validBackends, c.RemoteBackend) {
		errors = append(errors, fmt.Sprintf("invalid remote backend '%s': must be one of %v", c.RemoteBackend, validBackends))
	}

	if c.RemoteBackend == RemoteSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredentials == "" {
			errors = append(errors, "one of GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if !slices.Contains(validPolicies, c.MergePolicy) {
		errors = append(errors, fmt.Sprintf("invalid merge policy '%s': must be one of %v", c.MergePolicy, validPolicies))
	}
	if c.RemoteCeiling < 1 {
		errors = append(errors, fmt.Sprintf("invalid remote ceiling %d: must be at least 1", c.RemoteCeiling))
	}
	if c.PushTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid push timeout %v: must be at least 1 second", c.PushTimeout))
	}
	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
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

	if c.MQTTBroker != "" && c.MQTTTopicPrefix == "" {
		errors = append(errors, "MQTT topic prefix cannot be empty when MQTT broker is provided")
	}

	if c.AllowedUserID != 0 && c.TelegramBotToken == "" {
		errors = append(errors, "TELEGRAM_BOT_TOKEN is required when TELEGRAM_ALLOWED_USER_ID is set")
	}
	if c.InitDataMaxAge < 0 {
		errors = append(errors, fmt.Sprintf("invalid init data max age %v: must not be negative", c.InitDataMaxAge))
	}

	if _, err := time.Parse(core.DayLayout, c.DefaultStartDate); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default start date '%s': must be YYYY-MM-DD", c.DefaultStartDate))
	}
	if c.TriggersFile != "" {
		if _, err := os.Stat(c.TriggersFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("triggers file does not exist: %s", c.TriggersFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// DefaultStart returns the parsed default sobriety start date.
func (c *Config) DefaultStart() (time.Time, error) {
	return time.Parse(core.DayLayout, c.DefaultStartDate)
}

// catalogFile is the layout of TRIGGERS_FILE.
type catalogFile struct {
	Triggers []core.TriggerItem `yaml:"triggers"`
}

// LoadCatalog returns the built-in trigger catalog merged with the entries
// of the YAML file at path. An empty path yields the built-in catalog.
func LoadCatalog(path string) (core.Catalog, error) {
	catalog := core.DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read triggers file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse triggers file %s: %w", path, err)
	}
	return catalog.Merge(file.Triggers), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
