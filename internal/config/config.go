// internal/config/config.go
package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Ledger   LedgerConfig
	Alerts   AlertsConfig
	Staff    StaffConfig
	Delivery DeliveryConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConc  int
}

type CacheConfig struct {
	Enabled       bool
	ReportTTL     time.Duration
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// LedgerConfig selects where notification records live: memory, redis or sqlite.
type LedgerConfig struct {
	Backend    string
	SQLitePath string
	Window     time.Duration
}

type AlertsConfig struct {
	Timezone               string
	NearExpiryDays         int
	ArchiveAfterDays       int
	LowStockBoxes          int
	LowStockDoses          int
	LowStockOther          int
	SweepSchedule          string
	SweepConcurrency       int
	UnitTimeout            time.Duration
	ReleaseOnDispatchError bool
}

// StaffConfig is the recipient predicate: staff in any group or with any title.
type StaffConfig struct {
	Groups []string
	Titles []string
}

type DeliveryConfig struct {
	WebhookURL    string
	WebhookSecret string
	Timeout       time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the process environment once and returns the shared config.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = FromViper(viper.GetViper())
	})

	return instance
}

// FromViper builds a Config from v after applying defaults and AutomaticEnv.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConc:  v.GetInt("DB_MAX_CONCURRENT_OPS"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			ReportTTL:     v.GetDuration("CACHE_REPORT_TTL"),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Ledger: LedgerConfig{
			Backend:    v.GetString("LEDGER_BACKEND"),
			SQLitePath: v.GetString("LEDGER_SQLITE_PATH"),
			Window:     v.GetDuration("LEDGER_WINDOW"),
		},
		Alerts: AlertsConfig{
			Timezone:               v.GetString("ALERT_TIMEZONE"),
			NearExpiryDays:         v.GetInt("ALERT_NEAR_EXPIRY_DAYS"),
			ArchiveAfterDays:       v.GetInt("ALERT_ARCHIVE_AFTER_DAYS"),
			LowStockBoxes:          v.GetInt("ALERT_LOW_STOCK_BOXES"),
			LowStockDoses:          v.GetInt("ALERT_LOW_STOCK_DOSES"),
			LowStockOther:          v.GetInt("ALERT_LOW_STOCK_OTHER"),
			SweepSchedule:          v.GetString("ALERT_SWEEP_SCHEDULE"),
			SweepConcurrency:       v.GetInt("ALERT_SWEEP_CONCURRENCY"),
			UnitTimeout:            v.GetDuration("ALERT_UNIT_TIMEOUT"),
			ReleaseOnDispatchError: v.GetBool("ALERT_RELEASE_ON_DISPATCH_FAILURE"),
		},
		Staff: StaffConfig{
			Groups: getList(v, "STAFF_RECIPIENT_GROUPS"),
			Titles: getList(v, "STAFF_RECIPIENT_TITLES"),
		},
		Delivery: DeliveryConfig{
			WebhookURL:    v.GetString("DELIVERY_WEBHOOK_URL"),
			WebhookSecret: v.GetString("DELIVERY_WEBHOOK_SECRET"),
			Timeout:       v.GetDuration("DELIVERY_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.Ledger.Backend == "sqlite" {
		ensureDir(filepath.Dir(cfg.Ledger.SQLitePath))
	}

	return cfg
}

// Location returns the timezone used to decide what "today" is.
func (c AlertsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid ALERT_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{})
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clinic")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONCURRENT_OPS", 10)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_REPORT_TTL", 24*time.Hour)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LEDGER_BACKEND", "memory")
	v.SetDefault("LEDGER_SQLITE_PATH", "./data/ledger.db")
	v.SetDefault("LEDGER_WINDOW", 45*24*time.Hour)
	v.SetDefault("ALERT_TIMEZONE", "UTC")
	v.SetDefault("ALERT_NEAR_EXPIRY_DAYS", 30)
	v.SetDefault("ALERT_ARCHIVE_AFTER_DAYS", 10)
	v.SetDefault("ALERT_LOW_STOCK_BOXES", 2)
	v.SetDefault("ALERT_LOW_STOCK_DOSES", 10)
	v.SetDefault("ALERT_LOW_STOCK_OTHER", 20)
	v.SetDefault("ALERT_SWEEP_SCHEDULE", "@every 12h")
	v.SetDefault("ALERT_SWEEP_CONCURRENCY", 8)
	v.SetDefault("ALERT_UNIT_TIMEOUT", 30*time.Second)
	v.SetDefault("ALERT_RELEASE_ON_DISPATCH_FAILURE", false)
	v.SetDefault("STAFF_RECIPIENT_GROUPS", []string{"health_staff"})
	v.SetDefault("STAFF_RECIPIENT_TITLES", []string{})
	v.SetDefault("DELIVERY_WEBHOOK_URL", "")
	v.SetDefault("DELIVERY_WEBHOOK_SECRET", "")
	v.SetDefault("DELIVERY_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
}

// getList reads a comma separated list. Env values keep inner spaces, so
// "Head Nurse,Midwife" is two entries.
func getList(v *viper.Viper, key string) []string {
	var values []string
	switch raw := v.Get(key).(type) {
	case string:
		values = []string{raw}
	case []string:
		values = raw
	case []interface{}:
		for _, item := range raw {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	}

	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
