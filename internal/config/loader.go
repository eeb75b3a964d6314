package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendGoogle = "google"
	BackendSQLite = "sqlite"
)

// Config captures environment driven configuration values for the service.
type Config struct {
	ServiceAccountKeyPath string
	ServiceAccountEmail   string
	ResourceConfigPath    string
	IdentityLinksFile     string
	CalendarMappingsFile  string
	PollingInterval       time.Duration
	CalendarBackend       string
	SQLitePath            string
	HTTPAddr              string
	LogLevel              slog.Level
}

var envBindings = map[string]struct {
	env      string
	fallback string
}{
	"service_account_key":    {"GOOGLE_SERVICE_ACCOUNT_KEY", "/etc/lab-resource-manager/service-account.json"},
	"service_account_email":  {"SERVICE_ACCOUNT_EMAIL", ""},
	"resource_config":        {"RESOURCE_CONFIG", "/etc/lab-resource-manager/resources.toml"},
	"identity_links_file":    {"IDENTITY_LINKS_FILE", "/var/lib/lab-resource-manager/identity_links.json"},
	"calendar_mappings_file": {"GOOGLE_CALENDAR_MAPPINGS_FILE", "/var/lib/lab-resource-manager/google_calendar_mappings.json"},
	"polling_interval":       {"POLLING_INTERVAL", "60s"},
	"calendar_backend":       {"CALENDAR_BACKEND", BackendGoogle},
	"sqlite_path":            {"SQLITE_PATH", "/var/lib/lab-resource-manager/calendar.db"},
	"http_addr":              {"HTTP_ADDR", ":8080"},
	"log_level":              {"LOG_LEVEL", "info"},
}

// Load reads configuration from the environment through v. A nil v uses a
// fresh viper instance.
//
// Every invalid value is collected before an error is returned so operators
// see all problems at once.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	for key, binding := range envBindings {
		if err := v.BindEnv(key, binding.env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", binding.env, err)
		}
		v.SetDefault(key, binding.fallback)
	}

	cfg := Config{
		ServiceAccountKeyPath: strings.TrimSpace(v.GetString("service_account_key")),
		ServiceAccountEmail:   strings.TrimSpace(v.GetString("service_account_email")),
		ResourceConfigPath:    strings.TrimSpace(v.GetString("resource_config")),
		IdentityLinksFile:     strings.TrimSpace(v.GetString("identity_links_file")),
		CalendarMappingsFile:  strings.TrimSpace(v.GetString("calendar_mappings_file")),
		CalendarBackend:       strings.ToLower(strings.TrimSpace(v.GetString("calendar_backend"))),
		SQLitePath:            strings.TrimSpace(v.GetString("sqlite_path")),
		HTTPAddr:              strings.TrimSpace(v.GetString("http_addr")),
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 3)

	if cfg.ResourceConfigPath == "" {
		missing = append(missing, "RESOURCE_CONFIG")
	}
	if cfg.IdentityLinksFile == "" {
		missing = append(missing, "IDENTITY_LINKS_FILE")
	}

	switch cfg.CalendarBackend {
	case BackendGoogle:
		if cfg.ServiceAccountKeyPath == "" {
			missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_KEY")
		}
		if cfg.CalendarMappingsFile == "" {
			missing = append(missing, "GOOGLE_CALENDAR_MAPPINGS_FILE")
		}
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	default:
		invalid = append(invalid, "CALENDAR_BACKEND")
	}

	interval, err := parseInterval(v.GetString("polling_interval"))
	if err != nil {
		invalid = append(invalid, "POLLING_INTERVAL")
	} else {
		cfg.PollingInterval = interval
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString("log_level")))); err != nil {
		invalid = append(invalid, "LOG_LEVEL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// parseInterval accepts Go durations ("90s", "2m") or a bare number of seconds.
func parseInterval(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("interval must be positive")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return d, nil
}
