package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreJSON   = "json"
)

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort  int
	Store     string
	SQLiteDSN string
	DataDir   string
	// APIKeyHash is an encoded argon2id hash. Empty disables authentication.
	APIKeyHash string
	// RefreshCron schedules the working-hours refresh. Empty disables it.
	RefreshCron string
	LogLevel    slog.Level
	TimeZone    *time.Location
	ICSHorizon  time.Duration
}

// fileConfig mirrors Config in the optional YAML file. Absent keys keep
// their defaults.
type fileConfig struct {
	HTTPPort       *int    `yaml:"http_port"`
	Store          *string `yaml:"store"`
	SQLiteDSN      *string `yaml:"sqlite_dsn"`
	DataDir        *string `yaml:"data_dir"`
	APIKeyHash     *string `yaml:"api_key_hash"`
	RefreshCron    *string `yaml:"refresh_cron"`
	LogLevel       *string `yaml:"log_level"`
	TimeZone       *string `yaml:"timezone"`
	ICSHorizonDays *int    `yaml:"ics_horizon_days"`
}

// Load parses configuration from the optional YAML file named by
// SCHEDULER_CONFIG_FILE and then from the process environment, which wins.
//
// Every invalid value is reported in a single error naming the offending
// variables.
func Load() (Config, error) {
	values := map[string]string{
		"SCHEDULER_HTTP_PORT":        "8080",
		"SCHEDULER_STORE":            StoreSQLite,
		"SCHEDULER_SQLITE_DSN":       "scheduler.db",
		"SCHEDULER_DATA_DIR":         "data",
		"SCHEDULER_API_KEY_HASH":     "",
		"SCHEDULER_REFRESH_CRON":     "",
		"SCHEDULER_LOG_LEVEL":        "info",
		"SCHEDULER_TIMEZONE":         "UTC",
		"SCHEDULER_ICS_HORIZON_DAYS": "30",
	}

	if path := strings.TrimSpace(os.Getenv("SCHEDULER_CONFIG_FILE")); path != "" {
		if err := readFile(path, values); err != nil {
			return Config{}, err
		}
	}
	for key := range values {
		if value, ok := os.LookupEnv(key); ok {
			values[key] = strings.TrimSpace(value)
		}
	}

	return parse(values)
}

func readFile(path string, values map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString := func(key string, v *string) {
		if v != nil {
			values[key] = strings.TrimSpace(*v)
		}
	}
	setInt := func(key string, v *int) {
		if v != nil {
			values[key] = strconv.Itoa(*v)
		}
	}
	setInt("SCHEDULER_HTTP_PORT", file.HTTPPort)
	setString("SCHEDULER_STORE", file.Store)
	setString("SCHEDULER_SQLITE_DSN", file.SQLiteDSN)
	setString("SCHEDULER_DATA_DIR", file.DataDir)
	setString("SCHEDULER_API_KEY_HASH", file.APIKeyHash)
	setString("SCHEDULER_REFRESH_CRON", file.RefreshCron)
	setString("SCHEDULER_LOG_LEVEL", file.LogLevel)
	setString("SCHEDULER_TIMEZONE", file.TimeZone)
	setInt("SCHEDULER_ICS_HORIZON_DAYS", file.ICSHorizonDays)
	return nil
}

func parse(values map[string]string) (Config, error) {
	cfg := Config{
		SQLiteDSN:   values["SCHEDULER_SQLITE_DSN"],
		DataDir:     values["SCHEDULER_DATA_DIR"],
		APIKeyHash:  values["SCHEDULER_API_KEY_HASH"],
		RefreshCron: values["SCHEDULER_REFRESH_CRON"],
	}
	invalid := make([]string, 0, 2)

	port, err := strconv.Atoi(values["SCHEDULER_HTTP_PORT"])
	if err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, "SCHEDULER_HTTP_PORT")
	} else {
		cfg.HTTPPort = port
	}

	switch store := strings.ToLower(values["SCHEDULER_STORE"]); store {
	case StoreSQLite, StoreJSON:
		cfg.Store = store
	default:
		invalid = append(invalid, "SCHEDULER_STORE")
	}

	if cfg.Store == StoreSQLite && cfg.SQLiteDSN == "" {
		invalid = append(invalid, "SCHEDULER_SQLITE_DSN")
	}
	if cfg.Store == StoreJSON && cfg.DataDir == "" {
		invalid = append(invalid, "SCHEDULER_DATA_DIR")
	}

	if cfg.RefreshCron != "" {
		if _, err := cron.ParseStandard(cfg.RefreshCron); err != nil {
			invalid = append(invalid, "SCHEDULER_REFRESH_CRON")
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(values["SCHEDULER_LOG_LEVEL"])); err != nil {
		invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
	}

	loc, err := time.LoadLocation(values["SCHEDULER_TIMEZONE"])
	if err != nil || values["SCHEDULER_TIMEZONE"] == "" {
		invalid = append(invalid, "SCHEDULER_TIMEZONE")
	} else {
		cfg.TimeZone = loc
	}

	days, err := strconv.Atoi(values["SCHEDULER_ICS_HORIZON_DAYS"])
	if err != nil || days <= 0 {
		invalid = append(invalid, "SCHEDULER_ICS_HORIZON_DAYS")
	} else {
		cfg.ICSHorizon = time.Duration(days) * 24 * time.Hour
	}

	if len(invalid) > 0 {
		return Config{}, &InvalidError{Keys: invalid}
	}
	return cfg, nil
}

// InvalidError lists the configuration keys whose values could not be used.
type InvalidError struct {
	Keys []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid configuration values: %s", strings.Join(e.Keys, ", "))
}

// IsInvalid reports whether err came from value validation rather than I/O.
func IsInvalid(err error) bool {
	var target *InvalidError
	return errors.As(err, &target)
}
