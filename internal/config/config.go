// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultDriveSubfolders is the folder tree created under every new customer folder.
var DefaultDriveSubfolders = []string{"Backups", "Graphics", "Reports", "Site Photos"}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr  string
	DBPath      string
	DatabaseURL string
	SecretKey   []byte

	DriveCredentialsFile string
	DriveRootFolderID    string
	DriveSubfolders      []string

	// MatchConfig is the raw YAML of the folder match thresholds file, nil
	// when SITEPANEL_MATCH_CONFIG is unset.
	MatchConfig []byte

	WizardSteps       int
	WizardIdleTimeout time.Duration
	SweepInterval     time.Duration
}

// HasDrive reports whether Google Drive folder linking is configured.
func (c *Config) HasDrive() bool {
	return c.DriveCredentialsFile != ""
}

// HasPostgres reports whether customers are stored in Postgres instead of
// the local sqlite database.
func (c *Config) HasPostgres() bool {
	return c.DatabaseURL != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Defaults: SITEPANEL_LISTEN_ADDR (127.0.0.1:8080),
// SITEPANEL_DB_PATH (sitepanel.db), SITEPANEL_DRIVE_SUBFOLDERS
// (Backups,Graphics,Reports,Site Photos), SITEPANEL_WIZARD_STEPS (4),
// SITEPANEL_WIZARD_IDLE_TIMEOUT (30m), SITEPANEL_SWEEP_INTERVAL (1m).
// Credentials cannot be stored without SITEPANEL_SECRET_KEY (64 hex chars).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:           envOr("SITEPANEL_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:               envOr("SITEPANEL_DB_PATH", "sitepanel.db"),
		DatabaseURL:          strings.TrimSpace(os.Getenv("SITEPANEL_DATABASE_URL")),
		DriveCredentialsFile: strings.TrimSpace(os.Getenv("SITEPANEL_DRIVE_CREDENTIALS_FILE")),
		DriveRootFolderID:    strings.TrimSpace(os.Getenv("SITEPANEL_DRIVE_ROOT_FOLDER_ID")),
		DriveSubfolders:      append([]string(nil), DefaultDriveSubfolders...),
		WizardSteps:          4,
		WizardIdleTimeout:    30 * time.Minute,
		SweepInterval:        time.Minute,
	}

	if v, ok := os.LookupEnv("SITEPANEL_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil || len(key) != 32 {
			return nil, errors.New("SITEPANEL_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	if v, ok := os.LookupEnv("SITEPANEL_DRIVE_SUBFOLDERS"); ok {
		cfg.DriveSubfolders = splitList(v)
	}

	if path := strings.TrimSpace(os.Getenv("SITEPANEL_MATCH_CONFIG")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("SITEPANEL_MATCH_CONFIG: %w", err)
		}
		cfg.MatchConfig = data
	}

	if v, ok := os.LookupEnv("SITEPANEL_WIZARD_STEPS"); ok {
		steps, err := strconv.Atoi(v)
		if err != nil || steps < 1 {
			return nil, fmt.Errorf("SITEPANEL_WIZARD_STEPS must be a positive integer, got %q", v)
		}
		cfg.WizardSteps = steps
	}

	var err error
	if cfg.WizardIdleTimeout, err = durationEnv("SITEPANEL_WIZARD_IDLE_TIMEOUT", cfg.WizardIdleTimeout); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = durationEnv("SITEPANEL_SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return parsed, nil
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(v string) []string {
	out := []string{}
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
