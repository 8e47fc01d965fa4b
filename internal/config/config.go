package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	SnapshotDir string `toml:"snapshot_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Page describes the geometry and thresholds of the observed list UI.
type Page struct {
	SidebarWidth       int     `toml:"sidebar_width"`
	HeaderHeight       int     `toml:"header_height"`
	SeparatorMaxStddev float64 `toml:"separator_max_stddev"`
	SeparatorMinLuma   float64 `toml:"separator_min_luma"`
	SeparatorMaxLuma   float64 `toml:"separator_max_luma"`
	MinCardHeight      int     `toml:"min_card_height"`
	MaxCardHeight      int     `toml:"max_card_height"`
	RematchThreshold   float64 `toml:"rematch_threshold"`
	ApproveXFraction   float64 `toml:"approve_x_fraction"`
	DeclineXFraction   float64 `toml:"decline_x_fraction"`
	ControlYOffset     int     `toml:"control_y_offset"`
}

// OCR contains configuration for the text extraction engine.
type OCR struct {
	Binary         string  `toml:"binary"`
	Languages      string  `toml:"languages"`
	MinConfidence  float64 `toml:"min_confidence"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Bridge contains configuration for the browser automation bridge.
type Bridge struct {
	BaseURL               string `toml:"base_url"`
	RequestsURL           string `toml:"requests_url"`
	CaptureTimeoutSeconds int    `toml:"capture_timeout_seconds"`
	ClickTimeoutSeconds   int    `toml:"click_timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NewRequest     bool   `toml:"new_request"`
	Executed       bool   `toml:"executed"`
	RunSummary     bool   `toml:"run_summary"`
	Errors         bool   `toml:"errors"`
}

// Schedule contains poll cadence and working-hours settings.
type Schedule struct {
	PollInterval       int     `toml:"poll_interval"`
	Jitter             float64 `toml:"jitter"`
	MinInterval        int     `toml:"min_interval"`
	WorkingHoursStart  int     `toml:"working_hours_start"`
	WorkingHoursEnd    int     `toml:"working_hours_end"`
	ErrorRetryInterval int     `toml:"error_retry_interval"`
}

// Retention contains cleanup settings for snapshots and stale records.
type Retention struct {
	SnapshotMaxAgeHours int `toml:"snapshot_max_age_hours"`
	PendingMaxAgeHours  int `toml:"pending_max_age_hours"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the root configuration for the doorman daemon and CLI.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Page          Page          `toml:"page"`
	OCR           OCR           `toml:"ocr"`
	Bridge        Bridge        `toml:"bridge"`
	Notifications Notifications `toml:"notifications"`
	Schedule      Schedule      `toml:"schedule"`
	Retention     Retention     `toml:"retention"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/doorman/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("doorman.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.SnapshotDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon IPC socket location inside the data dir.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "doormand.sock")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to the given path, refusing
// to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
