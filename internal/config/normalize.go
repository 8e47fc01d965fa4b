package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOCR()
	c.normalizeBridge()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SnapshotDir) == "" {
		c.Paths.SnapshotDir = defaultSnapshotDir
	}
	if c.Paths.SnapshotDir, err = expandPath(c.Paths.SnapshotDir); err != nil {
		return fmt.Errorf("paths.snapshot_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeOCR() {
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	c.OCR.Languages = strings.TrimSpace(c.OCR.Languages)
	if c.OCR.Languages == "" {
		c.OCR.Languages = defaultOCRLanguages
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
}

func (c *Config) normalizeBridge() {
	c.Bridge.BaseURL = strings.TrimRight(strings.TrimSpace(c.Bridge.BaseURL), "/")
	c.Bridge.RequestsURL = strings.TrimSpace(c.Bridge.RequestsURL)
	if c.Bridge.CaptureTimeoutSeconds <= 0 {
		c.Bridge.CaptureTimeoutSeconds = defaultCaptureTimeoutSecond
	}
	if c.Bridge.ClickTimeoutSeconds <= 0 {
		c.Bridge.ClickTimeoutSeconds = defaultClickTimeoutSeconds
	}
}

func (c *Config) normalizeSchedule() {
	if c.Schedule.PollInterval <= 0 {
		c.Schedule.PollInterval = defaultPollInterval
	}
	if c.Schedule.MinInterval <= 0 {
		c.Schedule.MinInterval = defaultMinInterval
	}
	if c.Schedule.ErrorRetryInterval <= 0 {
		c.Schedule.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
