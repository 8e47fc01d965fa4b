package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePage(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePage() error {
	if c.Page.SidebarWidth < 0 {
		return errors.New("page.sidebar_width must not be negative")
	}
	if c.Page.HeaderHeight < 0 {
		return errors.New("page.header_height must not be negative")
	}
	if c.Page.MinCardHeight <= 0 {
		return errors.New("page.min_card_height must be positive")
	}
	if c.Page.MaxCardHeight <= c.Page.MinCardHeight {
		return errors.New("page.max_card_height must exceed page.min_card_height")
	}
	if c.Page.RematchThreshold < 0 || c.Page.RematchThreshold > 1 {
		return errors.New("page.rematch_threshold must be between 0 and 1")
	}
	if c.Page.SeparatorMinLuma >= c.Page.SeparatorMaxLuma {
		return errors.New("page.separator_min_luma must be below page.separator_max_luma")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		return errors.New("ocr.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.Jitter < 0 || c.Schedule.Jitter >= 1 {
		return errors.New("schedule.jitter must be in [0, 1)")
	}
	for _, hour := range []int{c.Schedule.WorkingHoursStart, c.Schedule.WorkingHoursEnd} {
		if hour < 0 || hour > 24 {
			return fmt.Errorf("schedule working hours must be within 0-24, got %d", hour)
		}
	}
	if c.Schedule.WorkingHoursStart >= c.Schedule.WorkingHoursEnd {
		return errors.New("schedule.working_hours_start must be before schedule.working_hours_end")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
