package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateISO(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateRelease(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateExtraction() error {
	if !isPlainName(c.Extraction.AssetDir) {
		return errors.New("extraction.asset_dir must be a single directory name")
	}
	if !isPlainName(c.Extraction.OutputName) {
		return errors.New("extraction.output_name must be a single directory name")
	}
	if !isPlainName(c.Extraction.AudioDirName) {
		return errors.New("extraction.audio_dir_name must be a single directory name")
	}
	if strings.EqualFold(c.Extraction.OutputName, c.Extraction.AudioDirName) {
		return errors.New("extraction.audio_dir_name must differ from extraction.output_name")
	}
	return nil
}

func (c *Config) validateISO() error {
	if !slices.Contains(SectorSizes, c.ISO.SectorSize) {
		return fmt.Errorf("iso.sector_size must be one of %s", joinInts(SectorSizes))
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.VerifyTimeout < 0 {
		return errors.New("tools.verify_timeout must be positive")
	}
	if c.Tools.SplitTimeout < 0 {
		return errors.New("tools.split_timeout must be zero (no limit) or positive")
	}
	return nil
}

func (c *Config) validateRelease() error {
	parts := strings.Split(c.Release.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return errors.New("release.repository must look like owner/name")
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
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
