package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeRelease()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	defaults := Default()
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.install_dir", &c.Paths.InstallDir, defaults.Paths.InstallDir},
		{"paths.log_dir", &c.Paths.LogDir, defaults.Paths.LogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaults.Paths.StateDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaults.Paths.WorkDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.AssetDir = strings.TrimSpace(c.Extraction.AssetDir)
	if c.Extraction.AssetDir == "" {
		c.Extraction.AssetDir = defaultAssetDir
	}
	c.Extraction.OutputName = strings.TrimSpace(c.Extraction.OutputName)
	if c.Extraction.OutputName == "" {
		c.Extraction.OutputName = defaultOutputName
	}
	c.Extraction.AudioDirName = strings.TrimSpace(c.Extraction.AudioDirName)
	if c.Extraction.AudioDirName == "" {
		c.Extraction.AudioDirName = defaultAudioDirName
	}
	if c.ISO.SectorSize == 0 {
		c.ISO.SectorSize = defaultSectorSize
	}
}

func (c *Config) normalizeTools() error {
	root := strings.TrimSpace(c.Tools.ProjectRoot)
	if root == "" {
		if value, ok := os.LookupEnv("ROLLER_PROJECT_ROOT"); ok {
			root = strings.TrimSpace(value)
		}
	}
	if root != "" {
		expanded, err := expandPath(root)
		if err != nil {
			return fmt.Errorf("tools.project_root: %w", err)
		}
		root = expanded
	}
	c.Tools.ProjectRoot = root

	if c.Tools.VerifyTimeout == 0 {
		c.Tools.VerifyTimeout = defaultVerifyTimeout
	}

	if err := normalizeTool("tools.bchunk", &c.Tools.Bchunk, "BCHUNK_PATH"); err != nil {
		return err
	}
	return normalizeTool("tools.ubi", &c.Tools.Ubi, "UBI_PATH")
}

func normalizeTool(key string, tool *Tool, envKey string) error {
	path := strings.TrimSpace(tool.Path)
	if path == "" {
		if value, ok := os.LookupEnv(envKey); ok {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("%s.path: %w", key, err)
		}
		path = expanded
	}
	tool.Path = path

	extras := make([]string, 0, len(tool.ExtraPaths))
	for _, candidate := range tool.ExtraPaths {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		expanded, err := expandPath(candidate)
		if err != nil {
			return fmt.Errorf("%s.extra_paths: %w", key, err)
		}
		extras = append(extras, expanded)
	}
	tool.ExtraPaths = extras
	return nil
}

func (c *Config) normalizeRelease() {
	c.Release.Repository = strings.Trim(strings.TrimSpace(c.Release.Repository), "/")
	if c.Release.Repository == "" {
		c.Release.Repository = defaultReleaseRepo
	}
	c.Release.Tag = strings.TrimSpace(c.Release.Tag)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	level := strings.TrimSpace(c.Logging.Level)
	if value, ok := os.LookupEnv("ROLLER_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
