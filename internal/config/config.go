// Package config provides pseudicom configuration with support for a YAML
// file, environment variables and command-line flags.
//
// Precedence, highest first: flag, environment variable, YAML file, default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/pseudicom/internal/errors"
	"github.com/mrsinham/pseudicom/internal/util"
)

// Config holds the pipeline configuration.
type Config struct {
	Root            string            `yaml:"root"`
	RunPattern      string            `yaml:"run_pattern"`
	AnatomyKeywords []string          `yaml:"anatomy_keywords"`
	TagsToClear     []string          `yaml:"tags_to_clear"`
	ChangeDates     ChangeDates       `yaml:"change_dates"`
	Backup          bool              `yaml:"backup"`
	WorkDir         string            `yaml:"work_dir"`
	Workers         int               `yaml:"workers"`
	Deface          bool              `yaml:"deface"`
	Preview         bool              `yaml:"preview"`
	Alignment       AlignmentConfig   `yaml:"alignment"`
	Orientation     OrientationConfig `yaml:"orientation"`
	Tools           ToolsConfig       `yaml:"tools"`
	Log             LogConfig         `yaml:"log"`
}

// AlignmentConfig controls how converter outputs are matched to their inputs.
type AlignmentConfig struct {
	// MaxLeadingTrim is the largest number of leading inputs that may be
	// dropped when the converter returns fewer outputs than inputs.
	// Zero makes any length mismatch an error.
	MaxLeadingTrim int `yaml:"max_leading_trim"`
}

// OrientationConfig controls how volume planes map onto record pixels.
type OrientationConfig struct {
	FlipSlices bool `yaml:"flip_slices"`
	Rotate     bool `yaml:"rotate"`
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	Dcm2niix   string `yaml:"dcm2niix"`
	Bet        string `yaml:"bet"`
	Quickshear string `yaml:"quickshear"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChangeDates is the date-replacement policy. In YAML it is either a boolean
// (true: use the run date) or a literal replacement string.
type ChangeDates struct {
	Enabled bool
	Literal string
}

// UnmarshalYAML accepts a boolean or a string.
func (c *ChangeDates) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if node.Tag == "!!bool" {
		if err := node.Decode(&b); err != nil {
			return err
		}
		*c = ChangeDates{Enabled: b}
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("change_dates must be a boolean or a date string: %w", err)
	}
	parsed, err := ParseChangeDates(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML writes the policy back in the form UnmarshalYAML accepts.
func (c ChangeDates) MarshalYAML() (any, error) {
	if c.Literal != "" {
		return c.Literal, nil
	}
	return c.Enabled, nil
}

// String renders the policy for logs.
func (c ChangeDates) String() string {
	switch {
	case !c.Enabled:
		return "off"
	case c.Literal != "":
		return c.Literal
	default:
		return "today"
	}
}

// ParseChangeDates reads a policy from a flag or environment value:
// "true"/"yes"/"1"/"today" use the run date, "false"/"no"/"0"/"off" disable
// replacement, anything else is a literal replacement.
func ParseChangeDates(s string) (ChangeDates, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return ChangeDates{}, fmt.Errorf("empty change_dates value")
	case "true", "yes", "1", "today":
		return ChangeDates{Enabled: true}, nil
	case "false", "no", "0", "off":
		return ChangeDates{}, nil
	}
	return ChangeDates{Enabled: true, Literal: s}, nil
}

// Overrides carries raw flag values. Empty strings mean "not set".
type Overrides struct {
	Root        string
	WorkDir     string
	Workers     string
	Backup      string
	ChangeDates string
	Deface      string
	Preview     string
	LogLevel    string
	LogFormat   string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RunPattern:      DefaultRunPattern,
		AnatomyKeywords: append([]string(nil), DefaultAnatomyKeywords...),
		TagsToClear:     append([]string(nil), DefaultTagsToClear...),
		ChangeDates:     ChangeDates{Enabled: true},
		Backup:          true,
		Workers:         runtime.NumCPU(),
		Deface:          true,
		Alignment:       AlignmentConfig{MaxLeadingTrim: 1},
		Orientation:     OrientationConfig{FlipSlices: true, Rotate: true},
		Tools: ToolsConfig{
			Dcm2niix:   "dcm2niix",
			Bet:        "bet",
			Quickshear: "quickshear",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// PSEUDICOM_* environment variables and flag overrides, then validates it.
func Load(path string, flags Overrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyOverrides(flags); err != nil {
		return nil, err
	}

	if cfg.WorkDir == "" && cfg.Root != "" {
		cfg.WorkDir = filepath.Join(cfg.Root, ".pseudicom")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyOverrides(flags Overrides) error {
	c.Root = getConfigValue(flags.Root, "PSEUDICOM_ROOT", c.Root)
	c.WorkDir = getConfigValue(flags.WorkDir, "PSEUDICOM_WORK_DIR", c.WorkDir)
	c.Log.Level = getConfigValue(flags.LogLevel, "PSEUDICOM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getConfigValue(flags.LogFormat, "PSEUDICOM_LOG_FORMAT", c.Log.Format)
	c.Tools.Dcm2niix = getConfigValue("", "PSEUDICOM_DCM2NIIX", c.Tools.Dcm2niix)
	c.Tools.Bet = getConfigValue("", "PSEUDICOM_BET", c.Tools.Bet)
	c.Tools.Quickshear = getConfigValue("", "PSEUDICOM_QUICKSHEAR", c.Tools.Quickshear)
	c.Backup = getBoolConfigValue(flags.Backup, "PSEUDICOM_BACKUP", c.Backup)
	c.Deface = getBoolConfigValue(flags.Deface, "PSEUDICOM_DEFACE", c.Deface)
	c.Preview = getBoolConfigValue(flags.Preview, "PSEUDICOM_PREVIEW", c.Preview)

	workers, err := getIntConfigValue(flags.Workers, "PSEUDICOM_WORKERS", c.Workers)
	if err != nil {
		return err
	}
	c.Workers = workers

	if raw := getConfigValue(flags.ChangeDates, "PSEUDICOM_CHANGE_DATES", ""); raw != "" {
		cd, err := ParseChangeDates(raw)
		if err != nil {
			return errors.Config("change_dates: %v", err)
		}
		c.ChangeDates = cd
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.Config("root directory is required")
	}
	if _, err := regexp.Compile(c.RunPattern); err != nil {
		return errors.Config("run_pattern %q: %v", c.RunPattern, err)
	}
	if len(c.AnatomyKeywords) == 0 && c.Deface {
		return errors.Config("anatomy_keywords must not be empty when defacing")
	}
	if _, err := util.ParseTags(c.TagsToClear); err != nil {
		return errors.Config("tags_to_clear: %v", err)
	}
	if c.Workers < 1 {
		return errors.Config("workers must be at least 1, got %d", c.Workers)
	}
	if c.Alignment.MaxLeadingTrim < 0 {
		return errors.Config("alignment.max_leading_trim must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Config("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ClearTags returns the parsed clear-list.
func (c *Config) ClearTags() []tag.Tag {
	tags, err := util.ParseTags(c.TagsToClear)
	if err != nil {
		// Validate has already accepted the list.
		panic(err)
	}
	return tags
}

// ClearListWarnings lists clear-list entries that can never match: private
// elements are removed before clearing, and a tag listed twice is cleared
// once.
func (c *Config) ClearListWarnings() []string {
	var warnings []string
	seen := make(map[tag.Tag]bool)
	for _, t := range c.ClearTags() {
		switch {
		case seen[t]:
			warnings = append(warnings, fmt.Sprintf("tags_to_clear lists %s more than once", util.DescribeTag(t)))
		case tag.IsPrivate(t.Group):
			warnings = append(warnings, fmt.Sprintf("tags_to_clear entry %s is in a private group and is already removed", util.FormatTag(t)))
		}
		seen[t] = true
	}
	return warnings
}

// RunRegexp returns the compiled run-folder pattern.
func (c *Config) RunRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.RunPattern)
}

// getConfigValue returns value from flag, env var, or fallback (in that order).
func getConfigValue(flagValue, envKey, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return fallback
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true.
func getBoolConfigValue(flagValue, envKey string, fallback bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return fallback
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, fallback int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, errors.Config("%s: %q is not an integer", envKey, strValue)
	}
	return n, nil
}
