package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/pseudicom/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pseudicom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", Overrides{Root: "/data/subj01"})
	require.NoError(t, err)

	assert.Equal(t, "[0-9][0-9][0-9]-.+", cfg.RunPattern)
	assert.Equal(t, []string{"t1", "T1", "mprage", "MPRAGE", "AAHead"}, cfg.AnatomyKeywords)
	assert.True(t, cfg.Backup)
	assert.Equal(t, ChangeDates{Enabled: true}, cfg.ChangeDates)
	assert.Equal(t, 1, cfg.Alignment.MaxLeadingTrim)
	assert.True(t, cfg.Orientation.FlipSlices)
	assert.True(t, cfg.Orientation.Rotate)
	assert.Equal(t, filepath.Join("/data/subj01", ".pseudicom"), cfg.WorkDir)

	tags := cfg.ClearTags()
	assert.Len(t, tags, len(DefaultTagsToClear))
	assert.Contains(t, tags, tag.PatientName)
	assert.Contains(t, tags, tag.PatientID)
	assert.Contains(t, tags, tag.AcquisitionDateTime)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
root: /data/subj01
anatomy_keywords: [T1]
tags_to_clear:
  - PatientName
  - "(0010, 0020)"
change_dates: "19000101"
backup: false
workers: 3
alignment:
  max_leading_trim: 2
log:
  level: debug
  format: json
`)

	cfg, err := Load(path, Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "/data/subj01", cfg.Root)
	assert.Equal(t, []string{"T1"}, cfg.AnatomyKeywords)
	assert.Equal(t, []tag.Tag{tag.PatientName, tag.PatientID}, cfg.ClearTags())
	assert.Equal(t, ChangeDates{Enabled: true, Literal: "19000101"}, cfg.ChangeDates)
	assert.False(t, cfg.Backup)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2, cfg.Alignment.MaxLeadingTrim)
	assert.Equal(t, "json", cfg.Log.Format)
	// Fields absent from the file keep their defaults.
	assert.True(t, cfg.Deface)
	assert.Equal(t, DefaultRunPattern, cfg.RunPattern)
}

func TestChangeDatesYAMLForms(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want ChangeDates
	}{
		{"bool true", "change_dates: true", ChangeDates{Enabled: true}},
		{"bool false", "change_dates: false", ChangeDates{}},
		{"quoted literal", `change_dates: "20000101"`, ChangeDates{Enabled: true, Literal: "20000101"}},
		{"bare number", "change_dates: 20000101", ChangeDates{Enabled: true, Literal: "20000101"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "root: /r\n"+tc.yaml+"\n")
			cfg, err := Load(path, Overrides{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.ChangeDates)
		})
	}
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, "root: /from/file\nworkers: 2\n")

	t.Setenv("PSEUDICOM_ROOT", "/from/env")
	t.Setenv("PSEUDICOM_WORKERS", "5")
	t.Setenv("PSEUDICOM_BACKUP", "no")

	cfg, err := Load(path, Overrides{Root: "/from/flag"})
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.Root)
	assert.Equal(t, 5, cfg.Workers)
	assert.False(t, cfg.Backup)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing root", func(c *Config) { c.Root = "" }},
		{"bad pattern", func(c *Config) { c.RunPattern = "([" }},
		{"unknown tag", func(c *Config) { c.TagsToClear = []string{"PatientNme"} }},
		{"no keywords", func(c *Config) { c.AnatomyKeywords = nil }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative trim", func(c *Config) { c.Alignment.MaxLeadingTrim = -1 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Root = "/data"
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfig))
		})
	}
}

func TestParseChangeDates(t *testing.T) {
	tests := []struct {
		in   string
		want ChangeDates
	}{
		{"true", ChangeDates{Enabled: true}},
		{"today", ChangeDates{Enabled: true}},
		{"off", ChangeDates{}},
		{"19000101", ChangeDates{Enabled: true, Literal: "19000101"}},
	}
	for _, tc := range tests {
		got, err := ParseChangeDates(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseChangeDates("  ")
	assert.Error(t, err)
}

func TestClearListWarnings(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.ClearListWarnings(), "default clear-list is clean")

	cfg.TagsToClear = []string{"PatientName", "(0010, 0010)", "(0007, 002a)", "StudyDate"}
	warnings := cfg.ClearListWarnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "PatientName (0010, 0010) [Patient]")
	assert.Contains(t, warnings[0], "more than once")
	assert.Contains(t, warnings[1], "(0007, 002a)")
	assert.Contains(t, warnings[1], "private group")
}
