package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Source:  SourceConfig{Backend: "local", Local: LocalStore{Path: "/srv/bucket"}},
		Archive: ArchiveConfig{Prefixes: DefaultPrefixes, OutputDir: "/srv/out", Method: "deflate"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing local path": func(c *Config) { c.Source.Local.Path = "" },
		"missing bucket":     func(c *Config) { c.Source.Backend = "s3" },
		"unknown backend":    func(c *Config) { c.Source.Backend = "gcs" },
		"no output":          func(c *Config) { c.Archive.OutputDir = "" },
		"root prefix":        func(c *Config) { c.Archive.Prefixes = []string{"/"} },
		"colliding names":    func(c *Config) { c.Archive.Prefixes = []string{"Opening/Old/", "Opening_Old/"} },
		"duplicate prefix":   func(c *Config) { c.Archive.Prefixes = []string{"Opening/", "/Opening"} },
		"bad method":         func(c *Config) { c.Archive.Method = "bzip2" },
		"bad timezone":       func(c *Config) { c.Global.Timezone = "Mars/Olympus" },
		"encryption no key":  func(c *Config) { c.Publish.Encryption = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := GlobalConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = GlobalConfig{Timezone: "America/New_York"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestValidateCollidingArchiveNames(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Prefixes = []string{"Opening/Old/", "Customer/", "Opening_Old/"}
	assert.ErrorContains(t, cfg.Validate(), "Opening_Old_<month>.zip")

	cfg.Archive.Prefixes = []string{"Opening/Old/", "Opening/New/"}
	assert.NoError(t, cfg.Validate())
}
