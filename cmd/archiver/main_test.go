package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/monthly-archiver/internal/archive"
	"github.com/rowjay/monthly-archiver/internal/config"
)

func TestLoadConfigRejectsBothSources(t *testing.T) {
	_, err := loadConfig(&rootFlags{}, &overrideFlags{Bucket: "documents", LocalDir: "./data"})
	assert.ErrorContains(t, err, "--bucket and --local-dir")
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Source.Backend = "S3"
	applyOverrides(cfg, &rootFlags{LogLevel: "debug"}, &overrideFlags{
		LocalDir:    "./data",
		S3UseSSL:    "false",
		S3PathStyle: "1",
		Timezone:    "Europe/Paris",
		Prefixes:    []string{"Opening/"},
	})
	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "local", cfg.Source.Backend)
	assert.Equal(t, "./data", cfg.Source.Local.Path)
	assert.False(t, cfg.Source.S3.UseSSL)
	assert.True(t, cfg.Source.S3.ForcePathStyle)
	assert.Equal(t, "Europe/Paris", cfg.Global.Timezone)
	assert.Equal(t, []string{"Opening/"}, cfg.Archive.Prefixes)

	applyRunFlags(cfg, &runFlags{Output: "/out", Upload: true, Method: "ZSTD", Encrypt: true, EncryptionKey: "k"})
	assert.Equal(t, "/out", cfg.Archive.OutputDir)
	assert.True(t, cfg.Publish.Enabled)
	assert.Equal(t, "zstd", cfg.Archive.Method)
	assert.True(t, cfg.Publish.Encryption)
	assert.Equal(t, "k", cfg.Publish.EncryptionKey)
}

func TestReferenceDate(t *testing.T) {
	cfg := &config.Config{}
	ref, err := referenceDate(cfg, "2026-01-15")
	require.NoError(t, err)
	assert.True(t, ref.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))

	_, err = referenceDate(cfg, "15/01/2026")
	assert.ErrorIs(t, err, archive.ErrInvalidInput)

	cfg.Global.Timezone = "Nowhere/Special"
	_, err = referenceDate(cfg, "")
	assert.Error(t, err)
}
