package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
global:
  log_level: debug
  timezone: Europe/London
source:
  backend: s3
  s3:
    endpoint: minio.internal:9000
    bucket: documents
    access_key: ${TEST_ARCHIVER_ACCESS}
    secret_key: secret
    use_ssl: false
    force_path_style: true
archive:
  prefixes: ["Opening/"]
  output_dir: /var/lib/archiver
publish:
  enabled: true
  retry_backoff: 2s
  retention:
    keep_last: 6
`

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadFileWithDefaults(t *testing.T) {
	t.Setenv("TEST_ARCHIVER_ACCESS", "AKIAEXAMPLE")
	cfg, err := Load(writeConfig(t, "archiver.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Global.LogLevel)
	assert.Equal(t, "json", cfg.Global.LogFormat)
	assert.Equal(t, 6*time.Hour, cfg.Global.OperationTimeout)
	assert.Equal(t, "documents", cfg.Source.S3.Bucket)
	assert.Equal(t, "AKIAEXAMPLE", cfg.Source.S3.AccessKey)
	assert.False(t, cfg.Source.S3.UseSSL)
	assert.True(t, cfg.Source.S3.ForcePathStyle)
	assert.Equal(t, []string{"Opening/"}, cfg.Archive.Prefixes)
	assert.Equal(t, "deflate", cfg.Archive.Method)
	assert.Equal(t, DefaultTimestampAttribute, cfg.Archive.TimestampAttribute)
	assert.True(t, cfg.Publish.Enabled)
	assert.Equal(t, DefaultPublishPrefix, cfg.Publish.Prefix)
	assert.Equal(t, 3, cfg.Publish.RetryCount)
	assert.Equal(t, 2*time.Second, cfg.Publish.RetryBackoff)
	assert.Equal(t, 6, cfg.Publish.Retention.KeepLast)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ARCHIVER_ARCHIVE_METHOD", "zstd")
	t.Setenv("ARCHIVER_GLOBAL_LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "archiver.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "zstd", cfg.Archive.Method)
	assert.Equal(t, "warn", cfg.Global.LogLevel)
}

func TestLoadEncryptedConfig(t *testing.T) {
	key := "base64:" + base64.StdEncoding.EncodeToString(make([]byte, 32))
	plain := writeConfig(t, "archiver.yaml", sampleYAML)
	sealed := filepath.Join(t.TempDir(), "archiver.yaml.enc")
	require.NoError(t, EncryptConfigFile(plain, sealed, key))

	t.Setenv("ARCHIVER_CONFIG_KEY", "")
	_, err := Load(sealed)
	assert.ErrorContains(t, err, "ARCHIVER_CONFIG_KEY")

	t.Setenv("ARCHIVER_CONFIG_KEY", key)
	cfg, err := Load(sealed)
	require.NoError(t, err)
	assert.Equal(t, "documents", cfg.Source.S3.Bucket)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEncryptConfigFileRejects(t *testing.T) {
	key := "base64:" + base64.StdEncoding.EncodeToString(make([]byte, 32))
	plain := writeConfig(t, "archiver.yaml", sampleYAML)
	assert.Error(t, EncryptConfigFile(plain, plain, key))

	broken := writeConfig(t, "archiver.yaml", "source: [unterminated\n")
	out := filepath.Join(t.TempDir(), "archiver.yaml.enc")
	assert.Error(t, EncryptConfigFile(broken, out, key))
	assert.NoFileExists(t, out)
}
