package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rowjay/monthly-archiver/internal/cryptoutil"
)

const (
	envPrefix = "ARCHIVER"
)

// Load reads configuration from a file (optionally encrypted), env vars, and defaults.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		if isEncryptedPath(resolved) {
			if typ := configTypeFromPath(resolved); typ != "" {
				vp.SetConfigType(typ)
			}
			key := os.Getenv("ARCHIVER_CONFIG_KEY")
			if key == "" {
				key = vp.GetString("global.config_passphrase")
			}
			if key == "" {
				return nil, errors.New("config file is encrypted but ARCHIVER_CONFIG_KEY is not set")
			}
			plain, decErr := decryptConfig(data, key)
			if decErr != nil {
				return nil, fmt.Errorf("decrypt config: %w", decErr)
			}
			if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		} else {
			vp.SetConfigFile(resolved)
			if err := vp.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if envPath := os.Getenv("ARCHIVER_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		"archiver.yaml",
		"archiver.yml",
		"archiver.toml",
		"archiver.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		base := filepath.Join(configDir, "archiver")
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
		for _, c := range []string{"archiver.yaml.enc", "archiver.yml.enc", "archiver.toml.enc"} {
			p := filepath.Join(base, c)
			if _, err := os.Stat(p); err == nil {
				return p, nil
			}
		}
	}

	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".toml") || strings.HasSuffix(path, ".toml.enc") || strings.HasSuffix(path, ".toml.encrypted"):
		return "toml"
	case strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.enc") || strings.HasSuffix(path, ".json.encrypted"):
		return "json"
	default:
		return "yaml"
	}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "json")
	vp.SetDefault("global.operation_timeout", "6h")
	vp.SetDefault("global.timezone", "UTC")
	vp.SetDefault("source.backend", "s3")
	vp.SetDefault("source.s3.endpoint", "s3.amazonaws.com")
	vp.SetDefault("source.s3.use_ssl", true)
	vp.SetDefault("archive.prefixes", DefaultPrefixes)
	vp.SetDefault("archive.output_dir", "./archives")
	vp.SetDefault("archive.method", "deflate")
	vp.SetDefault("archive.timestamp_attribute", DefaultTimestampAttribute)
	vp.SetDefault("publish.prefix", DefaultPublishPrefix)
	vp.SetDefault("publish.retry_count", 3)
	vp.SetDefault("publish.retry_backoff", "10s")
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Publish.RetryBackoff == 0 {
		cfg.Publish.RetryBackoff = 10 * time.Second
	}
	if cfg.Global.OperationTimeout == 0 {
		cfg.Global.OperationTimeout = 6 * time.Hour
	}
	if len(cfg.Archive.Prefixes) == 0 {
		cfg.Archive.Prefixes = append([]string{}, DefaultPrefixes...)
	}
	if cfg.Archive.TimestampAttribute == "" {
		cfg.Archive.TimestampAttribute = DefaultTimestampAttribute
	}
	if cfg.Publish.Prefix == "" {
		cfg.Publish.Prefix = DefaultPublishPrefix
	}
}

func expandEnv(cfg *Config) {
	cfg.Source.S3.AccessKey = os.ExpandEnv(cfg.Source.S3.AccessKey)
	cfg.Source.S3.SecretKey = os.ExpandEnv(cfg.Source.S3.SecretKey)
	cfg.Source.S3.SessionToken = os.ExpandEnv(cfg.Source.S3.SessionToken)
	cfg.Publish.EncryptionKey = os.ExpandEnv(cfg.Publish.EncryptionKey)
	cfg.Notifications = expandNotificationEnv(cfg.Notifications)
}

func expandNotificationEnv(cfg NotificationsConfig) NotificationsConfig {
	for i := range cfg.Webhooks {
		cfg.Webhooks[i].URL = os.ExpandEnv(cfg.Webhooks[i].URL)
	}
	for i := range cfg.Mattermost {
		cfg.Mattermost[i].URL = os.ExpandEnv(cfg.Mattermost[i].URL)
	}
	for i := range cfg.Matrix {
		cfg.Matrix[i].ServerURL = os.ExpandEnv(cfg.Matrix[i].ServerURL)
		cfg.Matrix[i].AccessToken = os.ExpandEnv(cfg.Matrix[i].AccessToken)
		cfg.Matrix[i].RoomID = os.ExpandEnv(cfg.Matrix[i].RoomID)
	}
	return cfg
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}
