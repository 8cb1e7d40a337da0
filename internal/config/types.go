package config

import "time"

// Config is the root configuration schema.
type Config struct {
	Global        GlobalConfig        `mapstructure:"global"`
	Source        SourceConfig        `mapstructure:"source"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
	Publish       PublishConfig       `mapstructure:"publish"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type GlobalConfig struct {
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"` // json or console
	LockFile         string        `mapstructure:"lock_file"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ConfigPassphrase string        `mapstructure:"config_passphrase"` // optional; may come from env
	Timezone         string        `mapstructure:"timezone"`
}

type SourceConfig struct {
	Backend string     `mapstructure:"backend"` // local, s3
	Local   LocalStore `mapstructure:"local"`
	S3      S3Store    `mapstructure:"s3"`
}

type LocalStore struct {
	Path string `mapstructure:"path"`
}

type S3Store struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	SessionToken    string `mapstructure:"session_token"`
	TLSInsecureSkip bool   `mapstructure:"tls_insecure_skip"`
}

type ArchiveConfig struct {
	Prefixes           []string `mapstructure:"prefixes"`
	OutputDir          string   `mapstructure:"output_dir"`
	ScratchDir         string   `mapstructure:"scratch_dir"` // empty means os.TempDir()
	Method             string   `mapstructure:"method"`      // deflate, zstd
	TimestampAttribute string   `mapstructure:"timestamp_attribute"`
}

type PublishConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Prefix        string        `mapstructure:"prefix"`
	RetryCount    int           `mapstructure:"retry_count"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
	Encryption    bool          `mapstructure:"encryption"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	Retention     Retention     `mapstructure:"retention"`
}

type Retention struct {
	KeepLast int `mapstructure:"keep_last"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig  `mapstructure:"webhooks"`
	Mattermost []MattermostHook `mapstructure:"mattermost"`
	Matrix     []MatrixConfig   `mapstructure:"matrix"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type MattermostHook struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type MatrixConfig struct {
	Name        string `mapstructure:"name"`
	ServerURL   string `mapstructure:"server_url"`
	AccessToken string `mapstructure:"access_token"`
	RoomID      string `mapstructure:"room_id"`
}
