package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rowjay/monthly-archiver/internal/util"
)

const (
	DefaultTimestampAttribute = "original-timestamp"
	DefaultPublishPrefix      = "archives/"
)

// DefaultPrefixes are the top-level folders of the document bucket.
var DefaultPrefixes = []string{"Opening/", "Customer/"}

// Location resolves the timezone months are computed in.
func (g GlobalConfig) Location() (*time.Location, error) {
	if g.Timezone == "" || strings.EqualFold(g.Timezone, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	switch c.Source.Backend {
	case "local":
		if c.Source.Local.Path == "" {
			return fmt.Errorf("source.local.path is required for the local backend")
		}
	case "s3":
		if c.Source.S3.Bucket == "" {
			return fmt.Errorf("source.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported source backend: %s", c.Source.Backend)
	}
	if c.Archive.OutputDir == "" {
		return fmt.Errorf("archive.output_dir is required")
	}
	names := map[string]string{}
	for _, p := range c.Archive.Prefixes {
		if strings.Trim(p, "/") == "" {
			return fmt.Errorf("invalid archive prefix %q", p)
		}
		name := util.PrefixName(p)
		if prev, ok := names[name]; ok {
			return fmt.Errorf("archive prefixes %q and %q both produce %s_<month>.zip", prev, p, name)
		}
		names[name] = p
	}
	switch c.Archive.Method {
	case "", "deflate", "zstd":
	default:
		return fmt.Errorf("unsupported archive method: %s", c.Archive.Method)
	}
	if c.Publish.Encryption && c.Publish.EncryptionKey == "" {
		return fmt.Errorf("publish.encryption is enabled but publish.encryption_key is empty")
	}
	if _, err := c.Global.Location(); err != nil {
		return err
	}
	return nil
}
