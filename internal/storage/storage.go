package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type ObjectInfo struct {
	Key      string
	Size     int64
	Modified time.Time
	ETag     string
	Metadata map[string]string
}

// MetadataValue looks up a user metadata entry ignoring case. S3 gateways
// canonicalize header names, so "original-timestamp" may come back as
// "Original-Timestamp".
func (o ObjectInfo) MetadataValue(name string) (string, bool) {
	if v, ok := o.Metadata[name]; ok {
		return v, true
	}
	for k, v := range o.Metadata {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

type Storage interface {
	Location() string
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, reader io.Reader, size int64, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
}

// Download copies an object to path, creating parent directories.
func Download(ctx context.Context, s Storage, key, path string) error {
	reader, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Upload stores the local file at path under key.
func Upload(ctx context.Context, s Storage, key, path string, metadata map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	return s.Put(ctx, key, file, info.Size(), metadata)
}
