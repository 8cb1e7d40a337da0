package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/monthly-archiver/internal/config"
)

func TestNewBackends(t *testing.T) {
	local, err := New(config.SourceConfig{Backend: "local", Local: config.LocalStore{Path: "/srv/bucket"}})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, local)

	s3, err := New(config.SourceConfig{Backend: "s3", S3: config.S3Store{
		Endpoint:       "localhost:9000",
		Bucket:         "documents",
		AccessKey:      "minio",
		SecretKey:      "minio123",
		ForcePathStyle: true,
	}})
	require.NoError(t, err)
	assert.Equal(t, "s3://documents", s3.Location())

	_, err = New(config.SourceConfig{Backend: "local"})
	assert.Error(t, err)
	_, err = New(config.SourceConfig{Backend: "s3", S3: config.S3Store{Endpoint: "localhost:9000"}})
	assert.Error(t, err)
	_, err = New(config.SourceConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zip", contentType("archives/Opening_2025-12.zip"))
	assert.Equal(t, "application/octet-stream", contentType("archives/Opening_2025-12.zip.enc"))
	assert.Empty(t, contentType("Opening/TXN1/IDD.pdf"))
}
