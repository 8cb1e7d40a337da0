package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rowjay/monthly-archiver/internal/cryptoutil"
	"github.com/rowjay/monthly-archiver/internal/storage"
	"github.com/rowjay/monthly-archiver/internal/util"
)

// EncryptedSuffix is appended to the key of archives published encrypted.
const EncryptedSuffix = ".enc"

type PublishOptions struct {
	Prefix       string
	RetryCount   int
	RetryBackoff time.Duration
	// EncryptionKey enables DARE encryption of the uploaded copy when set.
	EncryptionKey []byte
	Metadata      map[string]string
	Log           zerolog.Logger
}

// PublishKey is the destination key of a local archive.
func PublishKey(prefix, localPath string, encrypted bool) string {
	name := filepath.Base(localPath)
	if encrypted {
		name += EncryptedSuffix
	}
	return util.BuildObjectKey(prefix, name)
}

// Publish uploads localPath below opts.Prefix. The local file is left in
// place whatever the outcome.
func Publish(ctx context.Context, store storage.Storage, localPath string, opts PublishOptions) (string, error) {
	encrypted := len(opts.EncryptionKey) > 0
	key := PublishKey(opts.Prefix, localPath, encrypted)

	err := util.Retry(ctx, opts.RetryCount, opts.RetryBackoff, func(attempt int) error {
		var err error
		if encrypted {
			err = putEncrypted(ctx, store, key, localPath, opts.EncryptionKey, opts.Metadata)
		} else {
			err = storage.Upload(ctx, store, key, localPath, opts.Metadata)
		}
		if err != nil {
			opts.Log.Warn().Err(err).Int("attempt", attempt).Str("key", key).Msg("upload attempt failed")
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s to %s: %v", ErrUploadFailed, filepath.Base(localPath), key, err)
	}
	opts.Log.Info().Str("key", key).Str("store", store.Location()).Bool("encrypted", encrypted).Msg("archive published")
	return key, nil
}

// putEncrypted streams the archive through a DARE encrypting writer into
// the store. Size is unknown up front, so the store receives -1.
func putEncrypted(ctx context.Context, store storage.Storage, key, localPath string, encKey []byte, metadata map[string]string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	pipeReader, pipeWriter := io.Pipe()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer pipeReader.Close()
		return store.Put(egCtx, key, pipeReader, -1, metadata)
	})

	eg.Go(func() error {
		encWriter, err := cryptoutil.EncryptWriter(pipeWriter, encKey)
		if err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		if _, err := io.Copy(encWriter, src); err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		if err := encWriter.Close(); err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		return pipeWriter.Close()
	})

	return eg.Wait()
}
