package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/rowjay/monthly-archiver/internal/compress"
	"github.com/rowjay/monthly-archiver/internal/storage"
)

type BuildOptions struct {
	Method string
	Log    zerolog.Logger
}

type BuildResult struct {
	Files int
	Size  int64
	Path  string
}

// Build downloads refs into a scratch directory below scratchRoot and zips
// them into dest. An empty refs slice produces no archive. The scratch
// directory is removed on every return path, and dest is only replaced once
// the archive has been written completely.
func Build(ctx context.Context, store storage.Storage, refs []ObjectRef, dest, scratchRoot string, opts BuildOptions) (BuildResult, error) {
	if len(refs) == 0 {
		return BuildResult{}, nil
	}

	if scratchRoot != "" {
		if err := os.MkdirAll(scratchRoot, 0o750); err != nil {
			return BuildResult{}, fmt.Errorf("create scratch root: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(scratchRoot, "archive-*")
	if err != nil {
		return BuildResult{}, fmt.Errorf("create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			opts.Log.Warn().Err(err).Str("scratch", scratch).Msg("failed to remove scratch directory")
		}
	}()

	for _, ref := range refs {
		if err := fetch(ctx, store, ref, scratch); err != nil {
			return BuildResult{}, err
		}
	}
	opts.Log.Info().Int("files", len(refs)).Msg("objects downloaded")

	size, err := writeArchive(scratch, dest, opts.Method, len(refs))
	if err != nil {
		return BuildResult{}, err
	}
	opts.Log.Info().Str("archive", dest).Str("size", humanize.IBytes(uint64(size))).Int("files", len(refs)).Msg("archive created")
	return BuildResult{Files: len(refs), Size: size, Path: dest}, nil
}

func fetch(ctx context.Context, store storage.Storage, ref ObjectRef, scratch string) error {
	rel := filepath.FromSlash(ref.Key)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: key %q escapes the archive root", ErrFetchFailed, ref.Key)
	}
	target := filepath.Join(scratch, rel)
	if err := storage.Download(ctx, store, ref.Key, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, ref.Key, err)
	}
	if !ref.Timestamp.IsZero() {
		if err := os.Chtimes(target, ref.Timestamp, ref.Timestamp); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFetchFailed, ref.Key, err)
		}
	}
	return nil
}

func writeArchive(scratch, dest, method string, want int) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, fmt.Errorf("%w: create output directory: %v", ErrCompressionFailed, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	count, err := compress.ZipDir(tmp, scratch, method)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if count != want {
		return 0, fmt.Errorf("%w: archived %d files, expected %d", ErrCompressionFailed, count, want)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	committed = true

	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}
	return info.Size(), nil
}
