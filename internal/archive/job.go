package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rowjay/monthly-archiver/internal/storage"
	"github.com/rowjay/monthly-archiver/internal/util"
)

// Job archives one prefix for one month.
type Job struct {
	Prefix     string
	Range      DateRange
	OutputDir  string
	ScratchDir string
}

// ArchivePath is the local destination of the job's archive.
func (j Job) ArchivePath() string {
	return filepath.Join(j.OutputDir, util.ArchiveName(j.Prefix, j.Range.Month()))
}

type JobResult struct {
	Prefix       string
	Objects      []ObjectRef
	Files        int
	ArchivePath  string
	ArchiveSize  int64
	PublishedKey string
	Pruned       []string
	Err          error
}

// Archived reports whether a local archive was produced.
func (r JobResult) Archived() bool {
	return r.ArchivePath != ""
}

type JobOptions struct {
	Select  SelectOptions
	Build   BuildOptions
	Publish *PublishOptions // nil disables publishing
	// KeepLast prunes older published archives of the prefix when positive.
	KeepLast int
	Log      zerolog.Logger
}

// RunJob lists, filters, archives and optionally publishes one prefix. It
// depends only on its arguments so the monthly schedule lives outside.
func RunJob(ctx context.Context, store storage.Storage, job Job, opts JobOptions) JobResult {
	log := opts.Log.With().Str("prefix", job.Prefix).Str("month", job.Range.Month()).Logger()
	result := JobResult{Prefix: job.Prefix}

	selectOpts := opts.Select
	selectOpts.Log = log
	refs, err := Select(ctx, store, job.Prefix, job.Range, selectOpts)
	if err != nil {
		result.Err = err
		return result
	}
	result.Objects = refs
	log.Info().Int("found", len(refs)).Msg("objects selected")
	if len(refs) == 0 {
		log.Info().Msg("no objects in range, skipping archive")
		return result
	}

	buildOpts := opts.Build
	buildOpts.Log = log
	built, err := Build(ctx, store, refs, job.ArchivePath(), job.ScratchDir, buildOpts)
	if err != nil {
		result.Err = err
		return result
	}
	result.Files = built.Files
	result.ArchivePath = built.Path
	result.ArchiveSize = built.Size

	if opts.Publish == nil {
		return result
	}
	publishOpts := *opts.Publish
	publishOpts.Log = log
	publishOpts.Metadata = mergeMetadata(publishOpts.Metadata, map[string]string{
		"archive-month":  job.Range.Month(),
		"archive-prefix": job.Prefix,
		"archive-files":  strconv.Itoa(built.Files),
	})
	key, err := Publish(ctx, store, built.Path, publishOpts)
	if err != nil {
		result.Err = err
		return result
	}
	result.PublishedKey = key

	if opts.KeepLast > 0 {
		removed, err := Prune(ctx, store, publishOpts.Prefix, job.Prefix, opts.KeepLast, log)
		if err != nil {
			log.Warn().Err(err).Msg("retention skipped")
		}
		result.Pruned = removed
	}
	return result
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (r JobResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: failed: %v", r.Prefix, r.Err)
	}
	if !r.Archived() {
		return fmt.Sprintf("%s: 0 files, no archive", r.Prefix)
	}
	return fmt.Sprintf("%s: %d files -> %s", r.Prefix, r.Files, r.ArchivePath)
}
