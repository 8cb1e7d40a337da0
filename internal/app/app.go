package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rowjay/monthly-archiver/internal/archive"
	"github.com/rowjay/monthly-archiver/internal/config"
	"github.com/rowjay/monthly-archiver/internal/cryptoutil"
	"github.com/rowjay/monthly-archiver/internal/lock"
	"github.com/rowjay/monthly-archiver/internal/notify"
	"github.com/rowjay/monthly-archiver/internal/storage"
	"github.com/rowjay/monthly-archiver/internal/util"
)

type App struct {
	Cfg      *config.Config
	Storage  storage.Storage
	Log      zerolog.Logger
	Notifier notify.Notifier
}

func New(cfg *config.Config, store storage.Storage, log zerolog.Logger, notifier notify.Notifier) *App {
	return &App{Cfg: cfg, Storage: store, Log: log, Notifier: notifier}
}

// RunStats summarises one invocation.
type RunStats struct {
	RunID     string
	Range     archive.DateRange
	Source    string
	Jobs      []archive.JobResult
	StartedAt time.Time
	EndedAt   time.Time
}

func (s *RunStats) Month() string {
	return s.Range.Month()
}

func (s *RunStats) TotalFiles() int {
	total := 0
	for _, j := range s.Jobs {
		total += j.Files
	}
	return total
}

// Failed lists the prefixes whose job returned an error.
func (s *RunStats) Failed() []string {
	var failed []string
	for _, j := range s.Jobs {
		if j.Err != nil {
			failed = append(failed, j.Prefix)
		}
	}
	return failed
}

// Err joins the failures of every prefix, nil when all succeeded.
func (s *RunStats) Err() error {
	var errs []error
	for _, j := range s.Jobs {
		if j.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", j.Prefix, j.Err))
		}
	}
	return errors.Join(errs...)
}

// Run archives the month before ref for every configured prefix. Prefixes
// are processed one after another; a failing prefix does not stop the next.
func (a *App) Run(ctx context.Context, ref time.Time) (*RunStats, error) {
	stats := &RunStats{
		RunID:     uuid.NewString(),
		Range:     archive.PreviousMonth(ref),
		Source:    a.Storage.Location(),
		StartedAt: time.Now(),
	}
	log := a.Log.With().Str("run_id", stats.RunID).Logger()

	var opErr error
	defer func() {
		stats.EndedAt = time.Now()
		a.notify(stats, opErr)
	}()

	jobOpts, err := a.jobOptions(log)
	if err != nil {
		opErr = err
		return stats, err
	}

	lockPath := a.Cfg.Global.LockFile
	if lockPath == "" {
		lockPath = filepath.Join(a.Cfg.Archive.OutputDir, lock.DefaultName)
	}
	guard, err := lock.Acquire(lockPath)
	if err != nil {
		opErr = err
		return stats, err
	}
	defer guard.Release()

	log.Info().
		Str("month", stats.Month()).
		Str("range", stats.Range.String()).
		Str("source", stats.Source).
		Str("output", a.Cfg.Archive.OutputDir).
		Msg("monthly archive started")

	for _, prefix := range a.Cfg.Archive.Prefixes {
		job := archive.Job{
			Prefix:     util.NormalizePrefix(prefix),
			Range:      stats.Range,
			OutputDir:  a.Cfg.Archive.OutputDir,
			ScratchDir: a.Cfg.Archive.ScratchDir,
		}
		result := archive.RunJob(ctx, a.Storage, job, jobOpts)
		if result.Err != nil {
			log.Error().Err(result.Err).Str("prefix", job.Prefix).Msg("prefix archive failed")
		}
		stats.Jobs = append(stats.Jobs, result)
	}

	opErr = stats.Err()
	log.Info().Int("files", stats.TotalFiles()).Strs("failed", stats.Failed()).Msg("monthly archive finished")
	return stats, opErr
}

// Preview lists the objects each prefix would archive without downloading.
func (a *App) Preview(ctx context.Context, ref time.Time) (archive.DateRange, []archive.JobResult, error) {
	r := archive.PreviousMonth(ref)
	opts, err := a.selectOptions(a.Log)
	if err != nil {
		return r, nil, err
	}
	var results []archive.JobResult
	var errs []error
	for _, prefix := range a.Cfg.Archive.Prefixes {
		prefix = util.NormalizePrefix(prefix)
		refs, err := archive.Select(ctx, a.Storage, prefix, r, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
		results = append(results, archive.JobResult{Prefix: prefix, Objects: refs, Files: len(refs), Err: err})
	}
	return r, results, errors.Join(errs...)
}

// Validate checks that every prefix can be listed.
func (a *App) Validate(ctx context.Context) error {
	for _, prefix := range a.Cfg.Archive.Prefixes {
		if _, err := a.Storage.List(ctx, util.NormalizePrefix(prefix)); err != nil {
			return fmt.Errorf("%w: %s: %v", archive.ErrStoreUnavailable, prefix, err)
		}
	}
	return nil
}

func (a *App) selectOptions(log zerolog.Logger) (archive.SelectOptions, error) {
	loc, err := a.Cfg.Global.Location()
	if err != nil {
		return archive.SelectOptions{}, err
	}
	return archive.SelectOptions{
		TimestampAttribute: a.Cfg.Archive.TimestampAttribute,
		Location:           loc,
		Log:                log,
	}, nil
}

func (a *App) jobOptions(log zerolog.Logger) (archive.JobOptions, error) {
	selectOpts, err := a.selectOptions(log)
	if err != nil {
		return archive.JobOptions{}, err
	}
	opts := archive.JobOptions{
		Select: selectOpts,
		Build:  archive.BuildOptions{Method: a.Cfg.Archive.Method},
		Log:    log,
	}
	if !a.Cfg.Publish.Enabled {
		return opts, nil
	}
	publish := &archive.PublishOptions{
		Prefix:       a.Cfg.Publish.Prefix,
		RetryCount:   a.Cfg.Publish.RetryCount,
		RetryBackoff: a.Cfg.Publish.RetryBackoff,
	}
	if a.Cfg.Publish.Encryption {
		if a.Cfg.Publish.EncryptionKey == "" {
			return archive.JobOptions{}, fmt.Errorf("publish encryption is enabled but encryption_key is empty")
		}
		key, err := cryptoutil.ParseKey(a.Cfg.Publish.EncryptionKey)
		if err != nil {
			return archive.JobOptions{}, err
		}
		publish.EncryptionKey = key
	}
	opts.Publish = publish
	opts.KeepLast = a.Cfg.Publish.Retention.KeepLast
	return opts, nil
}

func (a *App) notify(stats *RunStats, opErr error) {
	if a.Notifier == nil {
		return
	}
	event := notify.Event{
		Type:      "archive",
		RunID:     stats.RunID,
		Message:   fmt.Sprintf("archive %s", stats.Month()),
		Status:    statusFromErr(opErr),
		Source:    stats.Source,
		Month:     stats.Month(),
		StartedAt: stats.StartedAt,
		EndedAt:   stats.EndedAt,
		Duration:  stats.EndedAt.Sub(stats.StartedAt).String(),
	}
	for _, j := range stats.Jobs {
		summary := notify.PrefixSummary{Prefix: j.Prefix, Files: j.Files, Archive: j.ArchivePath, Key: j.PublishedKey}
		if j.Err != nil {
			summary.Error = j.Err.Error()
		}
		event.Prefixes = append(event.Prefixes, summary)
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if err := a.Notifier.Notify(context.Background(), event); err != nil {
		a.Log.Warn().Err(err).Msg("notification failed")
	}
}

func statusFromErr(err error) string {
	if err == nil {
		return "success"
	}
	return "failed"
}
