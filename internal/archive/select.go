package archive

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rowjay/monthly-archiver/internal/storage"
)

// TimestampLayout is the format of the custom original-timestamp attribute.
const TimestampLayout = "2006-01-02T15:04:05"

// ObjectRef identifies one object selected for archiving.
type ObjectRef struct {
	Bucket    string
	Key       string
	Size      int64
	Timestamp time.Time
}

type SelectOptions struct {
	// TimestampAttribute names the user metadata entry that overrides the
	// store's last-modified time.
	TimestampAttribute string
	Location           *time.Location
	Log                zerolog.Logger
}

// EffectiveTime returns the custom attribute when present and parseable,
// otherwise the store's last-modified time. A non-nil error means the
// attribute was present but malformed; the returned time is then the
// fallback.
func EffectiveTime(info storage.ObjectInfo, attribute string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw, ok := info.MetadataValue(attribute)
	if !ok {
		return info.Modified, nil
	}
	parsed, err := time.ParseInLocation(TimestampLayout, raw, loc)
	if err != nil {
		return info.Modified, fmt.Errorf("parse %s %q: %w", attribute, raw, err)
	}
	return parsed, nil
}

// Select lists prefix and keeps the objects whose effective timestamp lies in
// r. The result is ordered by key.
func Select(ctx context.Context, store storage.Storage, prefix string, r DateRange, opts SelectOptions) ([]ObjectRef, error) {
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s in %s: %v", ErrStoreUnavailable, prefix, store.Location(), err)
	}

	refs := []ObjectRef{}
	for _, obj := range objects {
		info, err := store.Stat(ctx, obj.Key)
		if err != nil {
			opts.Log.Warn().Err(err).Str("key", obj.Key).Msg("metadata unavailable, using listing timestamp")
			info = obj
		}
		ts, err := EffectiveTime(info, opts.TimestampAttribute, opts.Location)
		if err != nil {
			opts.Log.Warn().Err(err).Str("key", obj.Key).Time("fallback", ts).Msg("malformed timestamp attribute, using last-modified")
		}
		if !r.Contains(ts) {
			opts.Log.Debug().Str("key", obj.Key).Time("timestamp", ts).Msg("outside range")
			continue
		}
		size := info.Size
		if size == 0 {
			size = obj.Size
		}
		refs = append(refs, ObjectRef{Bucket: store.Location(), Key: obj.Key, Size: size, Timestamp: ts})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}
