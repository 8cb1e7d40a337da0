package archive

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rowjay/monthly-archiver/internal/storage"
	"github.com/rowjay/monthly-archiver/internal/util"
)

// Prune deletes published archives of one source prefix beyond the newest
// keep months. Archive names embed YYYY-MM, so key order is month order.
// Delete failures are logged and skipped.
func Prune(ctx context.Context, store storage.Storage, archivePrefix, sourcePrefix string, keep int, log zerolog.Logger) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	listPrefix := util.NormalizePrefix(archivePrefix)
	objects, err := store.List(ctx, listPrefix)
	if err != nil {
		return nil, err
	}

	stem := util.PrefixName(sourcePrefix) + "_"
	months := map[string][]string{}
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !strings.HasPrefix(name, stem) {
			continue
		}
		month, ok := archiveMonth(strings.TrimPrefix(name, stem))
		if !ok {
			continue
		}
		months[month] = append(months[month], obj.Key)
	}

	ordered := make([]string, 0, len(months))
	for m := range months {
		ordered = append(ordered, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))
	if len(ordered) <= keep {
		return nil, nil
	}

	var removed []string
	for _, m := range ordered[keep:] {
		for _, key := range months[m] {
			if err := store.Delete(ctx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to delete expired archive")
				continue
			}
			removed = append(removed, key)
		}
	}
	return removed, nil
}

// archiveMonth accepts only "<YYYY-MM>.zip" or "<YYYY-MM>.zip.enc", so an
// archive of a sibling prefix sharing the stem (Customer_VIP_...) is never
// read as one of ours.
func archiveMonth(rest string) (string, bool) {
	month, ok := strings.CutSuffix(rest, ".zip"+EncryptedSuffix)
	if !ok {
		month, ok = strings.CutSuffix(rest, ".zip")
	}
	if !ok {
		return "", false
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return "", false
	}
	return month, true
}
