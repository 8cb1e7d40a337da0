package archive

import (
	"fmt"
	"time"
)

// ReferenceLayout is the accepted form of a reference date override. Month
// and day may be written with or without a leading zero.
const ReferenceLayout = "2006-1-2"

// DateRange is one calendar month, inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// PreviousMonth returns the calendar month before the month containing ref,
// evaluated in ref's location.
func PreviousMonth(ref time.Time) DateRange {
	loc := ref.Location()
	firstOfRef := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	end := firstOfRef.Add(-time.Nanosecond)
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, loc)
	return DateRange{Start: start, End: end}
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Month formats the range as YYYY-MM.
func (r DateRange) Month() string {
	return r.Start.Format("2006-01")
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s .. %s", r.Start.Format(time.RFC3339), r.End.Format("2006-01-02T15:04:05.000Z07:00"))
}

// ParseReference parses a YYYY-MM-DD override in loc. An empty value means
// the current time.
func ParseReference(value string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if value == "" {
		return now.In(loc), nil
	}
	ref, err := time.ParseInLocation(ReferenceLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: reference date %q must be YYYY-MM-DD", ErrInvalidInput, value)
	}
	return ref, nil
}
