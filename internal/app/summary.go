package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// WriteSummary prints the end-of-run report.
func WriteSummary(w io.Writer, stats *RunStats) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Monthly archive %s\n", stats.Month())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Date range: %s to %s\n", stats.Range.Start.Format("2006-01-02 15:04:05"), stats.Range.End.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Source:     %s\n", stats.Source)
	fmt.Fprintln(w)
	for _, j := range stats.Jobs {
		switch {
		case j.Err != nil:
			fmt.Fprintf(w, "%-12s FAILED: %v\n", j.Prefix, j.Err)
			if j.Archived() {
				fmt.Fprintf(w, "%-12s local archive kept: %s\n", "", j.ArchivePath)
			}
		case !j.Archived():
			fmt.Fprintf(w, "%-12s 0 files, no archive\n", j.Prefix)
		default:
			fmt.Fprintf(w, "%-12s %d files, %s -> %s\n", j.Prefix, j.Files, humanize.IBytes(uint64(j.ArchiveSize)), j.ArchivePath)
			if j.PublishedKey != "" {
				fmt.Fprintf(w, "%-12s uploaded: %s/%s\n", "", strings.TrimSuffix(stats.Source, "/"), j.PublishedKey)
			}
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total files: %d\n", stats.TotalFiles())
}
