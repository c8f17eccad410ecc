package porter

import (
	"fmt"
	"os"
	"strings"
)

// FailureReportFile is the consolidated error artifact written next to
// the output packages when any job failed.
const FailureReportFile = "port_failures.log"

// Failed returns the failed results in batch order.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// FormatReport renders the consolidated failure report: one section per
// failed asset with the stage it failed at and the captured collaborator
// output. Successful assets produce no section.
func FormatReport(results []Result) string {
	failed := Failed(results)
	if len(failed) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d asset(s) failed\n", len(failed), len(results))
	for _, r := range failed {
		fmt.Fprintf(&b, "\n=== %s (failed at %s) ===\n", r.Asset, r.FailedAt)
		fmt.Fprintf(&b, "%v\n", r.Err)
		if r.Log != "" {
			b.WriteString(r.Log)
			if !strings.HasSuffix(r.Log, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// WriteReport writes the consolidated failure report to path. No file is
// written when every job succeeded; a stale report from an earlier run
// is removed in that case.
func WriteReport(path string, results []Result) error {
	report := FormatReport(results)
	if report == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale report %s: %w", path, err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return fmt.Errorf("write failure report %s: %w", path, err)
	}
	return nil
}
