package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/tripwash/runtime/pkg/trip"
)

// OutputOptions configures CLI output behavior.
type OutputOptions struct {
	Verbose bool
	Quiet   bool
}

// PrintReport displays the outcome of a job run.
func PrintReport(report *trip.Report, err error, opts OutputOptions) {
	if report == nil {
		fmt.Fprintln(os.Stderr, "✗ No run report available")
		return
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Job run failed")
		if report.Error != nil {
			fmt.Fprintf(os.Stderr, "  Stage: %s\n", report.Error.Stage)
			if report.Error.Code != "" {
				fmt.Fprintf(os.Stderr, "  Code: %s\n", report.Error.Code)
			}
			fmt.Fprintf(os.Stderr, "  Error: %s\n", report.Error.Message)
		}
		return
	}

	if opts.Quiet {
		return
	}

	if report.DryRun {
		fmt.Println("✓ Job completed (dry-run, nothing written)")
	} else {
		fmt.Println("✓ Job completed")
	}
	fmt.Printf("  Records in: %d\n", report.RecordsIn)
	fmt.Printf("  Cleaned: %d\n", report.RecordsCleaned)
	fmt.Printf("  Dropped: %d\n", report.RecordsDropped)

	if len(report.RuleCounts) > 0 {
		printRuleCounts(report.RuleCounts)
	}

	if opts.Verbose {
		fmt.Printf("  Duration: %v\n", report.Duration())
	}
}

// printRuleCounts prints per-rule drop counts, largest first.
// Rules tied on count are ordered by name so output is stable.
func printRuleCounts(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Println("  Dropped by rule:")
	for _, name := range names {
		fmt.Printf("    %s: %d\n", name, counts[name])
	}
}
