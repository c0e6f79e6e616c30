// Package main provides the CLI entry point for the tripwash runtime.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tripwash/runtime/internal/cli"
	"github.com/tripwash/runtime/internal/config"
	"github.com/tripwash/runtime/internal/logger"
	"github.com/tripwash/runtime/internal/pathutil"
	"github.com/tripwash/runtime/internal/persistence"
	"github.com/tripwash/runtime/internal/runtime"
	"github.com/tripwash/runtime/internal/scheduler"
	"github.com/tripwash/runtime/internal/watcher"
	"github.com/tripwash/runtime/pkg/trip"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	logFormat string

	// Run command flags
	dryRun   bool
	stateDir string
	follow   bool

	// Build information (set via ldflags during build)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitRuntimeError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tripwash",
	Short: "Tripwash - ride-hailing trip dataset cleaner",
	Long: `Tripwash partitions raw trip datasets into cleaned and dropped sets.

A job configuration (JSON/YAML) names the input dataset, the geographic
bounding box and the output destinations. Every row is checked against the
built-in validity rules (timestamp, bounds, fare, coordinates, passengers,
geodesic trip distance) plus any custom rules defined in the job.

Examples:
  # Validate a job file
  tripwash validate job.yaml

  # Clean a dataset
  tripwash run job.yaml

  # See what would be dropped without writing anything
  tripwash run --dry-run job.yaml

  # Re-clean whenever a new dataset lands in a directory
  tripwash watch job.yaml ./incoming`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		format := logger.FormatJSON
		if logFormat == "human" {
			format = logger.FormatHuman
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		} else if quiet {
			level = slog.LevelError
		}
		logger.SetLevelAndFormat(level, format)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <job-file>",
	Short: "Validate a job configuration file",
	Long: `Validate a job configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected based on
file extension (.json, .yaml, .yml) or content.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)`,
	Args: cobra.ExactArgs(1),
	Run:  runValidate,
}

var runCmd = &cobra.Command{
	Use:   "run <job-file>",
	Short: "Run a cleaning job from a configuration file",
	Long: `Run the cleaning job defined in the configuration file.

The job file is validated first; an invalid job never runs. With --follow
the job's cron expression is honored and the process keeps running until
interrupted.

Exit codes:
  0 - Job completed successfully
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
	Args: cobra.ExactArgs(1),
	Run:  runJob,
}

var watchCmd = &cobra.Command{
	Use:   "watch <job-file> <directory>",
	Short: "Run the job whenever a dataset file changes in a directory",
	Long: `Watch a directory and run the cleaning job against every new or
rewritten dataset file. The file extension is derived from the job's input
type (csv or xlsx). The process keeps running until interrupted.`,
	Args: cobra.ExactArgs(2),
	Run:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version, commit hash, and build date information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log output format (json or human)")

	// Run command flags
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Clean without writing outputs or state")
	runCmd.Flags().StringVar(&stateDir, "state-dir", persistence.DefaultStatePath, "Directory for per-job run state")
	runCmd.Flags().BoolVar(&follow, "follow", false, "Keep running on the job's cron schedule")

	// Watch command flags
	watchCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Clean without writing outputs or state")
	watchCmd.Flags().StringVar(&stateDir, "state-dir", persistence.DefaultStatePath, "Directory for per-job run state")

	// Add commands
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func runValidate(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !quiet {
		fmt.Printf("Validating job configuration: %s\n", jobPath)
	}

	result := config.ParseFile(jobPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("✓ Job configuration is valid (format: %s)\n", result.Format)
		if verbose {
			if id, ok := result.Data["id"].(string); ok {
				fmt.Printf("  Job: %s\n", id)
			}
			if schedule, ok := result.Data["schedule"].(string); ok {
				fmt.Printf("  Schedule: %s\n", schedule)
			}
		}
	}

	os.Exit(ExitSuccess)
}

// loadJob parses, validates and converts a job file, exiting on failure.
func loadJob(jobPath string) *trip.Job {
	if err := pathutil.ValidateFilePath(jobPath); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Invalid job file path: %v\n", err)
		os.Exit(ExitParseError)
	}

	result := config.ParseFile(jobPath)

	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(result.ParseErrors, verbose)
		os.Exit(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(result.ValidationErrors, verbose, quiet)
		os.Exit(ExitValidationError)
	}

	job, err := config.ConvertToJob(result.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to convert configuration: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	return job
}

func runJob(_ *cobra.Command, args []string) {
	jobPath := args[0]

	if !quiet {
		fmt.Printf("Loading job configuration: %s\n", jobPath)
	}

	job := loadJob(jobPath)

	if verbose {
		fmt.Printf("  Job: %s (%s)\n", job.Name, job.ID)
		if job.Description != "" {
			fmt.Printf("  Description: %s\n", job.Description)
		}
	}

	executor := runtime.NewExecutorWithStore(persistence.NewStateStore(stateDir), dryRun)

	if follow {
		runScheduled(executor, job)
		return
	}

	if !quiet {
		if dryRun {
			fmt.Println("Running job (dry-run mode - outputs will not be written)...")
		} else {
			fmt.Println("Running job...")
		}
	}

	report, err := executor.Execute(job)
	cli.PrintReport(report, err, cli.OutputOptions{Verbose: verbose, Quiet: quiet})

	if err != nil {
		os.Exit(ExitRuntimeError)
	}
	os.Exit(ExitSuccess)
}

// runScheduled keeps the job running on its cron schedule until interrupted.
func runScheduled(executor *runtime.Executor, job *trip.Job) {
	if job.Schedule == "" {
		fmt.Fprintln(os.Stderr, "✗ Job has no schedule; drop --follow or add a cron expression")
		os.Exit(ExitValidationError)
	}

	sched, err := scheduler.New(executor.ExecuteWithContext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to create scheduler: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	if err := sched.Register(job); err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to schedule job: %v\n", err)
		os.Exit(ExitValidationError)
	}

	if !quiet {
		fmt.Printf("Scheduled job %s (%s); press Ctrl-C to stop\n", job.ID, job.Schedule)
	}

	sched.Start()
	waitForInterrupt()
	sched.Stop()
	os.Exit(ExitSuccess)
}

func runWatch(_ *cobra.Command, args []string) {
	jobPath, dir := args[0], args[1]

	job := loadJob(jobPath)
	executor := runtime.NewExecutorWithStore(persistence.NewStateStore(stateDir), dryRun)

	w, err := watcher.New(job, dir, executor.ExecuteWithContext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Failed to start watcher: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	defer w.Close()

	if !quiet {
		fmt.Printf("Watching %s for job %s; press Ctrl-C to stop\n", dir, job.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		waitForInterrupt()
		cancel()
	}()

	if err := w.Watch(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "✗ Watcher failed: %v\n", err)
		os.Exit(ExitRuntimeError)
	}
	os.Exit(ExitSuccess)
}

// waitForInterrupt blocks until SIGINT or SIGTERM.
func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
