package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"discoursekg/internal/domain"
	"discoursekg/internal/runtime"
)

func newRunCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline stage to completion over every eligible item",
	}

	run.AddCommand(newRunDiscoverCmd())
	run.AddCommand(newRunSingleStageCmd("scrape", domain.StageScrape))
	run.AddCommand(newRunSingleStageCmd("summarize", domain.StageSummarize))
	run.AddCommand(newRunSingleStageCmd("categorize", domain.StageCategorize))
	run.AddCommand(newRunSingleStageCmd("graph", domain.StageGraph))
	run.AddCommand(newRunAllCmd())

	return run
}

func newRunDiscoverCmd() *cobra.Command {
	var speaker, from, to string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover new communications for a speaker within a date window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if speaker == "" {
				return newOperatorError(fmt.Errorf("--speaker is required"))
			}

			start, err := parseDate(from)
			if err != nil {
				return newOperatorError(fmt.Errorf("--from: %w", err))
			}
			end, err := parseDate(to)
			if err != nil {
				return newOperatorError(fmt.Errorf("--to: %w", err))
			}
			if end.IsZero() {
				end = time.Now()
			}

			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			report, err := a.RunDiscover(ctx, runtime.DiscoverParams{Speaker: speaker, StartDate: start, EndDate: end})
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return exitStatus(report)
		},
	}

	cmd.Flags().StringVar(&speaker, "speaker", "", "speaker key from the speaker registry")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD), defaults to today")
	return cmd
}

func newRunSingleStageCmd(name string, stage domain.Stage) *cobra.Command {
	var fanout int
	var timeoutSecs int

	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Run the %s stage over every eligible item", name),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			applyOverrides(a, fanout, timeoutSecs)

			report, err := a.RunStage(ctx, stage)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return exitStatus(report)
		},
	}

	cmd.Flags().IntVar(&fanout, "fanout", 0, "override configured concurrent worker count")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "override configured per-item timeout in seconds")
	return cmd
}

func newRunAllCmd() *cobra.Command {
	var fanout, timeoutSecs int
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every non-discover stage once, in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			applyOverrides(a, fanout, timeoutSecs)

			var last []runtime.StageReport
			runOnce := func() error {
				reports, err := a.RunAll(ctx)
				last = reports
				for _, r := range reports {
					printReport(cmd, r)
				}
				return err
			}

			if !watch {
				if err := runOnce(); err != nil {
					return err
				}
				for _, r := range last {
					if err := exitStatus(r); err != nil {
						return err
					}
				}
				return nil
			}

			// run all --watch wraps each iteration in a bounded exponential
			// backoff, per spec.md's guidance that an external orchestrator
			// may retry run_stage with finite backoff; this provides that
			// orchestration in-process rather than requiring a cron wrapper.
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = interval
			b.MaxElapsedTime = 0 // unbounded: --watch runs until the process is stopped

			for {
				if err := backoff.Retry(runOnce, backoff.WithMaxRetries(b, 2)); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "run all: giving up after retries:", err)
				}
				time.Sleep(interval)
			}
		},
	}

	cmd.Flags().IntVar(&fanout, "fanout", 0, "override configured concurrent worker count")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "override configured per-item timeout in seconds")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep re-running every interval instead of exiting")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "delay between --watch iterations")
	return cmd
}

func printReport(cmd *cobra.Command, report runtime.StageReport) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d total, %d succeeded, %d failed\n", report.Stage, report.ItemsTotal, report.Succeeded, report.Failed)
	for _, f := range report.Failures {
		fmt.Fprintf(cmd.OutOrStdout(), "  FAILED %s: %s\n", f.ID, f.Error)
	}
}

func exitStatus(report runtime.StageReport) error {
	if report.Failed > 0 {
		return fmt.Errorf("%d item(s) failed", report.Failed)
	}
	return nil
}
