// Package commands implements the discoursekg CLI surface with
// github.com/spf13/cobra, replacing the teacher's flag-free main.go with
// the richer command tree the pipeline actually needs: run <stage>,
// status, invalidate, and serve-metrics.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"discoursekg/internal/app"
	"discoursekg/internal/config"
	"discoursekg/internal/logging"
)

const dateLayout = "2006-01-02"

// version is overridden at build time via -ldflags, following the
// convention the pack's CLI tools (cobra-based) commonly use.
var version = "dev"

// NewRootCmd builds the discoursekg command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "discoursekg",
		Short: "Ingest speeches, interviews, and debates into a discourse knowledge graph",
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newOperatorError(err)
	})

	root.AddCommand(newRunCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newInvalidateCmd())
	root.AddCommand(newServeMetricsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the discoursekg version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func buildApplication(ctx context.Context) (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, newOperatorError(err)
	}
	return a, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}
