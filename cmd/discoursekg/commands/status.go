package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"discoursekg/internal/domain"
)

func newStatusCmd() *cobra.Command {
	var stageFlag string
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List pipeline items, optionally filtered by stage or failure state",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stage domain.Stage
			if stageFlag != "" {
				parsed, err := domain.ParseStage(stageFlag)
				if err != nil {
					return newOperatorError(fmt.Errorf("--stage: %w", err))
				}
				stage = parsed
			}

			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			items := a.Status()
			out := cmd.OutOrStdout()
			for _, item := range items {
				if stageFlag != "" && item.NextStage != stage {
					continue
				}
				if failedOnly && item.ErrorMessage == "" {
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\tnext=%s\tretries=%d\tinvalidated=%t",
					item.ID, item.Speaker, item.ContentType, item.NextStage, item.RetryCount, item.Invalidated)
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "\terror=%q", item.ErrorMessage)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stageFlag, "stage", "", "filter to items whose next stage matches")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show items with a recorded error")
	return cmd
}
