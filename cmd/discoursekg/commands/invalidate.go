package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newInvalidateCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Exclude an item from future scheduling without deleting its history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return newOperatorError(fmt.Errorf("--id is required"))
			}

			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			item, err := a.Invalidate(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s (was next=%s)\n", item.ID, item.NextStage)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "pipeline item id to invalidate")
	return cmd
}
