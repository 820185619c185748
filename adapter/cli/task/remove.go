package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Short:   "Delete a task",
		Aliases: []string{"delete", "remove"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			t, err := resolveID(s.ctrl.Snapshot(), args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			op, err := s.ctrl.Delete(ctx, t.ID)
			if err != nil {
				return err
			}
			if err := cli.Await(ctx, op); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", t.Title)
			return nil
		},
	}
}
