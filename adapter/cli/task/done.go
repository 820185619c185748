package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
)

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Toggle a task between done and pending",
		Long: `Mark a pending task done, stamped with today's date, or reopen a done
task. The id may be any unique prefix.`,
		Aliases: []string{"toggle"},
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
			op, err := s.ctrl.Toggle(ctx, t.ID)
			if err != nil {
				return err
			}
			if err := cli.Await(ctx, op); err != nil {
				return err
			}

			if t.Done {
				fmt.Fprintf(cmd.OutOrStdout(), "Reopened: %s\n", t.Title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Completed: %s\n", t.Title)
			}
			return nil
		},
	}
}
