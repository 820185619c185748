package task

import (
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var showID bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List undone tasks",
		Long: `List every task that is not done yet, in the order it was added,
with the number of undone tasks.

Examples:
  taskcal list
  taskcal list --ids`,
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			tasks := s.ctrl.Snapshot()
			undone := s.projector.Undone(tasks)

			p := printer{w: cmd.OutOrStdout(), showID: showID, showDate: true, today: s.ctrl.Today()}
			p.titleWithCount("Undone", len(undone))
			p.tasks(undone)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showID, "ids", true, "show task ids")
	return cmd
}
