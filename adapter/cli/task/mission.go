package task

import (
	"github.com/spf13/cobra"
)

func newMissionCmd() *cobra.Command {
	var showID bool

	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Show today's mission",
		Long: `Show every undone task plus the tasks completed today, ordered by
time of day.`,
		Aliases: []string{"today"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			today := s.ctrl.Today()
			mission := s.projector.Mission(s.ctrl.Snapshot(), today)

			p := printer{w: cmd.OutOrStdout(), showID: showID, showDate: true, today: today}
			p.titleWithCount("Mission for "+today.Key(), len(mission))
			p.tasks(mission)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showID, "ids", true, "show task ids")
	return cmd
}
