package task

import (
	"github.com/spf13/cobra"
)

func newDayCmd() *cobra.Command {
	var (
		date   string
		showID bool
	)

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show the tasks due on one day",
		Long: `Show the tasks due on one day with their notes and status.

Examples:
  taskcal day
  taskcal day --date tomorrow
  taskcal day --date 2024-05-02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			today := s.ctrl.Today()
			day, err := parseDay(date, today)
			if err != nil {
				return err
			}
			due := s.projector.ForDay(s.ctrl.Snapshot(), day)

			p := printer{w: cmd.OutOrStdout(), showID: showID, today: today}
			p.titleWithCount(day.Key()+" "+day.Weekday().String(), len(due))
			p.details(due)
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "today", "day to show (YYYY-MM-DD, today, tomorrow, yesterday)")
	cmd.Flags().BoolVar(&showID, "ids", false, "show full task ids")
	return cmd
}
