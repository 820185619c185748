package task

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

func newMonthCmd() *cobra.Command {
	var (
		month      string
		date       string
		prev, next int
		showID     bool
	)

	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show a month grid and the selected day",
		Long: `Show a Sunday-first month grid. Days with tasks are marked with *,
the selected day is shown in brackets and its tasks are listed below.

Examples:
  taskcal month
  taskcal month --next
  taskcal month --month 2024-05 --date 2024-05-02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prev > 0 && next > 0 {
				return errors.New("--prev and --next are mutually exclusive")
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			today := s.ctrl.Today()
			selected, err := parseDay(date, today)
			if err != nil {
				return err
			}

			cursor := queries.NewCursor(selected)
			if month != "" {
				m, err := value_objects.ParseMonth(month)
				if err != nil {
					return err
				}
				cursor.Month = m
			}
			for i := 0; i < prev; i++ {
				cursor = cursor.PrevMonth()
			}
			for i := 0; i < next; i++ {
				cursor = cursor.NextMonth()
			}

			dash := s.projector.Dashboard(s.ctrl.Snapshot(), cursor, today)

			p := printer{w: cmd.OutOrStdout(), showID: showID, today: today}
			p.month(dash.Month)
			p.titleWithCount(selected.Key()+" "+selected.Weekday().String(), len(dash.Day))
			p.details(dash.Day)
			return nil
		},
	}

	cmd.Flags().StringVarP(&month, "month", "m", "", "month to show (YYYY-MM, default: month of --date)")
	cmd.Flags().StringVarP(&date, "date", "d", "today", "selected day (YYYY-MM-DD, today, tomorrow, yesterday)")
	cmd.Flags().CountVar(&prev, "prev", "show the previous month (repeatable)")
	cmd.Flags().CountVar(&next, "next", "show the next month (repeatable)")
	cmd.Flags().BoolVar(&showID, "ids", false, "show full task ids")
	return cmd
}
