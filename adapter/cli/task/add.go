package task

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
	taskDomain "github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

func newAddCmd() *cobra.Command {
	var (
		due      string
		clock    string
		note     string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Long: `Add a task. It is due today at 23:59 with medium priority unless
told otherwise.

Examples:
  taskcal add "Pick up groceries"
  taskcal add "Dentist appointment" --due 2024-05-07 --time 11:15 -p high
  taskcal add Yoga session --due tomorrow --note "45-minute class"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			day, err := parseDay(due, s.ctrl.Today())
			if err != nil {
				return fmt.Errorf("invalid due date (use YYYY-MM-DD): %w", err)
			}

			ctx := cmd.Context()
			op, err := s.ctrl.Create(ctx, taskDomain.Draft{
				Title:    strings.Join(args, " "),
				Note:     note,
				DueDate:  day.Key(),
				Time:     clock,
				Priority: priority,
			})
			if err != nil {
				return err
			}
			if err := cli.Await(ctx, op); err != nil {
				return err
			}

			t, err := s.ctrl.Get(op.ID())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task created: %s\n", t.ID)
			fmt.Fprintf(out, "  title: %s\n", t.Title)
			fmt.Fprintf(out, "  due: %s %s\n", t.DueDate, t.Time)
			fmt.Fprintf(out, "  priority: %s\n", t.Priority)
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "today", "due date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVarP(&clock, "time", "t", "", "time of day (HH:MM, default 23:59)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "free-form note")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority (low, medium, high)")
	return cmd
}
