package task

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
	taskDomain "github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

func newEditCmd() *cobra.Command {
	var (
		title    string
		note     string
		due      string
		clock    string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change a task",
		Long: `Change the fields given as flags and leave the rest alone. The id may
be any unique prefix.

Examples:
  taskcal edit 3f2a --title "Book flight to Boston"
  taskcal edit 3f2a --due tomorrow --time 08:00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var in taskDomain.PatchInput
			if flags.Changed("title") {
				in.Title = &title
			}
			if flags.Changed("note") {
				in.Note = &note
			}
			if flags.Changed("time") {
				in.Time = &clock
			}
			if flags.Changed("priority") {
				in.Priority = &priority
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			if flags.Changed("due") {
				day, err := parseDay(due, s.ctrl.Today())
				if err != nil {
					return fmt.Errorf("invalid due date (use YYYY-MM-DD): %w", err)
				}
				key := day.Key()
				in.DueDate = &key
			}

			patch, err := taskDomain.ParsePatch(in)
			if err != nil {
				if errors.Is(err, taskDomain.ErrEmptyPatch) {
					return errors.New("nothing to change: pass at least one of --title, --note, --due, --time, --priority")
				}
				return err
			}

			t, err := resolveID(s.ctrl.Snapshot(), args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			op, err := s.ctrl.Update(ctx, t.ID, patch)
			if err != nil {
				return err
			}
			if err := cli.Await(ctx, op); err != nil {
				return err
			}

			updated, err := s.ctrl.Get(t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task updated: %s\n  %s %s %s %s\n",
				updated.ID, updated.DueDate, updated.Time, updated.Priority, updated.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVarP(&note, "note", "n", "", "new note (empty clears it)")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().StringVarP(&clock, "time", "t", "", "new time of day (HH:MM)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority (low, medium, high)")
	return cmd
}
