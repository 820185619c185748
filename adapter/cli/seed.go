package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// SampleTask is one entry of the sample data set. Offset is in days from
// today.
type SampleTask struct {
	Title    string
	Note     string
	Offset   int
	Time     string
	Priority string
	Done     bool
}

// SampleTasks is the data set created by "taskcal seed".
var SampleTasks = []SampleTask{
	{Title: "Finalize sprint roadmap", Note: "Align priorities with product and design before standup.", Offset: 0, Time: "09:30", Priority: "high"},
	{Title: "Pick up groceries", Note: "Get fruit, yogurt, oats, and coffee beans.", Offset: 1, Time: "18:00", Priority: "medium"},
	{Title: "Yoga session", Note: "45-minute recovery class after work.", Offset: 2, Time: "20:00", Priority: "low"},
	{Title: "Dentist appointment", Note: "Routine cleaning. Bring insurance card.", Offset: 5, Time: "11:15", Priority: "high"},
	{Title: "Book flight to NYC", Note: "Compare evening departures and baggage options.", Offset: 8, Time: "15:45", Priority: "medium", Done: true},
}

// SampleDrafts turns the sample set into drafts relative to today.
func SampleDrafts(today value_objects.Date) []task.Draft {
	drafts := make([]task.Draft, 0, len(SampleTasks))
	for _, s := range SampleTasks {
		drafts = append(drafts, task.Draft{
			Title:    s.Title,
			Note:     s.Note,
			DueDate:  today.AddDays(s.Offset).Key(),
			Time:     s.Time,
			Priority: s.Priority,
		})
	}
	return drafts
}

var seedForce bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a small set of sample tasks around today",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		ctrl, err := a.Controller(ctx)
		if err != nil {
			return err
		}
		if n := len(ctrl.Snapshot()); n > 0 && !seedForce {
			return fmt.Errorf("store already holds %d tasks (use --force to add samples anyway)", n)
		}

		// One at a time so the store keeps the sample order.
		for i, draft := range SampleDrafts(ctrl.Today()) {
			op, err := ctrl.Create(ctx, draft)
			if err != nil {
				return err
			}
			if err := Await(ctx, op); err != nil {
				return err
			}
			if !SampleTasks[i].Done {
				continue
			}
			op, err = ctrl.Toggle(ctx, op.ID())
			if err != nil {
				return err
			}
			if err := Await(ctx, op); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %d sample tasks.\n", len(SampleTasks))
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "add samples even when the store is not empty")

	rootCmd.AddCommand(seedCmd)
}
