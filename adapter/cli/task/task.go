// Package task holds the commands that read and change tasks.
package task

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
	taskDomain "github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// ErrAmbiguousID is returned when an id prefix matches more than one task.
var ErrAmbiguousID = errors.New("ambiguous task id")

// Commands returns the task commands. Each call builds fresh commands with
// their own flag state.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		newListCmd(),
		newMissionCmd(),
		newDayCmd(),
		newMonthCmd(),
		newAddCmd(),
		newEditCmd(),
		newDoneCmd(),
		newRemoveCmd(),
	}
}

// session is what every task command needs from the container.
type session struct {
	ctrl      *sync.Controller
	projector *queries.Projector
}

func open(cmd *cobra.Command) (*session, error) {
	a, err := cli.RequireApp()
	if err != nil {
		return nil, err
	}
	ctrl, err := a.Controller(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &session{ctrl: ctrl, projector: a.Container.Projector}, nil
}

// resolveID matches arg against the snapshot, first exactly and then as a
// unique prefix.
func resolveID(tasks []taskDomain.Task, arg string) (taskDomain.Task, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return taskDomain.Task{}, taskDomain.ErrEmptyID
	}

	var matches []taskDomain.Task
	for _, t := range tasks {
		if t.ID == arg {
			return t, nil
		}
		if strings.HasPrefix(t.ID, arg) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return taskDomain.Task{}, fmt.Errorf("%w: %s", taskDomain.ErrNotFound, arg)
	case 1:
		return matches[0], nil
	default:
		return taskDomain.Task{}, fmt.Errorf("%w: %s matches %d tasks", ErrAmbiguousID, arg, len(matches))
	}
}

// parseDay accepts YYYY-MM-DD or one of today, tomorrow and yesterday.
func parseDay(s string, today value_objects.Date) (value_objects.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	return value_objects.ParseDate(strings.TrimSpace(s))
}
