package task

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/adapter/cli"
	internalApp "github.com/felixgeelhaar/taskcal/internal/app"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
	taskDomain "github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/pkg/config"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// setupTestApp creates a memory-backed container and installs it as the
// global CLI app.
func setupTestApp(t *testing.T) *internalApp.Container {
	t.Helper()

	cfg := &config.Config{
		AppEnv:          "test",
		Store:           config.StoreMemory,
		DayOrder:        "insertion",
		FailurePolicy:   "keep",
		RemoteTimeout:   5 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	container, err := internalApp.NewContainer(context.Background(), cfg, logger)
	require.NoError(t, err)

	cli.SetApp(cli.NewApp(container))
	t.Cleanup(func() {
		cli.SetApp(nil)
		container.Close()
	})
	return container
}

// seedTasks creates drafts through the controller and returns their ids.
func seedTasks(t *testing.T, c *internalApp.Container, drafts ...taskDomain.Draft) []string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Sync.Load(ctx))

	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		op, err := c.Sync.Create(ctx, d)
		require.NoError(t, err)
		require.NoError(t, op.Wait(ctx))
		ids = append(ids, op.ID())
	}
	return ids
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "taskcal", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(Commands()...)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func fetchRecords(t *testing.T, c *internalApp.Container) []taskDomain.Record {
	t.Helper()
	records, err := c.Gateway.FetchAll(context.Background())
	require.NoError(t, err)
	return records
}

func today() value_objects.Date {
	return value_objects.Today(time.Now)
}

func TestList_ShowsUndoneWithCount(t *testing.T) {
	c := setupTestApp(t)
	day := today().Key()
	ids := seedTasks(t, c,
		taskDomain.Draft{Title: "Finalize sprint roadmap", DueDate: day},
		taskDomain.Draft{Title: "Pick up groceries", DueDate: day},
		taskDomain.Draft{Title: "Book flight", DueDate: day},
	)
	op, err := c.Sync.Toggle(context.Background(), ids[2])
	require.NoError(t, err)
	require.NoError(t, op.Wait(context.Background()))

	out, err := runCommand(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "Undone - 2 tasks")
	assert.Contains(t, out, "Finalize sprint roadmap")
	assert.Contains(t, out, "Pick up groceries")
	assert.NotContains(t, out, "Book flight")
	assert.Contains(t, out, ids[0][:shortID])
	assert.Less(t, strings.Index(out, "Finalize"), strings.Index(out, "Pick up"))
}

func TestList_Empty(t *testing.T) {
	setupTestApp(t)

	out, err := runCommand(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Undone - 0 tasks")
	assert.Contains(t, out, "none")
}

func TestMission_OrdersByTime(t *testing.T) {
	c := setupTestApp(t)
	day := today().Key()
	seedTasks(t, c,
		taskDomain.Draft{Title: "Evening run", DueDate: day, Time: "18:00"},
		taskDomain.Draft{Title: "Standup", DueDate: day, Time: "09:30"},
	)

	out, err := runCommand(t, "mission")
	require.NoError(t, err)

	assert.Contains(t, out, "Mission for "+day+" - 2 tasks")
	assert.Less(t, strings.Index(out, "Standup"), strings.Index(out, "Evening run"))
}

func TestDay_ShowsNoteAndStatus(t *testing.T) {
	c := setupTestApp(t)
	tomorrow := today().AddDays(1)
	seedTasks(t, c,
		taskDomain.Draft{Title: "Yoga session", Note: "45-minute recovery class", DueDate: tomorrow.Key(), Time: "20:00", Priority: "low"},
		taskDomain.Draft{Title: "Not tomorrow", DueDate: today().Key()},
	)

	out, err := runCommand(t, "day", "--date", "tomorrow")
	require.NoError(t, err)

	assert.Contains(t, out, tomorrow.Key()+" "+tomorrow.Weekday().String()+" - 1 task")
	assert.Contains(t, out, "[ ] 20:00 (.) Yoga session")
	assert.Contains(t, out, "45-minute recovery class")
	assert.Contains(t, out, "Pending")
	assert.NotContains(t, out, "Not tomorrow")
}

func TestDay_InvalidDate(t *testing.T) {
	setupTestApp(t)

	_, err := runCommand(t, "day", "--date", "2024-02-30")
	assert.ErrorIs(t, err, value_objects.ErrInvalidDate)
}

func TestMonth_RendersGridAndSelectedDay(t *testing.T) {
	c := setupTestApp(t)
	seedTasks(t, c,
		taskDomain.Draft{Title: "Write report", DueDate: "2024-05-02", Time: "09:00"},
		taskDomain.Draft{Title: "Ship release", DueDate: "2024-05-20"},
	)

	out, err := runCommand(t, "month", "--month", "2024-05", "--date", "2024-05-02")
	require.NoError(t, err)

	assert.Contains(t, out, "May 2024")
	assert.Contains(t, out, "Sun  Mon  Tue  Wed  Thu  Fri  Sat")
	assert.Contains(t, out, "[ 2]*")
	assert.Contains(t, out, " 20 *")
	assert.Contains(t, out, "2024-05-02 Thursday - 1 task")
	assert.Contains(t, out, "Write report")
	assert.NotContains(t, out, "Ship release")
}

func TestMonth_NavigationKeepsSelection(t *testing.T) {
	c := setupTestApp(t)
	seedTasks(t, c, taskDomain.Draft{Title: "Write report", DueDate: "2024-05-02"})

	out, err := runCommand(t, "month", "--date", "2024-05-02", "--next", "--next")
	require.NoError(t, err)

	assert.Contains(t, out, "July 2024")
	assert.NotContains(t, out, "[ 2]")
	assert.Contains(t, out, "2024-05-02 Thursday - 1 task")
}

func TestMonth_PrevAndNextConflict(t *testing.T) {
	setupTestApp(t)

	_, err := runCommand(t, "month", "--prev", "--next")
	assert.Error(t, err)
}

func TestAdd_CreatesTask(t *testing.T) {
	c := setupTestApp(t)

	out, err := runCommand(t, "add", "Dentist", "appointment", "--due", "2024-05-07", "--time", "11:15", "-p", "high", "--note", "Bring card")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created:")
	assert.Contains(t, out, "title: Dentist appointment")

	records := fetchRecords(t, c)
	require.Len(t, records, 1)
	assert.Equal(t, "Dentist appointment", records[0].Title)
	assert.Equal(t, "2024-05-07", records[0].DueDate)
	assert.Equal(t, "11:15", records[0].Time)
	assert.Equal(t, "high", records[0].Priority)
	assert.Equal(t, "Bring card", records[0].Note)
	assert.Contains(t, out, records[0].ID)
}

func TestAdd_Defaults(t *testing.T) {
	c := setupTestApp(t)

	_, err := runCommand(t, "add", "Pick up groceries")
	require.NoError(t, err)

	records := fetchRecords(t, c)
	require.Len(t, records, 1)
	assert.Equal(t, today().Key(), records[0].DueDate)
	assert.Equal(t, "23:59", records[0].Time)
	assert.Equal(t, "medium", records[0].Priority)
}

func TestAdd_ValidationLeavesStoreUntouched(t *testing.T) {
	c := setupTestApp(t)

	_, err := runCommand(t, "add", "Standup", "--time", "25:00")
	require.Error(t, err)
	assert.True(t, taskDomain.IsValidation(err))
	assert.Empty(t, fetchRecords(t, c))
}

func TestAdd_ReportsSyncFailure(t *testing.T) {
	c := setupTestApp(t)
	c.Sync = sync.NewController(&rejectingGateway{MemoryGateway: persistence.NewMemoryGateway()}, nil, nil, c.Logger, sync.Config{})
	cli.SetApp(cli.NewApp(c))

	_, err := runCommand(t, "add", "Standup")
	require.Error(t, err)
	assert.True(t, sync.IsSyncError(err))
	assert.Contains(t, err.Error(), "applied locally but not saved")
}

func TestEdit_ChangesOnlyGivenFields(t *testing.T) {
	c := setupTestApp(t)
	ids := seedTasks(t, c, taskDomain.Draft{Title: "Book flight to NYC", Note: "Evening", DueDate: "2024-05-10", Time: "15:45"})

	out, err := runCommand(t, "edit", ids[0][:shortID], "--title", "Book flight to Boston", "--time", "08:00")
	require.NoError(t, err)
	assert.Contains(t, out, "Task updated: "+ids[0])

	records := fetchRecords(t, c)
	require.Len(t, records, 1)
	assert.Equal(t, "Book flight to Boston", records[0].Title)
	assert.Equal(t, "08:00", records[0].Time)
	assert.Equal(t, "Evening", records[0].Note)
	assert.Equal(t, "2024-05-10", records[0].DueDate)
}

func TestEdit_NoFlags(t *testing.T) {
	c := setupTestApp(t)
	ids := seedTasks(t, c, taskDomain.Draft{Title: "Standup", DueDate: "2024-05-10"})

	_, err := runCommand(t, "edit", ids[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to change")
}

func TestEdit_EmptyTitleRejected(t *testing.T) {
	c := setupTestApp(t)
	ids := seedTasks(t, c, taskDomain.Draft{Title: "Standup", DueDate: "2024-05-10"})

	_, err := runCommand(t, "edit", ids[0], "--title", "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, taskDomain.ErrEmptyTitle)
	assert.Equal(t, "Standup", fetchRecords(t, c)[0].Title)
}

func TestDone_TogglesBothWays(t *testing.T) {
	c := setupTestApp(t)
	ids := seedTasks(t, c, taskDomain.Draft{Title: "Yoga session", DueDate: today().Key()})

	out, err := runCommand(t, "done", ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Completed: Yoga session")

	records := fetchRecords(t, c)
	assert.Equal(t, taskDomain.StatusCompleted, records[0].Status)
	assert.Equal(t, today().Key(), records[0].CompletedDate)

	out, err = runCommand(t, "done", ids[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Reopened: Yoga session")

	records = fetchRecords(t, c)
	assert.NotEqual(t, taskDomain.StatusCompleted, records[0].Status)
	assert.Empty(t, records[0].CompletedDate)
}

func TestRemove_DeletesTask(t *testing.T) {
	c := setupTestApp(t)
	ids := seedTasks(t, c,
		taskDomain.Draft{Title: "Keep me", DueDate: "2024-05-10"},
		taskDomain.Draft{Title: "Delete me", DueDate: "2024-05-10"},
	)

	out, err := runCommand(t, "rm", ids[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted: Delete me")

	records := fetchRecords(t, c)
	require.Len(t, records, 1)
	assert.Equal(t, ids[0], records[0].ID)
}

func TestRemove_UnknownID(t *testing.T) {
	setupTestApp(t)

	_, err := runCommand(t, "rm", "does-not-exist")
	assert.ErrorIs(t, err, taskDomain.ErrNotFound)
}

func TestCommands_RequireApp(t *testing.T) {
	cli.SetApp(nil)

	for _, args := range [][]string{{"list"}, {"mission"}, {"day"}, {"month"}, {"add", "x"}, {"done", "x"}, {"rm", "x"}} {
		_, err := runCommand(t, args...)
		assert.ErrorIs(t, err, cli.ErrNotInitialized, args[0])
	}
}

func TestResolveID(t *testing.T) {
	tasks := []taskDomain.Task{{ID: "abc123"}, {ID: "abd456"}, {ID: "abc"}}

	tests := []struct {
		name    string
		arg     string
		want    string
		wantErr error
	}{
		{name: "exact match wins over prefix", arg: "abc", want: "abc"},
		{name: "unique prefix", arg: "abd", want: "abd456"},
		{name: "ambiguous prefix", arg: "ab", wantErr: ErrAmbiguousID},
		{name: "no match", arg: "zzz", wantErr: taskDomain.ErrNotFound},
		{name: "empty", arg: " ", wantErr: taskDomain.ErrEmptyID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveID(tasks, tt.arg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestParseDay(t *testing.T) {
	base := value_objects.MustDate(2024, time.February, 29)

	for in, want := range map[string]value_objects.Date{
		"":           base,
		"today":      base,
		"Tomorrow":   value_objects.MustDate(2024, time.March, 1),
		"yesterday":  value_objects.MustDate(2024, time.February, 28),
		"2024-12-31": value_objects.MustDate(2024, time.December, 31),
	} {
		got, err := parseDay(in, base)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseDay("2024-1-5", base)
	assert.ErrorIs(t, err, value_objects.ErrInvalidDate)
}

// rejectingGateway accepts reads but fails every create.
type rejectingGateway struct {
	*persistence.MemoryGateway
}

func (g *rejectingGateway) Create(context.Context, taskDomain.Record) (string, error) {
	return "", taskDomain.NewTransportError("create", errors.New("store unavailable"))
}
