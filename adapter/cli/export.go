package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskcal/internal/calendar/infrastructure/caldav"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

var (
	exportFormat        string
	exportOutput        string
	exportMonth         string
	exportDeleteMissing bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tasks as calendar events",
	Long: `Export tasks as 30 minute events at their due date and time, either
as an ICS file or straight into a CalDAV calendar.

CalDAV export reads CALDAV_URL, CALDAV_USERNAME, CALDAV_PASSWORD and the
optional CALDAV_CALENDAR_PATH.

Examples:
  taskcal export                          # ICS to stdout
  taskcal export -o tasks.ics             # ICS to a file
  taskcal export --month 2024-05          # Only tasks due in May 2024
  taskcal export --format caldav          # Upsert into a CalDAV calendar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		ctrl, err := a.Controller(cmd.Context())
		if err != nil {
			return err
		}

		tasks := ctrl.Snapshot()
		if exportMonth != "" {
			if exportDeleteMissing {
				return errors.New("--delete-missing cannot be combined with --month")
			}
			month, err := value_objects.ParseMonth(exportMonth)
			if err != nil {
				return err
			}
			tasks = inMonth(tasks, month)
		}

		switch exportFormat {
		case "ics", "ical":
			return exportICS(cmd, tasks)
		case "caldav":
			return exportCalDAV(cmd, a, tasks)
		default:
			return fmt.Errorf("unsupported format: %s (supported: ics, caldav)", exportFormat)
		}
	},
}

func inMonth(tasks []task.Task, month value_objects.Month) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if month.Contains(t.DueDate) {
			out = append(out, t)
		}
	}
	return out
}

func exportICS(cmd *cobra.Command, tasks []task.Task) error {
	var buf bytes.Buffer
	if err := caldav.WriteICS(&buf, tasks, time.Local, time.Now()); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	if exportOutput == "" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(tasks), exportOutput)
	return nil
}

func exportCalDAV(cmd *cobra.Command, a *App, tasks []task.Task) error {
	cfg := a.Container.Config
	if !cfg.HasCalDAV() {
		return errors.New("CalDAV export requires CALDAV_URL")
	}

	exporter, err := caldav.NewExporter(caldav.Config{
		URL:           cfg.CalDAVURL,
		Username:      cfg.CalDAVUsername,
		Password:      cfg.CalDAVPassword,
		CalendarPath:  cfg.CalDAVCalendarPath,
		DeleteMissing: exportDeleteMissing,
	}, a.Container.Logger)
	if err != nil {
		return err
	}

	result, err := exporter.Export(cmd.Context(), tasks)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks: %d created, %d updated, %d deleted, %d failed\n",
		len(tasks), result.Created, result.Updated, result.Deleted, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d tasks could not be exported", result.Failed)
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "ics", "export format (ics, caldav)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file for ics (default: stdout)")
	exportCmd.Flags().StringVar(&exportMonth, "month", "", "only export tasks due in this month (YYYY-MM)")
	exportCmd.Flags().BoolVar(&exportDeleteMissing, "delete-missing", false, "remove exported events whose task no longer exists (caldav)")

	rootCmd.AddCommand(exportCmd)
}
