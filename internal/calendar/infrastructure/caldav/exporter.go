// Package caldav turns tasks into iCalendar events and publishes them to
// a CalDAV calendar.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

// ErrNoCalendar is returned when discovery finds no calendar that accepts
// events.
var ErrNoCalendar = errors.New("no event calendar found")

// calendarClient is the subset of *caldav.Client the exporter drives.
type calendarClient interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, homeSet string) ([]caldav.Calendar, error)
	GetCalendarObject(ctx context.Context, path string) (*caldav.CalendarObject, error)
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*caldav.CalendarObject, error)
	QueryCalendar(ctx context.Context, calendar string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
	RemoveAll(ctx context.Context, path string) error
}

type Config struct {
	URL      string
	Username string
	// Password is usually an app-specific password.
	Password string
	// CalendarPath skips discovery when set.
	CalendarPath string
	// DeleteMissing removes taskcal events whose task is gone.
	DeleteMissing bool
	Location      *time.Location
	Timeout       time.Duration
}

type ExportResult struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// Exporter upserts one event per task at <calendar>/<task id>.ics.
type Exporter struct {
	cfg    Config
	client calendarClient
	now    func() time.Time
	logger *slog.Logger
}

func NewExporter(cfg Config, logger *slog.Logger) (*Exporter, error) {
	if cfg.URL == "" {
		return nil, errors.New("caldav: URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: cfg.Timeout}, cfg.Username, cfg.Password)
	client, err := caldav.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("caldav client: %w", err)
	}
	return newExporter(cfg, client, logger), nil
}

func newExporter(cfg Config, client calendarClient, logger *slog.Logger) *Exporter {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, client: client, now: time.Now, logger: logger.With("caldav", cfg.URL)}
}

// EventPath is the object path of a task's event inside calPath.
func EventPath(calPath, taskID string) string {
	return strings.TrimSuffix(calPath, "/") + "/" + taskID + ".ics"
}

// Export writes every task. A task that fails is counted and logged; only
// calendar discovery failing aborts the export.
func (e *Exporter) Export(ctx context.Context, tasks []task.Task) (*ExportResult, error) {
	calPath, err := e.calendar(ctx)
	if err != nil {
		return nil, err
	}

	res := &ExportResult{}
	now := e.now()
	written := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		path := EventPath(calPath, t.ID)
		written[path] = true

		_, getErr := e.client.GetCalendarObject(ctx, path)
		if _, err := e.client.PutCalendarObject(ctx, path, ToCalendar(t, e.cfg.Location, now)); err != nil {
			e.logger.WarnContext(ctx, "export task failed", "task_id", t.ID, "path", path, "error", err)
			res.Failed++
			continue
		}
		if getErr == nil {
			res.Updated++
		} else {
			res.Created++
		}
	}

	if e.cfg.DeleteMissing {
		n, err := e.prune(ctx, calPath, written)
		if err != nil {
			e.logger.WarnContext(ctx, "prune exported events failed", "error", err)
		}
		res.Deleted = n
	}

	e.logger.InfoContext(ctx, "caldav export done", "calendar", calPath,
		"created", res.Created, "updated", res.Updated, "deleted", res.Deleted, "failed", res.Failed)
	return res, nil
}

// calendar resolves the target collection: the configured path, or the
// first calendar in the user's home set that supports VEVENT.
func (e *Exporter) calendar(ctx context.Context) (string, error) {
	if e.cfg.CalendarPath != "" {
		return e.cfg.CalendarPath, nil
	}
	principal, err := e.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	home, err := e.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home: %w", err)
	}
	cals, err := e.client.FindCalendars(ctx, home)
	if err != nil {
		return "", fmt.Errorf("list calendars: %w", err)
	}
	for _, c := range cals {
		if len(c.SupportedComponentSet) == 0 || slices.Contains(c.SupportedComponentSet, ical.CompEvent) {
			return c.Path, nil
		}
	}
	return "", ErrNoCalendar
}

func (e *Exporter) prune(ctx context.Context, calPath string, keep map[string]bool) (int, error) {
	objects, err := e.client.QueryCalendar(ctx, calPath, &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, Props: []string{ical.PropUID, PropXTaskcal}}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompEvent}},
		},
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, obj := range objects {
		if keep[obj.Path] || !exportedByTaskcal(obj.Data) {
			continue
		}
		if err := e.client.RemoveAll(ctx, obj.Path); err != nil {
			e.logger.WarnContext(ctx, "delete event failed", "path", obj.Path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
