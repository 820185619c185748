package api

import (
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

type dayCellDTO struct {
	Key       string `json:"key,omitempty"`
	Day       int    `json:"day,omitempty"`
	Selected  bool   `json:"selected,omitempty"`
	HasEvents bool   `json:"hasEvents,omitempty"`
}

type monthDTO struct {
	Month    string       `json:"month"`
	Label    string       `json:"label"`
	Weekdays [7]string    `json:"weekdays"`
	Cells    []dayCellDTO `json:"cells"`
}

type dashboardDTO struct {
	Today       string        `json:"today"`
	Selected    string        `json:"selected"`
	UndoneCount int           `json:"undoneCount"`
	Undone      []task.Record `json:"undone"`
	Mission     []task.Record `json:"mission"`
	Day         []task.Record `json:"day"`
	Month       monthDTO      `json:"month"`
}

func toRecords(tasks []task.Task) []task.Record {
	records := make([]task.Record, len(tasks))
	for i, t := range tasks {
		records[i] = task.ToRecord(t)
	}
	return records
}

func toDashboardDTO(d queries.Dashboard) dashboardDTO {
	cells := make([]dayCellDTO, len(d.Month.Cells))
	for i, c := range d.Month.Cells {
		if c.Empty() {
			continue
		}
		cells[i] = dayCellDTO{Key: c.Key, Day: c.Day, Selected: c.Selected, HasEvents: c.HasEvents}
	}
	return dashboardDTO{
		Today:       d.Today.Key(),
		Selected:    d.Cursor.Selected.Key(),
		UndoneCount: d.UndoneCount,
		Undone:      toRecords(d.Undone),
		Mission:     toRecords(d.Mission),
		Day:         toRecords(d.Day),
		Month: monthDTO{
			Month:    d.Month.Month.Key(),
			Label:    d.Month.Label,
			Weekdays: d.Month.Weekdays,
			Cells:    cells,
		},
	}
}
