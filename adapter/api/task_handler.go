package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// TaskHandler exposes a gateway as REST resources.
type TaskHandler struct {
	gateway   task.Gateway
	projector *queries.Projector
	now       func() time.Time
	logger    *slog.Logger
}

// NewTaskHandler creates a handler over gateway. A nil projector uses
// insertion order for day lists; a nil now uses time.Now.
func NewTaskHandler(gateway task.Gateway, projector *queries.Projector, now func() time.Time, logger *slog.Logger) *TaskHandler {
	if projector == nil {
		projector = queries.NewProjector(queries.DayOrderInsertion)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{gateway: gateway, projector: projector, now: now, logger: logger}
}

// createResponse is the body of a successful POST /tasks.
type createResponse struct {
	ID string `json:"id"`
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.gateway.FetchAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []task.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Create handles POST /tasks. The body is validated with the same defaults
// the client applies on load.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var record task.Record
	if err := decode(w, r, &record); err != nil {
		h.fail(w, r, err)
		return
	}
	record.ID = ""
	if _, err := task.FromRecord(record); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.gateway.Create(r.Context(), record)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/tasks/"+id)
	writeJSON(w, http.StatusCreated, createResponse{ID: id})
}

// Patch handles PATCH /tasks/{id} with a merge document. A null
// completedDate clears the field.
func (h *TaskHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch task.RecordPatch
	if err := decode(w, r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := patch.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.gateway.Patch(r.Context(), mux.Vars(r)["id"], patch); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /views/dashboard?date=YYYY-MM-DD&month=YYYY-MM.
// Both parameters default to today.
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	today := value_objects.Today(h.now)
	cursor := queries.NewCursor(today)

	if s := r.URL.Query().Get("date"); s != "" {
		day, err := value_objects.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		cursor = queries.NewCursor(day)
	}
	if s := r.URL.Query().Get("month"); s != "" {
		month, err := value_objects.ParseMonth(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_month", err.Error())
			return
		}
		cursor.Month = month
	}

	records, err := h.gateway.FetchAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tasks := make([]task.Task, 0, len(records))
	for _, rec := range records {
		t, err := task.FromRecord(rec)
		if err != nil {
			h.logger.WarnContext(r.Context(), "skipping invalid record", "task_id", rec.ID, "error", err)
			continue
		}
		tasks = append(tasks, t)
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(h.projector.Dashboard(tasks, cursor, today)))
}

// decodeError marks a malformed request body.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("body is empty")
		}
		var ve *task.ValidationError
		if errors.As(err, &ve) {
			return err
		}
		return &decodeError{err: err}
	}
	return nil
}

// fail maps domain and gateway errors to HTTP responses.
func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *task.ValidationError
		de *decodeError
	)
	switch {
	case errors.As(err, &de):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, APIError{Code: "invalid_field", Message: ve.Error(), Field: ve.Field})
	case errors.Is(err, task.ErrEmptyPatch):
		writeError(w, http.StatusBadRequest, "empty_patch", err.Error())
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case task.IsTransport(err):
		h.logger.ErrorContext(r.Context(), "backing store failed", "error", err)
		writeError(w, http.StatusBadGateway, "store_unavailable", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
