package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/shift-scheduler/internal/application"
	"github.com/example/shift-scheduler/internal/calendar"
)

type calendarService interface {
	LiveSchedule(ctx context.Context) *calendar.Schedule
	SnapshotSchedule(ctx context.Context) *calendar.Schedule
	AddEntry(ctx context.Context, calendarName string, input application.EntryInput) (calendar.Entry, error)
	RemoveEntry(ctx context.Context, id string) error
}

type CalendarHandler struct {
	service   calendarService
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

// List returns the live schedule, or the snapshot with ?view=snapshot.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view := strings.TrimSpace(r.URL.Query().Get("view"))
	var schedule *calendar.Schedule
	switch view {
	case "", "live":
		view = "live"
		schedule = h.service.LiveSchedule(r.Context())
	case "snapshot":
		schedule = h.service.SnapshotSchedule(r.Context())
	default:
		h.log(r.Context(), "List", "view", view, "error_kind", "bad_request").ErrorContext(r.Context(), "unknown calendar view")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidView)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCalendarsResponse{View: view, Calendars: toCalendarDTOs(schedule)})
}

func (h *CalendarHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, ok := CalendarNameFromContext(r.Context())
	if !ok || strings.TrimSpace(name) == "" {
		h.log(r.Context(), "AddEntry", "error_kind", "bad_request").ErrorContext(r.Context(), "missing calendar name")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCalendarName)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddEntry", "calendar", name, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode entry request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddEntry", "calendar", name)

	entry, err := h.service.AddEntry(r.Context(), name, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "entry creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("entry_id", entry.ID).InfoContext(r.Context(), "entry created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, entryResponse{Entry: toEntryDTO(&entry)})
}

// RemoveEntry deletes an entry. The entry must belong to the calendar named
// in the path.
func (h *CalendarHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	name, _ := CalendarNameFromContext(r.Context())
	id, ok := EntryIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.log(r.Context(), "RemoveEntry", "error_kind", "bad_request").ErrorContext(r.Context(), "missing entry id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEntryID)
		return
	}

	logger := h.log(r.Context(), "RemoveEntry", "calendar", name, "entry_id", id)

	cal := h.service.LiveSchedule(r.Context()).Calendar(name)
	if cal == nil || cal.Find(id) == nil {
		logger.ErrorContext(r.Context(), "entry not on calendar", "error_kind", "not_found")
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	if err := h.service.RemoveEntry(r.Context(), id); err != nil {
		logger.ErrorContext(r.Context(), "entry delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "entry deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type entryRequest struct {
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	FullDay  bool      `json:"full_day"`
}

func (r entryRequest) toInput() application.EntryInput {
	return application.EntryInput{
		Title:    r.Title,
		Location: r.Location,
		Start:    r.Start,
		End:      r.End,
		FullDay:  r.FullDay,
	}
}

type entryResponse struct {
	Entry entryDTO `json:"entry"`
}

type listCalendarsResponse struct {
	View      string        `json:"view"`
	Calendars []calendarDTO `json:"calendars"`
}

type calendarDTO struct {
	Name    string     `json:"name"`
	Hours   float64    `json:"hours"`
	Entries []entryDTO `json:"entries"`
}

type entryDTO struct {
	ID         string    `json:"id"`
	Calendar   string    `json:"calendar"`
	Title      string    `json:"title"`
	Location   string    `json:"location,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	FullDay    bool      `json:"full_day"`
	Annotation string    `json:"annotation,omitempty"`
}

func toEntryDTO(entry *calendar.Entry) entryDTO {
	return entryDTO{
		ID:         entry.ID,
		Calendar:   entry.Calendar,
		Title:      entry.Title,
		Location:   entry.Location,
		Start:      entry.Start,
		End:        entry.End,
		FullDay:    entry.FullDay,
		Annotation: entry.Annotation,
	}
}

func toCalendarDTOs(schedule *calendar.Schedule) []calendarDTO {
	if schedule == nil {
		return []calendarDTO{}
	}
	out := make([]calendarDTO, 0, len(schedule.Calendars))
	for _, cal := range schedule.Calendars {
		dto := calendarDTO{Name: cal.Name, Hours: cal.Hours(), Entries: make([]entryDTO, 0, len(cal.Entries))}
		for _, entry := range cal.Entries {
			dto.Entries = append(dto.Entries, toEntryDTO(entry))
		}
		out = append(out, dto)
	}
	return out
}
