package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/icalfeed"
)

// Handler holds API route handlers.
type Handler struct {
	svc DayService
	now func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(svc DayService) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Month handles GET /api/days/month.
//
//	@Summary		Day map of one month
//	@Tags			days
//	@Produce		json
//	@Param			target	query		string	false	"Target: page name, [[Page]], ((block-id)), * or @query"
//	@Param			current	query		string	false	"Page being viewed, used by target *"
//	@Param			year	query		int		false	"Year, defaults to the current year"
//	@Param			month	query		int		false	"Month 1-12, defaults to the current month"
//	@Param			all		query		bool	false	"Scan all configured properties"
//	@Param			journal	query		bool	false	"Add journal, task and schedule signals"
//	@Param			format	query		string	false	"Date format override for property values"
//	@Success		200		{object}	MonthResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/month [get]
func (h *Handler) Month(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := days.ParseTarget(q.Get("target"), q.Get("current"))
	if err != nil {
		writeError(w, err)
		return
	}
	now := h.now().In(h.svc.Dates().Location)
	year, err := intParam(q, "year", now.Year())
	if err != nil {
		writeError(w, err)
		return
	}
	month, err := intParam(q, "month", int(now.Month()))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := days.CheckMonth(year, month); err != nil {
		writeError(w, err)
		return
	}
	all, err := boolParam(q, "all")
	if err != nil {
		writeError(w, err)
		return
	}
	journal, err := boolParam(q, "journal")
	if err != nil {
		writeError(w, err)
		return
	}
	format := strings.TrimSpace(q.Get("format"))
	if err := days.CheckFormat(format); err != nil {
		writeError(w, err)
		return
	}

	m := h.svc.Month(r.Context(), target, days.MonthOptions{
		Year:              year,
		Month:             time.Month(month),
		WithAllProperties: all,
		WithJournalFill:   journal,
		DateFormat:        format,
	})
	writeJSON(w, http.StatusOK, MonthResponse{
		Year:   year,
		Month:  month,
		Target: target.String(),
		Weeks:  days.WeekPages(h.svc.Dates(), year, time.Month(month)),
		Days:   m,
	})
}

// Year handles GET /api/days/year.
//
//	@Summary		Day map of one year with the target title
//	@Tags			days
//	@Produce		json
//	@Param			target	query		string	false	"Target, as for /days/month"
//	@Param			current	query		string	false	"Page being viewed, used by target *"
//	@Param			year	query		int		false	"Year, defaults to the current year"
//	@Param			format	query		string	false	"Date format override for property values"
//	@Success		200		{object}	YearResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/year [get]
func (h *Handler) Year(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	target, err := days.ParseTarget(q.Get("target"), q.Get("current"))
	if err != nil {
		writeError(w, err)
		return
	}
	year, err := intParam(q, "year", h.now().In(h.svc.Dates().Location).Year())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := days.CheckYear(year); err != nil {
		writeError(w, err)
		return
	}
	format := strings.TrimSpace(q.Get("format"))
	if err := days.CheckFormat(format); err != nil {
		writeError(w, err)
		return
	}

	m, title := h.svc.Year(r.Context(), target, year, format)
	writeJSON(w, http.StatusOK, YearResponse{Year: year, Title: title, Days: m})
}

// Events handles GET /api/events.
//
//	@Summary		Scheduled and deadline events in a day range
//	@Tags			events
//	@Produce		json
//	@Param			start	query		string	true	"First day, yyyy-mm-dd"
//	@Param			end		query		string	true	"Last day, yyyy-mm-dd"
//	@Success		200		{object}	EventsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.eventRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EventsResponse(h.svc.EventsForRange(r.Context(), start, end)))
}

// EventsICS handles GET /api/events.ics.
//
//	@Summary		Scheduled and deadline events as an iCalendar feed
//	@Tags			events
//	@Produce		text/calendar
//	@Param			start	query		string	true	"First day, yyyy-mm-dd"
//	@Param			end		query		string	true	"Last day, yyyy-mm-dd"
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events.ics [get]
func (h *Handler) EventsICS(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.eventRange(r)
	if err != nil {
		writeError(w, err)
		return
	}
	events := h.svc.EventsForRange(r.Context(), start, end)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="daymark.ics"`)
	w.WriteHeader(http.StatusOK)
	if err := icalfeed.Render(w, events, h.now()); err != nil {
		slog.Error("render ics failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) eventRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	return days.ParseRange(q.Get("start"), q.Get("end"), h.svc.Dates())
}

func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, raw, apperr.ErrInvalidParam)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s %q: %w", name, raw, apperr.ErrInvalidParam)
	}
	return b, nil
}
