package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/settings"
)

// DayService computes day maps and calendar events.
type DayService interface {
	Month(ctx context.Context, target days.Target, opts days.MonthOptions) days.Map
	Year(ctx context.Context, target days.Target, year int, dateFormat string) (days.Map, string)
	EventsForRange(ctx context.Context, start, end time.Time) map[string]days.Event
	Dates() settings.Context
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /stream inside the auth group.
func NewRouter(svc DayService, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/days/month", h.Month)
	r.Get("/days/year", h.Year)

	r.Get("/events", h.Events)
	r.Get("/events.ics", h.EventsICS)

	if sseHandler != nil {
		r.Get("/stream", sseHandler.ServeHTTP)
	}

	return r
}
