package api

import (
	"github.com/starford/daymark/internal/days"
)

// MonthResponse is the day map of one month.
type MonthResponse struct {
	Year   int             `json:"year" example:"2024" validate:"required"`
	Month  int             `json:"month" example:"5" validate:"required"`
	Target string          `json:"target" example:"named:Project X"`
	Weeks  []days.WeekPage `json:"weeks,omitempty"`
	Days   days.Map        `json:"days" validate:"required"`
}

// YearResponse is the day map of one year together with the target title.
type YearResponse struct {
	Year  int      `json:"year" example:"2024" validate:"required"`
	Title string   `json:"title" example:"Project X"`
	Days  days.Map `json:"days" validate:"required"`
}

// EventsResponse maps entry ids to their calendar events.
type EventsResponse map[string]days.Event
