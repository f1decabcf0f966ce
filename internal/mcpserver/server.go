// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes daymark day maps and events via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/settings"
)

// TargetSyntaxURI is the resource holding TargetSyntax.
const TargetSyntaxURI = "daymark://target-syntax"

// DayService computes day maps and calendar events.
type DayService interface {
	Month(ctx context.Context, target days.Target, opts days.MonthOptions) days.Map
	Year(ctx context.Context, target days.Target, year int, dateFormat string) (days.Map, string)
	EventsForRange(ctx context.Context, start, end time.Time) map[string]days.Event
	Dates() settings.Context
}

// Server wraps the MCP server with daymark tools.
type Server struct {
	mcp  *server.MCPServer
	days DayService
	now  func() time.Time
}

// New creates a new MCP server with all daymark tools registered.
func New(svc DayService) *Server {
	s := &Server{days: svc, now: time.Now}

	s.mcp = server.NewMCPServer(
		"daymark",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("days_month",
		mcp.WithDescription("Day map of one month for a target: linked journal days, "+
			"date property annotations and, on request, journal/task/schedule signals. "+
			"Read "+TargetSyntaxURI+" for the target syntax."),
		mcp.WithString("target", mcp.Description("Page name, [[Page]], ((block-id)), * or @query; empty scans properties only")),
		mcp.WithString("current", mcp.Description("Page being viewed, used when target is *")),
		mcp.WithNumber("year", mcp.Description("Year, defaults to the current year")),
		mcp.WithNumber("month", mcp.Description("Month 1-12, defaults to the current month")),
		mcp.WithBoolean("all", mcp.Description("Scan all configured properties instead of the target's own")),
		mcp.WithBoolean("journal", mcp.Description("Add journal, task and schedule signals")),
		mcp.WithString("format", mcp.Description("Date format override for property values")),
	), s.daysMonth)

	s.mcp.AddTool(mcp.NewTool("days_year",
		mcp.WithDescription("Journal days of one year linked to a target, with a title for the target."),
		mcp.WithString("target", mcp.Description("Page name, [[Page]], ((block-id)), * or @query")),
		mcp.WithString("current", mcp.Description("Page being viewed, used when target is *")),
		mcp.WithNumber("year", mcp.Description("Year, defaults to the current year")),
		mcp.WithString("format", mcp.Description("Date format override for property values")),
	), s.daysYear)

	s.mcp.AddTool(mcp.NewTool("events_range",
		mcp.WithDescription("Scheduled and deadline blocks between two days as calendar events keyed by block id."),
		mcp.WithString("start", mcp.Required(), mcp.Description("First day, yyyy-mm-dd")),
		mcp.WithString("end", mcp.Required(), mcp.Description("Last day, yyyy-mm-dd")),
	), s.eventsRange)

	s.mcp.AddTool(mcp.NewTool("get_target_syntax",
		mcp.WithDescription("Returns the target syntax and the shape of day maps and events."),
	), s.getTargetSyntax)

	s.mcp.AddResource(
		mcp.NewResource(TargetSyntaxURI, "Target Syntax",
			mcp.WithResourceDescription("How day-map targets are written and what the tools return."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTargetSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type monthResult struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Target string          `json:"target"`
	Weeks  []days.WeekPage `json:"weeks,omitempty"`
	Days   days.Map        `json:"days"`
}

type yearResult struct {
	Year  int      `json:"year"`
	Title string   `json:"title"`
	Days  days.Map `json:"days"`
}

func (s *Server) daysMonth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := days.ParseTarget(req.GetString("target", ""), req.GetString("current", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	now := s.now().In(s.days.Dates().Location)
	year := req.GetInt("year", now.Year())
	month := req.GetInt("month", int(now.Month()))
	if err := days.CheckMonth(year, month); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := req.GetString("format", "")
	if err := days.CheckFormat(format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m := s.days.Month(ctx, target, days.MonthOptions{
		Year:              year,
		Month:             time.Month(month),
		WithAllProperties: req.GetBool("all", false),
		WithJournalFill:   req.GetBool("journal", false),
		DateFormat:        format,
	})
	return jsonResult(monthResult{
		Year:   year,
		Month:  month,
		Target: target.String(),
		Weeks:  days.WeekPages(s.days.Dates(), year, time.Month(month)),
		Days:   m,
	})
}

func (s *Server) daysYear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := days.ParseTarget(req.GetString("target", ""), req.GetString("current", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	year := req.GetInt("year", s.now().In(s.days.Dates().Location).Year())
	if err := days.CheckYear(year); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := req.GetString("format", "")
	if err := days.CheckFormat(format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m, title := s.days.Year(ctx, target, year, format)
	return jsonResult(yearResult{Year: year, Title: title, Days: m})
}

func (s *Server) eventsRange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := req.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, to, err := days.ParseRange(start, end, s.days.Dates())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.days.EventsForRange(ctx, from, to))
}

func (s *Server) getTargetSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TargetSyntax), nil
}

func (s *Server) readTargetSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TargetSyntaxURI,
			MIMEType: "text/markdown",
			Text:     TargetSyntax,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
