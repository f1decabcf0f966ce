package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/daymark/internal/days"
	"github.com/starford/daymark/internal/settings"
	"github.com/starford/daymark/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t, testutil.UTCDays(settings.PropertySlot{Name: "birthday", Repeat: "1y"}), map[string]string{
		"pages/Alice.md":         "birthday:: [[Mar 1st, 1990]]\n\n- met at [[Conf 2019]]\n",
		"journals/2024_03_04.md": "- coffee with [[Alice]]\n- LATER send card\n  DEADLINE: <2024-03-08 Fri>\n",
	})
	srv := New(env.Days)
	srv.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return srv, env
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "days_month":
		result, err = srv.daysMonth(ctx, req)
	case "days_year":
		result, err = srv.daysYear(ctx, req)
	case "events_range":
		result, err = srv.eventsRange(ctx, req)
	case "get_target_syntax":
		result, err = srv.getTargetSyntax(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func march(d int) days.Key {
	return days.KeyOf(time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC))
}

func TestDaysMonth_DefaultsToCurrentMonth(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "days_month", map[string]interface{}{"target": "[[Alice]]"})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	var got monthResult
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if got.Year != 2024 || got.Month != 3 {
		t.Errorf("month = %d-%d", got.Year, got.Month)
	}
	if len(got.Weeks) != 6 || got.Weeks[0].Name != "2024-W9" {
		t.Errorf("weeks = %+v", got.Weeks)
	}
	if d := got.Days[march(4)]; d == nil || d.LinkedEntryID == "" {
		t.Errorf("Mar 4 should link the coffee block: %+v", d)
	}
	// The birthday repeats yearly from 1990 and lands on Mar 1st 2024.
	if d := got.Days[march(1)]; d == nil || len(d.Annotations) == 0 || d.Annotations[0].DisplayName != "Alice" {
		t.Errorf("Mar 1 = %+v", d)
	}
}

func TestDaysMonth_JournalFill(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "days_month", map[string]interface{}{
		"year": 2024, "month": 3, "journal": true,
	})
	var got monthResult
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if d := got.Days[march(4)]; d == nil || !d.IsContentful || !d.HasTask {
		t.Errorf("Mar 4 = %+v", d)
	}
	if d := got.Days[march(8)]; d == nil || len(d.Annotations) != 1 || d.Annotations[0].DisplayName != "send card" {
		t.Errorf("Mar 8 = %+v", d)
	}
}

func TestDaysMonth_InvalidArguments(t *testing.T) {
	srv, _ := testServer(t)

	for _, args := range []map[string]interface{}{
		{"target": "@"},
		{"year": 2024, "month": 0},
		{"format": "yyyy_MM"},
	} {
		if r := callTool(t, srv, "days_month", args); !r.IsError {
			t.Errorf("args %v should fail", args)
		}
	}
	if r := callTool(t, srv, "days_year", map[string]interface{}{"format": "'open"}); !r.IsError {
		t.Error("days_year with a broken format should fail")
	}
}

func TestDaysYear(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "days_year", map[string]interface{}{"target": "alice"})
	var got yearResult
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Title != "Alice" || got.Year != 2024 {
		t.Errorf("result = %+v", got)
	}
	if len(got.Days) != 1 || got.Days[march(4)] == nil {
		t.Errorf("days = %v", got.Days)
	}
}

func TestEventsRange(t *testing.T) {
	srv, env := testServer(t)

	r := callTool(t, srv, "events_range", map[string]interface{}{"start": "2024-03-01", "end": "2024-03-31"})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	var events map[string]days.Event
	if err := json.Unmarshal([]byte(resultText(r)), &events); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %v", events)
	}
	for id, e := range events {
		if !e.AllDay || e.Kind != "deadline" || e.Title != "send card" {
			t.Errorf("event = %+v", e)
		}
		data, _ := env.Store.Read("journals/2024_03_04.md")
		if !strings.Contains(string(data), "id:: "+id) {
			t.Errorf("id %s not pinned:\n%s", id, data)
		}
	}

	r = callTool(t, srv, "events_range", map[string]interface{}{"start": "2024-03-31"})
	if !r.IsError {
		t.Error("missing end should fail")
	}
}

func TestTargetSyntax(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_target_syntax", map[string]interface{}{})
	if !strings.Contains(resultText(r), "query:SELECT") {
		t.Errorf("syntax = %q", resultText(r))
	}

	res, err := srv.readTargetSyntaxResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
}
