package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypePageCreated, Data: map[string]string{"path": "journals/2024_05_20.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: page.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"journals/2024_05_20.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain counts page and days.changed events buffered on ch.
func drain(ch chan []byte) (pages, days int) {
	time.Sleep(50 * time.Millisecond)
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), TypeDaysChanged) {
				days++
			} else {
				pages++
			}
		default:
			return pages, days
		}
	}
}

func TestPublishPageEvent_DaysChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPageEvent("created", "pages/a.md")
	b.PublishPageEvent("updated", "pages/b.md")

	pages, days := drain(ch)
	if pages != 2 {
		t.Errorf("page events = %d, want 2", pages)
	}
	if days != 1 {
		t.Errorf("days events = %d, want 1 (throttled)", days)
	}
}

func TestPublishDaysChanged(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDaysChanged()
	time.Sleep(5 * time.Millisecond)
	b.PublishDaysChanged()

	pages, days := drain(ch)
	if pages != 0 {
		t.Errorf("page events = %d, want 0", pages)
	}
	if days != 2 {
		t.Errorf("days events = %d, want 2", days)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishPageEvent("deleted", "pages/x.md")
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: page.deleted") || !strings.Contains(body, "event: days.changed") {
		t.Errorf("handler output missing events: %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("content type = %q", got)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the extra events must be dropped, not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: TypePageUpdated, Data: map[string]string{"path": "x.md"}})
	b.PublishPageEvent("updated", "x.md")
	b.PublishDaysChanged()
}

func TestThrottle(t *testing.T) {
	gate := &throttle{every: time.Second}
	t0 := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	steps := []struct {
		at   time.Duration
		want bool
	}{
		{0, true},
		{500 * time.Millisecond, false},
		{time.Second, true},
		{1500 * time.Millisecond, false},
		{3 * time.Second, true},
	}
	for _, s := range steps {
		if got := gate.allow(t0.Add(s.at)); got != s.want {
			t.Errorf("allow(+%s) = %v, want %v", s.at, got, s.want)
		}
	}
}

func TestPublishPageEvent_UnknownKindOnlyInvalidatesDays(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishPageEvent("renamed", "pages/a.md")

	pages, days := drain(ch)
	if pages != 0 || days != 1 {
		t.Errorf("pages = %d, days = %d; want 0 and 1", pages, days)
	}
}
