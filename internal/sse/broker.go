// Package sse implements a Server-Sent Events broker that tells calendar
// clients when the vault changed and their day maps are stale.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypePageCreated = "page.created"
	TypePageUpdated = "page.updated"
	TypePageDeleted = "page.deleted"
	TypeDaysChanged = "days.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// pageEventTypes maps index watcher kinds to their stream event types.
var pageEventTypes = map[string]string{
	"created": TypePageCreated,
	"updated": TypePageUpdated,
	"deleted": TypePageDeleted,
}

// changeReq is a vault change; an empty kind only invalidates day maps.
type changeReq struct {
	kind string
	path string
}

// throttle admits at most one call per interval.
type throttle struct {
	every time.Duration
	last  time.Time
}

func (t *throttle) allow(now time.Time) bool {
	if !t.last.IsZero() && now.Sub(t.last) < t.every {
		return false
	}
	t.last = now
	return true
}

// hub is the subscriber set. Only the broker loop touches it.
type hub map[chan []byte]struct{}

func (h hub) send(event Event) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
	for ch := range h {
		select {
		case ch <- frame:
		default: // lagging subscriber misses this frame
		}
	}
}

func (h hub) drop(ch chan []byte) {
	if _, ok := h[ch]; !ok {
		return
	}
	delete(h, ch)
	close(ch)
}

func (h hub) shutdown() {
	for ch := range h {
		h.drop(ch)
	}
}

// Broker fans vault change notifications out to stream subscribers.
// Its state lives in one goroutine; the exported methods only send to it.
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan changeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. days.changed goes out at most once per
// throttle; a non-positive throttle means two seconds.
func NewBroker(every time.Duration) *Broker {
	if every <= 0 {
		every = 2 * time.Second
	}

	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan changeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run(&throttle{every: every})
	return b
}

func (b *Broker) run(daysGate *throttle) {
	defer close(b.stopped)

	clients := hub{}
	for {
		select {
		case <-b.stopCh:
			clients.shutdown()
			return
		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
		case ch := <-b.unsubscribeCh:
			clients.drop(ch)
		case event := <-b.publishCh:
			clients.send(event)
		case req := <-b.changeCh:
			if typ, ok := pageEventTypes[req.kind]; ok {
				clients.send(Event{Type: typ, Data: map[string]string{"path": req.path}})
			}
			if daysGate.allow(time.Now()) {
				clients.send(Event{Type: TypeDaysChanged, Data: map[string]string{}})
			}
		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call twice.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a subscriber. The channel is closed once the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe detaches ch and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports the current subscribers; zero after Close.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish fans event out to every subscriber.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishPageEvent publishes a page change and a throttled days.changed event.
// kind is one of the index watcher event kinds.
func (b *Broker) PublishPageEvent(kind, path string) {
	b.change(changeReq{kind: kind, path: path})
}

// PublishDaysChanged publishes a throttled days.changed event without a page event.
func (b *Broker) PublishDaysChanged() {
	b.change(changeReq{})
}

func (b *Broker) change(req changeReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects (GET /api/stream).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
