// Package sse streams pipeline run events and template changes to HTTP
// clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/quire/internal/pipeline"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	// Template and InvocationID are matched against client filters.
	Template     string `json:"-"`
	InvocationID string `json:"-"`
}

// Filter selects the events a client receives. Zero fields match everything.
type Filter struct {
	Types        []string
	Template     string
	InvocationID string
}

func (f Filter) match(e Event) bool {
	if f.Template != "" && e.Template != f.Template {
		return false
	}
	if f.InvocationID != "" && e.InvocationID != f.InvocationID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == e.Type {
			return true
		}
	}
	return false
}

// FilterFromQuery reads ?type=a,b&template=x&invocation=y.
func FilterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	var f Filter
	for _, v := range q["type"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Types = append(f.Types, t)
			}
		}
	}
	f.Template = q.Get("template")
	f.InvocationID = q.Get("invocation")
	return f
}

type subscription struct {
	ch     chan []byte
	filter Filter
}

type templateChangeReq struct {
	kind string
	path string
}

var _ pipeline.EventSink = (*Broker)(nil)

// Broker fans events out to SSE clients.
//
// A single loop goroutine owns the client set, the event sequence and the
// per-path change timestamps. Public methods talk to it over channels.
type Broker struct {
	changeMin time.Duration
	heartbeat time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan templateChangeReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithHeartbeat sets the interval of keep-alive comments sent to idle clients.
func WithHeartbeat(d time.Duration) BrokerOption {
	return func(b *Broker) { b.heartbeat = d }
}

// NewBroker creates a new SSE broker. Change events for the same template
// path are coalesced within changeThrottle.
func NewBroker(changeThrottle time.Duration, opts ...BrokerOption) *Broker {
	if changeThrottle <= 0 {
		changeThrottle = 500 * time.Millisecond
	}

	b := &Broker{
		changeMin:     changeThrottle,
		heartbeat:     30 * time.Second,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan templateChangeReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]Filter)
	lastChange := make(map[string]time.Time)
	var seq uint64

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, f := range clients {
			if !f.match(event) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.filter

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.changeCh:
			now := time.Now()
			if last, ok := lastChange[req.path]; ok && now.Sub(last) < b.changeMin && req.kind != "deleted" {
				continue
			}
			lastChange[req.path] = now
			if req.kind == "deleted" {
				delete(lastChange, req.path)
			}
			broadcast(Event{Type: pipeline.EventTemplateChanged, Data: map[string]string{
				"kind": req.kind,
				"path": req.path,
			}})

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client receiving events that match f.
func (b *Broker) Subscribe(f Filter) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, filter: f}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
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

// Publish sends an event to all matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// Emit publishes a pipeline event. It implements pipeline.EventSink.
func (b *Broker) Emit(e pipeline.Event) {
	b.Publish(Event{Type: e.Type, Data: e, Template: e.Template, InvocationID: e.InvocationID})
}

// TemplateChanged publishes a throttled template.changed event.
func (b *Broker) TemplateChanged(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- templateChangeReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). Query parameters
// narrow the stream; see FilterFromQuery.
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

	ch := b.Subscribe(FilterFromQuery(r))
	defer b.Unsubscribe(ch)

	tick := time.NewTicker(b.heartbeat)
	defer tick.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
