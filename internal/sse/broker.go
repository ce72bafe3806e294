// Package sse implements a Server-Sent Events broker for real-time updates.
//
// Every broadcast carries an increasing event id. The broker keeps the most recent events so
// a client that reconnects with Last-Event-ID gets what it missed, for example the
// session.completed or persist.failed of a drill it was following.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Event types published by lexa.
const (
	TypeSessionStarted   = "session.started"
	TypeSessionCompleted = "session.completed"
	TypeSessionDiscarded = "session.discarded"
	TypeAnswerSubmitted  = "answer.submitted"
	TypeGroupUnlocked    = "group.unlocked"
	TypeDueUpdated       = "due.updated"
	TypeDeckImported     = "deck.imported"
	TypeDeckRemoved      = "deck.removed"
	TypeLibraryUpdated   = "library.updated"
	TypePersistFailed    = "persist.failed"
)

const (
	clientBuffer = 64
	historySize  = 64
	heartbeat    = 25 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is an encoded event as written to the wire.
type frame struct {
	id   uint64
	kind string
	raw  []byte
}

type client struct {
	ch    chan []byte
	types map[string]bool
}

func (c *client) wants(kind string) bool {
	return len(c.types) == 0 || c.types[kind]
}

type subscribeReq struct {
	c      *client
	lastID uint64
}

type deckEventReq struct {
	kind string
	path string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the mutable state (clients, replay history and the
// library throttle timestamp). Public methods talk to the loop through channels.
type Broker struct {
	libraryMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	deckEventCh   chan deckEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits library.updated at most once per throttle interval.
func NewBroker(libraryThrottle time.Duration) *Broker {
	if libraryThrottle <= 0 {
		libraryThrottle = 2 * time.Second
	}

	b := &Broker{
		libraryMin:    libraryThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		deckEventCh:   make(chan deckEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*client)
	history := make([]frame, 0, historySize)
	var nextID uint64
	var lastLibrary time.Time

	deliver := func(c *client, f frame) {
		if !c.wants(f.kind) {
			return
		}
		select {
		case c.ch <- f.raw:
		default:
			// Slow client; drop rather than block the loop.
		}
	}

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		nextID++
		f := frame{
			id:   nextID,
			kind: event.Type,
			raw:  []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", nextID, event.Type, payload)),
		}
		if len(history) == historySize {
			copy(history, history[1:])
			history = history[:historySize-1]
		}
		history = append(history, f)

		for _, c := range clients {
			deliver(c, f)
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.c.ch] = req.c
			if req.lastID == 0 {
				continue
			}
			for _, f := range history {
				if f.id > req.lastID {
					deliver(req.c, f)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.deckEventCh:
			data := map[string]string{"path": req.path}
			switch req.kind {
			case "imported":
				broadcast(Event{Type: TypeDeckImported, Data: data})
			case "removed":
				broadcast(Event{Type: TypeDeckRemoved, Data: data})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastLibrary) >= b.libraryMin {
				lastLibrary = now
				broadcast(Event{Type: TypeLibraryUpdated, Data: map[string]string{}})
			}

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

// Subscribe adds a new client and returns its channel. Events after lastEventID still in
// the replay history are delivered first; zero means live events only. With types set, only
// those event types are delivered.
func (b *Broker) Subscribe(lastEventID uint64, types ...string) chan []byte {
	c := &client{ch: make(chan []byte, clientBuffer)}
	if len(types) > 0 {
		c.types = make(map[string]bool, len(types))
		for _, t := range types {
			c.types[t] = true
		}
	}
	if b.closed.Load() {
		close(c.ch)
		return c.ch
	}

	select {
	case b.subscribeCh <- subscribeReq{c: c, lastID: lastEventID}:
	case <-b.stopped:
		close(c.ch)
	}

	return c.ch
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishDeckEvent publishes a deck change ("imported" or "removed") and a throttled
// library.updated event.
func (b *Broker) PublishDeckEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.deckEventCh <- deckEventReq{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
//
// Query parameter types takes a comma-separated list of event types to receive.
// The Last-Event-ID header (or last_event_id query parameter) resumes after that event.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID := r.Header.Get("Last-Event-ID")
	if lastID == "" {
		lastID = r.URL.Query().Get("last_event_id")
	}
	since, _ := strconv.ParseUint(lastID, 10, 64)

	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(since, types...)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
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
