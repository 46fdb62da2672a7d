// Package listener fans model-invocation lifecycle events out to
// registered observers without touching the chat flow itself.
package listener

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devcoach-ai/devcoach/internal/llm"
)

// staleAfter bounds how long an in-flight entry may sit in the latency
// map. Entries older than this are swept on the next OnRequest, so a
// caller that crashed between request and terminal event cannot leak
// entries forever.
const staleAfter = 10 * time.Minute

// RequestContext describes a model invocation about to start.
type RequestContext struct {
	RequestID string
	ModelName string
	Messages  []llm.Message
	Timestamp time.Time
}

// ResponseContext describes a successful invocation.
type ResponseContext struct {
	RequestID string
	ModelName string
	Content   string
	Timestamp time.Time
	Latency   time.Duration
}

// ErrorContext describes a failed invocation.
type ErrorContext struct {
	RequestID string
	ModelName string
	Err       error
	Timestamp time.Time
	Latency   time.Duration
}

// Listener receives lifecycle events. Implementations must not block;
// a panicking listener is recovered and logged, and never disturbs the
// others.
type Listener interface {
	OnRequest(ctx RequestContext)
	OnResponse(ctx ResponseContext)
	OnError(ctx ErrorContext)
}

// Notifier tracks in-flight invocations and broadcasts events to all
// registered listeners.
type Notifier struct {
	mu        sync.Mutex
	listeners []Listener
	started   map[string]time.Time
}

// NewNotifier creates a notifier with the default slog listener
// already registered.
func NewNotifier() *Notifier {
	n := &Notifier{started: make(map[string]time.Time)}
	n.AddListener(LogListener{})
	return n
}

func (n *Notifier) AddListener(l Listener) {
	n.mu.Lock()
	n.listeners = append(n.listeners, l)
	n.mu.Unlock()
}

// OnRequest records the invocation start and returns its correlation
// ID, which the caller must hand to exactly one of OnResponse or
// OnError.
func (n *Notifier) OnRequest(modelName string, messages []llm.Message) string {
	now := time.Now()
	id := uuid.NewString()

	n.mu.Lock()
	for reqID, start := range n.started {
		if now.Sub(start) > staleAfter {
			delete(n.started, reqID)
			slog.Warn("dropping stale model invocation entry", "request_id", reqID, "age", now.Sub(start))
		}
	}
	n.started[id] = now
	listeners := n.snapshot()
	n.mu.Unlock()

	ctx := RequestContext{RequestID: id, ModelName: modelName, Messages: messages, Timestamp: now}
	for _, l := range listeners {
		dispatch(func() { l.OnRequest(ctx) }, "OnRequest")
	}
	return id
}

// OnResponse broadcasts a successful completion, computing the latency
// from the recorded start time. Unknown IDs yield zero latency.
func (n *Notifier) OnResponse(requestID, modelName, content string) {
	now := time.Now()
	latency := n.takeLatency(requestID, now)

	n.mu.Lock()
	listeners := n.snapshot()
	n.mu.Unlock()

	ctx := ResponseContext{RequestID: requestID, ModelName: modelName, Content: content, Timestamp: now, Latency: latency}
	for _, l := range listeners {
		dispatch(func() { l.OnResponse(ctx) }, "OnResponse")
	}
}

// OnError broadcasts a failed completion.
func (n *Notifier) OnError(requestID, modelName string, err error) {
	now := time.Now()
	latency := n.takeLatency(requestID, now)

	n.mu.Lock()
	listeners := n.snapshot()
	n.mu.Unlock()

	ctx := ErrorContext{RequestID: requestID, ModelName: modelName, Err: err, Timestamp: now, Latency: latency}
	for _, l := range listeners {
		dispatch(func() { l.OnError(ctx) }, "OnError")
	}
}

// InFlight reports the number of invocations awaiting a terminal event.
func (n *Notifier) InFlight() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.started)
}

func (n *Notifier) takeLatency(requestID string, now time.Time) time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	start, ok := n.started[requestID]
	if !ok {
		return 0
	}
	delete(n.started, requestID)
	return now.Sub(start)
}

func (n *Notifier) snapshot() []Listener {
	out := make([]Listener, len(n.listeners))
	copy(out, n.listeners)
	return out
}

// dispatch runs one listener callback, containing panics so a broken
// listener cannot take down the invocation or its siblings.
func dispatch(fn func(), event string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("model listener panicked", "event", event, "panic", r)
		}
	}()
	fn()
}
