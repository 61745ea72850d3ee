package progress

import (
	"io"
	"sync"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// Reporter receives the sync log of a pass, one event per action
type Reporter interface {
	// Record is called synchronously for every event; it must not block
	Record(ev domain.Event)
}

// Callback is a function that receives events
type Callback func(ev domain.Event)

// CallbackReporter implements Reporter with a callback function
type CallbackReporter struct {
	mu       sync.Mutex
	callback Callback
}

// NewCallbackReporter creates a new CallbackReporter
func NewCallbackReporter(callback Callback) *CallbackReporter {
	return &CallbackReporter{callback: callback}
}

// Record implements Reporter
func (r *CallbackReporter) Record(ev domain.Event) {
	r.mu.Lock()
	callback := r.callback
	r.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(ev)
	}
}

// Recorder keeps every event it receives
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record implements Reporter
func (r *Recorder) Record(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Paths returns the paths of recorded events with the given action
func (r *Recorder) Paths(action domain.ActionType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var paths []string
	for _, ev := range r.events {
		if ev.Action == action {
			paths = append(paths, ev.Path)
		}
	}
	return paths
}

// Count returns the number of recorded events with the given action
func (r *Recorder) Count(action domain.ActionType) int {
	return len(r.Paths(action))
}

// Reset drops all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans events out to several reporters in order
type Multi []Reporter

// Record implements Reporter
func (m Multi) Record(ev domain.Event) {
	for _, r := range m {
		if r != nil {
			r.Record(ev)
		}
	}
}

// NullReporter is a no-op reporter
type NullReporter struct{}

func (NullReporter) Record(domain.Event) {}

// ProgressReader wraps an io.Reader and counts the bytes read through it
type ProgressReader struct {
	reader      io.Reader
	transferred int64
}

// NewProgressReader creates a new counting reader
func NewProgressReader(r io.Reader) *ProgressReader {
	return &ProgressReader{reader: r}
}

// Read implements io.Reader
func (pr *ProgressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	pr.transferred += int64(n)
	return n, err
}

// Transferred returns the number of bytes read so far
func (pr *ProgressReader) Transferred() int64 {
	return pr.transferred
}
