// Package recorder subscribes to every event on a bus and appends one
// serialized line per event to a file.
package recorder

import (
	"bufio"
	"os"
	"sync"

	"go.uber.org/zap"

	"mdbus/internal/bus"
)

// Recorder is the EventRecorder collaborator of spec.md §6: subscribes to
// every event via SubscribeAll, appends a serialized line to a
// truncation-opened file. Thread-safe across callbacks via an internal
// mutex. Grounded on original_source/md-bus/engine/record/recorder.cpp.
type Recorder struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	opened bool
	path   string
	logger *zap.SugaredLogger

	busRef *bus.EventBus
	subID  bus.SubID
}

// New opens path for truncated writing and subscribes to every event on
// b. A failed open is logged; the recorder stays inert (on-event becomes
// a no-op) rather than returning an error, matching spec.md §7's
// resource-error handling.
func New(b *bus.EventBus, path string, logger *zap.SugaredLogger) *Recorder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Recorder{path: path, logger: logger, busRef: b}

	f, err := os.Create(path)
	if err != nil {
		logger.Errorw("EventRecorder: failed to open file", "path", path, "error", err)
	} else {
		r.file = f
		r.writer = bufio.NewWriter(f)
		r.opened = true
		logger.Infow("EventRecorder: recording", "path", path)
	}

	r.subID = b.SubscribeAll(r.onEvent)
	return r
}

func (r *Recorder) onEvent(e bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.opened {
		return
	}
	r.writer.WriteString(bus.SerializeEvent(e))
	r.writer.WriteByte('\n')
}

// Flush pushes buffered output to the underlying file. Idempotent.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opened {
		r.writer.Flush()
	}
}

// Close flushes, closes the file, and unsubscribes from the bus.
// Idempotent.
func (r *Recorder) Close() {
	r.busRef.Unsubscribe(r.subID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.opened {
		return
	}
	r.writer.Flush()
	r.file.Close()
	r.opened = false
	r.logger.Infow("EventRecorder: closed", "path", r.path)
}
