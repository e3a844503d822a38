package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"clpool/internal/model"
)

// Recorder adapts a Storage into an engine event sink, buffering events and
// flushing them in batches. While muted it drops events, which lets a
// deterministic replay rebuild state without re-recording history.
type Recorder struct {
	storage   Storage
	batchSize int

	mu     sync.Mutex
	buf    []model.EventRecord
	muted  bool
	failed error
}

func NewRecorder(storage Storage, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = 256
	}
	return &Recorder{storage: storage, batchSize: batchSize}
}

// Mute toggles whether incoming events are dropped.
func (r *Recorder) Mute(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = muted
}

// Emit buffers one event. Storage failures are held and surfaced by Flush.
func (r *Recorder) Emit(event model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.muted || r.failed != nil {
		return
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		r.failed = fmt.Errorf("marshal event payload: %w", err)
		return
	}
	r.buf = append(r.buf, model.EventRecord{
		Seq:       event.Seq,
		Pool:      event.Pool,
		Name:      event.Name,
		Timestamp: event.Timestamp,
		Data:      data,
	})
	if len(r.buf) >= r.batchSize {
		r.flushLocked()
	}
}

// Flush writes any buffered events and returns the first error seen since
// the previous Flush.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	err := r.failed
	r.failed = nil
	return err
}

func (r *Recorder) flushLocked() {
	if len(r.buf) == 0 || r.failed != nil {
		return
	}
	if err := r.storage.PutEventBatch(r.buf); err != nil {
		r.failed = fmt.Errorf("store events: %w", err)
		return
	}
	r.buf = r.buf[:0]
}
