// Package store holds image bytes in memory for a bounded time. Entries are
// handed out as Handles that release their memory when closed; a TTL timer
// frees anything a caller forgets to release.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/metrics"
)

// ErrEmpty is returned when saving an entry without data.
var ErrEmpty = errors.New("empty image data")

// Entry is a stored image.
type Entry struct {
	Name     string
	MIMEType string
	Data     []byte
	Created  time.Time
}

type item struct {
	entry Entry
	timer *time.Timer
}

// Memory is a concurrency-safe in-memory image store.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]*item
	reg    *metrics.Registry
	logger *zap.SugaredLogger
}

// NewMemory creates an empty store. reg and logger may be nil.
func NewMemory(reg *metrics.Registry, logger *zap.SugaredLogger) *Memory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Memory{data: make(map[string]*item), reg: reg, logger: logger}
}

// Save stores a copy of e under a new UUID. A positive ttl schedules deletion.
func (m *Memory) Save(ctx context.Context, e Entry, ttl time.Duration) (*Handle, error) {
	if len(e.Data) == 0 {
		return nil, ErrEmpty
	}

	id := uuid.NewString()
	buf := make([]byte, len(e.Data))
	copy(buf, e.Data)
	e.Data = buf
	if e.Created.IsZero() {
		e.Created = time.Now()
	}

	it := &item{entry: e}
	m.mu.Lock()
	m.data[id] = it
	if ttl > 0 {
		it.timer = time.AfterFunc(ttl, func() {
			if m.expire(id) {
				m.reg.Inc(context.Background(), "images_expired_total", nil, 1)
			}
		})
	}
	m.mu.Unlock()

	m.logger.Debugw("image stored", "image_id", id, "name", e.Name, "bytes", len(buf), "ttl", ttl.String())
	m.reg.Inc(ctx, "images_saved_total", nil, 1)
	m.reg.Inc(ctx, "images_bytes_stored_total", nil, int64(len(buf)))

	return &Handle{id: id, store: m}, nil
}

// Get returns a copy of the stored entry.
func (m *Memory) Get(_ context.Context, id string) (Entry, bool) {
	m.mu.RLock()
	it, ok := m.data[id]
	m.mu.RUnlock()
	if !ok || it == nil || len(it.entry.Data) == 0 {
		return Entry{}, false
	}
	out := it.entry
	out.Data = make([]byte, len(it.entry.Data))
	copy(out.Data, it.entry.Data)
	return out, true
}

// Delete stops the TTL timer and frees the entry. Unknown ids are ignored.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	it, ok := m.data[id]
	if ok {
		delete(m.data, id)
	}
	m.mu.Unlock()

	if !ok || it == nil {
		return nil
	}
	if it.timer != nil {
		it.timer.Stop()
	}
	m.logger.Debugw("image memory freed", "image_id", id, "bytes", len(it.entry.Data))
	m.reg.Inc(ctx, "images_deleted_total", nil, 1)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) expire(id string) bool {
	m.mu.Lock()
	_, ok := m.data[id]
	delete(m.data, id)
	m.mu.Unlock()
	if ok {
		m.logger.Debugw("image expired", "image_id", id)
	}
	return ok
}

// Handle is a claim on one stored entry.
type Handle struct {
	id    string
	store *Memory
	once  sync.Once
}

// ID returns the entry identifier.
func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id
}

// Entry returns the stored entry while it is still held.
func (h *Handle) Entry() (Entry, bool) {
	if h == nil {
		return Entry{}, false
	}
	return h.store.Get(context.Background(), h.id)
}

// Close releases the entry. It is safe to call more than once and on nil.
func (h *Handle) Close() error {
	if h == nil {
		return nil
	}
	var err error
	h.once.Do(func() {
		err = h.store.Delete(context.Background(), h.id)
	})
	return err
}
