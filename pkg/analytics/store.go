package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/dmitrymomot/flagsmith/pkg/logger"
	"github.com/dmitrymomot/flagsmith/pkg/storage"
)

// EventsKey is the storage key of the durable counters record.
const EventsKey = "events"

// Counters maps a flag name to the number of times it was evaluated.
type Counters map[string]int

// Clone returns an independent copy, never nil.
func (c Counters) Clone() Counters {
	out := make(Counters, len(c))
	maps.Copy(out, c)
	return out
}

// Total sums all counts.
func (c Counters) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Store holds the evaluation counters of one client in memory and mirrors every
// change to a storage.Storage, so counts survive a restart until flushed.
// Safe for concurrent use.
type Store struct {
	storage storage.Storage
	key     string
	logger  *slog.Logger

	mu       sync.Mutex
	counters Counters
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreKey overrides EventsKey. Processes sharing one storage need distinct
// keys: each write replaces the whole record.
func WithStoreKey(key string) StoreOption {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store and merges whatever a previous process left in st.
func NewStore(ctx context.Context, st storage.Storage, opts ...StoreOption) (*Store, error) {
	if st == nil {
		return nil, ErrNoStorage
	}
	s := &Store{
		storage:  st,
		key:      EventsKey,
		logger:   slog.Default(),
		counters: make(Counters),
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, n := range s.Load(ctx) {
		s.counters[name] += n
	}
	return s, nil
}

// Load decodes the durable record. A missing, unreadable or corrupt record
// yields empty counters; the failure is logged, never returned.
func (s *Store) Load(ctx context.Context) Counters {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.WarnContext(ctx, "analytics load failed", logger.Error(err))
		return Counters{}
	}
	if len(data) == 0 {
		return Counters{}
	}

	var decoded Counters
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.logger.WarnContext(ctx, "analytics record discarded", logger.Error(errors.Join(ErrCorruptRecord, err)))
		return Counters{}
	}

	out := make(Counters, len(decoded))
	for name, n := range decoded {
		if n > 0 {
			out[name] = n
		}
	}
	return out
}

// Track records one evaluation of name and persists the new snapshot.
// Persistence errors are logged; the in-memory count is kept regardless.
func (s *Store) Track(ctx context.Context, name string) {
	if name == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[name]++
	if err := s.persistLocked(ctx); err != nil {
		s.logger.WarnContext(ctx, "analytics persist failed", logger.Feature(name), logger.Error(err))
	}
}

// Persist replaces the counters with c and overwrites the durable record.
// Keys are written sorted, so equal counters always produce identical bytes.
func (s *Store) Persist(ctx context.Context, c Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = c.Clone()
	return s.persistLocked(ctx)
}

// Clear empties the counters and persists the empty record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = make(Counters)
	return s.persistLocked(ctx)
}

// Ack removes a successfully flushed snapshot. Evaluations tracked while the
// flush was in flight are kept for the next one.
func (s *Store) Ack(ctx context.Context, flushed Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, n := range flushed {
		left := s.counters[name] - n
		if left > 0 {
			s.counters[name] = left
		} else {
			delete(s.counters, name)
		}
	}
	return s.persistLocked(ctx)
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters.Clone()
}

// Len returns the number of distinct flags with pending counts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

// Writes happen under the mutex so an older snapshot can never overwrite a newer one.
func (s *Store) persistLocked(ctx context.Context) error {
	return s.write(ctx, s.counters)
}

func (s *Store) write(ctx context.Context, c Counters) error {
	if c == nil {
		c = Counters{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, s.key, data)
}
