// Package history owns the per-feature interaction history: an in-memory,
// newest-first list of records kept in sync with a storage.Adapter key.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
	"github.com/zhouzirui/lexdesk/backend/internal/storage"
)

var (
	// ErrPersist marks a mutation that was applied in memory but could not be saved.
	ErrPersist = errors.New("history persistence failed")
	// ErrDuplicateID is returned when adding a record whose id is already stored.
	ErrDuplicateID = errors.New("duplicate record id")
	// ErrInvalidRecord is returned when adding a record without an id.
	ErrInvalidRecord = errors.New("record id is required")
)

// Observer receives persistence outcomes; used for metrics.
type Observer interface {
	PersistFailed(feature, op string)
	HistorySize(feature string, n int)
}

// Options configure a Store.
type Options[R any, M any] struct {
	// Feature labels logs and metrics.
	Feature string
	// Key is the storage key exclusively owned by this store.
	Key string
	// ExportName is the suggested file name of Export.
	ExportName string
	Adapter    storage.Adapter

	// Summary extracts the human readable text of a result used by search.
	Summary func(R) string
	// Metric extracts the scalar used by metric filters and sorting.
	Metric func(M) float64
	// Size measures a record for size sorting. Defaults to the payload length in runes.
	Size func(model.Record[R, M]) int

	Logger   zerolog.Logger
	Observer Observer
}

// Store is safe for concurrent use. Saves happen under the write lock so the
// persisted list always matches some in-memory state, in mutation order.
type Store[R any, M any] struct {
	opts Options[R, M]
	log  zerolog.Logger

	mu      sync.RWMutex
	records []model.Record[R, M]
}

// NewStore builds an empty store. Call Initialize to hydrate it.
func NewStore[R any, M any](opts Options[R, M]) (*Store[R, M], error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("history store %q: adapter is required", opts.Feature)
	}
	if strings.TrimSpace(opts.Key) == "" {
		return nil, fmt.Errorf("history store %q: key is required", opts.Feature)
	}
	if opts.Size == nil {
		opts.Size = func(r model.Record[R, M]) int { return utf8.RuneCountInString(r.InputPayload) }
	}
	if opts.ExportName == "" {
		opts.ExportName = opts.Key + ".json"
	}
	return &Store[R, M]{
		opts: opts,
		log:  opts.Logger.With().Str("component", "history").Str("feature", opts.Feature).Logger(),
	}, nil
}

// Feature returns the feature label.
func (s *Store[R, M]) Feature() string { return s.opts.Feature }

// Key returns the storage key.
func (s *Store[R, M]) Key() string { return s.opts.Key }

// Initialize replaces the in-memory list with the persisted one. A missing,
// unreadable or malformed entry yields an empty history and no error.
func (s *Store[R, M]) Initialize(ctx context.Context) {
	records := s.load(ctx)

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.observeSize(len(records))
	s.log.Debug().Int("records", len(records)).Msg("history initialized")
}

func (s *Store[R, M]) load(ctx context.Context) []model.Record[R, M] {
	data, ok, err := s.opts.Adapter.Load(ctx, s.opts.Key)
	if err != nil {
		s.log.Warn().Err(err).Msg("history load failed, starting empty")
		return nil
	}
	if !ok || len(data) == 0 {
		return nil
	}

	var records []model.Record[R, M]
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Warn().Err(err).Msg("persisted history is malformed, starting empty")
		return nil
	}

	// Drop entries that cannot be addressed; keep the first of any duplicate ids.
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Add inserts rec at the head of the list and persists the list.
func (s *Store[R, M]) Add(ctx context.Context, rec model.Record[R, M]) error {
	if strings.TrimSpace(rec.ID) == "" {
		return ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(rec.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}

	next := make([]model.Record[R, M], 0, len(s.records)+1)
	next = append(next, rec)
	next = append(next, s.records...)
	s.records = next

	return s.persistLocked(ctx, "add")
}

// Update applies mutate to the annotations of the record with id. It reports
// false, with no save, when the record does not exist.
func (s *Store[R, M]) Update(ctx context.Context, id string, mutate func(*model.Annotations)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	ann := s.records[idx].Annotations()
	if mutate != nil {
		mutate(&ann)
	}
	s.records[idx] = s.records[idx].WithAnnotations(ann)

	return true, s.persistLocked(ctx, "update")
}

// Remove deletes the record with id. Removing the last record clears the
// storage key instead of saving an empty list.
func (s *Store[R, M]) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	next := make([]model.Record[R, M], 0, len(s.records)-1)
	next = append(next, s.records[:idx]...)
	next = append(next, s.records[idx+1:]...)
	s.records = next

	if len(s.records) == 0 {
		return true, s.clearLocked(ctx, "remove")
	}
	return true, s.persistLocked(ctx, "remove")
}

// Clear empties the history and removes the storage key.
func (s *Store[R, M]) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return s.clearLocked(ctx, "clear")
}

// Get returns a copy of the record with id.
func (s *Store[R, M]) Get(id string) (model.Record[R, M], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.Record[R, M]{}, false
	}
	return s.records[idx], true
}

// Records returns a copy of the full list, newest first.
func (s *Store[R, M]) Records() []model.Record[R, M] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Record[R, M](nil), s.records...)
}

// Len returns the number of stored records.
func (s *Store[R, M]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Export renders the full list as an indented JSON document.
func (s *Store[R, M]) Export() (name string, data []byte, err error) {
	records := s.Records()
	if records == nil {
		records = []model.Record[R, M]{}
	}
	data, err = json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("export history: %w", err)
	}
	return s.opts.ExportName, data, nil
}

func (s *Store[R, M]) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store[R, M]) persistLocked(ctx context.Context, op string) error {
	s.observeSize(len(s.records))

	data, err := json.Marshal(s.records)
	if err != nil {
		return s.persistFailed(op, err)
	}
	if err := s.opts.Adapter.Save(ctx, s.opts.Key, data); err != nil {
		return s.persistFailed(op, err)
	}
	return nil
}

func (s *Store[R, M]) clearLocked(ctx context.Context, op string) error {
	s.observeSize(0)

	if err := s.opts.Adapter.Clear(ctx, s.opts.Key); err != nil {
		return s.persistFailed(op, err)
	}
	return nil
}

func (s *Store[R, M]) persistFailed(op string, err error) error {
	s.log.Warn().Err(err).Str("op", op).Msg("history not persisted; in-memory state kept")
	if s.opts.Observer != nil {
		s.opts.Observer.PersistFailed(s.opts.Feature, op)
	}
	return fmt.Errorf("%w (%s): %w", ErrPersist, op, err)
}

func (s *Store[R, M]) observeSize(n int) {
	if s.opts.Observer != nil {
		s.opts.Observer.HistorySize(s.opts.Feature, n)
	}
}
