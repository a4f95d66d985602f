package mode

import "strings"

// Store exposes mode lookup for handlers and feature validation.
type Store interface {
	List(feature string) []Mode
	Resolve(feature, id string) (Mode, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Mode
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied modes.
func NewMemoryStore(items []Mode) *MemoryStore {
	return &MemoryStore{items: append([]Mode(nil), items...)}
}

// List returns the modes of feature, or all modes when feature is empty.
func (s *MemoryStore) List(feature string) []Mode {
	out := make([]Mode, 0, len(s.items))
	for _, item := range s.items {
		if feature == "" || item.Feature == feature {
			out = append(out, item)
		}
	}
	return out
}

// Resolve looks up a mode of feature. An empty id resolves to the feature default.
func (s *MemoryStore) Resolve(feature, id string) (Mode, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, item := range s.items {
		if item.Feature != feature {
			continue
		}
		if (id == "" && item.Default) || item.ID == id {
			return item, true
		}
	}
	return Mode{}, false
}
