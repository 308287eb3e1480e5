package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"fleetopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
// It starts with the sample stop set.
type Memory struct {
	mu   sync.RWMutex
	sets map[string]model.StopSet
}

func NewMemory() *Memory {
	s := Sample()
	return &Memory{sets: map[string]model.StopSet{s.Name: s}}
}

func (m *Memory) ListStopSets(ctx context.Context) ([]model.StopSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.StopSet, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetStopSet(ctx context.Context, name string) (model.StopSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sets[name]
	if !ok {
		return model.StopSet{}, ErrNotFound
	}
	return clone(s), nil
}

func (m *Memory) PutStopSet(ctx context.Context, s model.StopSet) error {
	if err := Validate(s); err != nil {
		return err
	}
	m.mu.Lock()
	m.sets[s.Name] = clone(s)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// clone keeps callers from mutating stored slices.
func clone(s model.StopSet) model.StopSet {
	s.Coordinates = slices.Clone(s.Coordinates)
	s.TimeWindows = slices.Clone(s.TimeWindows)
	s.Demands = slices.Clone(s.Demands)
	return s
}
