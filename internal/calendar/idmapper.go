package calendar

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/example/lab-resource-manager/internal/domain"
	"github.com/example/lab-resource-manager/internal/persistence/jsonfile"
)

// ExternalID locates an event inside a backend.
type ExternalID struct {
	CalendarID string `json:"calendar_id"`
	EventID    string `json:"event_id"`
}

// Mapping links reservation ids to backend event ids in both directions.
type Mapping interface {
	ExternalID(ctx context.Context, id domain.UsageID) (ExternalID, bool, error)
	UsageID(ctx context.Context, eventID string) (domain.UsageID, bool, error)
	SaveMapping(ctx context.Context, id domain.UsageID, ext ExternalID) error
	DeleteMapping(ctx context.Context, id domain.UsageID) error
}

// IDMapper keeps the mapping in a JSON object keyed by usage id. The file is
// loaded on first access and rewritten after each mutation.
type IDMapper struct {
	path string

	mu      sync.Mutex
	loaded  bool
	forward map[domain.UsageID]ExternalID
	reverse map[string]domain.UsageID
}

func NewIDMapper(path string) *IDMapper {
	return &IDMapper{path: path}
}

func (m *IDMapper) ExternalID(_ context.Context, id domain.UsageID) (ExternalID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return ExternalID{}, false, err
	}
	ext, ok := m.forward[id]
	return ext, ok, nil
}

func (m *IDMapper) UsageID(_ context.Context, eventID string) (domain.UsageID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return "", false, err
	}
	id, ok := m.reverse[eventID]
	return id, ok, nil
}

// SaveMapping replaces any previous mapping for id, dropping its stale
// reverse entry. An event is owned by one usage id at a time; a usage id
// previously mapped to the same event loses its forward entry.
func (m *IDMapper) SaveMapping(_ context.Context, id domain.UsageID, ext ExternalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}

	prevForward := maps.Clone(m.forward)
	prevReverse := maps.Clone(m.reverse)

	if old, ok := m.forward[id]; ok {
		delete(m.reverse, old.EventID)
	}
	if prev, ok := m.reverse[ext.EventID]; ok && prev != id {
		delete(m.forward, prev)
	}
	m.forward[id] = ext
	m.reverse[ext.EventID] = id

	if err := m.persist(); err != nil {
		m.forward, m.reverse = prevForward, prevReverse
		return err
	}
	return nil
}

func (m *IDMapper) DeleteMapping(_ context.Context, id domain.UsageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureLoaded(); err != nil {
		return err
	}

	old, ok := m.forward[id]
	if !ok {
		return nil
	}
	prevForward := maps.Clone(m.forward)
	prevReverse := maps.Clone(m.reverse)

	delete(m.forward, id)
	if m.reverse[old.EventID] == id {
		delete(m.reverse, old.EventID)
	}

	if err := m.persist(); err != nil {
		m.forward, m.reverse = prevForward, prevReverse
		return err
	}
	return nil
}

func (m *IDMapper) ensureLoaded() error {
	if m.loaded {
		return nil
	}
	records := map[domain.UsageID]ExternalID{}
	if _, err := jsonfile.Read(m.path, &records); err != nil {
		return fmt.Errorf("load calendar mappings: %w", err)
	}
	m.forward = records
	m.reverse = make(map[string]domain.UsageID, len(records))
	for id, ext := range records {
		m.reverse[ext.EventID] = id
	}
	m.loaded = true
	return nil
}

func (m *IDMapper) persist() error {
	if err := jsonfile.Write(m.path, m.forward); err != nil {
		return fmt.Errorf("write calendar mappings: %w", err)
	}
	return nil
}
