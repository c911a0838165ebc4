package game

import (
	"context"
	"slices"
	"sync"

	"sco-server/internal/snapshot"
)

// MemoryStore keeps encoded snapshots in a map. Storing bytes rather than
// pointers keeps callers from sharing state with the store.
type MemoryStore struct {
	codec *snapshot.Codec

	mu    sync.RWMutex
	games map[string][]byte
}

func NewMemoryStore(codec *snapshot.Codec) *MemoryStore {
	return &MemoryStore{codec: codec, games: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, gameID string) (*snapshot.Snapshot, error) {
	m.mu.RLock()
	data, ok := m.games[gameID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.codec.Decode(data)
}

func (m *MemoryStore) Save(_ context.Context, s *snapshot.Snapshot) error {
	data, err := m.codec.Encode(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.games[s.Game.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
