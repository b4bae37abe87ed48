package store

import (
	"context"
	"sync"

	"github.com/bran/trump304/internal/codec"
)

// MemoryGames is an in-process GameStore used by tests and the
// single-node dev mode. It applies the same version discipline as the
// Redis store.
type MemoryGames struct {
	mu    sync.Mutex
	games map[string]codec.Snapshot
}

// NewMemoryGames creates an empty in-memory games store
func NewMemoryGames() *MemoryGames {
	return &MemoryGames{games: make(map[string]codec.Snapshot)}
}

func (m *MemoryGames) Create(ctx context.Context, snap codec.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[snap.GameCode]; ok {
		return ErrCodeTaken
	}
	snap.Version = 1
	m.games[snap.GameCode] = snap
	return nil
}

func (m *MemoryGames) Load(ctx context.Context, code string) (codec.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.games[code]
	if !ok {
		return codec.Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (m *MemoryGames) Save(ctx context.Context, snap codec.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.games[snap.GameCode]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != snap.Version {
		return ErrVersionConflict
	}
	snap.Version++
	m.games[snap.GameCode] = snap
	return nil
}

func (m *MemoryGames) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, code)
	return nil
}

// MemoryConnections is an in-process ConnectionStore
type MemoryConnections struct {
	mu    sync.Mutex
	conns map[string]ConnRecord
}

// NewMemoryConnections creates an empty in-memory connections store
func NewMemoryConnections() *MemoryConnections {
	return &MemoryConnections{conns: make(map[string]ConnRecord)}
}

func (m *MemoryConnections) Put(ctx context.Context, rec ConnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[rec.ConnectionID] = rec
	return nil
}

func (m *MemoryConnections) Get(ctx context.Context, connectionID string) (ConnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.conns[connectionID]
	if !ok {
		return ConnRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryConnections) Delete(ctx context.Context, connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connectionID)
	return nil
}

func (m *MemoryConnections) ByGame(ctx context.Context, code string) ([]ConnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]ConnRecord, 0)
	for _, rec := range m.conns {
		if rec.GameCode == code {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}
