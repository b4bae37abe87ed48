// Package store defines the two persistence surfaces the dispatcher
// uses: the games store (one snapshot per game code, guarded by an
// optimistic version check) and the connections store (live channel
// bookkeeping, indexed by game code for fan-out).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/bran/trump304/internal/codec"
)

var (
	// ErrNotFound is returned when no record exists for the key
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict is returned when a conditional save loses to a
	// concurrent writer. Callers reload and replay validation.
	ErrVersionConflict = errors.New("store: version conflict")

	// ErrCodeTaken is returned when creating a game whose code is in use
	ErrCodeTaken = errors.New("store: game code taken")
)

// SnapshotTTL is how long a game survives after its last write
const SnapshotTTL = 24 * time.Hour

// GameStore persists game snapshots keyed by game code. Save is
// conditional: it commits only when the stored version still equals
// the snapshot's version, then bumps it. This is the single-writer
// discipline; the engine never retries internally.
type GameStore interface {
	Create(ctx context.Context, snap codec.Snapshot) error
	Load(ctx context.Context, code string) (codec.Snapshot, error)
	Save(ctx context.Context, snap codec.Snapshot) error
	Delete(ctx context.Context, code string) error
}

// ConnRecord ties a live connection to its game and seat
type ConnRecord struct {
	ConnectionID string `json:"connection_id"`
	GameCode     string `json:"game_code"`
	PlayerID     string `json:"player_id"`
	Seat         int    `json:"seat"`
	ConnectedAt  int64  `json:"connected_at"`
}

// ConnectionStore persists connection records with a secondary index
// by game code
type ConnectionStore interface {
	Put(ctx context.Context, rec ConnRecord) error
	Get(ctx context.Context, connectionID string) (ConnRecord, error)
	Delete(ctx context.Context, connectionID string) error
	ByGame(ctx context.Context, code string) ([]ConnRecord, error)
}
