package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bran/trump304/internal/codec"
)

// RedisGames stores snapshots in Redis, one JSON value per game code.
// Conditional saves use WATCH so two writers racing on the same code
// cannot both commit; the loser sees ErrVersionConflict.
type RedisGames struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisGames creates a Redis-backed games store. The prefix is the
// configured games table name, so multiple deployments can share an
// instance.
func NewRedisGames(rdb *redis.Client, prefix string) *RedisGames {
	return &RedisGames{rdb: rdb, prefix: prefix}
}

func (r *RedisGames) key(code string) string {
	return fmt.Sprintf("%s:game:%s", r.prefix, code)
}

func (r *RedisGames) Create(ctx context.Context, snap codec.Snapshot) error {
	snap.Version = 1
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ok, err := r.rdb.SetNX(ctx, r.key(snap.GameCode), data, SnapshotTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrCodeTaken
	}
	return nil
}

func (r *RedisGames) Load(ctx context.Context, code string) (codec.Snapshot, error) {
	data, err := r.rdb.Get(ctx, r.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return codec.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return codec.Snapshot{}, err
	}
	var snap codec.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return codec.Snapshot{}, err
	}
	return snap, nil
}

func (r *RedisGames) Save(ctx context.Context, snap codec.Snapshot) error {
	key := r.key(snap.GameCode)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var stored codec.Snapshot
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		if stored.Version != snap.Version {
			return ErrVersionConflict
		}

		next := snap
		next.Version++
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, SnapshotTTL)
			return nil
		})
		return err
	}

	err := r.rdb.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The key changed under us between GET and EXEC
		return ErrVersionConflict
	}
	return err
}

func (r *RedisGames) Delete(ctx context.Context, code string) error {
	return r.rdb.Del(ctx, r.key(code)).Err()
}

// RedisConnections stores connection rows with a per-game set as the
// secondary index used for fan-out.
type RedisConnections struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisConnections creates a Redis-backed connections store
func NewRedisConnections(rdb *redis.Client, prefix string) *RedisConnections {
	return &RedisConnections{rdb: rdb, prefix: prefix}
}

func (r *RedisConnections) connKey(id string) string {
	return fmt.Sprintf("%s:conn:%s", r.prefix, id)
}

func (r *RedisConnections) gameKey(code string) string {
	return fmt.Sprintf("%s:gameconns:%s", r.prefix, code)
}

func (r *RedisConnections) Put(ctx context.Context, rec ConnRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.connKey(rec.ConnectionID), data, SnapshotTTL)
		pipe.SAdd(ctx, r.gameKey(rec.GameCode), rec.ConnectionID)
		pipe.Expire(ctx, r.gameKey(rec.GameCode), SnapshotTTL)
		return nil
	})
	return err
}

func (r *RedisConnections) Get(ctx context.Context, connectionID string) (ConnRecord, error) {
	data, err := r.rdb.Get(ctx, r.connKey(connectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ConnRecord{}, ErrNotFound
	}
	if err != nil {
		return ConnRecord{}, err
	}
	var rec ConnRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return ConnRecord{}, err
	}
	return rec, nil
}

func (r *RedisConnections) Delete(ctx context.Context, connectionID string) error {
	rec, err := r.Get(ctx, connectionID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.connKey(connectionID))
		pipe.SRem(ctx, r.gameKey(rec.GameCode), connectionID)
		return nil
	})
	return err
}

func (r *RedisConnections) ByGame(ctx context.Context, code string) ([]ConnRecord, error) {
	ids, err := r.rdb.SMembers(ctx, r.gameKey(code)).Result()
	if err != nil {
		return nil, err
	}
	recs := make([]ConnRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Row expired; drop the stale index entry
			r.rdb.SRem(ctx, r.gameKey(code), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
