package session

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"clarity-workers/internal/common/config"
	"clarity-workers/internal/common/database"
)

// ErrNotFound is returned by a Store when no blob exists under a key.
var ErrNotFound = stderrors.New("session blob not found")

// Store is a key-value blob store for serialized sessions.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps blobs in process and counts writes.
type MemoryStore struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), blob...)
	m.writes++
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// Writes returns the number of Save calls so far.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

type RedisStore struct {
	redis *database.RedisClient
	ttl   time.Duration
}

// NewRedisStore stores blobs as plain string values. A zero ttl never
// expires them.
func NewRedisStore(redis *database.RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redis, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := r.redis.Get(ctx, key)
	if err != nil {
		if database.IsNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return []byte(v), nil
}

func (r *RedisStore) Save(ctx context.Context, key string, blob []byte) error {
	if err := r.redis.Set(ctx, key, blob, r.ttl); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.redis.Del(ctx, key)
}

const (
	createBlobTable = `CREATE TABLE IF NOT EXISTS session_blobs (
	key        TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	selectBlob = `SELECT data FROM session_blobs WHERE key = $1`
	upsertBlob = `INSERT INTO session_blobs (key, data, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	deleteBlob = `DELETE FROM session_blobs WHERE key = $1`
)

// PostgresStore keeps one row per key in session_blobs.
type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the blob table when it is missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createBlobTable); err != nil {
		return fmt.Errorf("create session_blobs: %w", err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRow(ctx, selectBlob, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session blob: %w", err)
	}
	return data, nil
}

func (p *PostgresStore) Save(ctx context.Context, key string, blob []byte) error {
	if _, err := p.db.Exec(ctx, upsertBlob, key, blob); err != nil {
		return fmt.Errorf("upsert session blob: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, deleteBlob, key)
	return err
}

// NewStore builds the backend selected by cfg. The redis and postgres
// clients are only required for their own backend.
func NewStore(cfg config.PersistenceConfig, redis *database.RedisClient, pg *database.PostgresClient) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if redis == nil {
			return nil, fmt.Errorf("redis persistence selected but no redis client configured")
		}
		return NewRedisStore(redis, time.Duration(cfg.TTL)*time.Millisecond), nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("postgres persistence selected but no postgres client configured")
		}
		return NewPostgresStore(pg), nil
	}
	return nil, fmt.Errorf("persistence backend %q not supported", cfg.Backend)
}
