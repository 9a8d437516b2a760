package storage

import (
	"time"

	"github.com/ignite/adreport-ingest/internal/pkg/distlock"
)

// LockFactory returns a fresh lock for one critical section.
type LockFactory func() distlock.DistLock

// MergeLock returns a factory for a lock shared by every instance that uses
// the same Redis or Postgres backend. Other backends return nil and rely on
// in-process serialization only.
func MergeLock(kv KV, key string, ttl time.Duration) LockFactory {
	switch b := kv.(type) {
	case *RedisKV:
		return func() distlock.DistLock { return distlock.NewRedisLock(b.client, key, ttl) }
	case *PostgresKV:
		return func() distlock.DistLock { return distlock.NewPGAdvisoryLock(b.db, key) }
	}
	return nil
}
