// Package lockmgr serializes validate-then-commit sequences per room. It is
// not a queue: acquisition fails fast and callers retry with backoff or give
// up. Locks auto-expire so a crashed holder can never deadlock the room.
package lockmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/store"
)

const keyPrefix = "lock:room:"

// DefaultTTL bounds how long a holder can sit on a room before the lock
// evaporates. Independent of the hold TTL.
const DefaultTTL = 5 * time.Minute

// Lock is an ephemeral mutual-exclusion token over a room. The date range is
// recorded for observability; the lock table itself is keyed per room so
// overlapping windows always contend.
type Lock struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Manager struct {
	store store.Store
	clock clock.Clock
	ttl   time.Duration
}

type Option func(*Manager)

func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func NewManager(st store.Store, clk clock.Clock, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		clock: clk,
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the room's lock or fails immediately with
// domain.ErrLockContention. It never blocks waiting for the holder.
func (m *Manager) Acquire(ctx context.Context, roomID string, window domain.DateRange) (Lock, error) {
	now := m.clock.Now()
	lock := Lock{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		CheckIn:    window.CheckIn,
		CheckOut:   window.CheckOut,
		AcquiredAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	payload, err := json.Marshal(lock)
	if err != nil {
		return Lock{}, fmt.Errorf("encode lock: %w", err)
	}

	won, err := m.store.SetNX(ctx, keyPrefix+roomID, payload, m.ttl)
	if err != nil {
		return Lock{}, fmt.Errorf("acquire lock for %s: %w", roomID, err)
	}
	if !won {
		return Lock{}, domain.ErrLockContention
	}
	return lock, nil
}

// AcquireAll locks every room in a deterministic (sorted) order. If any
// acquisition fails, the ones already taken are released and the whole call
// reports contention, so callers either hold the full key set or nothing.
func (m *Manager) AcquireAll(ctx context.Context, roomIDs []string, window domain.DateRange) ([]Lock, error) {
	ids := append([]string(nil), roomIDs...)
	sort.Strings(ids)

	locks := make([]Lock, 0, len(ids))
	for _, roomID := range ids {
		lock, err := m.Acquire(ctx, roomID, window)
		if err != nil {
			for _, held := range locks {
				_ = m.Release(ctx, held)
			}
			return nil, err
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

// Release frees the room if, and only if, the given token still owns it. A
// release after expiry (or after another request re-acquired the key) is a
// no-op rather than an error. The ownership check and the delete are one
// atomic store operation, so a holder stalled past its TTL can never remove
// a successor's lock.
func (m *Manager) Release(ctx context.Context, lock Lock) error {
	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("encode lock: %w", err)
	}
	if _, err := m.store.CompareAndDelete(ctx, keyPrefix+lock.RoomID, payload); err != nil {
		return fmt.Errorf("release lock for %s: %w", lock.RoomID, err)
	}
	return nil
}

// ReleaseAll frees a set of held locks, keeping the first error.
func (m *Manager) ReleaseAll(ctx context.Context, locks []Lock) error {
	var first error
	for _, lock := range locks {
		if err := m.Release(ctx, lock); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Sweep removes lock records whose recorded expiry has passed. With a
// TTL-enforcing backend this is belt-and-braces; correctness never depends
// on it because every read checks ExpiresAt-derived liveness via the store.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	entries, err := m.store.List(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list locks: %w", err)
	}
	now := m.clock.Now()
	removed := 0
	for key, payload := range entries {
		var lock Lock
		if err := json.Unmarshal(payload, &lock); err != nil {
			continue
		}
		if now.Before(lock.ExpiresAt) {
			continue
		}
		if err := m.store.Delete(ctx, key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
