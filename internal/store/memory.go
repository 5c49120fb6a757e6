package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is a mutex-guarded in-process table. Expiry is lazy: expired
// entries are invisible to reads immediately and physically removed on the
// next touch or Sweep.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clock.Clock
}

func NewMemory(clk clock.Clock) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		clock:   clk,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || e.expired(m.clock.Now()) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.newEntry(value, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !e.expired(m.clock.Now()) {
		return false, nil
	}
	m.entries[key] = m.newEntry(value, ttl)
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) CompareAndDelete(_ context.Context, key string, expected []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.expired(m.clock.Now()) || !bytes.Equal(e.value, expected) {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.clock.Now()
	out := make(map[string][]byte)
	for key, e := range m.entries {
		if !strings.HasPrefix(key, prefix) || e.expired(now) {
			continue
		}
		out[key] = append([]byte(nil), e.value...)
	}
	return out, nil
}

// SetClock rebinds the table's clock. Tests use it to simulate expiry
// without sleeping.
func (m *Memory) SetClock(clk clock.Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clk
}

// Sweep drops physically retained expired entries and reports how many.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	removed := 0
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

func (m *Memory) newEntry(value []byte, ttl time.Duration) entry {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}
	return e
}
