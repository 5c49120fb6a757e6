// Package holdstore keeps provisional bed holds in the shared key-value
// table. A hold counts against capacity from the moment it is written until
// it is released or its TTL lapses; confirmation re-arms the TTL with a
// longer window so payment webhooks arriving late still find their record.
package holdstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/store"
)

const keyPrefix = "hold:"

const (
	// DefaultHoldTTL bounds how long an unpaid hold blocks inventory.
	DefaultHoldTTL = 3 * time.Minute
	// DefaultConfirmedTTL is the window a confirmed hold stays readable
	// while the durable booking row is written behind it.
	DefaultConfirmedTTL = 15 * time.Minute
	// retentionGrace keeps expired records readable slightly past their
	// logical expiry for release auditing. Expiry decisions always use
	// the record's ExpiresAt, never the physical TTL.
	retentionGrace = time.Minute
)

// HoldStore manages the lifecycle of holds on top of a store.Store.
type HoldStore struct {
	kv           store.Store
	clock        clock.Clock
	holdTTL      time.Duration
	confirmedTTL time.Duration
}

type Option func(*HoldStore)

func WithHoldTTL(ttl time.Duration) Option {
	return func(s *HoldStore) {
		if ttl > 0 {
			s.holdTTL = ttl
		}
	}
}

func WithConfirmedTTL(ttl time.Duration) Option {
	return func(s *HoldStore) {
		if ttl > 0 {
			s.confirmedTTL = ttl
		}
	}
}

func New(kv store.Store, clk clock.Clock, opts ...Option) *HoldStore {
	s := &HoldStore{
		kv:           kv,
		clock:        clk,
		holdTTL:      DefaultHoldTTL,
		confirmedTTL: DefaultConfirmedTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start writes a fresh hold for the given beds and returns it. The caller
// is expected to hold the room locks for every room in bedsPerRoom.
func (s *HoldStore) Start(ctx context.Context, bedsPerRoom map[string]int, rng domain.DateRange, guestEmail string) (domain.Hold, error) {
	total := 0
	for _, beds := range bedsPerRoom {
		if beds < 0 {
			return domain.Hold{}, domain.ErrInvalidBeds
		}
		total += beds
	}
	if total == 0 {
		return domain.Hold{}, domain.ErrInvalidBeds
	}

	now := s.clock.Now()
	hold := domain.Hold{
		ID:          uuid.NewString(),
		BedsPerRoom: copyBeds(bedsPerRoom),
		CheckIn:     rng.CheckIn,
		CheckOut:    rng.CheckOut,
		GuestEmail:  guestEmail,
		Status:      domain.HoldStatusHold,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.holdTTL),
	}
	if err := s.write(ctx, hold); err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// Get returns the hold regardless of expiry; callers that care about
// liveness check Claiming themselves. ErrHoldNotFound covers both a key
// that never existed and one the backing store already evicted.
func (s *HoldStore) Get(ctx context.Context, id string) (domain.Hold, error) {
	raw, ok, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		return domain.Hold{}, fmt.Errorf("holdstore: get %s: %w", id, err)
	}
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	var hold domain.Hold
	if err := json.Unmarshal(raw, &hold); err != nil {
		return domain.Hold{}, fmt.Errorf("holdstore: decode %s: %w", id, err)
	}
	return hold, nil
}

// Advance moves a hold up the status ladder. Moving to the same status is
// an idempotent no-op; moving backwards fails with ErrStatusRegression. An
// advance re-arms the TTL, with confirmed holds getting the longer window.
func (s *HoldStore) Advance(ctx context.Context, id string, to domain.HoldStatus) (domain.Hold, error) {
	hold, err := s.Get(ctx, id)
	if err != nil {
		return domain.Hold{}, err
	}
	now := s.clock.Now()
	if hold.Status == domain.HoldStatusReleased {
		return domain.Hold{}, domain.ErrHoldReleased
	}
	if hold.Expired(now) {
		return domain.Hold{}, domain.ErrHoldExpired
	}
	if to.Rank() == 0 {
		return domain.Hold{}, fmt.Errorf("holdstore: advance to %q: %w", to, domain.ErrStatusRegression)
	}
	if to.Rank() < hold.Status.Rank() {
		return domain.Hold{}, domain.ErrStatusRegression
	}
	if to.Rank() == hold.Status.Rank() {
		return hold, nil
	}

	hold.Status = to
	ttl := s.holdTTL
	if to == domain.HoldStatusConfirmed {
		ttl = s.confirmedTTL
	}
	hold.ExpiresAt = now.Add(ttl)
	if err := s.write(ctx, hold); err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// Confirm is Advance to confirmed.
func (s *HoldStore) Confirm(ctx context.Context, id string) (domain.Hold, error) {
	return s.Advance(ctx, id, domain.HoldStatusConfirmed)
}

// Release marks a hold released and stops it claiming beds. The record
// lingers for a short retention window so a concurrent confirm attempt
// sees ErrHoldReleased instead of ErrHoldNotFound. Releasing an already
// released hold is a no-op.
func (s *HoldStore) Release(ctx context.Context, id string) (domain.Hold, error) {
	hold, err := s.Get(ctx, id)
	if err != nil {
		return domain.Hold{}, err
	}
	if hold.Status == domain.HoldStatusReleased {
		return hold, nil
	}
	hold.Status = domain.HoldStatusReleased
	hold.ExpiresAt = s.clock.Now()
	if err := s.write(ctx, hold); err != nil {
		return domain.Hold{}, err
	}
	return hold, nil
}

// ListActive returns every hold still claiming beds right now.
func (s *HoldStore) ListActive(ctx context.Context) ([]domain.Hold, error) {
	entries, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("holdstore: list: %w", err)
	}
	now := s.clock.Now()
	holds := make([]domain.Hold, 0, len(entries))
	for key, raw := range entries {
		var hold domain.Hold
		if err := json.Unmarshal(raw, &hold); err != nil {
			return nil, fmt.Errorf("holdstore: decode %s: %w", key, err)
		}
		if hold.Claiming(now) {
			holds = append(holds, hold)
		}
	}
	return holds, nil
}

// OccupancyView flattens every active hold overlapping the window into
// snapshot rows for the occupancy calculator.
func (s *HoldStore) OccupancyView(ctx context.Context, window domain.DateRange) ([]domain.Claim, error) {
	holds, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	var claims []domain.Claim
	for _, hold := range holds {
		if !hold.Range().Overlaps(window) {
			continue
		}
		claims = append(claims, domain.ClaimsFromHold(hold)...)
	}
	return claims, nil
}

// Sweep deletes records whose logical expiry has passed and reports how
// many went. The TTL already evicts most of them; the sweep exists for
// backends where eviction lags and for released records past retention.
func (s *HoldStore) Sweep(ctx context.Context) (int, error) {
	entries, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("holdstore: sweep: %w", err)
	}
	now := s.clock.Now()
	swept := 0
	for key, raw := range entries {
		var hold domain.Hold
		if err := json.Unmarshal(raw, &hold); err != nil {
			continue
		}
		if !hold.Expired(now) {
			continue
		}
		if err := s.kv.Delete(ctx, key); err != nil {
			return swept, fmt.Errorf("holdstore: sweep %s: %w", key, err)
		}
		swept++
	}
	return swept, nil
}

func (s *HoldStore) write(ctx context.Context, hold domain.Hold) error {
	raw, err := json.Marshal(hold)
	if err != nil {
		return fmt.Errorf("holdstore: encode %s: %w", hold.ID, err)
	}
	ttl := hold.ExpiresAt.Sub(s.clock.Now()) + retentionGrace
	if err := s.kv.Set(ctx, keyPrefix+hold.ID, raw, ttl); err != nil {
		return fmt.Errorf("holdstore: put %s: %w", hold.ID, err)
	}
	return nil
}

func copyBeds(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for roomID, beds := range in {
		if beds > 0 {
			out[roomID] = beds
		}
	}
	return out
}
