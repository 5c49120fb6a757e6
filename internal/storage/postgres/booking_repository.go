// Package postgres reads the durable booking ledger. Bookings are written by
// the guest-facing booking workflow; the engine consumes them as occupancy
// input and only performs status maintenance on stale rows.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// ListOverlapping returns every active booking whose stay overlaps the
// window. The half-open comparison matches the rest of the engine: a booking
// checking out on the window's first day does not overlap.
func (r *BookingRepository) ListOverlapping(ctx context.Context, window domain.DateRange) ([]domain.Booking, error) {
	const query = `
SELECT id, room_id, check_in, check_out, beds, room_type, guest_email, status, created_at
FROM bookings
WHERE status IN ('pending', 'confirmed')
  AND check_in < $2
  AND check_out > $1
ORDER BY check_in, id`

	rows, err := r.pool.Query(ctx, query, window.CheckIn, window.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Beds, &b.Type, &b.GuestEmail, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list overlapping bookings: %w", err)
	}
	return bookings, nil
}

// GetByID fetches one booking regardless of status.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	const query = `
SELECT id, room_id, check_in, check_out, beds, room_type, guest_email, status, created_at
FROM bookings
WHERE id = $1`

	var b domain.Booking
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&b.ID, &b.RoomID, &b.CheckIn, &b.CheckOut, &b.Beds, &b.Type, &b.GuestEmail, &b.Status, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ExpireStalePending marks pending bookings older than the cutoff as expired
// so abandoned checkouts stop claiming beds. Returns how many rows changed.
func (r *BookingRepository) ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error) {
	const stmt = `
UPDATE bookings
SET status = 'expired'
WHERE status = 'pending' AND created_at < $1`

	tag, err := r.pool.Exec(ctx, stmt, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire stale pending bookings: %w", err)
	}
	return tag.RowsAffected(), nil
}
