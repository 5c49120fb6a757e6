package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/conflict"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

func TestHandleReserve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	successResult := app.ReserveResult{
		Hold: domain.Hold{
			ID:          "hold-123",
			BedsPerRoom: map[string]int{domain.RoomMixto12A: 5},
			Status:      domain.HoldStatusHold,
			ExpiresAt:   now.Add(3 * time.Minute),
		},
		Allocations: []allocator.RoomAllocation{{RoomID: domain.RoomMixto12A, Beds: 5}},
		Attempts:    1,
	}
	conflictErr := &app.ConflictError{Reports: map[string]conflict.Report{
		domain.RoomMixto7: {
			Conflicts: []conflict.Conflict{{
				Type:     conflict.TypeOverbooking,
				Severity: conflict.SeverityHigh,
				RoomID:   domain.RoomMixto7,
				Date:     now,
				Message:  "room over capacity",
			}},
			Alternatives: []conflict.Alternative{{
				Kind:     conflict.KindOtherRoom,
				RoomID:   domain.RoomMixto12A,
				CheckIn:  now,
				CheckOut: now.AddDate(0, 0, 4),
				Score:    1.0,
			}},
			LockRequired: true,
		},
	}}

	validBody := `{"check_in":"2025-04-10","check_out":"2025-04-14","beds":5,"guest_email":"ana@example.org"}`

	tests := []struct {
		name           string
		method         string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           validBody,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"hold_id":"hold-123"`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			body:           validBody,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "invalid json",
			body:           `{"check_in":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad date",
			body:           `{"check_in":"10/04/2025","check_out":"2025-04-14","beds":5,"guest_email":"ana@example.org"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidDateRange,
		},
		{
			name:           "neither beds nor allocations",
			body:           `{"check_in":"2025-04-10","check_out":"2025-04-14","guest_email":"ana@example.org"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidBeds,
		},
		{
			name:           "conflict with alternatives",
			body:           validBody,
			serviceErr:     conflictErr,
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"kind":"other_room"`,
		},
		{
			name:           "insufficient capacity",
			body:           validBody,
			serviceErr:     domain.ErrInsufficientCapacity,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeInsufficientCapacity,
		},
		{
			name:           "lock contention",
			body:           validBody,
			serviceErr:     domain.ErrLockContention,
			expectedStatus: http.StatusServiceUnavailable,
			expectedSubstr: codeLockContention,
		},
		{
			name:           "internal error",
			body:           validBody,
			serviceErr:     errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubReserver{result: successResult, err: tt.serviceErr}
			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			req := httptest.NewRequest(method, "/reservations", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleReserve(svc).ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, res.StatusCode, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

type stubReserver struct {
	result app.ReserveResult
	err    error
	gotIn  app.ReserveInput
}

func (s *stubReserver) Reserve(_ context.Context, in app.ReserveInput) (app.ReserveResult, error) {
	s.gotIn = in
	if s.err != nil {
		return app.ReserveResult{}, s.err
	}
	return s.result, nil
}

func TestHandleReserve_PassesPreferences(t *testing.T) {
	t.Parallel()

	svc := &stubReserver{result: app.ReserveResult{Hold: domain.Hold{ID: "h"}}}
	body := `{"check_in":"2025-04-10","check_out":"2025-04-14","beds":3,"guest_email":"ana@example.org","strategy":"prefer-smaller","preferences":{"room_type":"female","avoid_flexible_rooms":true}}`
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	HandleReserve(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.gotIn.Strategy != allocator.StrategyPreferSmaller {
		t.Fatalf("expected strategy prefer-smaller, got %q", svc.gotIn.Strategy)
	}
	if svc.gotIn.Preferences.RoomType == nil || *svc.gotIn.Preferences.RoomType != domain.RoomTypeFemale {
		t.Fatalf("expected female room preference, got %+v", svc.gotIn.Preferences)
	}
	if !svc.gotIn.Preferences.AvoidFlexibleRooms {
		t.Fatal("expected avoid_flexible_rooms to pass through")
	}
}
