package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

type stubHoldService struct {
	hold      domain.Hold
	err       error
	gotTarget domain.HoldStatus
}

func (s *stubHoldService) Advance(_ context.Context, _ string, to domain.HoldStatus) (domain.Hold, error) {
	s.gotTarget = to
	return s.hold, s.err
}

func (s *stubHoldService) Release(_ context.Context, _ string) (domain.Hold, error) {
	return s.hold, s.err
}

func (s *stubHoldService) Get(_ context.Context, _ string) (domain.Hold, error) {
	return s.hold, s.err
}

func TestHandleHolds(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	hold := domain.Hold{
		ID:          "hold-123",
		BedsPerRoom: map[string]int{domain.RoomMixto7: 2},
		CheckIn:     now,
		CheckOut:    now.AddDate(0, 0, 4),
		GuestEmail:  "ana@example.org",
		Status:      domain.HoldStatusConfirmed,
		ExpiresAt:   now.Add(15 * time.Minute),
	}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
		expectedTarget domain.HoldStatus
	}{
		{
			name:           "get hold",
			method:         http.MethodGet,
			path:           "/holds/hold-123",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"id":"hold-123"`,
		},
		{
			name:           "confirm without body defaults to confirmed",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			expectedStatus: http.StatusOK,
			expectedSubstr: `"status":"confirmed"`,
			expectedTarget: domain.HoldStatusConfirmed,
		},
		{
			name:           "advance to paid",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			body:           `{"status":"paid"}`,
			expectedStatus: http.StatusOK,
			expectedTarget: domain.HoldStatusPaid,
		},
		{
			name:           "unknown target status",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			body:           `{"status":"archived"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "release",
			method:         http.MethodPost,
			path:           "/holds/hold-123/release",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "confirm with GET",
			method:         http.MethodGet,
			path:           "/holds/hold-123/confirm",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "unknown action",
			method:         http.MethodPost,
			path:           "/holds/hold-123/extend",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing id",
			method:         http.MethodPost,
			path:           "/holds//confirm",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "not found",
			method:         http.MethodPost,
			path:           "/holds/nope/confirm",
			serviceErr:     domain.ErrHoldNotFound,
			expectedStatus: http.StatusNotFound,
			expectedSubstr: codeHoldNotFound,
		},
		{
			name:           "expired",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			serviceErr:     domain.ErrHoldExpired,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeHoldExpired,
		},
		{
			name:           "released",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			serviceErr:     domain.ErrHoldReleased,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeHoldReleased,
		},
		{
			name:           "status regression",
			method:         http.MethodPost,
			path:           "/holds/hold-123/confirm",
			serviceErr:     domain.ErrStatusRegression,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeHoldStatusRegression,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubHoldService{hold: hold, err: tt.serviceErr}
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()

			HandleHolds(svc, svc).ServeHTTP(rec, req)

			res := rec.Result()
			if res.StatusCode != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, res.StatusCode, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
			if tt.expectedTarget != "" && svc.gotTarget != tt.expectedTarget {
				t.Fatalf("expected target status %q, got %q", tt.expectedTarget, svc.gotTarget)
			}
		})
	}
}

func TestParseHoldPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path   string
		id     string
		action string
		ok     bool
	}{
		{"/holds/abc", "abc", "", true},
		{"/holds/abc/confirm", "abc", "confirm", true},
		{"/holds/abc/release", "abc", "release", true},
		{"/holds/abc/other", "", "", false},
		{"/holds/", "", "", false},
		{"/bookings/abc", "", "", false},
		{"/holds/abc/confirm/extra", "", "", false},
	}
	for _, c := range cases {
		id, action, ok := parseHoldPath(c.path)
		if id != c.id || action != c.action || ok != c.ok {
			t.Fatalf("parseHoldPath(%q) = (%q, %q, %v), want (%q, %q, %v)", c.path, id, action, ok, c.id, c.action, c.ok)
		}
	}
}
