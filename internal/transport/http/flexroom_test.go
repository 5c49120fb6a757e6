package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/flexroom"
)

type stubConverter struct {
	err error
}

func (s *stubConverter) ConvertFlexRoom(_ context.Context, _ domain.RoomType, _ domain.DateRange) error {
	return s.err
}

func TestHandleConvertFlexRoom(t *testing.T) {
	t.Parallel()

	validBody := `{"to":"mixed","check_in":"2025-04-10","check_out":"2025-04-14"}`

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
			expectedStatus: http.StatusOK,
			expectedSubstr: `"converted":true`,
		},
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			body:           validBody,
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "bad target type",
			body:           `{"to":"dorm","check_in":"2025-04-10","check_out":"2025-04-14"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "inverted range",
			body:           `{"to":"mixed","check_in":"2025-04-14","check_out":"2025-04-10"}`,
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidDateRange,
		},
		{
			name: "conversion conflict lists bookings",
			body: validBody,
			serviceErr: &flexroom.ConversionConflictError{
				RoomID:     domain.RoomFlexible7,
				To:         domain.RoomTypeMixed,
				BookingIDs: []string{"b-1", "b-2"},
			},
			expectedStatus: http.StatusConflict,
			expectedSubstr: `"booking_ids":["b-1","b-2"]`,
		},
		{
			name:           "no flexible room",
			body:           validBody,
			serviceErr:     domain.ErrRoomNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			method := tt.method
			if method == "" {
				method = http.MethodPost
			}
			req := httptest.NewRequest(method, "/rooms/flexible/convert", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			HandleConvertFlexRoom(&stubConverter{err: tt.serviceErr}).ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}
