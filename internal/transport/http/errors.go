package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidDateRange     = "invalid_date_range"
	codeInvalidBeds          = "invalid_beds"
	codeRoomNotFound         = "room_not_found"
	codeBookingNotFound      = "booking_not_found"
	codeInsufficientCapacity = "insufficient_capacity"
	codeReservationConflict  = "reservation_conflict"
	codeConversionConflict   = "conversion_conflict"
	codeLockContention       = "lock_contention"
	codeHoldNotFound         = "hold_not_found"
	codeHoldExpired          = "hold_expired"
	codeHoldReleased         = "hold_released"
	codeHoldStatusRegression = "hold_status_regression"
	codeForbidden            = "forbidden"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
