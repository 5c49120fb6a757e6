package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/conflict"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

// Reserver is the minimal interface needed to start a reservation hold.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (app.ReserveResult, error)
}

// HandleReserve returns an HTTP handler for creating reservation holds.
func HandleReserve(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req reserveRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		in, errCode, errMsg := req.toInput()
		if errCode != "" {
			writeError(w, http.StatusBadRequest, errCode, errMsg)
			return
		}

		res, err := svc.Reserve(r.Context(), in)
		if err != nil {
			var conflictErr *app.ConflictError
			switch {
			case errors.As(err, &conflictErr):
				writeJSON(w, http.StatusConflict, toConflictResponse(conflictErr))
			case errors.Is(err, domain.ErrInvalidDateRange):
				writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
			case errors.Is(err, domain.ErrInvalidBeds):
				writeError(w, http.StatusBadRequest, codeInvalidBeds, err.Error())
			case errors.Is(err, domain.ErrInsufficientCapacity):
				writeError(w, http.StatusConflict, codeInsufficientCapacity, err.Error())
			case errors.Is(err, domain.ErrLockContention):
				writeError(w, http.StatusServiceUnavailable, codeLockContention, "rooms are busy, retry shortly")
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, reserveResponse{
			HoldID:      res.Hold.ID,
			Status:      string(res.Hold.Status),
			ExpiresAt:   res.Hold.ExpiresAt,
			Allocations: res.Allocations,
			Warnings:    res.Warnings,
			Attempts:    res.Attempts,
		})
	}
}

type reserveRequest struct {
	CheckIn     string                     `json:"check_in"`
	CheckOut    string                     `json:"check_out"`
	Beds        int                        `json:"beds"`
	Allocations []allocator.RoomAllocation `json:"allocations"`
	GuestEmail  string                     `json:"guest_email"`
	Strategy    string                     `json:"strategy"`
	Preferences reservePreferences         `json:"preferences"`
}

type reservePreferences struct {
	RoomType            string `json:"room_type"`
	AvoidFlexibleRooms  bool   `json:"avoid_flexible_rooms"`
	PreferSeparateRooms bool   `json:"prefer_separate_rooms"`
}

func (r reserveRequest) toInput() (app.ReserveInput, string, string) {
	checkIn, err := time.Parse(dateLayout, r.CheckIn)
	if err != nil {
		return app.ReserveInput{}, codeInvalidDateRange, "check_in must be YYYY-MM-DD"
	}
	checkOut, err := time.Parse(dateLayout, r.CheckOut)
	if err != nil {
		return app.ReserveInput{}, codeInvalidDateRange, "check_out must be YYYY-MM-DD"
	}
	if r.Beds <= 0 && len(r.Allocations) == 0 {
		return app.ReserveInput{}, codeInvalidBeds, "beds or allocations required"
	}

	in := app.ReserveInput{
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Beds:        r.Beds,
		Allocations: r.Allocations,
		GuestEmail:  r.GuestEmail,
		Strategy:    allocator.Strategy(r.Strategy),
	}
	if r.Preferences.RoomType != "" {
		rt := domain.RoomType(r.Preferences.RoomType)
		if rt != domain.RoomTypeMixed && rt != domain.RoomTypeFemale {
			return app.ReserveInput{}, codeInvalidRequestBody, "room_type must be mixed or female"
		}
		in.Preferences.RoomType = &rt
	}
	in.Preferences.AvoidFlexibleRooms = r.Preferences.AvoidFlexibleRooms
	in.Preferences.PreferSeparateRooms = r.Preferences.PreferSeparateRooms
	return in, "", ""
}

type reserveResponse struct {
	HoldID      string                     `json:"hold_id"`
	Status      string                     `json:"status"`
	ExpiresAt   time.Time                  `json:"expires_at"`
	Allocations []allocator.RoomAllocation `json:"allocations"`
	Warnings    []string                   `json:"warnings,omitempty"`
	Attempts    int                        `json:"attempts"`
}

type conflictResponse struct {
	Error string                        `json:"error"`
	Code  string                        `json:"code"`
	Rooms map[string]roomReportResponse `json:"rooms"`
}

type roomReportResponse struct {
	CanProceed   bool                  `json:"can_proceed"`
	Conflicts    []conflictDetail      `json:"conflicts"`
	Alternatives []alternativeResponse `json:"alternatives,omitempty"`
}

type conflictDetail struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	RoomID   string `json:"room_id,omitempty"`
	Date     string `json:"date,omitempty"`
	Message  string `json:"message"`
}

type alternativeResponse struct {
	Kind        string                     `json:"kind"`
	RoomID      string                     `json:"room_id,omitempty"`
	CheckIn     string                     `json:"check_in"`
	CheckOut    string                     `json:"check_out"`
	Allocations []allocator.RoomAllocation `json:"allocations,omitempty"`
	Score       float64                    `json:"score"`
}

func toConflictResponse(err *app.ConflictError) conflictResponse {
	resp := conflictResponse{
		Error: err.Error(),
		Code:  codeReservationConflict,
		Rooms: make(map[string]roomReportResponse, len(err.Reports)),
	}
	for roomID, report := range err.Reports {
		resp.Rooms[roomID] = toRoomReport(report)
	}
	return resp
}

func toRoomReport(report conflict.Report) roomReportResponse {
	out := roomReportResponse{CanProceed: report.CanProceed}
	for _, c := range report.Conflicts {
		detail := conflictDetail{
			Type:     string(c.Type),
			Severity: string(c.Severity),
			RoomID:   c.RoomID,
			Message:  c.Message,
		}
		if !c.Date.IsZero() {
			detail.Date = c.Date.Format(dateLayout)
		}
		out.Conflicts = append(out.Conflicts, detail)
	}
	for _, alt := range report.Alternatives {
		out.Alternatives = append(out.Alternatives, alternativeResponse{
			Kind:        string(alt.Kind),
			RoomID:      alt.RoomID,
			CheckIn:     alt.CheckIn.Format(dateLayout),
			CheckOut:    alt.CheckOut.Format(dateLayout),
			Allocations: alt.Allocations,
			Score:       alt.Score,
		})
	}
	return out
}
