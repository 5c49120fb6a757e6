package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/flexroom"
)

// FlexRoomConverter validates an explicit relabel of the flexible room.
type FlexRoomConverter interface {
	ConvertFlexRoom(ctx context.Context, to domain.RoomType, window domain.DateRange) error
}

// HandleConvertFlexRoom returns an HTTP handler for explicit flexible-room
// conversions.
func HandleConvertFlexRoom(svc FlexRoomConverter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req convertFlexRoomRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		to := domain.RoomType(req.To)
		if to != domain.RoomTypeMixed && to != domain.RoomTypeFemale {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "to must be mixed or female")
			return
		}
		checkIn, err := time.Parse(dateLayout, req.CheckIn)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "check_in must be YYYY-MM-DD")
			return
		}
		checkOut, err := time.Parse(dateLayout, req.CheckOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, "check_out must be YYYY-MM-DD")
			return
		}
		window, err := domain.NewDateRange(checkIn, checkOut)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
			return
		}

		if err := svc.ConvertFlexRoom(r.Context(), to, window); err != nil {
			var conversionErr *flexroom.ConversionConflictError
			switch {
			case errors.As(err, &conversionErr):
				writeJSON(w, http.StatusConflict, convertConflictResponse{
					Error:      conversionErr.Error(),
					Code:       codeConversionConflict,
					BookingIDs: conversionErr.BookingIDs,
				})
			case errors.Is(err, domain.ErrRoomNotFound):
				writeError(w, http.StatusNotFound, codeRoomNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, convertFlexRoomResponse{Converted: true, To: req.To})
	}
}

type convertFlexRoomRequest struct {
	To       string `json:"to"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type convertFlexRoomResponse struct {
	Converted bool   `json:"converted"`
	To        string `json:"to"`
}

type convertConflictResponse struct {
	Error      string   `json:"error"`
	Code       string   `json:"code"`
	BookingIDs []string `json:"booking_ids"`
}
