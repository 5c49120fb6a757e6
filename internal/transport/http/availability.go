package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/allocator"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

const dateLayout = "2006-01-02"

// AvailabilityChecker is the minimal interface needed to answer an
// availability query.
type AvailabilityChecker interface {
	Check(ctx context.Context, in app.CheckAvailabilityInput) (app.CheckAvailabilityResult, error)
}

// HandleAvailability returns an HTTP handler for availability queries.
func HandleAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		in, errCode, errMsg := parseAvailabilityQuery(r)
		if errCode != "" {
			writeError(w, http.StatusBadRequest, errCode, errMsg)
			return
		}

		res, err := svc.Check(r.Context(), in)
		if err != nil {
			switch err {
			case domain.ErrInvalidDateRange:
				writeError(w, http.StatusBadRequest, codeInvalidDateRange, err.Error())
			case domain.ErrInvalidBeds:
				writeError(w, http.StatusBadRequest, codeInvalidBeds, err.Error())
			case domain.ErrBookingNotFound:
				writeError(w, http.StatusNotFound, codeBookingNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityResponse(in, res))
	}
}

func parseAvailabilityQuery(r *http.Request) (app.CheckAvailabilityInput, string, string) {
	q := r.URL.Query()

	checkIn, err := time.Parse(dateLayout, q.Get("check_in"))
	if err != nil {
		return app.CheckAvailabilityInput{}, codeInvalidDateRange, "check_in must be YYYY-MM-DD"
	}
	checkOut, err := time.Parse(dateLayout, q.Get("check_out"))
	if err != nil {
		return app.CheckAvailabilityInput{}, codeInvalidDateRange, "check_out must be YYYY-MM-DD"
	}

	in := app.CheckAvailabilityInput{
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		ExcludeBookingID: q.Get("exclude_booking"),
		Strategy:         allocator.Strategy(q.Get("strategy")),
	}
	if raw := q.Get("beds"); raw != "" {
		beds, err := strconv.Atoi(raw)
		if err != nil || beds <= 0 {
			return app.CheckAvailabilityInput{}, codeInvalidBeds, "beds must be a positive integer"
		}
		in.Beds = beds
	}
	if raw := q.Get("room_type"); raw != "" {
		rt := domain.RoomType(raw)
		if rt != domain.RoomTypeMixed && rt != domain.RoomTypeFemale {
			return app.CheckAvailabilityInput{}, codeInvalidRequestBody, "room_type must be mixed or female"
		}
		in.Preferences.RoomType = &rt
	}
	in.Preferences.AvoidFlexibleRooms = q.Get("avoid_flexible") == "true"
	return in, "", ""
}

type availabilityResponse struct {
	CheckIn        string                  `json:"check_in"`
	CheckOut       string                  `json:"check_out"`
	Available      bool                    `json:"available"`
	TotalAvailable int                     `json:"total_available"`
	Rooms          []roomStandingResponse  `json:"rooms"`
	Recommendation *recommendationResponse `json:"recommendation,omitempty"`
}

type roomStandingResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Capacity      int     `json:"capacity"`
	Type          string  `json:"type"`
	EffectiveType string  `json:"effective_type"`
	Flexible      bool    `json:"flexible"`
	Occupied      int     `json:"occupied"`
	Available     int     `json:"available"`
	WillConvert   bool    `json:"will_convert,omitempty"`
	DemandScore   float64 `json:"demand_score,omitempty"`
}

type recommendationResponse struct {
	Allocations   []allocator.RoomAllocation `json:"allocations"`
	Utilization   float64                    `json:"utilization"`
	Fragmentation float64                    `json:"fragmentation"`
	Warnings      []string                   `json:"warnings,omitempty"`
}

func toAvailabilityResponse(in app.CheckAvailabilityInput, res app.CheckAvailabilityResult) availabilityResponse {
	resp := availabilityResponse{
		CheckIn:        in.CheckIn.Format(dateLayout),
		CheckOut:       in.CheckOut.Format(dateLayout),
		Available:      res.Available,
		TotalAvailable: res.TotalAvailable,
	}
	for _, st := range res.Rooms {
		resp.Rooms = append(resp.Rooms, roomStandingResponse{
			ID:            st.Room.ID,
			Name:          st.Room.Name,
			Capacity:      st.Room.Capacity,
			Type:          string(st.Room.Type),
			EffectiveType: string(st.EffectiveType),
			Flexible:      st.Room.Flexible,
			Occupied:      st.Occupied,
			Available:     st.Available,
			WillConvert:   st.Conversion.WillConvert,
			DemandScore:   st.DemandScore,
		})
	}
	if res.Recommendation != nil {
		resp.Recommendation = &recommendationResponse{
			Allocations:   res.Recommendation.Allocations,
			Utilization:   res.Recommendation.Utilization,
			Fragmentation: res.Recommendation.Fragmentation,
			Warnings:      res.Recommendation.Warnings,
		}
	}
	return resp
}
