package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
)

// HoldLifecycle is the minimal interface behind the hold endpoints.
type HoldLifecycle interface {
	Advance(ctx context.Context, holdID string, to domain.HoldStatus) (domain.Hold, error)
	Release(ctx context.Context, holdID string) (domain.Hold, error)
}

// HoldReader looks up a single hold.
type HoldReader interface {
	Get(ctx context.Context, holdID string) (domain.Hold, error)
}

// HandleHolds routes /holds/{id}, /holds/{id}/confirm and
// /holds/{id}/release.
func HandleHolds(lifecycle HoldLifecycle, reader HoldReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		holdID, action, ok := parseHoldPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			hold, err := reader.Get(r.Context(), holdID)
			if err != nil {
				writeHoldError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toHoldResponse(hold))
		case "confirm":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			target, ok := parseConfirmBody(r)
			if !ok {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "status must be hold, paid or confirmed")
				return
			}
			hold, err := lifecycle.Advance(r.Context(), holdID, target)
			if err != nil {
				writeHoldError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toHoldResponse(hold))
		case "release":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			hold, err := lifecycle.Release(r.Context(), holdID)
			if err != nil {
				writeHoldError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toHoldResponse(hold))
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// parseConfirmBody reads the optional target status. An empty body means
// confirmed; a named status is passed through so the store can enforce the
// monotonic ladder itself.
func parseConfirmBody(r *http.Request) (domain.HoldStatus, bool) {
	var body struct {
		Status string `json:"status"`
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.HoldStatusConfirmed, true
		}
		return "", false
	}
	if body.Status == "" {
		return domain.HoldStatusConfirmed, true
	}
	target := domain.HoldStatus(body.Status)
	if target.Rank() == 0 {
		return "", false
	}
	return target, true
}

func writeHoldError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrHoldReleased):
		writeError(w, http.StatusConflict, codeHoldReleased, err.Error())
	case errors.Is(err, domain.ErrStatusRegression):
		writeError(w, http.StatusConflict, codeHoldStatusRegression, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func parseHoldPath(path string) (holdID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != "holds" || parts[1] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[1], "", true
	}
	if parts[2] != "confirm" && parts[2] != "release" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type holdResponse struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	BedsPerRoom map[string]int `json:"beds_per_room"`
	CheckIn     string         `json:"check_in"`
	CheckOut    string         `json:"check_out"`
	GuestEmail  string         `json:"guest_email"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

func toHoldResponse(h domain.Hold) holdResponse {
	return holdResponse{
		ID:          h.ID,
		Status:      string(h.Status),
		BedsPerRoom: h.BedsPerRoom,
		CheckIn:     h.CheckIn.Format(dateLayout),
		CheckOut:    h.CheckOut.Format(dateLayout),
		GuestEmail:  h.GuestEmail,
		ExpiresAt:   h.ExpiresAt,
	}
}
