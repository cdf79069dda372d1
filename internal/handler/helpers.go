package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
)

// actorHeader names the acting member on every mutating request. The
// companion trusts the campsite LAN; the header is identification, not
// authentication.
const actorHeader = "X-Member-ID"

func actorID(r *http.Request) string {
	return r.Header.Get(actorHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUnknownMember):
		writeError(w, http.StatusBadRequest, "unknown member")
	case errors.Is(err, store.ErrNotAdmin):
		writeError(w, http.StatusForbidden, "administrator required")
	case errors.Is(err, store.ErrLastMember):
		writeError(w, http.StatusConflict, "cannot remove the last member")
	case errors.Is(err, store.ErrReservedAdmin):
		writeError(w, http.StatusConflict, "cannot remove the reserved administrator")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// claimRequest distinguishes three shapes: an absent owner field is a
// toggle, an explicit null is a forced release, and an owner object is
// a direct assignment. The latter two are administrator moves.
type claimRequest struct {
	Owner json.RawMessage `json:"owner"`
}

func (req claimRequest) requested() (*model.Claim, error) {
	if len(req.Owner) == 0 {
		return nil, nil
	}
	if string(req.Owner) == "null" {
		return &model.Claim{}, nil
	}
	var c model.Claim
	if err := json.Unmarshal(req.Owner, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeClaimRequest(r *http.Request) (*model.Claim, error) {
	var req claimRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
	}
	return req.requested()
}
