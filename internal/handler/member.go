package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

type MemberHandler struct {
	st     *store.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewMemberHandler(st *store.Store, hub *ws.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{st: st, hub: hub, logger: logger}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Members())
}

// memberRequest carries the headcount as a pointer: an absent field
// falls back to a default, while an explicit 0 is stored and excludes
// the member from the bill split.
type memberRequest struct {
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Headcount *int   `json:"headcount"`
}

// Create adds a member to the roster. Joining is open; anyone at the
// campsite can add themself.
func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	headcount := 1
	if req.Headcount != nil {
		if *req.Headcount < 0 {
			writeError(w, http.StatusBadRequest, "headcount must not be negative")
			return
		}
		headcount = *req.Headcount
	}

	m := model.Member{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Avatar:    req.Avatar,
		Headcount: headcount,
	}
	if err := h.st.UpsertMember(m); err != nil {
		h.logger.Error("add member", "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "created", m.ID, nil))
	writeJSON(w, http.StatusCreated, m)
}

// Update edits a roster record. Members edit themselves; editing anyone
// else takes the administrator.
func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.actorMayEdit(w, r, id) {
		return
	}

	existing, err := h.st.Member(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	existing.Name = req.Name
	existing.Avatar = req.Avatar
	if req.Headcount != nil {
		if *req.Headcount < 0 {
			writeError(w, http.StatusBadRequest, "headcount must not be negative")
			return
		}
		existing.Headcount = *req.Headcount
	}
	if err := h.st.UpsertMember(existing); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "updated", id, nil))
	writeJSON(w, http.StatusOK, existing)
}

// Delete removes a member. This is the user-confirmed destructive path:
// the member's claims across all collections are released, never left
// dangling. Administrator only.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, err := h.st.Member(actorID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown actor")
		return
	}
	if !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "administrator required")
		return
	}

	if err := h.st.RemoveMember(id); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("member", "removed", id, nil))
	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", "", nil))
	h.hub.Broadcast(ws.NewMessage("gear", "updated", "", nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemberHandler) actorMayEdit(w http.ResponseWriter, r *http.Request, targetID string) bool {
	actor, err := h.st.Member(actorID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown actor")
		return false
	}
	if actor.ID != targetID && !actor.IsAdmin {
		writeError(w, http.StatusForbidden, "administrator required")
		return false
	}
	return true
}
