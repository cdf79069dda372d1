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

type GearHandler struct {
	st     *store.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewGearHandler(st *store.Store, hub *ws.Hub, logger *slog.Logger) *GearHandler {
	return &GearHandler{st: st, hub: hub, logger: logger}
}

func (h *GearHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Gear())
}

type gearRequest struct {
	Name      string `json:"name"`
	Group     string `json:"group"`
	Mandatory bool   `json:"mandatory"`
}

func (h *GearHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req gearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	group := model.GearGroup(req.Group)
	if group != model.GearShared && group != model.GearIndividual {
		writeError(w, http.StatusBadRequest, "group must be shared or individual")
		return
	}

	item := model.GearItem{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Group:     group,
		Mandatory: req.Mandatory,
		Custom:    true,
	}
	if err := h.st.AddGear(item); err != nil {
		h.logger.Error("add gear", "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("gear", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *GearHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.RemoveGear(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("gear", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Claim handles owner transitions on a shared gear item. A rejected
// toggle is a successful response with applied=false, never an error.
func (h *GearHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requested, err := decodeClaimRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner")
		return
	}

	applied, err := h.st.ClaimGear(actorID(r), id, requested)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if applied {
		h.hub.Broadcast(ws.NewMessage("gear", "claimed", id, map[string]any{"actor": actorID(r)}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

func (h *GearHandler) TogglePacked(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.TogglePacked(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("gear", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
