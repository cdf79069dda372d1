package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fernhollow/tripsync/internal/linkage"
	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

type IngredientHandler struct {
	st     *store.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewIngredientHandler(st *store.Store, hub *ws.Hub, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{st: st, hub: hub, logger: logger}
}

func (h *IngredientHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Ingredients())
}

type ingredientRequest struct {
	Name     *string `json:"name"`
	Quantity *string `json:"quantity"`
}

func (h *IngredientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item := model.Ingredient{ID: uuid.NewString(), Name: name}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if err := h.st.AddIngredients(item); err != nil {
		h.logger.Error("add ingredient", "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("ingredient", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

// Update applies a partial edit. Name and quantity changes flow through
// the linkage synchronizer onto any checklist entry derived from this
// ingredient.
func (h *IngredientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ingredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		req.Name = &trimmed
	}

	err := h.st.UpdateIngredient(id, linkage.IngredientChange{
		Name:     req.Name,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *IngredientHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	requested, err := decodeClaimRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner")
		return
	}

	applied, err := h.st.ClaimIngredient(actorID(r), id, requested)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if applied {
		h.hub.Broadcast(ws.NewMessage("ingredient", "claimed", id, map[string]any{"actor": actorID(r)}))
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

// ToggleSelected flips membership in the dish-planning pool. Linked
// ingredients stay out of the pool; the toggle quietly does nothing.
func (h *IngredientHandler) ToggleSelected(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.ToggleSelected(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes the ingredient. A checklist entry derived from it
// survives as an unlinked row.
func (h *IngredientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.RemoveIngredient(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("ingredient", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
