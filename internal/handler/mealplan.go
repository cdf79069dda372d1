package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fernhollow/tripsync/internal/mealgen"
	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

// GeneratorProvider builds a dish-suggestion client from the current
// settings. It fails when no collaborator credential is configured.
type GeneratorProvider func() (mealgen.Generator, error)

type MealPlanHandler struct {
	st       *store.Store
	hub      *ws.Hub
	provider GeneratorProvider
	logger   *slog.Logger
}

func NewMealPlanHandler(st *store.Store, hub *ws.Hub, provider GeneratorProvider, logger *slog.Logger) *MealPlanHandler {
	return &MealPlanHandler{st: st, hub: hub, provider: provider, logger: logger}
}

func (h *MealPlanHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.MealPlans())
}

type generateRequest struct {
	DayLabel string         `json:"dayLabel"`
	Slot     model.MealSlot `json:"slot"`
}

// Generate asks the collaborator for dish suggestions built from the
// currently selected pantry, then materializes them into meal plans.
// Selected ingredients that match a suggested shopping line get linked
// into the new checklist instead of duplicated.
func (h *MealPlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.DayLabel) == "" {
		writeError(w, http.StatusBadRequest, "dayLabel is required")
		return
	}
	switch req.Slot {
	case model.MealBreakfast, model.MealLunch, model.MealDinner, model.MealSnack:
	default:
		writeError(w, http.StatusBadRequest, "invalid meal slot")
		return
	}

	gen, err := h.provider()
	if err != nil {
		writeError(w, http.StatusConflict, "dish suggestions are not configured")
		return
	}

	var pool []string
	for _, ing := range h.st.Ingredients() {
		if ing.Selected && !ing.Linked() {
			pool = append(pool, ing.Name)
		}
	}
	adults, children := headcounts(h.st.Members())

	dishes, err := gen.SuggestDishes(r.Context(), mealgen.Request{
		Ingredients: pool,
		Meal:        req.Slot,
		Adults:      adults,
		Children:    children,
		TripTitle:   h.st.Trip().Title,
	})
	if err != nil {
		h.logger.Error("dish suggestion failed", "error", err)
		writeError(w, http.StatusBadGateway, "dish suggestion failed")
		return
	}

	ids, err := h.st.MaterializeDishes(dishes, req.DayLabel, req.Slot)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	for _, id := range ids {
		h.hub.Broadcast(ws.NewMessage("mealPlan", "created", id, nil))
	}
	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", "", nil))
	writeJSON(w, http.StatusCreated, map[string]any{"planIds": ids})
}

// headcounts splits the roster into adults and extra heads. Each member
// counts as one adult; headcount above one counts as accompanying
// children for portion sizing.
func headcounts(members []model.Member) (adults, children int) {
	for _, m := range members {
		adults++
		if m.Headcount > 1 {
			children += m.Headcount - 1
		}
	}
	return adults, children
}

type planInfoRequest struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

func (h *MealPlanHandler) UpdateInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req planInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := h.st.UpdatePlanInfo(id, func(plan *model.MealPlan) {
		if req.Name != nil {
			plan.Name = *req.Name
		}
		if req.Notes != nil {
			plan.Notes = *req.Notes
		}
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a plan. Ingredients linked into its checklist survive
// with their link released.
func (h *MealPlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.RemoveMealPlan(id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type entryRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

func (h *MealPlanHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	entry := model.CheckEntry{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Quantity: req.Quantity,
	}
	if err := h.st.AddEntry(planID, entry); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", planID, nil))
	writeJSON(w, http.StatusCreated, entry)
}

// ClaimEntry handles owner transitions on a checklist entry. For linked
// entries the ingredient is the authority: the transition resolves
// against its owner and the outcome propagates back across the link.
func (h *MealPlanHandler) ClaimEntry(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	entryID := r.PathValue("entryId")
	requested, err := decodeClaimRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid owner")
		return
	}

	applied, err := h.st.ClaimEntry(actorID(r), planID, entryID, requested)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if applied {
		h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", planID, nil))
		h.hub.Broadcast(ws.NewMessage("ingredient", "updated", "", nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied})
}

type entryDoneRequest struct {
	Done bool `json:"done"`
}

func (h *MealPlanHandler) SetEntryDone(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	entryID := r.PathValue("entryId")
	var req entryDoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.st.SetEntryDone(planID, entryID, req.Done); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", planID, nil))
	w.WriteHeader(http.StatusNoContent)
}

type entryQuantityRequest struct {
	Quantity string `json:"quantity"`
}

func (h *MealPlanHandler) SetEntryQuantity(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	entryID := r.PathValue("entryId")
	var req entryQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.st.SetEntryQuantity(planID, entryID, req.Quantity); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", planID, nil))
	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", "", nil))
	w.WriteHeader(http.StatusNoContent)
}

// RemoveEntry deletes one checklist row. A linked source ingredient
// survives with its link released.
func (h *MealPlanHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	entryID := r.PathValue("entryId")
	if err := h.st.RemoveEntry(planID, entryID); err != nil {
		writeStoreError(w, err)
		return
	}
	h.hub.Broadcast(ws.NewMessage("mealPlan", "updated", planID, nil))
	h.hub.Broadcast(ws.NewMessage("ingredient", "updated", "", nil))
	w.WriteHeader(http.StatusNoContent)
}
