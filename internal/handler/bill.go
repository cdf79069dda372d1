package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fernhollow/tripsync/internal/ledger"
	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

type BillHandler struct {
	st     *store.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewBillHandler(st *store.Store, hub *ws.Hub, logger *slog.Logger) *BillHandler {
	return &BillHandler{st: st, hub: hub, logger: logger}
}

func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Bills())
}

type billRequest struct {
	PayerID string `json:"payerId"`
	Label   string `json:"label"`
	Amount  int64  `json:"amount"`
	Date    string `json:"date"`
}

func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Label = strings.TrimSpace(req.Label)
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if _, err := h.st.Member(req.PayerID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown payer")
		return
	}

	b := model.Bill{
		ID:      uuid.NewString(),
		PayerID: req.PayerID,
		Label:   req.Label,
		Amount:  req.Amount,
		Date:    req.Date,
	}
	if err := h.st.AddBill(b); err != nil {
		h.logger.Error("add bill", "error", err)
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("bill", "created", b.ID, nil))
	writeJSON(w, http.StatusCreated, b)
}

func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.st.RemoveBill(id); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("bill", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Summary computes the headcount-weighted split across the current
// roster. Payments from departed members still count toward the total.
func (h *BillHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.Summarize(h.st.Members(), h.st.Bills()))
}
