package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernhollow/tripsync/internal/model"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

type TripHandler struct {
	st     *store.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewTripHandler(st *store.Store, hub *ws.Hub, logger *slog.Logger) *TripHandler {
	return &TripHandler{st: st, hub: hub, logger: logger}
}

func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.st.Trip())
}

func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	var info model.TripInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	info.Title = strings.TrimSpace(info.Title)
	if info.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.st.SetTrip(info); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("trip", "updated", "", nil))
	writeJSON(w, http.StatusOK, info)
}

// checkList maps the URL path segment to the store's checklist selector.
func checkList(w http.ResponseWriter, r *http.Request) (store.CheckList, bool) {
	switch r.PathValue("list") {
	case "departure":
		return store.CheckDeparture, true
	case "return":
		return store.CheckReturn, true
	default:
		writeError(w, http.StatusNotFound, "unknown checklist")
		return "", false
	}
}

func (h *TripHandler) GetChecks(w http.ResponseWriter, r *http.Request) {
	list, ok := checkList(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.st.Checks(list))
}

type checkRequest struct {
	Key     string `json:"key"`
	Checked bool   `json:"checked"`
}

func (h *TripHandler) SetCheck(w http.ResponseWriter, r *http.Request) {
	list, ok := checkList(w, r)
	if !ok {
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := h.st.SetCheck(list, req.Key, req.Checked); err != nil {
		writeStoreError(w, err)
		return
	}

	h.hub.Broadcast(ws.NewMessage("check", "updated", req.Key, map[string]any{"list": string(list)}))
	w.WriteHeader(http.StatusNoContent)
}
