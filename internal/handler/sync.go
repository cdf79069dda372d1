package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/fernhollow/tripsync/internal/archive"
	"github.com/fernhollow/tripsync/internal/localcache"
	"github.com/fernhollow/tripsync/internal/persist"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
	"github.com/fernhollow/tripsync/internal/wire"
)

// RemoteClient is the full remote surface the sync endpoints need. The
// persister and loader only see the RemoteStore subset.
type RemoteClient interface {
	persist.RemoteStore
	Archive(ctx context.Context, name string) error
	Check(ctx context.Context, url string) error
}

// ClientFactory builds a remote client for a store URL. Swapped for a
// fake in tests.
type ClientFactory func(url string) RemoteClient

type SyncHandler struct {
	st        *store.Store
	hub       *ws.Hub
	persister *persist.Persister
	loader    *persist.Loader
	settings  *localcache.SettingsStore
	archives  *archive.Manager
	newClient ClientFactory
	logger    *slog.Logger

	mu     sync.Mutex
	client RemoteClient
}

func NewSyncHandler(st *store.Store, hub *ws.Hub, persister *persist.Persister, loader *persist.Loader, settings *localcache.SettingsStore, archives *archive.Manager, newClient ClientFactory, client RemoteClient, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		st:        st,
		hub:       hub,
		persister: persister,
		loader:    loader,
		settings:  settings,
		archives:  archives,
		newClient: newClient,
		client:    client,
		logger:    logger,
	}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.persister.Status())
}

// Flush pushes any pending write immediately instead of waiting out the
// quiet period.
func (h *SyncHandler) Flush(w http.ResponseWriter, r *http.Request) {
	h.persister.FlushNow()
	writeJSON(w, http.StatusOK, h.persister.Status())
}

// Reload refetches the remote store and replaces the local snapshot.
func (h *SyncHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.loader.Load(r.Context()); err != nil {
		h.logger.Error("reload", "error", err)
		h.persister.ReportSyncError(err)
		writeError(w, http.StatusBadGateway, "reload failed: "+err.Error())
		return
	}
	h.hub.Broadcast(ws.SnapshotMessage())
	writeJSON(w, http.StatusOK, h.persister.Status())
}

type settingsResponse struct {
	RemoteURL            string `json:"remoteUrl"`
	HasMealgenCredential bool   `json:"hasMealgenCredential"`
}

// GetSettings reports the configuration. The sealed credential itself is
// never returned, only whether one is stored.
func (h *SyncHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settingsResponse())
}

func (h *SyncHandler) settingsResponse() settingsResponse {
	resp := settingsResponse{}
	if url, err := h.settings.Get(localcache.KeyRemoteURL); err == nil {
		resp.RemoteURL = url
	}
	if _, err := h.settings.GetSealed(localcache.KeyMealgenCredential); err == nil {
		resp.HasMealgenCredential = true
	}
	return resp
}

type settingsRequest struct {
	RemoteURL         *string `json:"remoteUrl"`
	MealgenCredential *string `json:"mealgenCredential"`
}

// UpdateSettings persists the remote URL and collaborator credential,
// rebuilds the remote client, and reloads from the new store. Fields
// left out of the request keep their stored value.
func (h *SyncHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.MealgenCredential != nil {
		cred := strings.TrimSpace(*req.MealgenCredential)
		if cred == "" {
			if err := h.settings.Delete(localcache.KeyMealgenCredential); err != nil {
				writeError(w, http.StatusInternalServerError, "saving settings failed")
				return
			}
		} else if err := h.settings.SetSealed(localcache.KeyMealgenCredential, cred); err != nil {
			writeError(w, http.StatusInternalServerError, "saving settings failed")
			return
		}
	}

	if req.RemoteURL != nil {
		url := strings.TrimSpace(*req.RemoteURL)
		if url == "" {
			if err := h.settings.Delete(localcache.KeyRemoteURL); err != nil {
				writeError(w, http.StatusInternalServerError, "saving settings failed")
				return
			}
		} else if err := h.settings.Set(localcache.KeyRemoteURL, url); err != nil {
			writeError(w, http.StatusInternalServerError, "saving settings failed")
			return
		}
		h.swapRemote(url)

		if err := h.loader.Load(r.Context()); err != nil {
			h.logger.Error("load after settings change", "error", err)
			h.persister.ReportSyncError(err)
		}
		h.hub.Broadcast(ws.SnapshotMessage())
	}

	writeJSON(w, http.StatusOK, h.settingsResponse())
}

// swapRemote replaces the active client on both sync paths. An empty
// URL disables remote persistence entirely.
func (h *SyncHandler) swapRemote(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if url == "" {
		h.client = nil
		h.persister.UpdateRemote(nil)
		h.loader.UpdateRemote(nil)
		return
	}
	h.client = h.newClient(url)
	h.persister.UpdateRemote(h.client)
	h.loader.UpdateRemote(h.client)
}

func (h *SyncHandler) currentClient() RemoteClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

type testRequest struct {
	URL string `json:"url"`
}

// TestConnection probes a candidate store URL without adopting it.
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	if err := h.newClient(req.URL).Check(r.Context(), req.URL); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type archiveRequest struct {
	Name string `json:"name"`
}

// ArchiveTrip snapshots the current trip under a name, asks the remote
// store to move its live rows aside, then reloads. The remote comes back
// empty so the reload installs a fresh default trip.
func (h *SyncHandler) ArchiveTrip(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	client := h.currentClient()
	if client == nil {
		writeError(w, http.StatusConflict, "no remote store configured")
		return
	}

	// Flush pending edits so the archive captures them.
	h.persister.FlushNow()

	resp := map[string]any{"archived": true}
	if h.archives.Enabled() {
		rows, err := wire.ToWireFormat(h.st.Snapshot())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "serializing trip failed")
			return
		}
		key, err := h.archives.Store(r.Context(), req.Name, rows)
		if err != nil {
			h.logger.Error("object archive", "error", err, "name", req.Name)
			writeError(w, http.StatusBadGateway, "archive upload failed")
			return
		}
		resp["objectKey"] = key
	}

	if err := client.Archive(r.Context(), req.Name); err != nil {
		h.logger.Error("remote archive", "error", err, "name", req.Name)
		writeError(w, http.StatusBadGateway, "remote archive failed: "+err.Error())
		return
	}

	if err := h.loader.Load(r.Context()); err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Error("reload after archive", "error", err)
		h.persister.ReportSyncError(err)
	}
	h.hub.Broadcast(ws.SnapshotMessage())
	writeJSON(w, http.StatusOK, resp)
}
