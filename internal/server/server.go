package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fernhollow/tripsync/internal/archive"
	"github.com/fernhollow/tripsync/internal/handler"
	"github.com/fernhollow/tripsync/internal/localcache"
	"github.com/fernhollow/tripsync/internal/mealgen"
	"github.com/fernhollow/tripsync/internal/middleware"
	"github.com/fernhollow/tripsync/internal/persist"
	"github.com/fernhollow/tripsync/internal/remote"
	"github.com/fernhollow/tripsync/internal/store"
	ws "github.com/fernhollow/tripsync/internal/websocket"
)

// Config carries the wiring the server cannot read from the settings
// table: process-level configuration from the environment.
type Config struct {
	RemoteURL  string
	MealgenURL string
	Archive    archive.S3Config
}

type Server struct {
	db          *sql.DB
	st          *store.Store
	hub         *ws.Hub
	persister   *persist.Persister
	loader      *persist.Loader
	gearH       *handler.GearHandler
	ingredientH *handler.IngredientHandler
	mealPlanH   *handler.MealPlanHandler
	memberH     *handler.MemberHandler
	billH       *handler.BillHandler
	tripH       *handler.TripHandler
	syncH       *handler.SyncHandler
	logger      *slog.Logger
}

func New(db *sql.DB, st *store.Store, settings *localcache.SettingsStore, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	cache := localcache.NewRowCache(db)

	newClient := func(url string) handler.RemoteClient {
		return remote.NewClient(remote.Config{URL: url})
	}

	// A URL saved through the settings UI wins over the environment.
	remoteURL := cfg.RemoteURL
	if url, err := settings.Get(localcache.KeyRemoteURL); err == nil && url != "" {
		remoteURL = url
	}
	var client handler.RemoteClient
	if remoteURL != "" {
		client = newClient(remoteURL)
	}

	persister := persist.NewPersister(st, client, cache, persist.DefaultQuietPeriod, logger.With("component", "persist"), func(status persist.Status) {
		hub.Broadcast(ws.SyncStatusMessage(status))
	})
	st.SetOnMutate(persister.NotifyMutation)
	loader := persist.NewLoader(st, client, cache, logger.With("component", "loader"))

	archives := archive.NewManager(cfg.Archive)

	// Dish suggestions stay off until a credential is stored.
	provider := func() (mealgen.Generator, error) {
		cred, err := settings.GetSealed(localcache.KeyMealgenCredential)
		if err != nil {
			return nil, err
		}
		return mealgen.NewClient(mealgen.Config{URL: cfg.MealgenURL, Credential: cred}), nil
	}

	return &Server{
		db:          db,
		st:          st,
		hub:         hub,
		persister:   persister,
		loader:      loader,
		gearH:       handler.NewGearHandler(st, hub, logger.With("component", "gear")),
		ingredientH: handler.NewIngredientHandler(st, hub, logger.With("component", "ingredient")),
		mealPlanH:   handler.NewMealPlanHandler(st, hub, provider, logger.With("component", "mealplan")),
		memberH:     handler.NewMemberHandler(st, hub, logger.With("component", "member")),
		billH:       handler.NewBillHandler(st, hub, logger.With("component", "bill")),
		tripH:       handler.NewTripHandler(st, hub, logger.With("component", "trip")),
		syncH:       handler.NewSyncHandler(st, hub, persister, loader, settings, archives, newClient, client, logger.With("component", "sync")),
		logger:      logger,
	}
}

// Persister returns the persister for shutdown flushing.
func (s *Server) Persister() *persist.Persister {
	return s.persister
}

// Loader returns the loader for the startup fetch.
func (s *Server) Loader() *persist.Loader {
	return s.loader
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Roster
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("PUT /api/members/{id}", s.memberH.Update)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Gear checklist
	mux.HandleFunc("GET /api/gear", s.gearH.List)
	mux.HandleFunc("POST /api/gear", s.gearH.Create)
	mux.HandleFunc("DELETE /api/gear/{id}", s.gearH.Delete)
	mux.HandleFunc("POST /api/gear/{id}/claim", s.gearH.Claim)
	mux.HandleFunc("POST /api/gear/{id}/packed", s.gearH.TogglePacked)

	// Shopping list
	mux.HandleFunc("GET /api/ingredients", s.ingredientH.List)
	mux.HandleFunc("POST /api/ingredients", s.ingredientH.Create)
	mux.HandleFunc("PUT /api/ingredients/{id}", s.ingredientH.Update)
	mux.HandleFunc("DELETE /api/ingredients/{id}", s.ingredientH.Delete)
	mux.HandleFunc("POST /api/ingredients/{id}/claim", s.ingredientH.Claim)
	mux.HandleFunc("POST /api/ingredients/{id}/selected", s.ingredientH.ToggleSelected)

	// Meal plans
	mux.HandleFunc("GET /api/meal-plans", s.mealPlanH.List)
	mux.HandleFunc("POST /api/meal-plans/generate", s.mealPlanH.Generate)
	mux.HandleFunc("PUT /api/meal-plans/{id}", s.mealPlanH.UpdateInfo)
	mux.HandleFunc("DELETE /api/meal-plans/{id}", s.mealPlanH.Delete)
	mux.HandleFunc("POST /api/meal-plans/{id}/entries", s.mealPlanH.AddEntry)
	mux.HandleFunc("DELETE /api/meal-plans/{id}/entries/{entryId}", s.mealPlanH.RemoveEntry)
	mux.HandleFunc("POST /api/meal-plans/{id}/entries/{entryId}/claim", s.mealPlanH.ClaimEntry)
	mux.HandleFunc("PUT /api/meal-plans/{id}/entries/{entryId}/done", s.mealPlanH.SetEntryDone)
	mux.HandleFunc("PUT /api/meal-plans/{id}/entries/{entryId}/quantity", s.mealPlanH.SetEntryQuantity)

	// Bills
	mux.HandleFunc("GET /api/bills", s.billH.List)
	mux.HandleFunc("POST /api/bills", s.billH.Create)
	mux.HandleFunc("DELETE /api/bills/{id}", s.billH.Delete)
	mux.HandleFunc("GET /api/bills/summary", s.billH.Summary)

	// Trip info and completion checks
	mux.HandleFunc("GET /api/trip", s.tripH.Get)
	mux.HandleFunc("PUT /api/trip", s.tripH.Update)
	mux.HandleFunc("GET /api/checks/{list}", s.tripH.GetChecks)
	mux.HandleFunc("PUT /api/checks/{list}", s.tripH.SetCheck)

	// Sync and settings
	mux.HandleFunc("GET /api/sync/status", s.syncH.Status)
	mux.HandleFunc("POST /api/sync/flush", s.syncH.Flush)
	mux.HandleFunc("POST /api/sync/reload", s.syncH.Reload)
	mux.HandleFunc("POST /api/sync/archive", s.syncH.ArchiveTrip)
	mux.HandleFunc("GET /api/settings", s.syncH.GetSettings)
	mux.HandleFunc("PUT /api/settings", s.syncH.UpdateSettings)
	mux.HandleFunc("POST /api/settings/test", s.syncH.TestConnection)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
