package app

import (
	"encoding/json"
	"net/http"

	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/auth"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/game"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/session"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/internal/telemetry"
	"github.com/CBTCBTcbtcbtcbt/Integrated-Online-Boardgame-Platform/logging"
)

type diagnosticsPayload struct {
	Counters telemetry.Snapshot  `json:"counters"`
	Logging  logging.RouterStats `json:"logging"`
}

type loginRequest struct {
	Account     string `json:"account"`
	DisplayName string `json:"display_name,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *App) routes(ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/diagnostics", a.handleDiagnostics)
	mux.HandleFunc("/available_games", a.handleAvailableGames)
	mux.HandleFunc("/rooms", a.handleRooms)
	mux.Handle("/ws", ws)
	if store, ok := a.resolver.(*auth.MemoryStore); ok {
		mux.HandleFunc("/login", a.handleLogin(store))
	}
	a.cfg.Observability.Register(mux)
	return mux
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (a *App) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, diagnosticsPayload{
		Counters: a.counters.SnapshotCounters(),
		Logging:  a.router.Stats(),
	})
}

func (a *App) handleAvailableGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string][]game.Info{"games": a.registry.Variants().List()})
}

func (a *App) handleRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string][]session.RoomInfo{"rooms": a.registry.List()})
}

func (a *App) handleLogin(store *auth.MemoryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
			http.Error(w, "account required", http.StatusBadRequest)
			return
		}
		display := req.DisplayName
		if display == "" {
			display = req.Account
		}
		token := store.Grant(auth.Identity{Account: req.Account, DisplayName: display})
		writeJSON(w, loginResponse{Token: token})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failure", http.StatusInternalServerError)
	}
}
