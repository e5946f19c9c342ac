package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"quiz-player-service/internal/app"
	"quiz-player-service/internal/domain"
)

// NewRouter assembles the HTTP surface: health, the read-only REST endpoints
// the summary screens use, and the WebSocket session endpoint.
func NewRouter(service *app.PlayerService, ws *WSHandler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/api/subjects", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, service.Subjects())
	})

	r.Get("/api/history", func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			http.Error(w, "missing clientId", http.StatusBadRequest)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := service.History(r.Context(), clientID, limit)
		if err != nil {
			log.Warn("history list failed", zap.Error(err))
			http.Error(w, "history unavailable", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []domain.HistoryEntry{}
		}
		writeJSON(w, log, entries)
	})

	r.Get("/api/bookmarks/{subject}", func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			http.Error(w, "missing clientId", http.StatusBadRequest)
			return
		}
		positions, err := service.Bookmarks(r.Context(), clientID, chi.URLParam(r, "subject"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if positions == nil {
			positions = []int{}
		}
		writeJSON(w, log, positions)
	})

	r.Get("/ws", ws.ServeWS)
	return r
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("write response failed", zap.Error(err))
	}
}
