package notifier

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type Server struct {
	http.Server
	store  *UserStore
	bot    *BotClient
	appKey string
}

// NewServer wires the notifier routes. The Telegram webhook is open by
// design (Telegram cannot send custom headers); the /api routes
// require the shared app key.
func NewServer(addr, appKey string, store *UserStore, bot *BotClient) *Server {
	r := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: r,
		},
		store:  store,
		bot:    bot,
		appKey: appKey,
	}

	r.Use(requestLogging)

	r.HandleFunc("/", handleHealth).Methods("GET")
	r.HandleFunc("/telegram/webhook", s.handleWebhook).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireKey)
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleSaveSettings).Methods("POST")
	api.HandleFunc("/notify", s.handleNotify).Methods("POST")

	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requestLogging tags every request with a uuid and logs start and
// completion.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		slog.Info("Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// requireKey is the shared-secret check for the API routes.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-APP-KEY") != s.appKey {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"ok": false})
			return
		}
		next.ServeHTTP(w, r)
	})
}
