// Package http serves the LINE webhook and the dashboard JSON API.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

// Replier answers a LINE webhook event with a text message.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

type Server struct {
	http.Server

	store         ledger.Store
	settings      ledger.SettingsStore
	replier       Replier
	publisher     services.EntryPublisher
	channelSecret string
	logger        *log.Logger
}

// Deps carries the server collaborators. Replier and Publisher may be nil.
type Deps struct {
	Store         ledger.Store
	Settings      ledger.SettingsStore
	Replier       Replier
	Publisher     services.EntryPublisher
	ChannelSecret string
	Logger        *log.Logger
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:         deps.Store,
		settings:      deps.Settings,
		replier:       deps.Replier,
		publisher:     deps.Publisher,
		channelSecret: deps.ChannelSecret,
		logger:        logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /line/webhook", s.handleWebhook)

	mux.HandleFunc("GET /api/dashboard", s.withHeaders(s.handleDashboard))
	mux.HandleFunc("GET /api/sankey", s.withHeaders(s.handleSankey))
	mux.HandleFunc("GET /api/yearly", s.withHeaders(s.handleYearly))
	mux.HandleFunc("GET /api/records", s.withHeaders(s.handleRecords))
	mux.HandleFunc("POST /api/records/update", s.withHeaders(s.handleUpdateRecord))
	mux.HandleFunc("DELETE /api/records", s.withHeaders(s.handleDeleteMonth))
	mux.HandleFunc("POST /api/expenses", s.withHeaders(s.handleAddExpense))
	mux.HandleFunc("GET /api/settings", s.withHeaders(s.handleGetSettings))
	mux.HandleFunc("POST /api/settings", s.withHeaders(s.handleSaveSettings))
	mux.HandleFunc("GET /api/analysis", s.withHeaders(s.handleAnalysis))

	return s
}

func (s *Server) withHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
