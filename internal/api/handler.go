package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devricklin/feishu-assistant/internal/biz/repo"
	"github.com/devricklin/feishu-assistant/internal/metrics"
)

// DefaultAddr is the admin listen address
const DefaultAddr = "127.0.0.1:9876"

// Server provides the admin HTTP API: health, metrics and history inspection
type Server struct {
	historyRepo repo.HistoryRepo
	server      *http.Server
	addr        string
	log         *zap.Logger
}

// Turn is a history entry as returned by the API
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Speaker is a speaker summary as returned by the API
type Speaker struct {
	Speaker    string    `json:"speaker"`
	TurnCount  int       `json:"turn_count"`
	HasPrompt  bool      `json:"has_prompt"`
	LastActive time.Time `json:"last_active"`
}

// NewServer creates a new API server
func NewServer(historyRepo repo.HistoryRepo, addr string, log *zap.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		historyRepo: historyRepo,
		addr:        addr,
		log:         log.Named("api"),
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// History inspection
	mux.HandleFunc("/api/speakers", s.handleSpeakers)
	mux.HandleFunc("/api/history/", s.handleHistory)

	mux.Handle("/metrics", metrics.Handler())

	// Health check
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) handleSpeakers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.historyRepo.Speakers(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]Speaker, len(stats))
	for i, st := range stats {
		result[i] = Speaker{
			Speaker:    st.Speaker,
			TurnCount:  st.TurnCount,
			HasPrompt:  st.HasPrompt,
			LastActive: st.LastActive,
		}
	}

	s.writeJSON(w, map[string]interface{}{"speakers": result})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/history/{speaker}
	speaker := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if speaker == "" {
		http.Error(w, "missing speaker", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		turns, err := s.historyRepo.GetHistory(r.Context(), speaker)
		if err != nil {
			s.writeError(w, err)
			return
		}
		result := make([]Turn, len(turns))
		for i, t := range turns {
			result[i] = Turn{Role: string(t.Role), Content: t.Content, CreatedAt: t.CreatedAt}
		}
		s.writeJSON(w, map[string]interface{}{"speaker": speaker, "turns": result})

	case http.MethodDelete:
		if err := s.historyRepo.Clear(r.Context(), speaker); err != nil {
			s.writeError(w, err)
			return
		}
		s.log.Info("history cleared", zap.String("speaker", speaker))
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
