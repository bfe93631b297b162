package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketdash/internal/controller"
)

// Controller is the view-model surface served over HTTP.
type Controller interface {
	Snapshot() controller.Snapshot
	Search(ctx context.Context, term string)
	SelectSymbol(ctx context.Context, symbol string)
	ClearSelection()
	Subscribe(bufSize int) (int, <-chan controller.Snapshot)
	Unsubscribe(id int)
}

// Server serves one shared controller: every client sees and drives the
// same dashboard state.
type Server struct {
	ctrl     Controller
	log      *slog.Logger
	upgrader websocket.Upgrader

	// PingInterval is how often idle stream connections are pinged.
	PingInterval time.Duration
}

// NewServer creates a dashboard HTTP server over ctrl.
func NewServer(ctrl Controller, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		ctrl: ctrl,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		PingInterval: 30 * time.Second,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("PUT /api/selection/{symbol}", s.handleSelect)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	mux.HandleFunc("GET /api/stream", s.handleStream)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully, waiting up to 5 seconds for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, ErrorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.ctrl.Snapshot()
	writeJSON(w, HealthResponse{
		Status:      "ok",
		Running:     snap.Running,
		Version:     snap.Version,
		LastRefresh: snap.LastRefresh,
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.ctrl.Snapshot())
}

// handleSearch runs a search and reports the state it left behind. When a
// newer search replaced this one before it finished, Superseded is set and
// the results belong to the newer term.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	s.ctrl.Search(r.Context(), term)

	snap := s.ctrl.Snapshot()
	resp := SearchResponse{
		Term:       snap.SearchTerm,
		Results:    snap.SearchResults,
		Superseded: snap.SearchTerm != term,
	}
	if e := snap.LastError; e != nil && e.Op == controller.OpSearch {
		resp.Error = e
	}
	writeJSON(w, resp)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}
	s.ctrl.SelectSymbol(r.Context(), symbol)

	snap := s.ctrl.Snapshot()
	switch {
	case snap.Selected != nil && snap.Selected.Symbol == symbol:
		writeJSON(w, snap)
	case snap.LastError != nil && snap.LastError.Op == controller.OpSelect && snap.LastError.Symbol == symbol:
		writeJSONStatus(w, http.StatusBadGateway, SelectionErrorResponse{
			Error:  snap.LastError.Message,
			Report: snap.LastError,
		})
	default:
		writeError(w, http.StatusConflict, "selection superseded")
	}
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	s.ctrl.ClearSelection()
	writeJSON(w, s.ctrl.Snapshot())
}
