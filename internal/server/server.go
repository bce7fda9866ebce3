// Package server exposes the chat use case over a small HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"qabot/internal/domain"
	"qabot/internal/usecase"
)

const (
	maxBodyBytes = 64 << 10

	defaultWriteTimeout = 2 * time.Minute
	// room left after a timed-out turn to store the reply and write it
	writeMargin = 15 * time.Second
)

// Server routes HTTP requests to chat sessions. Each session id maps to one
// *usecase.Session so concurrent requests on it are serialized.
type Server struct {
	chat    *usecase.ChatUseCase
	corpus  *usecase.CorpusHolder
	version string
	started time.Time

	writeTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*usecase.Session
}

// Config configures the server.
type Config struct {
	Version string

	// TurnTimeout is the answer deadline the chat use case was given. The
	// write timeout is kept longer so a timed-out turn still reaches the
	// client as an error reply.
	TurnTimeout time.Duration
}

// New creates a new server.
func New(chat *usecase.ChatUseCase, corpus *usecase.CorpusHolder, config *Config) *Server {
	version := ""
	writeTimeout := defaultWriteTimeout
	if config != nil {
		version = config.Version
		if config.TurnTimeout > 0 {
			writeTimeout = config.TurnTimeout + writeMargin
		}
	}
	return &Server{
		chat:         chat,
		corpus:       corpus,
		version:      version,
		started:      time.Now(),
		writeTimeout: writeTimeout,
		sessions:     make(map[string]*usecase.Session),
	}
}

// Handler returns the API routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleResetSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.handleHistory)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleMessage)
	return loggerMiddleware(maxBodyMiddleware(maxBodyBytes, mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type sessionResponse struct {
	ID string `json:"id"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type matchResponse struct {
	Position int     `json:"position"`
	Distance float32 `json:"distance"`
	Question string  `json:"question"`
}

type messageResponse struct {
	SessionID string                  `json:"session_id"`
	Reply     domain.ConversationTurn `json:"reply"`
	Match     *matchResponse          `json:"match,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

type historyResponse struct {
	SessionID string                    `json:"session_id"`
	Turns     []domain.ConversationTurn `json:"turns"`
}

type healthResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version,omitempty"`
	Entries    int       `json:"entries"`
	Model      string    `json:"model,omitempty"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at,omitzero"`
	Uptime     string    `json:"uptime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Version:    s.version,
		Generation: s.corpus.Generation(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
	}
	if c := s.corpus.Load(); c != nil {
		resp.Entries = c.Len()
		resp.Model = c.Model()
		resp.BuiltAt = c.BuiltAt()
	} else {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := usecase.NewSession()

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	slog.Debug("session created", "session", session.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: session.ID})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content must not be empty")
		return
	}

	result, err := s.chat.Turn(r.Context(), session, req.Content)
	if err != nil {
		slog.Error("turn could not be recorded", "session", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := messageResponse{SessionID: session.ID, Reply: result.Reply}
	if result.Match != nil {
		resp.Match = &matchResponse{
			Position: result.Match.Position,
			Distance: result.Match.Distance,
			Question: result.Match.Entry.Question,
		}
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	turns, err := s.chat.History(r.Context(), session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		turns = []domain.ConversationTurn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: session.ID, Turns: turns})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(r.Context(), r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if err := s.chat.Reset(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookup finds a live session, or resumes one whose transcript survived a
// restart in a persistent store.
func (s *Server) lookup(ctx context.Context, id string) (*usecase.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session, true
	}
	if id == "" {
		return nil, false
	}

	session := usecase.ResumeSession(id)
	turns, err := s.chat.History(ctx, session)
	if err != nil || len(turns) == 0 {
		return nil, false
	}
	s.sessions[id] = session
	return session, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
