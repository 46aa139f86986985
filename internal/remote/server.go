// Package remote exposes a small local HTTP API for controlling a running viewer.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"captionview/internal/domain"
)

const shutdownTimeout = 3 * time.Second

// Controller is the part of the connection manager the API drives.
type Controller interface {
	Status() domain.Status
	SetAudioEnabled(enabled bool) error
}

// TranscriptSource provides the retained phrases.
type TranscriptSource interface {
	Phrases() []domain.Phrase
	Text() string
}

type Server struct {
	addr       string
	controller Controller
	transcript TranscriptSource
	logger     *slog.Logger
	router     *mux.Router
}

type transcriptResponse struct {
	Phrases []domain.Phrase `json:"phrases"`
}

type audioRequest struct {
	Enabled *bool `json:"enabled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(addr string, controller Controller, transcript TranscriptSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:       addr,
		controller: controller,
		transcript: transcript,
		logger:     logger.With("component", "remote"),
		router:     mux.NewRouter(),
	}
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/api/transcript", s.handleTranscript).Methods(http.MethodGet)
	s.router.HandleFunc("/api/audio", s.handleAudio).Methods(http.MethodPut)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	s.logger.Info("remote control listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.controller.Status())
}

// handleTranscript answers with JSON, or plain "speaker: text" lines for ?format=text.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(s.transcript.Text()))
		return
	}
	phrases := s.transcript.Phrases()
	if phrases == nil {
		phrases = []domain.Phrase{}
	}
	s.writeJSON(w, http.StatusOK, transcriptResponse{Phrases: phrases})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	var req audioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: `expected {"enabled": true|false}`})
		return
	}
	if err := s.controller.SetAudioEnabled(*req.Enabled); err != nil {
		s.logger.Warn("remote audio toggle failed", "enabled", *req.Enabled, "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
