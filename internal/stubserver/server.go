// Package stubserver is a local stand-in for the remote remediation pipeline.
// It speaks the same wire protocol (including the JSON-in-a-string payloads)
// and enforces the same stage ordering, but returns canned results.
package stubserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lucasnoah/remediate/internal/pipeline"
)

// maxUploadBytes bounds the multipart form held in memory.
const maxUploadBytes = 10 << 20

// Options configures the canned responses.
type Options struct {
	Analysis pipeline.AnalysisResult
	Strategy pipeline.StrategyResult
	// Refactor rewrites the uploaded code. Nil returns it unchanged.
	Refactor func(code string) string
	// Delay is applied before answering any stage request.
	Delay time.Duration
	// Extensions lists accepted upload suffixes. Empty means ".java".
	Extensions []string
}

type sessionRecord struct {
	filename    string
	code        string
	analyzed    bool
	strategized bool
}

// Server holds uploaded artifacts in memory, keyed by session id.
type Server struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionRecord
}

// New creates a stub server. A nil logger discards request logs.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Analysis.Status == "" {
		opts.Analysis = pipeline.AnalysisResult{Status: pipeline.NoIssuesFound, Antipatterns: []pipeline.Antipattern{}}
	}
	if opts.Strategy.Status == "" {
		opts.Strategy = pipeline.StrategyResult{Status: pipeline.NoRefactoringNeeded, Refactorings: []pipeline.Refactoring{}}
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".java"}
	}
	return &Server{opts: opts, logger: logger, sessions: make(map[string]*sessionRecord)}
}

// Router builds the chi router with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Get("/health", s.handleHealth)
	r.Post("/upload/", s.handleUpload)
	r.Post("/analyze/", s.handleAnalyze)
	r.Post("/strategy/", s.handleStrategy)
	r.Post("/refactor/", s.handleRefactor)
	return r
}

// SessionCount reports how many uploads are held.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.SessionCount()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Expected a multipart form with a file field")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	if !s.acceptsExtension(hdr.Filename) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Only %s files are supported", strings.Join(s.opts.Extensions, ", ")))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &sessionRecord{filename: hdr.Filename, code: string(data)}
	s.mu.Unlock()

	s.logger.Info("upload stored", "session_id", id, "filename", hdr.Filename, "bytes", len(data))
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Server) acceptsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range s.opts.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// lookup decodes the request body and returns the session it names. It writes
// the error response itself when the session cannot be resolved.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*sessionRecord, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "Request body must be {\"session_id\": \"...\"}")
		return nil, false
	}
	s.mu.Lock()
	rec, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	if s.opts.Delay > 0 {
		select {
		case <-time.After(s.opts.Delay):
		case <-r.Context().Done():
			return nil, false
		}
	}
	return rec, true
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	doc, err := encodeDocument(s.opts.Analysis)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	rec.analyzed = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"antipattern_analysis": doc})
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	analyzed := rec.analyzed
	s.mu.Unlock()
	if !analyzed {
		writeError(w, http.StatusBadRequest, "Run analysis before requesting a strategy")
		return
	}
	doc, err := encodeDocument(s.opts.Strategy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.mu.Lock()
	rec.strategized = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"refactoring_strategy": doc})
}

func (s *Server) handleRefactor(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	ready, code := rec.strategized, rec.code
	s.mu.Unlock()
	if !ready {
		writeError(w, http.StatusBadRequest, "Run the strategy agent before requesting refactored code")
		return
	}
	if s.opts.Refactor != nil {
		code = s.opts.Refactor(code)
	}
	writeJSON(w, http.StatusOK, map[string]string{"refactored_code": code})
}

// encodeDocument produces the JSON-in-a-string form the real service uses.
func encodeDocument(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
