package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teatak/viterbi/alphabet"
	"github.com/teatak/viterbi/config"
	"github.com/teatak/viterbi/hmm"
	"github.com/teatak/viterbi/viterbi"
)

const bytesPerObservation = 32

// engine is the model and alphabet swapped in on reload.
type engine struct {
	model   *hmm.Model
	symbols *alphabet.Alphabet
}

type server struct {
	cfg    config.Config
	logger *slog.Logger

	mu  sync.RWMutex
	eng *engine
}

func newServer(cfg config.Config, logger *slog.Logger) *server {
	return &server{cfg: cfg, logger: logger}
}

// reload reads the model and alphabet from disk and swaps them in.
func (s *server) reload() error {
	model, err := hmm.Load(s.cfg.Model)
	if err != nil {
		return fmt.Errorf("load model %s: %w", s.cfg.Model, err)
	}
	symbols := alphabet.New()
	if s.cfg.Alphabet != "" {
		if err := symbols.Load(s.cfg.Alphabet); err != nil {
			return fmt.Errorf("load alphabet %s: %w", s.cfg.Alphabet, err)
		}
	}

	s.mu.Lock()
	s.eng = &engine{model: model, symbols: symbols}
	s.mu.Unlock()
	s.logger.Info("engine reloaded",
		"states", model.NumStates(), "symbols", model.NumSymbols(), "model", s.cfg.Model)
	return nil
}

func (s *server) current() *engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decode", s.handleDecode)
	mux.HandleFunc("/model", s.handleModel)
	mux.HandleFunc("/reload", s.handleReload)
	return s.withRequestID(mux)
}

type ctxKey struct{}

// withRequestID tags every request with a UUID and logs its outcome.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.Must(uuid.NewV7()).String()
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("request_id", id),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Request/Response types
type DecodeRequest struct {
	Observations []int    `json:"observations,omitempty"`
	Symbols      []string `json:"symbols,omitempty"`
	Trellis      bool     `json:"trellis,omitempty"`
}

type DecodeResponse struct {
	RequestID string    `json:"request_id"`
	Path      []int     `json:"path"`
	Labels    string    `json:"labels"`
	LogProb   score     `json:"log_prob"`
	Scores    [][]score `json:"scores,omitempty"`
}

// score is a log-probability that encodes -Inf and NaN as null.
type score float64

func (v score) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

type ModelResponse struct {
	States  int      `json:"states"`
	Symbols int      `json:"symbols"`
	Labels  []string `json:"labels,omitempty"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func (s *server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DecodeRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.fail(w, r, status, err)
		return
	}

	eng := s.current()
	obs := req.Observations
	if len(req.Symbols) > 0 {
		var err error
		if obs, err = eng.symbols.Encode(req.Symbols); err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
	}
	if len(obs) > s.cfg.MaxObservations {
		s.fail(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%d observations exceeds limit of %d", len(obs), s.cfg.MaxObservations))
		return
	}

	d := viterbi.Decoder{Workers: s.cfg.Workers}
	tr, err := d.Trellis(eng.model, obs)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	resp := DecodeResponse{
		RequestID: requestID(r.Context()),
		Path:      tr.Path,
		Labels:    eng.model.FormatPath(tr.Path),
		LogProb:   score(tr.LogProb),
	}
	if req.Trellis {
		states, steps := tr.Scores.Dims()
		resp.Scores = make([][]score, states)
		for st := range resp.Scores {
			resp.Scores[st] = make([]score, steps)
			for t := 0; t < steps; t++ {
				resp.Scores[st][t] = score(tr.Scores.At(st, t))
			}
		}
	}
	s.logger.Info("decoded",
		"request_id", resp.RequestID, "observations", len(obs), "log_prob", tr.LogProb)
	writeJSON(w, http.StatusOK, resp)
}

// maxBodyBytes bounds a decode request body: room for MaxObservations
// quoted tokens plus the surrounding object.
func (s *server) maxBodyBytes() int64 {
	return int64(s.cfg.MaxObservations)*bytesPerObservation + 4096
}

func (s *server) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, describe(s.current().model))
}

func describe(m *hmm.Model) ModelResponse {
	return ModelResponse{
		States:  m.NumStates(),
		Symbols: m.NumSymbols(),
		Labels:  m.Labels(),
	}
}

func (s *server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.reload(); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(s.current().model))
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := requestID(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	var se *viterbi.SymbolError
	attrs := []any{"request_id", id, "status", status, "error", err}
	if errors.As(err, &se) {
		attrs = append(attrs, "index", se.Index, "symbol", se.Symbol)
	}
	s.logger.Log(r.Context(), level, "request failed", attrs...)
	writeJSON(w, status, errorResponse{RequestID: id, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
