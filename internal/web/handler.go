// Package web is the browser front end: it serves the demo page and JSON
// routes backed by the challenge engine.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/solver"
)

// maxBodyBytes caps JSON request bodies, base64 images included.
const maxBodyBytes = 4 << 20

//go:embed static
var staticFiles embed.FS

// ChallengeService issues, verifies and looks up challenges.
type ChallengeService interface {
	Create(ctx context.Context) (*challenge.Challenge, error)
	Verify(ctx context.Context, id, submitted string) challenge.Result
	Lookup(ctx context.Context, id string) (bool, error)
}

// Solver reads a challenge image.
type Solver interface {
	Solve(ctx context.Context, image string) solver.Result
}

// HealthFunc reports whether backing services are reachable.
type HealthFunc func(ctx context.Context) error

// Handler serves the web routes.
type Handler struct {
	challenges ChallengeService
	solver     Solver
	gatherer   prometheus.Gatherer
	health     HealthFunc
	logger     *zap.Logger
}

// New creates a Handler. gatherer and health may be nil.
func New(challenges ChallengeService, s Solver, gatherer prometheus.Gatherer, health HealthFunc, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		challenges: challenges,
		solver:     s,
		gatherer:   gatherer,
		health:     health,
		logger:     logger,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r chi.Router) {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(h.logger))

	static, _ := fs.Sub(staticFiles, "static")
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, static, "index.html")
	})
	r.Get("/generate", h.handleGenerate)
	r.Post("/verify", h.handleVerify)
	r.Post("/break", h.handleBreak)
	r.Get("/status/{id}", h.handleStatus)
	r.Get("/healthz", h.handleHealth)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
}

// NewRouter returns a chi router with h registered.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type generateResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type verifyRequest struct {
	ID    string `json:"id"`
	Input string `json:"input"`
}

type verifyResponse struct {
	Result challenge.Result `json:"result"`
}

type breakRequest struct {
	Image string `json:"image"`
}

type statusResponse struct {
	ID      string `json:"id"`
	Pending bool   `json:"pending"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGenerate issues a challenge. The answer text stays server-side.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ch, err := h.challenges.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create challenge", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create captcha"})
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{ID: ch.ID, Image: ch.Image})
}

// handleVerify always answers 200 with Correct or Wrong.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid verify request", zap.Error(err))
		writeJSON(w, http.StatusOK, verifyResponse{Result: challenge.Wrong})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Result: h.challenges.Verify(r.Context(), req.ID, req.Input)})
}

func (h *Handler) handleBreak(w http.ResponseWriter, r *http.Request) {
	var req breakRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(&req)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Image too large"})
		return
	}
	if err != nil || req.Image == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing image"})
		return
	}
	writeJSON(w, http.StatusOK, h.solver.Solve(r.Context(), req.Image))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pending, err := h.challenges.Lookup(r.Context(), id)
	if err != nil {
		h.logger.Error("challenge lookup failed", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{ID: id, Pending: pending})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
