package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/injector"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/internal/skills"
	apperrors "github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Skill-Injection-Engine/pkg/logger"
)

// maxBodyBytes caps request bodies; the message limit is enforced by the
// service.
const maxBodyBytes = 1 << 20

// CacheAdmin is the subset of the selection cache exposed over HTTP.
type CacheAdmin interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

type Handler struct {
	service  *injector.Service
	cache    CacheAdmin
	notifier *injector.Notifier
	logger   *slog.Logger
}

// New creates a Handler. cache and notifier may be nil.
func New(service *injector.Service, cache CacheAdmin, notifier *injector.Notifier) *Handler {
	return &Handler{
		service:  service,
		cache:    cache,
		notifier: notifier,
		logger:   slog.Default().With("component", "injector-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/inject", h.Inject)
	mux.HandleFunc("GET /api/v1/skills", h.ListSkills)
	mux.HandleFunc("GET /api/v1/skills/{name}", h.GetSkill)
	mux.HandleFunc("POST /api/v1/corpus/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type InjectRequest struct {
	Message string `json:"message"`
}

type InjectResponse struct {
	Skills      []string             `json:"skills"`
	Selections  []injector.Selection `json:"selections"`
	Negated     []string             `json:"negated"`
	Mode        string               `json:"mode"`
	CacheHit    bool                 `json:"cache_hit"`
	Fingerprint string               `json:"fingerprint"`
	LatencyUs   int64                `json:"latency_us"`
}

// Inject handles POST /api/v1/inject.
func (h *Handler) Inject(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req InjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a message field")
		return
	}

	result, err := h.service.Inject(r.Context(), req.Message)
	if err != nil {
		log.Warn("injection failed", "error", err)
		h.writeAppError(w, err)
		return
	}

	negated := result.Negated
	if negated == nil {
		negated = []string{}
	}
	log.Info("injection completed",
		"mode", result.Mode,
		"selected", len(result.Selections),
		"negated", len(negated),
		"cache_hit", result.CacheHit,
		"latency_us", result.Latency.Microseconds(),
	)
	h.writeJSON(w, http.StatusOK, InjectResponse{
		Skills:      result.Names(),
		Selections:  result.Selections,
		Negated:     negated,
		Mode:        result.Mode,
		CacheHit:    result.CacheHit,
		Fingerprint: result.Fingerprint,
		LatencyUs:   result.Latency.Microseconds(),
	})
}

// SkillSummary is a skill without its body.
type SkillSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	SourceFile  string   `json:"source_file,omitempty"`
}

// ListSkills handles GET /api/v1/skills.
func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Registry().Skills()
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	out := make([]SkillSummary, 0, len(list))
	for _, s := range list {
		out = append(out, summarize(s))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"skills": out,
		"total":  len(out),
	})
}

func summarize(s skills.Skill) SkillSummary {
	keywords := s.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return SkillSummary{
		Name:        s.Name,
		Description: s.Description,
		Keywords:    keywords,
		SourceFile:  s.SourceFile,
	}
}

// GetSkill handles GET /api/v1/skills/{name}.
func (h *Handler) GetSkill(w http.ResponseWriter, r *http.Request) {
	skill, err := h.service.Registry().Skill(r.PathValue("name"))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, skill)
}

// Reload handles POST /api/v1/corpus/reload. Other instances are notified
// when the corpus changed.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	result, err := h.service.Registry().Reload(r.Context())
	if err != nil {
		log.Error("corpus reload failed", "error", err)
		h.writeAppError(w, err)
		return
	}
	if result.Changed {
		if err := h.notifier.Notify(r.Context(), "api-reload", result); err != nil {
			log.Warn("corpus update notification failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status, message := apperrors.Public(err)
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
