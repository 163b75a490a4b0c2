package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/marcogenualdo/upload-gate/internal/auth"
	"github.com/marcogenualdo/upload-gate/internal/cache"
	"github.com/marcogenualdo/upload-gate/internal/config"
)

type HealthHandler struct {
	cfg       config.Config
	cache     cache.Cache
	provider  auth.Provider
	startTime time.Time
}

func NewHealthHandler(cfg config.Config, cache cache.Cache, provider auth.Provider) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		cache:     cache,
		provider:  provider,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status   string      `json:"status"`
	Uptime   string      `json:"uptime"`
	Cache    CacheHealth `json:"cache"`
	Provider string      `json:"provider"`
	Org      string      `json:"org"`
	Bucket   string      `json:"bucket"`
}

type CacheHealth struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Provider: h.provider.Name(),
		Org:      h.cfg.GitHub.Org,
		Bucket:   h.cfg.Storage.Bucket,
	}

	response.Cache.Type = h.cfg.Cache.Type
	if err := h.cache.Set(ctx, "health:check", []byte("ok"), time.Minute); err != nil {
		response.Cache.Status = "unavailable"
		response.Status = "degraded"
	} else {
		response.Cache.Status = "connected"
		h.cache.Delete(ctx, "health:check")
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}
