package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	baseResponse
	Status   string            `json:"status"`
	Version  string            `json:"version"`
	Uptime   float64           `json:"uptime"`
	Services map[string]string `json:"services"`
}

// checkServices probes the upstream provider, the cache backend and local
// storage concurrently.
func (a *App) checkServices(r *http.Request) map[string]string {
	type probe struct {
		name  string
		check func() string
	}
	probes := []probe{
		{"fal_ai", func() string {
			if err := a.Provider.Health(r.Context()); err != nil {
				return "disconnected"
			}
			return "connected"
		}},
		{"redis", func() string {
			if err := a.Cache.Ping(r.Context()); err != nil {
				return "disconnected"
			}
			return "connected"
		}},
		{"storage", func() string {
			if _, err := a.Store.Stats(); err != nil {
				return "unhealthy"
			}
			return "healthy"
		}},
	}

	results := make([]string, len(probes))
	done := make(chan int, len(probes))
	for i, p := range probes {
		i, p := i, p
		go func() {
			results[i] = p.check()
			done <- i
		}()
	}
	for range probes {
		<-done
	}

	services := make(map[string]string, len(probes))
	for i, p := range probes {
		services[p.name] = results[i]
	}
	return services
}

func overallStatus(services map[string]string) string {
	for _, status := range services {
		switch status {
		case "disconnected", "unhealthy", "error":
			return "unhealthy"
		}
	}
	for _, status := range services {
		if status == "degraded" {
			return "degraded"
		}
	}
	return "healthy"
}

// HealthCheck handles GET /api/v1/health.
func (a *App) HealthCheck(w http.ResponseWriter, r *http.Request) {
	services := a.checkServices(r)
	status := overallStatus(services)
	a.json(w, http.StatusOK, healthResponse{
		baseResponse: a.base(r, "service is "+status),
		Status:       status,
		Version:      Version,
		Uptime:       a.uptime(),
		Services:     services,
	})
}

// DetailedHealthCheck handles GET /api/v1/health/detailed, adding storage and
// configuration information to the basic check.
func (a *App) DetailedHealthCheck(w http.ResponseWriter, r *http.Request) {
	services := a.checkServices(r)
	status := overallStatus(services)

	stats, err := a.Store.Stats()
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"success":       true,
		"status":        status,
		"version":       Version,
		"uptime":        a.uptime(),
		"services":      services,
		"environment":   a.Cfg.AppEnv,
		"storage_stats": stats,
		"configuration": map[string]any{
			"max_file_size":       a.Cfg.MaxFileSize,
			"allowed_image_types": a.Cfg.AllowedImageTypes,
			"allowed_video_types": a.Cfg.AllowedVideoTypes,
			"rate_limit":          a.Cfg.RateLimitPerMin,
			"cache_ttl_seconds":   int(a.Cfg.CacheTTL.Seconds()),
			"retention_hours":     int(a.Cfg.RetentionAge.Hours()),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /api/v1/health/readiness. The service is ready
// only while the upstream provider is reachable.
func (a *App) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.Provider.Health(r.Context()); err != nil {
		a.json(w, http.StatusServiceUnavailable, map[string]any{
			"ready":   false,
			"message": "upstream provider is not available",
		})
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"ready":   true,
		"message": "Application is ready",
	})
}

// LivenessCheck handles GET /api/v1/health/liveness.
func (a *App) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"alive":     true,
		"uptime":    a.uptime(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health handles GET /health, the unauthenticated root level alias.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
