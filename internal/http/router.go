// Package httpapi assembles the route table and middleware chain.
package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"gateway/internal/http/handlers"
	"gateway/internal/middleware"
)

// NewRouter builds the full HTTP handler. Health and info endpoints are open;
// everything under /api/v1/image, /api/v1/video and /api/v1/capabilities
// requires an API key and is rate limited per client.
func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(app.Logger))

	r.Get("/", app.Info)
	r.Get("/health", app.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", app.HealthCheck)
		r.Get("/health/detailed", app.DetailedHealthCheck)
		r.Get("/health/readiness", app.ReadinessCheck)
		r.Get("/health/liveness", app.LivenessCheck)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(app.Cfg.APIKeys))
			r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))

			r.Get("/capabilities", app.Capabilities)

			r.Route("/image", func(r chi.Router) {
				r.Post("/enhance", app.EnhanceImage)
				r.Post("/style-transfer", app.StyleTransfer)
				r.Post("/generate", app.GenerateImage)
				r.Post("/batch", app.BatchProcess)
				r.Get("/job/{job_id}", app.ImageJobStatus)
			})

			r.Route("/video", func(r chi.Router) {
				r.Post("/process", app.ProcessVideo)
				r.Post("/enhance", app.EnhanceVideo)
				r.Post("/stabilize", app.StabilizeVideo)
				r.Post("/style-transfer", app.VideoStyleTransfer)
				r.Get("/formats", app.VideoFormats)
				r.Get("/job/{job_id}", app.VideoJobStatus)
			})
		})
	})

	// Stored uploads and thumbnails are served directly from disk.
	fileServer := stdhttp.StripPrefix("/files/", stdhttp.FileServer(stdhttp.Dir(app.Store.Root())))
	r.Get("/files/*", fileServer.ServeHTTP)

	return r
}
