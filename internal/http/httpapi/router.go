package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ugcstudio/internal/http/handlers"
	"ugcstudio/internal/middleware"
)

// Options configures the middleware stack.
type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/brands", app.Brands)

	limit := middleware.RateLimit(opts.RateLimitPerMin, time.Minute)
	r.With(limit).Post("/v1/stories", app.CreateStory)

	r.Route("/v1/runs", func(r chi.Router) {
		r.With(limit, middleware.Workspace).Post("/", app.CreateRun)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetRun)
			r.Get("/events", app.RunEvents)
			r.Get("/assets/{label}", app.RunAsset)
			r.Get("/archive", app.RunArchive)
		})
	})

	r.Route("/v1/workspaces/{ws}", func(r chi.Router) {
		r.Get("/", app.Workspace)
		r.Get("/history", app.WorkspaceHistory)
	})

	return r
}
