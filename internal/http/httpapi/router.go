package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

// Options configures the cross-cutting middleware stack.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	Locales         []string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.Locales, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/prompts/suggestions", app.PromptSuggestions)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/", app.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.GetSession)
			r.Delete("/", app.DeleteSession)
			r.Put("/image", app.ReplaceImage)
			r.Post("/edits", app.SubmitEdit)
			r.Post("/undo", app.Undo)
			r.Post("/reset", app.Reset)
			r.Post("/select", app.SelectHistoryPoint)
			r.Put("/view", app.SetView)
			r.Put("/draft", app.SetDraft)
			r.Delete("/error", app.DismissError)
			r.Get("/download", app.Download)
			r.Get("/export", app.Export)
		})
	})

	return r
}
