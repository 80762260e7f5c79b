package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"madison-ai/internal/handlers"
	"madison-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService    service.ChatService
	EventService   service.EventService
	LibraryService service.LibraryService
	// HealthChecks are run by GET /api/health, keyed by check name.
	HealthChecks map[string]handlers.HealthCheck
	// AllowedOrigins restricts CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS(deps.AllowedOrigins))

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.LibraryService)
	indexHandler := handlers.NewIndexHandler(deps.LibraryService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodGet, "/documents", documentsHandler)
		r.Method(http.MethodPost, "/index", indexHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		for _, kind := range []string{service.EventFeedback, service.EventOnboarding, service.EventDemographics} {
			r.Method(http.MethodPost, "/"+kind, handlers.NewEventHandler(deps.EventService, kind))
		}
	})

	// Source links in answers point here
	r.Method(http.MethodGet, "/documents/{label}", handlers.NewDocumentPageHandler(deps.LibraryService))

	return r
}
