package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/app"
	"github.com/Guilhem-Bonnet/Plex-AniList-Scrobbler/internal/ports"
)

type Server struct {
	logger    zerolog.Logger
	processor *app.Processor
	resolver  *app.IdentifierResolver
	history   ports.HistoryRepository
	bus       ports.EventBus
}

func NewServer(logger zerolog.Logger, processor *app.Processor, resolver *app.IdentifierResolver, history ports.HistoryRepository, bus ports.EventBus) *Server {
	return &Server{logger: logger, processor: processor, resolver: resolver, history: history, bus: bus}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))
			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)
			r.Get("/history", s.handleHistory)
			r.Get("/resolve/{anidbID}", s.handleResolve)
			r.Post("/webhook/plex", s.handleWebhook)
		})

		// Le flux SSE vit plus longtemps que le timeout standard.
		r.Get("/events", s.handleEvents)
	})

	return r
}
