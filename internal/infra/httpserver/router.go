package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	appanalysis "github.com/bryanwahyu/aidentify/internal/application/analysis"
	appchats "github.com/bryanwahyu/aidentify/internal/application/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/infra/metrics"
	"github.com/bryanwahyu/aidentify/internal/middleware"
)

// Deps are the services and knobs the router is built from.
type Deps struct {
	Analysis  *appanalysis.Service
	Chats     *appchats.Service
	Health    map[string]middleware.HealthChecker
	ClientURL string
	// MaxUploadBytes caps the multipart body; 0 means no cap.
	MaxUploadBytes int64
	// Limiter throttles analyze routes when set.
	Limiter *middleware.RateLimiter
}

type Router struct {
	analysis  *appanalysis.Service
	chats     *appchats.Service
	maxUpload int64
}

func NewRouter(d Deps) http.Handler {
	r := &Router{analysis: d.Analysis, chats: d.Chats, maxUpload: d.MaxUploadBytes}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Telemetry)
	mux.Use(middleware.Logging)
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "AIdentify backend is running"})
	})
	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/ready", middleware.ReadinessHandler(d.Health))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", metrics.Handler())

	mux.Route("/api", func(rt chi.Router) {
		rt.Group(func(g chi.Router) {
			if d.Limiter != nil {
				g.Use(d.Limiter.Middleware)
			}
			for _, k := range media.AllKinds {
				g.Post("/"+k.String()+"/analyze", r.wrap(r.handleAnalyze(k)))
			}
		})

		rt.Get("/results", r.wrap(r.handleResults))
		rt.Get("/failures", r.wrap(r.handleFailures))
		rt.Route("/chat", r.chatRoutes)
	})
	// legacy prefix used by older frontends
	mux.Route("/chats", r.chatRoutes)

	return mux
}

func (r *Router) chatRoutes(rt chi.Router) {
	rt.Get("/history", r.wrap(r.handleHistory))
	rt.Delete("/delete", r.wrap(r.handleDeleteChat))
	rt.Get("/{id}", r.wrap(r.handleGetChat))
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest marks request validation failures raised by handlers.
var errBadRequest = errors.New("bad request")

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := errorStatus(err)
			if status >= 500 {
				log.Error().Err(err).Str("path", req.URL.Path).Int("status", status).Msg("request failed")
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
		}
	}
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, appanalysis.ErrInvalidCommand),
		errors.Is(err, appchats.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, media.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, media.ErrUnreadableMedia), errors.Is(err, media.ErrNoSignal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, chats.ErrChatNotFound), errors.Is(err, chats.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, ai.ErrOracleTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, media.ErrStorage),
		errors.Is(err, ai.ErrOracleUnavailable),
		errors.Is(err, ai.ErrDegradedVerdict):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}
