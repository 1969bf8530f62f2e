package api

import (
	"net/http"
	"shuffle_arena/internal/api/handler"
	"shuffle_arena/internal/api/middleware"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common/security"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

type RouterDeps struct {
	Rounds      *service.RoundService
	Teams       *service.TeamService
	Problems    *service.ProblemService
	Settings    *service.SettingsService
	Submissions *service.SubmissionService

	Tokens         *security.MemberTokens
	AdminGate      *security.AdminGate
	AllowedOrigins []string
	// RequestTimeout bounds every request; runs wait on the judge so keep it
	// above the judge timeout.
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 60 * time.Second
	}

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(deps.RequestTimeout))
	r.Use(cors.New(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.AdminSecretHeader},
	}).Handler)

	// Looks for "Authorization: Bearer T"; MemberAuthenticator enforces it.
	r.Use(jwtauth.Verifier(deps.Tokens.Auth()))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		handler.NewPublicHandler(deps.Teams).RegisterRoutes(v1)

		sessionHandler := handler.NewSessionHandler(deps.Rounds)
		v1.Route("/session", sessionHandler.RegisterRoutes)

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.AdminOnly(deps.AdminGate))
			admin.Route("/teams", handler.NewTeamHandler(deps.Teams).RegisterRoutes)
			admin.Route("/problems", handler.NewProblemHandler(deps.Problems).RegisterRoutes)
			admin.Route("/settings", handler.NewSettingsHandler(deps.Settings).RegisterRoutes)
			admin.Route("/submissions", handler.NewSubmissionHandler(deps.Submissions).RegisterRoutes)
		})
	})

	return r
}

// requestIDLogger tags the request logger with chi's request id.
func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("request_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}
