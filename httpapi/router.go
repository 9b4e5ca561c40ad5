package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authenticator is the engine surface the API needs. *sessionauth.Engine
// satisfies it.
type Authenticator interface {
	Signup(ctx context.Context, email, password string, requiresTwoFA bool) error
	Login(ctx context.Context, email, password string) (*sessionauth.LoginResult, error)
	VerifyChallenge(ctx context.Context, email, challengeID, code string) (*sessionauth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (*sessionauth.Claims, error)
}

type Options struct {
	// CORSOrigins lists origins allowed to call the API with credentials.
	CORSOrigins []string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	Logger        *slog.Logger
	// Registry receives the HTTP request metrics and is served on /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
}

type handler struct {
	auth          Authenticator
	logger        *slog.Logger
	validate      *validator.Validate
	secureCookies bool
}

// NewRouter wires every route onto a chi router.
func NewRouter(auth Authenticator, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	h := &handler{
		auth:          auth,
		logger:        logger.With("component", "httpapi"),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		secureCookies: opts.SecureCookies,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(newHTTPMetrics(reg).middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Post("/verify-2fa", h.verifyTwoFA)
	r.Post("/logout", h.logout)
	r.Post("/verify-token", h.verifyToken)
	r.With(middleware.RequireSession(auth)).Get("/me", h.me)

	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
