package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/taskflow/api/taskflow" // Swagger docs
	"github.com/aussiebroadwan/taskflow/internal/taskflow/notify"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// Limits are the rate limit profiles applied per route class.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultLimits returns the stock httpx profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
		Public:   httpx.PublicLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AccountService   *service.AccountService
	AdminService     *service.AdminService
	ResetService     *service.ResetService
	BootstrapService *service.BootstrapService
	TaskService      *service.TaskService
	CommentService   *service.CommentService

	// Hub serves /api/ws. Nil disables the websocket endpoint.
	Hub *notify.Hub

	AdminOptions   httpx.AdminOptions
	AllowedOrigins []string
	Limits         Limits

	// Registry receives the HTTP collectors and backs /metrics.
	Registry *prometheus.Registry
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       DefaultLimits(),
		Registry:     prometheus.NewRegistry(),
	}
}

// ApplyRoutes registers every route and builds the global middleware chain.
// Exported fields must be set before calling it.
func (r *Router) ApplyRoutes() {
	metrics := httpx.NewMetrics(r.Registry, "taskflow")

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		cors.Handler(r.corsOptions()),
		metrics.Middleware(), // innermost, reads the matched pattern
	}

	r.registerAuth()
	r.registerAdmin()
	r.registerTasks()
	r.registerComments()
	r.registerRealtime()
	r.registerBootstrap()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

func (r *Router) corsOptions() cors.Options {
	origins := r.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Bootstrap-Token"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			TaskFlow API
//	@version		1.0.0
//	@description	Collaborative task management: accounts, tasks, comments and administration.
//	@description
//	@description				Session tokens are HS256 JWTs returned by register, login and bootstrap.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/taskflow
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// roleLookup reads the stored role so admin checks survive stale tokens.
func (r *Router) roleLookup(ctx context.Context, userID string) (string, bool, error) {
	u, err := r.store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}

// authed wraps h for a signed-in caller.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

// admin wraps h for an administrator.
func (r *Router) admin(h http.HandlerFunc) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAdmin(r.roleLookup, r.AdminOptions),
		httpx.RateLimitByUser(r.Limits.Moderate),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Accounts: r.AccountService, Resets: r.ResetService}

	// Credential endpoints are keyed on IP and, where present, the email.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndJSONField(r.Limits.Strict, "email"),
		),
	)
	r.Mux.Handle("GET /api/auth/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyReset),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /api/auth/reset-password/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteReset),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	r.Mux.Handle("GET /api/auth/profile", r.authed(h.HandleProfile, r.Limits.Lenient))
	r.Mux.Handle("PUT /api/auth/change-password", r.authed(h.HandleChangePassword, r.Limits.Strict))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{Admin: r.AdminService}

	r.Mux.Handle("GET /api/admin/users", r.admin(h.HandleListUsers))
	r.Mux.Handle("GET /api/admin/users/{id}", r.admin(h.HandleGetUser))
	r.Mux.Handle("PUT /api/admin/users/{id}/role", r.admin(h.HandleUpdateRole))
	r.Mux.Handle("PUT /api/admin/users/{id}/password", r.admin(h.HandleResetPassword))
	r.Mux.Handle("POST /api/admin/users/reset-password", r.admin(h.HandleResetPasswordByBody))
	r.Mux.Handle("POST /api/admin/users/{id}/reset-password-email", r.admin(h.HandleResetLink))
}

func (r *Router) registerTasks() {
	h := &TaskHandler{Tasks: r.TaskService}

	r.Mux.Handle("GET /api/tasks", r.authed(h.HandleList, r.Limits.Lenient))
	r.Mux.Handle("POST /api/tasks", r.authed(h.HandleCreate, r.Limits.Moderate))
	r.Mux.Handle("GET /api/tasks/{id}", r.authed(h.HandleGet, r.Limits.Lenient))
	r.Mux.Handle("PUT /api/tasks/{id}", r.authed(h.HandleUpdate, r.Limits.Moderate))
	r.Mux.Handle("DELETE /api/tasks/{id}", r.authed(h.HandleDelete, r.Limits.Moderate))
}

func (r *Router) registerComments() {
	h := &CommentHandler{Comments: r.CommentService}

	r.Mux.Handle("GET /api/comments/task/{taskId}", r.authed(h.HandleList, r.Limits.Lenient))
	r.Mux.Handle("POST /api/comments/task/{taskId}", r.authed(h.HandleCreate, r.Limits.Moderate))
	r.Mux.Handle("PUT /api/comments/{commentId}", r.authed(h.HandleUpdate, r.Limits.Moderate))
	r.Mux.Handle("DELETE /api/comments/{commentId}", r.authed(h.HandleDelete, r.Limits.Moderate))
}

func (r *Router) registerRealtime() {
	if r.Hub == nil {
		return
	}
	ws := &notify.Handler{
		Hub:            r.Hub,
		Verifier:       r.verifier,
		Roles:          r.roleLookup,
		CanView:        r.TaskService.CanView,
		AllowedOrigins: r.AllowedOrigins,
	}
	// Authentication happens inside the handshake since ?token= is accepted.
	r.Mux.Handle("GET /api/ws",
		httpx.Chain(ws,
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
}

func (r *Router) registerBootstrap() {
	// One-time setup endpoint.
	r.Mux.Handle("POST /api/bootstrap",
		httpx.Chain(&BootstrapHandler{BootstrapService: r.BootstrapService},
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	livez := httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.Limits.Lenient),
	)
	r.Mux.Handle("GET /livez", livez)
	r.Mux.Handle("GET /health", livez)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{}))
}
