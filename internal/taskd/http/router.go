package http

import (
	"log/slog"
	"net/http"
	"time"

	_ "github.com/aussiebroadwan/taskd/api/taskd" // Swagger docs
	"github.com/aussiebroadwan/taskd/internal/taskd/domain"
	"github.com/aussiebroadwan/taskd/internal/taskd/service"
	"github.com/aussiebroadwan/taskd/pkg/httpx"
	"github.com/aussiebroadwan/taskd/pkg/slogx"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RateLimits groups the per-route-class limiter settings.
type RateLimits struct {
	Auth httpx.RateLimitConfig
	API  httpx.RateLimitConfig

	// TrustProxyHeaders keys the auth limiter on X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	guard        *httpx.Guard
	cookies      httpx.CookiePolicy
	limits       RateLimits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	db    Pinger
	cache Pinger

	SessionService *service.SessionService
	TaskService    *service.TaskService
	AccountService *service.AccountService
}

func NewRouter(
	guard *httpx.Guard,
	cookies httpx.CookiePolicy,
	limits RateLimits,
	buildVersion string,
	db, cache Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		guard:        guard,
		cookies:      cookies,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		db:           db,
		cache:        cache,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTodo()
	r.registerAccounts()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP applies the global middleware chain.
//
//	@title						taskd API
//	@version					0.1.0
//	@description				Task tracking with JWT sessions. Access tokens go in the Authorization header; the refresh token lives in an HttpOnly cookie scoped to /auth.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps h with the guard for the given roles and a per-account
// rate limit.
func (r *Router) secured(h http.HandlerFunc, roles ...domain.Role) http.Handler {
	allowed := make([]string, len(roles))
	for i, role := range roles {
		allowed[i] = string(role)
	}
	return httpx.Chain(h,
		r.guard.Route(httpx.RouteConfig{AllowedRoles: allowed}),
		httpx.RateLimit(r.limits.API, httpx.AccountKeyExtractor),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.SessionService, Cookies: r.cookies}

	// Credential and refresh endpoints share one strict per-IP budget.
	authLimit := httpx.RateLimit(r.limits.Auth, httpx.ClientIPKeyExtractor(r.limits.TrustProxyHeaders))
	public := r.guard.Route(httpx.RouteConfig{Public: true})

	r.Mux.Handle("POST /auth/sign-up", httpx.Chain(http.HandlerFunc(h.HandleSignUp), public, authLimit))
	r.Mux.Handle("POST /auth/sign-in", httpx.Chain(http.HandlerFunc(h.HandleSignIn), public, authLimit))
	r.Mux.Handle("POST /auth/refresh", httpx.Chain(http.HandlerFunc(h.HandleRefresh), public, authLimit))

	// Sign-out authenticates by refresh cookie; the bearer is optional.
	r.Mux.Handle("DELETE /auth/sign-out", httpx.Chain(http.HandlerFunc(h.HandleSignOut), public, authLimit))
}

func (r *Router) registerTodo() {
	h := &TodoHandler{Tasks: r.TaskService}

	r.Mux.Handle("GET /todo", r.secured(h.HandleList, domain.RoleUser, domain.RoleAdmin))
	r.Mux.Handle("POST /todo", r.secured(h.HandleCreate, domain.RoleUser, domain.RoleAdmin))
	r.Mux.Handle("GET /todo/{id}", r.secured(h.HandleGet, domain.RoleUser, domain.RoleAdmin))
	r.Mux.Handle("PATCH /todo/{id}", r.secured(h.HandleUpdate, domain.RoleUser, domain.RoleAdmin))
	r.Mux.Handle("DELETE /todo/{id}", r.secured(h.HandleDelete, domain.RoleUser, domain.RoleAdmin))
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{Accounts: r.AccountService}

	r.Mux.Handle("GET /accounts/me", r.secured(h.HandleMe))
	r.Mux.Handle("PATCH /accounts/me", r.secured(h.HandleUpdateMe))
	r.Mux.Handle("GET /accounts", r.secured(h.HandleList, domain.RoleAdmin))
	r.Mux.Handle("DELETE /accounts/{id}", r.secured(h.HandleDelete, domain.RoleAdmin))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.db, r.cache))
}
