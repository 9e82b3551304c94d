package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/middleware"
	"github.com/requisify/requisify/pkg/observability"
	"github.com/requisify/requisify/pkg/secaudit"
	"github.com/requisify/requisify/pkg/session"
	"github.com/requisify/requisify/pkg/tenancy"
)

// Deps carries everything the API server needs wired in
type Deps struct {
	Directory tenancy.Directory
	Verifier  CredentialVerifier
	Limiter   *session.LoginLimiter
	Sessions  session.Store
	Minter    *claims.Minter
	Codec     *claims.TokenCodec
	Versions  *claims.VersionStore
	Recorder  secaudit.Recorder
	Security  *secaudit.Handlers
	Metrics   *observability.Metrics
	TokenTTL  time.Duration
}

// Server assembles the HTTP API: the open auth surface, the
// authenticated org surface, the tenant-scoped surface behind the tenant
// middleware, and the platform-admin security surface.
type Server struct {
	router         *mux.Router
	authHandlers   *AuthHandlers
	orgHandlers    *OrgHandlers
	memberHandlers *MemberHandlers
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = claims.DefaultTokenTTL
	}

	s := &Server{
		router:         mux.NewRouter(),
		authHandlers:   NewAuthHandlers(deps.Verifier, deps.Limiter, deps.Sessions, deps.Minter, deps.Codec, deps.Directory, deps.Recorder, deps.Metrics, deps.TokenTTL),
		orgHandlers:    NewOrgHandlers(deps.Directory, deps.Recorder),
		memberHandlers: NewMemberHandlers(deps.Directory, deps.Versions, deps.Recorder, deps.Metrics),
	}
	s.setupRoutes(deps)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID))
	if deps.Metrics != nil {
		s.router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(deps.Metrics)))
	}

	claimsRequired := middleware.NewClaimsMiddleware(deps.Codec, false)
	claimsOptional := middleware.NewClaimsMiddleware(deps.Codec, true)
	tenant := middleware.NewTenantMiddleware(deps.Directory, deps.Recorder)

	// Login is open; refresh, select, and logout ride on the session,
	// with claims decoded when a token is offered
	authRouter := s.router.PathPrefix("").Subrouter()
	authRouter.Use(mux.MiddlewareFunc(claimsOptional.Handler))
	s.authHandlers.RegisterRoutes(authRouter)

	// Everything else requires a verified token
	apiRouter := s.router.PathPrefix("").Subrouter()
	apiRouter.Use(mux.MiddlewareFunc(claimsRequired.Handler))

	// Tenant-scoped routes: the routed org is resolved and checked
	// against the claims before any handler runs
	tenantScoped := apiRouter.PathPrefix("/orgs/{org_id}").Subrouter()
	tenantScoped.Use(mux.MiddlewareFunc(tenant.Handler))

	s.orgHandlers.RegisterRoutes(apiRouter, tenantScoped)
	s.memberHandlers.RegisterRoutes(tenantScoped)

	// Security events: platform-admin only
	if deps.Security != nil {
		securityRouter := apiRouter.PathPrefix("").Subrouter()
		securityRouter.Use(mux.MiddlewareFunc(requirePlatformAdmin))
		deps.Security.RegisterRoutes(securityRouter)
	}
}

// Router returns the assembled router
func (s *Server) Router() *mux.Router {
	return s.router
}

// requirePlatformAdmin gates the security surface
func requirePlatformAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := middleware.ClaimsFromContext(r)
		if c == nil || !c.IsPlatformAdmin {
			// Same shape as any other missing resource
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
