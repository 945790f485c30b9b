package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/app"
	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/handlers"
	"github.com/charlesng35/barangay/internal/middleware"
	"github.com/charlesng35/barangay/internal/monitoring"
	"github.com/charlesng35/barangay/internal/monitoring/checks"
	"github.com/charlesng35/barangay/internal/permissions"
)

// RouterOption customises NewRouter.
type RouterOption func(*routerOptions)

type routerOptions struct {
	rateStore middleware.RateStore
	checks    []monitoring.Check
}

// WithRateStore shares rate-limit counters through store instead of process memory.
func WithRateStore(store middleware.RateStore) RouterOption {
	return func(o *routerOptions) {
		o.rateStore = store
	}
}

// WithHealthChecks adds readiness probes next to the database check.
func WithHealthChecks(probes ...monitoring.Check) RouterOption {
	return func(o *routerOptions) {
		o.checks = append(o.checks, probes...)
	}
}

// NewRouter builds the Gin engine, wires middleware and registers every route. Each
// authenticated group is guarded by the page that owns it.
func NewRouter(db *gorm.DB, cfg *app.Config, tokens *auth.TokenService, provider auth.IdentityProvider, svc *Services, opts ...RouterOption) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if provider == nil {
		return nil, fmt.Errorf("identity provider must be provided")
	}
	if svc == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	var options routerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	resolver, err := auth.NewResolver(db, tokens)
	if err != nil {
		return nil, err
	}
	cookies := cfg.CookieSettings()

	r := gin.New()
	r.NoRoute(middleware.NotFoundHandler)

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cookies.Secure))
	r.Use(middleware.StorageDeadline(cfg.Server.StorageTimeout))

	if cfg.Monitoring.Health.Enabled {
		health := monitoring.NewHealthManager(checks.Database(db, cfg.Server.StorageTimeout))
		for _, check := range options.checks {
			health.Register(check)
		}
		r.GET("/health", handlers.Health(health))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Endpoints that accept invitation codes without a session are throttled per client.
	codeLimiter := middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window, options.rateStore))

	authHandler := handlers.NewAuthHandler(provider, tokens, svc.Accounts, svc.Tenants, cookies, handlers.AuthRedirects{
		Success: cfg.Auth.OIDC.SuccessRedirect,
		Failure: cfg.Auth.OIDC.FailureRedirect,
	})
	setupHandler := handlers.NewSetupHandler(svc.Accounts)
	invitationHandler := handlers.NewInvitationHandler(svc.Invitations)

	// Public routes
	public := r.Group("/api")
	{
		public.GET("/auth/login", codeLimiter, authHandler.Login)
		public.GET("/auth/callback", authHandler.Callback)
		public.GET("/invitations/verify/:code", codeLimiter, invitationHandler.Verify)
		public.GET("/setup/status", setupHandler.Status)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Identity(resolver, tokens, cookies))

	api.GET("/auth/me", authHandler.Me)
	api.POST("/auth/logout", authHandler.Logout)

	barangayHandler := handlers.NewBarangayHandler(svc.Tenants)
	barangays := api.Group("/barangays", middleware.RequirePage(permissions.PageBarangays))
	{
		barangays.GET("", barangayHandler.List)
		barangays.POST("", barangayHandler.Create)
		barangays.GET("/:id", barangayHandler.Get)
		barangays.PUT("/:id", barangayHandler.Update)
	}

	settings := api.Group("/barangay", middleware.RequirePage(permissions.PageSettings))
	{
		settings.GET("", barangayHandler.Current)
		settings.PUT("", barangayHandler.UpdateCurrent)
	}

	invitations := api.Group("/invitations", middleware.RequirePage(permissions.PageUsers))
	{
		invitations.GET("", invitationHandler.List)
		invitations.POST("", invitationHandler.Issue)
		invitations.DELETE("/:id", invitationHandler.Revoke)
	}

	userHandler := handlers.NewUserHandler(svc.Accounts)
	users := api.Group("/users", middleware.RequirePage(permissions.PageUsers))
	{
		users.GET("", userHandler.List)
		users.POST("/:id/activate", userHandler.Activate)
		users.POST("/:id/deactivate", userHandler.Deactivate)
	}

	residentHandler := handlers.NewResidentHandler(svc.Residents)
	residents := api.Group("/residents", middleware.RequirePage(permissions.PageResidents))
	{
		residents.GET("", residentHandler.List)
		residents.POST("", residentHandler.Create)
		residents.GET("/:id", residentHandler.Get)
		residents.PUT("/:id", residentHandler.Update)
		residents.DELETE("/:id", residentHandler.Delete)
	}

	clearanceHandler := handlers.NewClearanceHandler(svc.Clearances)
	clearances := api.Group("/clearances", middleware.RequirePage(permissions.PageClearances))
	{
		clearances.GET("", clearanceHandler.List)
		clearances.POST("", clearanceHandler.Create)
		clearances.GET("/:id", clearanceHandler.Get)
		clearances.GET("/:id/qr", clearanceHandler.QRCode)
		clearances.PUT("/:id", clearanceHandler.Update)
		clearances.DELETE("/:id", clearanceHandler.Delete)
	}

	blotterHandler := handlers.NewBlotterHandler(svc.Blotter)
	blotter := api.Group("/blotter", middleware.RequirePage(permissions.PageBlotter))
	{
		blotter.GET("", blotterHandler.List)
		blotter.POST("", blotterHandler.Create)
		blotter.GET("/:id", blotterHandler.Get)
		blotter.PUT("/:id", blotterHandler.Update)
		blotter.DELETE("/:id", blotterHandler.Delete)
	}

	financialHandler := handlers.NewFinancialHandler(svc.Financial)
	financial := api.Group("/financial", middleware.RequirePage(permissions.PageFinancial))
	{
		financial.GET("", financialHandler.List)
		financial.GET("/summary", financialHandler.Summary)
		financial.POST("", financialHandler.Create)
		financial.GET("/:id", financialHandler.Get)
		financial.PUT("/:id", financialHandler.Update)
		financial.DELETE("/:id", financialHandler.Delete)
	}

	folderHandler := handlers.NewFolderHandler(svc.Folders)
	folders := api.Group("/folders", middleware.RequirePage(permissions.PageDocuments))
	{
		folders.GET("", folderHandler.List)
		folders.POST("", folderHandler.Create)
		folders.GET("/:id", folderHandler.Get)
		folders.PUT("/:id", folderHandler.Update)
		folders.DELETE("/:id", folderHandler.Delete)
	}

	documentHandler := handlers.NewDocumentHandler(svc.Documents, cfg.Storage.MaxUploadBytes)
	documents := api.Group("/documents", middleware.RequirePage(permissions.PageDocuments))
	{
		documents.GET("", documentHandler.List)
		documents.POST("", documentHandler.Upload)
		documents.GET("/:id", documentHandler.Get)
		documents.GET("/:id/download", documentHandler.Download)
		documents.PUT("/:id", documentHandler.Update)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	activityHandler := handlers.NewActivityHandler(svc.Activity)
	activity := api.Group("/activity-logs", middleware.RequirePage(permissions.PageActivityLogs))
	{
		activity.GET("", activityHandler.List)
	}

	return r, nil
}
