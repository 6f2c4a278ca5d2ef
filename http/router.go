package http

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/authorizer"
	"github.com/entry-nets/sitehub/billing"
	"github.com/entry-nets/sitehub/tenant"
)

// APIBackend carries every service the API surface depends on.
type APIBackend struct {
	Logger *zap.Logger

	SessionService    sitehub.SessionService
	PasswordsService  sitehub.PasswordsService
	SiteService       sitehub.SiteService
	TenantService     *tenant.Service
	OnboardingService sitehub.OnboardingService
	DeployService     sitehub.DeployService
	MediaService      sitehub.MediaService
	BillingService    *billing.Service
	Authorizer        *authorizer.Authorizer
	BearerValidator   authorizer.BearerValidator

	Registry *prometheus.Registry
}

// NewAPIHandler assembles the full HTTP surface.
func NewAPIHandler(b *APIBackend) http.Handler {
	log := b.Logger
	if log == nil {
		log = zap.NewNop()
	}

	sessionHandler := NewSessionHandler(log.Named("session"), b.SessionService, b.PasswordsService)
	contentHandler := NewContentHandler(log.Named("content"), b.SiteService, b.Authorizer, b.MediaService)
	siteHandler := NewSiteHandler(log.Named("sites"), b.BearerValidator, b.SiteService, b.OnboardingService, b.DeployService, b.TenantService)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.RealIP,
	)
	if b.Registry != nil {
		r.Use(Metrics(b.Registry))
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(b.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", sessionHandler.handleLogin)
		r.Get("/validate", sessionHandler.handleValidate)
		r.Post("/logout", sessionHandler.handleLogout)

		r.Get("/client-data", contentHandler.handleGetClientData)
		r.Post("/client-data", contentHandler.handleSaveClientData)
		r.Post("/media", contentHandler.handleAddMedia)
		r.Delete("/media/{publicID}", contentHandler.handleDeleteMedia)

		r.Get("/sites", siteHandler.handleListSites)
		r.Post("/sites", siteHandler.handleCreateSite)
		r.Delete("/sites/{siteID}", siteHandler.handleDeleteSite)
		r.Get("/deploy-status", siteHandler.handleDeployStatus)

		if b.BillingService != nil {
			billingHandler := NewBillingHandler(log.Named("billing"), b.BillingService)
			r.Post("/billing/webhook", billingHandler.handleWebhook)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = encodeResponse(r.Context(), w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
