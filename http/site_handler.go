package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/authorizer"
	"github.com/entry-nets/sitehub/tenant"
)

// SiteHandler serves the operator surface (site listing, creation, and
// deletion) plus the public deployment status poll. The operator endpoints
// take the bearer credential; they have no tenant-bound session.
type SiteHandler struct {
	errors     ErrorHandler
	log        *zap.Logger
	bearer     authorizer.BearerValidator
	sites      sitehub.SiteService
	onboarding sitehub.OnboardingService
	deploy     sitehub.DeployService
	tenants    *tenant.Service
}

// NewSiteHandler returns a new instance of SiteHandler.
func NewSiteHandler(log *zap.Logger, bearerValidator authorizer.BearerValidator, sites sitehub.SiteService, onboarding sitehub.OnboardingService, deploySvc sitehub.DeployService, tenants *tenant.Service) *SiteHandler {
	return &SiteHandler{
		log:        log,
		bearer:     bearerValidator,
		sites:      sites,
		onboarding: onboarding,
		deploy:     deploySvc,
		tenants:    tenants,
	}
}

// requireBearer validates the operator credential and writes the denial
// itself when the credential does not hold.
func (h *SiteHandler) requireBearer(w http.ResponseWriter, r *http.Request) bool {
	cred := credentialFromRequest(r)
	if cred.Bearer == "" {
		h.errors.HandleHTTPError(r.Context(), authorizer.ErrUnauthenticated, w)
		return false
	}
	if err := h.bearer.Validate(cred.Bearer); err != nil {
		h.errors.HandleHTTPError(r.Context(), err, w)
		return false
	}
	return true
}

// handleListSites is the HTTP handler for GET /api/sites.
func (h *SiteHandler) handleListSites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBearer(w, r) {
		return
	}

	summaries, err := h.sites.ListSites(ctx)
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusOK, summaries)
}

// handleCreateSite is the HTTP handler for POST /api/sites.
func (h *SiteHandler) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBearer(w, r) {
		return
	}

	var req sitehub.CreateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.HandleHTTPError(ctx, &sitehub.Error{
			Code: sitehub.EInvalid,
			Msg:  "malformed create site request",
			Err:  err,
		}, w)
		return
	}

	record, err := h.onboarding.CreateSite(ctx, req)
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusCreated, record)
}

// handleDeleteSite is the HTTP handler for DELETE /api/sites/{siteID}.
func (h *SiteHandler) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.requireBearer(w, r) {
		return
	}

	if err := h.onboarding.DeleteSite(ctx, chi.URLParam(r, "siteID")); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeployStatus is the HTTP handler for GET /api/deploy-status. It is
// public: the onboarding UI polls it before the admin has a session. A live
// platform answer refreshes the cache; on upstream failure the last cached
// state is served instead.
func (h *SiteHandler) handleDeployStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siteID := r.URL.Query().Get("siteId")
	if err := sitehub.ValidSiteID(siteID); err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}

	if h.deploy != nil {
		if status, err := h.deploy.DeploymentStatus(ctx, siteID); err == nil {
			if cacheErr := h.tenants.CacheDeployStatus(ctx, status); cacheErr != nil {
				h.log.Warn("failed to cache deploy status", zap.Error(cacheErr))
			}
			_ = encodeResponse(ctx, w, http.StatusOK, status)
			return
		} else {
			h.log.Warn("deploy status poll failed, serving cached state",
				zap.String("site", siteID), zap.Error(err))
		}
	}

	cached, err := h.tenants.CachedDeployStatus(ctx, siteID)
	if err != nil {
		h.errors.HandleHTTPError(ctx, err, w)
		return
	}
	if cached == nil {
		h.errors.HandleHTTPError(ctx, &sitehub.Error{
			Code: sitehub.ENotFound,
			Msg:  "no deployment recorded for this site",
		}, w)
		return
	}
	_ = encodeResponse(ctx, w, http.StatusOK, cached)
}
