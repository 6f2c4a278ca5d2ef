package tenant

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/kv"
	"github.com/entry-nets/sitehub/session"
)

// DefaultTemplateSiteID is the tenant cloned when onboarding a new site.
const DefaultTemplateSiteID = "coastal-breeze"

// OnboardingService creates and destroys tenants.
type OnboardingService struct {
	store          kv.Store
	deploy         sitehub.DeployService
	log            *zap.Logger
	clock          clock.Clock
	templateSiteID string
}

// NewOnboardingService creates the lifecycle service. deploy may be nil, in
// which case every created site is reported with provisioning pending.
func NewOnboardingService(store kv.Store, deploy sitehub.DeployService) *OnboardingService {
	return &OnboardingService{
		store:          store,
		deploy:         deploy,
		log:            zap.NewNop(),
		clock:          clock.New(),
		templateSiteID: DefaultTemplateSiteID,
	}
}

// WithLogger sets the logger on the service.
func (s *OnboardingService) WithLogger(log *zap.Logger) {
	s.log = log
}

// WithClock sets the clock used for timestamps.
func (s *OnboardingService) WithClock(c clock.Clock) {
	s.clock = c
}

// WithTemplateSite overrides the template tenant cloned on creation.
func (s *OnboardingService) WithTemplateSite(siteID string) {
	s.templateSiteID = siteID
}

var _ sitehub.OnboardingService = (*OnboardingService)(nil)

// CreateSite onboards a tenant: validates the request, clones the template
// content, writes settings and content, then provisions on the deploy
// platform. Provisioning is best-effort; the durable records are the
// valuable half of the operation and are never rolled back. A provisioning
// failure is reported via DeployPending on the returned record.
func (s *OnboardingService) CreateSite(ctx context.Context, req sitehub.CreateSiteRequest) (*sitehub.SiteRecord, error) {
	// Validation happens before any store access (bad ids and weak
	// passwords must not cost a round trip, and must not leave partial
	// state behind).
	if err := sitehub.ValidSiteID(req.SiteID); err != nil {
		return nil, err
	}
	if len(req.Password) < session.MinPasswordLength {
		return nil, session.EShortPassword
	}

	if _, err := s.store.Get(ctx, kv.SiteClient(req.SiteID)); err == nil {
		return nil, ErrSiteExists
	} else if !kv.IsNotFound(err) {
		return nil, err
	}

	var content sitehub.ClientContent
	if err := kv.GetJSON(ctx, s.store, kv.SiteClient(s.templateSiteID), &content); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrTemplateMissing
		}
		return nil, err
	}

	hash, err := session.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	settings := sitehub.SiteSettings{
		AdminPasswordHash: hash,
		CreatedAt:         now,
		AdminEmail:        req.AdminEmail,
		BusinessType:      req.BusinessType,
		PaymentTier:       sitehub.TierFree,
	}

	content.SiteTitle = req.BusinessName
	content.BusinessType = req.BusinessType
	content.PaymentTier = sitehub.TierFree
	content.LastUpdated = now
	content.Media = nil

	if err := kv.SetJSON(ctx, s.store, kv.SiteSettings(req.SiteID), &settings, 0); err != nil {
		return nil, err
	}
	if err := kv.SetJSON(ctx, s.store, kv.SiteClient(req.SiteID), &content, 0); err != nil {
		return nil, err
	}

	record := &sitehub.SiteRecord{
		SiteID:       req.SiteID,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		AdminEmail:   req.AdminEmail,
		CreatedAt:    now,
	}

	record.DeployPending = !s.provision(ctx, req.SiteID)
	return record, nil
}

// provision runs the external deploy steps and reports whether they all
// completed. Failures are logged for manual follow-up, never returned.
func (s *OnboardingService) provision(ctx context.Context, siteID string) bool {
	if s.deploy == nil {
		return false
	}

	projectID, err := s.deploy.CreateProject(ctx, siteID, map[string]string{
		"SITE_ID": siteID,
	})
	if err != nil {
		s.log.Error("deploy project creation failed, site needs manual provisioning",
			zap.String("site", siteID), zap.Error(err))
		return false
	}

	deployID, err := s.deploy.TriggerDeployment(ctx, projectID)
	if err != nil {
		s.log.Error("deployment trigger failed, site needs manual provisioning",
			zap.String("site", siteID), zap.Error(err))
		return false
	}

	status := &sitehub.DeployStatus{
		SiteID:    siteID,
		State:     sitehub.DeployBuilding,
		ProjectID: projectID,
		DeployID:  deployID,
	}
	if err := kv.SetJSON(ctx, s.store, kv.SiteDeploy(siteID), status, 0); err != nil {
		s.log.Warn("failed to cache deploy status", zap.String("site", siteID), zap.Error(err))
	}
	return true
}

// DeleteSite removes every record of a tenant. Reserved sites are refused
// before any store access. Each key is deleted independently; a failure on
// one key does not stop the others, and any failures are surfaced together
// once every key has been attempted.
func (s *OnboardingService) DeleteSite(ctx context.Context, siteID string) error {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return err
	}
	if sitehub.ProtectedSiteID(siteID) {
		return ErrProtectedSite
	}

	if _, err := s.store.Get(ctx, kv.SiteClient(siteID)); err != nil {
		if kv.IsNotFound(err) {
			return ErrSiteNotFound
		}
		return err
	}

	var result *multierror.Error
	for _, key := range []string{
		kv.SiteClient(siteID),
		kv.SiteSettings(siteID),
		kv.SiteMedia(siteID),
		kv.SiteDeploy(siteID),
	} {
		if err := s.store.Del(ctx, key); err != nil {
			s.log.Error("failed to delete site key", zap.String("key", key), zap.Error(err))
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return ErrIncompleteDelete(err)
	}
	return nil
}
