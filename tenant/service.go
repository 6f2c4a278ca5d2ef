package tenant

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/kv"
)

// Service provides per-site data access over the kv store. All reads and
// writes are scoped by the storage key derived from the site id; handlers
// must have already authorized the caller for that id.
type Service struct {
	store kv.Store
	log   *zap.Logger
	clock clock.Clock
}

// NewService creates a tenant service.
func NewService(store kv.Store) *Service {
	return &Service{
		store: store,
		log:   zap.NewNop(),
		clock: clock.New(),
	}
}

// WithLogger sets the logger on the service.
func (s *Service) WithLogger(log *zap.Logger) {
	s.log = log
}

// WithClock sets the clock used for timestamps.
func (s *Service) WithClock(c clock.Clock) {
	s.clock = c
}

var _ sitehub.SiteService = (*Service)(nil)

// ClientData loads a site's content document. Store failure surfaces as-is:
// the editor must never be handed substitute content it could later save
// back over the tenant's real document.
func (s *Service) ClientData(ctx context.Context, siteID string) (*sitehub.ClientContent, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, err
	}

	var content sitehub.ClientContent
	if err := kv.GetJSON(ctx, s.store, kv.SiteClient(siteID), &content); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return &content, nil
}

// PublishedClientData is the visitor-facing read. When the store is
// unreachable it degrades to the bundled snapshot so the rendered site stays
// up through an outage; a missing site is still a hard not-found.
func (s *Service) PublishedClientData(ctx context.Context, siteID string) (*sitehub.ClientContent, error) {
	content, err := s.ClientData(ctx, siteID)
	if err != nil {
		if err == ErrSiteNotFound || sitehub.ErrorCode(err) == sitehub.EInvalid {
			return nil, err
		}
		s.log.Warn("serving fallback content, store unavailable",
			zap.String("site", siteID), zap.Error(err))
		return FallbackContent()
	}
	return content, nil
}

// SaveClientData replaces a site's content document and stamps lastUpdated.
// Store failure is a hard error: a save must never report success without
// having persisted.
func (s *Service) SaveClientData(ctx context.Context, siteID string, content *sitehub.ClientContent) error {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return err
	}
	if content == nil {
		return &sitehub.Error{Code: sitehub.EInvalid, Msg: "content is required"}
	}

	content.LastUpdated = s.clock.Now().UTC()
	return kv.SetJSON(ctx, s.store, kv.SiteClient(siteID), content, 0)
}

// AddMedia prepends item to the site's media list and returns the new list.
// Newest entries come first so the gallery editor shows recent uploads on
// top. Last-writer-wins on the whole list; see the package note on races.
func (s *Service) AddMedia(ctx context.Context, siteID string, item sitehub.MediaItem) ([]sitehub.MediaItem, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, err
	}
	if item.URL == "" || item.PublicID == "" {
		return nil, &sitehub.Error{Code: sitehub.EInvalid, Msg: "media url and publicId are required"}
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.clock.Now().UTC()
	}

	list, err := s.mediaList(ctx, siteID)
	if err != nil {
		return nil, err
	}
	list = append([]sitehub.MediaItem{item}, list...)
	if err := kv.SetJSON(ctx, s.store, kv.SiteMedia(siteID), list, 0); err != nil {
		return nil, err
	}
	return list, nil
}

// RemoveMedia drops the entry with publicID from the site's media list.
func (s *Service) RemoveMedia(ctx context.Context, siteID, publicID string) error {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return err
	}

	list, err := s.mediaList(ctx, siteID)
	if err != nil {
		return err
	}

	kept := list[:0]
	found := false
	for _, m := range list {
		if m.PublicID == publicID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return ErrMediaNotFound
	}
	return kv.SetJSON(ctx, s.store, kv.SiteMedia(siteID), kept, 0)
}

// MediaList returns the site's media list, newest first.
func (s *Service) MediaList(ctx context.Context, siteID string) ([]sitehub.MediaItem, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, err
	}
	return s.mediaList(ctx, siteID)
}

func (s *Service) mediaList(ctx context.Context, siteID string) ([]sitehub.MediaItem, error) {
	var list []sitehub.MediaItem
	if err := kv.GetJSON(ctx, s.store, kv.SiteMedia(siteID), &list); err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

// ListSites enumerates every tenant with a content record and derives its
// summary. A tenant whose records fail to load is reported as a stub with
// the error string instead of hiding the rest of the listing.
func (s *Service) ListSites(ctx context.Context) ([]sitehub.SiteSummary, error) {
	keys, err := s.store.Keys(ctx, kv.SitePrefix)
	if err != nil {
		return nil, err
	}

	summaries := make([]sitehub.SiteSummary, 0, len(keys))
	for _, key := range keys {
		siteID := kv.SiteIDFromClientKey(key)
		if siteID == "" {
			continue
		}
		summaries = append(summaries, s.summarize(ctx, siteID))
	}
	return summaries, nil
}

func (s *Service) summarize(ctx context.Context, siteID string) sitehub.SiteSummary {
	summary := sitehub.SiteSummary{SiteID: siteID}

	var content sitehub.ClientContent
	if err := kv.GetJSON(ctx, s.store, kv.SiteClient(siteID), &content); err != nil {
		s.log.Warn("site summary degraded", zap.String("site", siteID), zap.Error(err))
		summary.Err = err.Error()
		return summary
	}
	summary.BusinessName = content.SiteTitle
	summary.BusinessType = content.BusinessType
	summary.LastUpdated = content.LastUpdated

	var settings sitehub.SiteSettings
	if err := kv.GetJSON(ctx, s.store, kv.SiteSettings(siteID), &settings); err != nil {
		s.log.Warn("site summary degraded", zap.String("site", siteID), zap.Error(err))
		summary.Err = err.Error()
		return summary
	}
	summary.Email = settings.AdminEmail
	summary.CreatedAt = settings.CreatedAt
	if summary.BusinessType == "" {
		summary.BusinessType = settings.BusinessType
	}
	return summary
}

// Settings loads a site's private settings record. Callers must not expose
// it to clients.
func (s *Service) Settings(ctx context.Context, siteID string) (*sitehub.SiteSettings, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, err
	}
	var settings sitehub.SiteSettings
	if err := kv.GetJSON(ctx, s.store, kv.SiteSettings(siteID), &settings); err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return &settings, nil
}

// SetWelcomeEmailSent flips the settings flag once the welcome email has
// gone out.
func (s *Service) SetWelcomeEmailSent(ctx context.Context, siteID string) error {
	settings, err := s.Settings(ctx, siteID)
	if err != nil {
		return err
	}
	settings.WelcomeEmailSent = true
	return kv.SetJSON(ctx, s.store, kv.SiteSettings(siteID), settings, 0)
}

// SetPaymentTier records a billing transition on both the content document
// (which the rendered site reads) and the settings record (which holds the
// provider identifiers).
func (s *Service) SetPaymentTier(ctx context.Context, siteID string, tier sitehub.PaymentTier, customerID, subscriptionID string) error {
	settings, err := s.Settings(ctx, siteID)
	if err != nil {
		return err
	}
	settings.PaymentTier = tier
	if customerID != "" {
		settings.StripeCustomerID = customerID
	}
	if subscriptionID != "" {
		settings.SubscriptionID = subscriptionID
	}
	if tier == sitehub.TierFree {
		settings.SubscriptionID = ""
	}
	if err := kv.SetJSON(ctx, s.store, kv.SiteSettings(siteID), settings, 0); err != nil {
		return err
	}

	var content sitehub.ClientContent
	if err := kv.GetJSON(ctx, s.store, kv.SiteClient(siteID), &content); err != nil {
		return err
	}
	content.PaymentTier = tier
	return kv.SetJSON(ctx, s.store, kv.SiteClient(siteID), &content, 0)
}

// FindSitesBySubscription returns every site whose settings carry the given
// subscription id. More than one match is a data anomaly but each match is
// still returned so a downgrade reaches all of them.
func (s *Service) FindSitesBySubscription(ctx context.Context, subscriptionID string) ([]string, error) {
	if subscriptionID == "" {
		return nil, &sitehub.Error{Code: sitehub.EInvalid, Msg: "subscription id is required"}
	}

	keys, err := s.store.Keys(ctx, kv.SitePrefix)
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range keys {
		siteID := kv.SiteIDFromClientKey(key)
		if siteID == "" {
			continue
		}
		var settings sitehub.SiteSettings
		if err := kv.GetJSON(ctx, s.store, kv.SiteSettings(siteID), &settings); err != nil {
			s.log.Warn("skipping site during subscription scan",
				zap.String("site", siteID), zap.Error(err))
			continue
		}
		if settings.SubscriptionID == subscriptionID {
			matched = append(matched, siteID)
		}
	}
	return matched, nil
}

// CacheDeployStatus stores the last observed deployment state for a site.
func (s *Service) CacheDeployStatus(ctx context.Context, status *sitehub.DeployStatus) error {
	if status == nil || status.SiteID == "" {
		return &sitehub.Error{Code: sitehub.EInvalid, Msg: "deploy status requires a site id"}
	}
	return kv.SetJSON(ctx, s.store, kv.SiteDeploy(status.SiteID), status, 0)
}

// CachedDeployStatus returns the last observed deployment state, or nil when
// none has been recorded.
func (s *Service) CachedDeployStatus(ctx context.Context, siteID string) (*sitehub.DeployStatus, error) {
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return nil, err
	}
	var status sitehub.DeployStatus
	if err := kv.GetJSON(ctx, s.store, kv.SiteDeploy(siteID), &status); err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}
