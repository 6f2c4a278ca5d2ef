package sitehub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// PaymentTier is the billing tier recorded on a site's content document.
type PaymentTier string

const (
	TierFree    PaymentTier = "FREE"
	TierPremium PaymentTier = "PREMIUM"
)

// siteIDPattern is the only shape a tenant identifier may take. IDs are
// immutable once created and appear verbatim in storage keys and URLs.
var siteIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidSiteID returns an error unless id is a well-formed tenant identifier.
func ValidSiteID(id string) error {
	if id == "" || !siteIDPattern.MatchString(id) {
		return &Error{
			Code: EInvalid,
			Msg:  fmt.Sprintf("invalid site id %q: must match [a-z0-9-]+", id),
		}
	}
	return nil
}

// protectedSiteIDs are tenants that must never be deleted. entry-nets is the
// company site and coastal-breeze is the onboarding template.
var protectedSiteIDs = map[string]bool{
	"entry-nets":     true,
	"coastal-breeze": true,
}

// ProtectedSiteID reports whether id names a tenant that rejects deletion.
func ProtectedSiteID(id string) bool {
	return protectedSiteIDs[id]
}

// MediaItem is one uploaded asset recorded on a site's media list.
type MediaItem struct {
	URL       string    `json:"url"`
	PublicID  string    `json:"publicId"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Format    string    `json:"format,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientContent is a site's published document. The editor owns its nested
// sections (hero, about, services, gallery, ...) which are carried opaquely;
// only the fields the platform itself reads and writes are typed.
type ClientContent struct {
	SiteTitle    string
	LogoURL      string
	BusinessType string
	PaymentTier  PaymentTier
	LastUpdated  time.Time
	Media        []MediaItem

	// Sections holds every other top-level key of the document verbatim.
	Sections map[string]json.RawMessage
}

const timeLayout = time.RFC3339

// MarshalJSON flattens the typed fields back into the document alongside the
// opaque sections, so a load/save round trip preserves editor content.
func (c ClientContent) MarshalJSON() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(c.Sections)+6)
	for k, v := range c.Sections {
		doc[k] = v
	}

	put := func(key string, v interface{}) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		doc[key] = b
		return nil
	}

	if c.SiteTitle != "" {
		if err := put("siteTitle", c.SiteTitle); err != nil {
			return nil, err
		}
	}
	if c.LogoURL != "" {
		if err := put("logoUrl", c.LogoURL); err != nil {
			return nil, err
		}
	}
	if c.BusinessType != "" {
		if err := put("businessType", c.BusinessType); err != nil {
			return nil, err
		}
	}
	if c.PaymentTier != "" {
		if err := put("paymentTier", c.PaymentTier); err != nil {
			return nil, err
		}
	}
	if !c.LastUpdated.IsZero() {
		if err := put("lastUpdated", c.LastUpdated.UTC().Format(timeLayout)); err != nil {
			return nil, err
		}
	}
	if c.Media != nil {
		if err := put("media", c.Media); err != nil {
			return nil, err
		}
	}

	return json.Marshal(doc)
}

// UnmarshalJSON lifts the platform-owned fields out of the document and keeps
// everything else opaque under Sections.
func (c *ClientContent) UnmarshalJSON(b []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}

	take := func(key string, dst interface{}) error {
		raw, ok := doc[key]
		if !ok {
			return nil
		}
		delete(doc, key)
		return json.Unmarshal(raw, dst)
	}

	if err := take("siteTitle", &c.SiteTitle); err != nil {
		return err
	}
	if err := take("logoUrl", &c.LogoURL); err != nil {
		return err
	}
	if err := take("businessType", &c.BusinessType); err != nil {
		return err
	}
	if err := take("paymentTier", &c.PaymentTier); err != nil {
		return err
	}
	var ts string
	if err := take("lastUpdated", &ts); err != nil {
		return err
	}
	if ts != "" {
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return fmt.Errorf("lastUpdated: %w", err)
		}
		c.LastUpdated = t
	}
	if err := take("media", &c.Media); err != nil {
		return err
	}

	c.Sections = doc
	return nil
}

// SiteSettings is a site's private record. It never leaves the server; in
// particular AdminPasswordHash stays inside the passwords service boundary.
type SiteSettings struct {
	AdminPasswordHash string      `json:"adminPasswordHash"`
	CreatedAt         time.Time   `json:"createdAt"`
	AdminEmail        string      `json:"adminEmail,omitempty"`
	BusinessType      string      `json:"businessType,omitempty"`
	WelcomeEmailSent  bool        `json:"welcomeEmailSent,omitempty"`
	StripeCustomerID  string      `json:"stripeCustomerId,omitempty"`
	SubscriptionID    string      `json:"subscriptionId,omitempty"`
	PaymentTier       PaymentTier `json:"paymentTier,omitempty"`
}

// SiteSummary is the directory's listing record for one tenant. Err is set
// instead of the detail fields when that tenant's records failed to load.
type SiteSummary struct {
	SiteID       string    `json:"siteId"`
	BusinessName string    `json:"businessName,omitempty"`
	BusinessType string    `json:"businessType,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated,omitempty"`
	Err          string    `json:"error,omitempty"`
}

// SiteRecord is the result of creating a tenant. DeployPending is set when
// the durable records were written but external provisioning did not finish
// and needs manual follow-up.
type SiteRecord struct {
	SiteID        string    `json:"siteId"`
	BusinessName  string    `json:"businessName"`
	BusinessType  string    `json:"businessType"`
	AdminEmail    string    `json:"adminEmail"`
	CreatedAt     time.Time `json:"createdAt"`
	DeployPending bool      `json:"deployPending,omitempty"`
}

// CreateSiteRequest carries everything needed to onboard a tenant.
type CreateSiteRequest struct {
	SiteID       string `json:"siteId"`
	BusinessName string `json:"businessName"`
	BusinessType string `json:"businessType"`
	Password     string `json:"password"`
	AdminEmail   string `json:"adminEmail"`
}

// SiteService provides access to one tenant's content, scoped by siteID.
type SiteService interface {
	// ClientData loads the site's content document. Store failure is a hard
	// error; editor reads must never see substitute content they could save
	// back over the real document.
	ClientData(ctx context.Context, siteID string) (*ClientContent, error)
	// PublishedClientData is the visitor-facing read: on store failure it
	// degrades to a bundled snapshot so the rendered site stays up.
	PublishedClientData(ctx context.Context, siteID string) (*ClientContent, error)
	SaveClientData(ctx context.Context, siteID string, content *ClientContent) error
	AddMedia(ctx context.Context, siteID string, item MediaItem) ([]MediaItem, error)
	RemoveMedia(ctx context.Context, siteID, publicID string) error
	ListSites(ctx context.Context) ([]SiteSummary, error)
}

// OnboardingService creates and destroys tenants.
type OnboardingService interface {
	CreateSite(ctx context.Context, req CreateSiteRequest) (*SiteRecord, error)
	DeleteSite(ctx context.Context, siteID string) error
}
