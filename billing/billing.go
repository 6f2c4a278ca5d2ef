// Package billing processes inbound payment provider webhooks. This is the
// one surface that authenticates the calling service rather than an end
// user: no event is processed before its signature verifies.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/tenant"
)

// Event types this service acts on. Everything else is acknowledged and
// dropped.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// DefaultTolerance is how far a signature timestamp may drift before the
// event is rejected as a possible replay.
const DefaultTolerance = 5 * time.Minute

// ErrInvalidSignature is returned for any signature verification failure.
var ErrInvalidSignature = &sitehub.Error{
	Code: sitehub.EUnauthorized,
	Msg:  "webhook signature verification failed",
}

// Service verifies and applies billing events.
type Service struct {
	sites     *tenant.Service
	secret    []byte
	tolerance time.Duration
	log       *zap.Logger
	clock     clock.Clock
}

// NewService creates the billing service.
func NewService(sites *tenant.Service, secret []byte) *Service {
	return &Service{
		sites:     sites,
		secret:    secret,
		tolerance: DefaultTolerance,
		log:       zap.NewNop(),
		clock:     clock.New(),
	}
}

// WithLogger sets the logger on the service.
func (s *Service) WithLogger(log *zap.Logger) {
	s.log = log
}

// WithClock sets the clock used for the replay tolerance window.
func (s *Service) WithClock(c clock.Clock) {
	s.clock = c
}

// VerifySignature checks the provider's signature header, formatted
// "t={unix},v1={hex hmac}", against HMAC-SHA256(secret, "{t}.{payload}").
func (s *Service) VerifySignature(payload []byte, header string) error {
	if len(s.secret) == 0 || header == "" {
		return ErrInvalidSignature
	}

	var ts string
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	drift := s.clock.Now().Sub(time.Unix(unix, 0))
	if drift > s.tolerance || drift < -s.tolerance {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s.%s", ts, payload)
	expected := mac.Sum(nil)

	supplied, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(expected, supplied) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign produces a signature header for payload at the given time. Used by
// tests and local tooling.
func Sign(secret, payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%s.%s", ts, payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type event struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			Customer          string            `json:"customer"`
			Subscription      string            `json:"subscription"`
			ClientReferenceID string            `json:"client_reference_id"`
			Metadata          map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ProcessEvent applies a verified event. Unknown event types are dropped
// without error so the provider does not retry them forever.
func (s *Service) ProcessEvent(ctx context.Context, payload []byte) error {
	var ev event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return &sitehub.Error{Code: sitehub.EInvalid, Msg: "malformed webhook payload", Err: err}
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, &ev)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, &ev)
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", ev.Type))
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, ev *event) error {
	siteID := ev.Data.Object.ClientReferenceID
	if siteID == "" {
		siteID = ev.Data.Object.Metadata["siteId"]
	}
	if err := sitehub.ValidSiteID(siteID); err != nil {
		return &sitehub.Error{Code: sitehub.EInvalid, Msg: "checkout event carries no usable site id"}
	}

	s.log.Info("upgrading site to premium", zap.String("site", siteID))
	return s.sites.SetPaymentTier(ctx, siteID, sitehub.TierPremium,
		ev.Data.Object.Customer, ev.Data.Object.Subscription)
}

// handleSubscriptionDeleted downgrades every site holding the subscription.
// More than one match means duplicated billing state, but each site is still
// downgraded so none keeps premium on a dead subscription.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, ev *event) error {
	subID := ev.Data.Object.ID
	matches, err := s.sites.FindSitesBySubscription(ctx, subID)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		s.log.Warn("subscription deletion matched no site", zap.String("subscription", subID))
		return nil
	}
	if len(matches) > 1 {
		s.log.Warn("subscription held by multiple sites",
			zap.String("subscription", subID), zap.Strings("sites", matches))
	}

	for _, siteID := range matches {
		if err := s.sites.SetPaymentTier(ctx, siteID, sitehub.TierFree, "", ""); err != nil {
			return err
		}
		s.log.Info("downgraded site to free", zap.String("site", siteID))
	}
	return nil
}
