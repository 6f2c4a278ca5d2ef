package billing

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/inmem"
	"github.com/entry-nets/sitehub/kv"
	"github.com/entry-nets/sitehub/session"
	"github.com/entry-nets/sitehub/tenant"
)

var secret = []byte("whsec_test")

func newTestService(t *testing.T, siteIDs ...string) (*Service, *tenant.Service) {
	t.Helper()
	store := inmem.NewKVStore()
	ctx := context.Background()

	hash, err := session.HashPassword("sandcastle")
	require.NoError(t, err)
	for _, id := range siteIDs {
		settings := sitehub.SiteSettings{AdminPasswordHash: hash, CreatedAt: time.Now().UTC()}
		require.NoError(t, kv.SetJSON(ctx, store, kv.SiteSettings(id), &settings, 0))
		content := sitehub.ClientContent{SiteTitle: id, PaymentTier: sitehub.TierFree}
		require.NoError(t, kv.SetJSON(ctx, store, kv.SiteClient(id), &content, 0))
	}

	sites := tenant.NewService(store)
	return NewService(sites, secret), sites
}

func TestVerifySignature(t *testing.T) {
	svc, _ := newTestService(t)
	mock := clock.NewMock()
	mock.Add(1_000_000 * time.Second)
	svc.WithClock(mock)

	payload := []byte(`{"type":"checkout.session.completed"}`)

	t.Run("valid", func(t *testing.T) {
		header := Sign(secret, payload, mock.Now())
		require.NoError(t, svc.VerifySignature(payload, header))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := Sign([]byte("whsec_other"), payload, mock.Now())
		require.Equal(t, ErrInvalidSignature, svc.VerifySignature(payload, header))
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := Sign(secret, payload, mock.Now())
		require.Equal(t, ErrInvalidSignature, svc.VerifySignature([]byte(`{"type":"other"}`), header))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := Sign(secret, payload, mock.Now().Add(-10*time.Minute))
		require.Equal(t, ErrInvalidSignature, svc.VerifySignature(payload, header))
	})

	t.Run("missing header", func(t *testing.T) {
		require.Equal(t, ErrInvalidSignature, svc.VerifySignature(payload, ""))
	})

	t.Run("malformed header", func(t *testing.T) {
		require.Equal(t, ErrInvalidSignature, svc.VerifySignature(payload, "t=notanumber,v1=zz"))
	})
}

func TestProcessEvent_CheckoutCompleted(t *testing.T) {
	svc, sites := newTestService(t, "acme")
	ctx := context.Background()

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_123",
			"subscription": "sub_456",
			"client_reference_id": "acme"
		}}
	}`)
	require.NoError(t, svc.ProcessEvent(ctx, payload))

	content, err := sites.ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, sitehub.TierPremium, content.PaymentTier)

	settings, err := sites.Settings(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "cus_123", settings.StripeCustomerID)
	require.Equal(t, "sub_456", settings.SubscriptionID)
}

func TestProcessEvent_CheckoutCompleted_SiteIDFromMetadata(t *testing.T) {
	svc, sites := newTestService(t, "acme")
	ctx := context.Background()

	payload := []byte(`{
		"type": "checkout.session.completed",
		"data": {"object": {
			"customer": "cus_123",
			"subscription": "sub_456",
			"metadata": {"siteId": "acme"}
		}}
	}`)
	require.NoError(t, svc.ProcessEvent(ctx, payload))

	content, err := sites.ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, sitehub.TierPremium, content.PaymentTier)
}

func TestProcessEvent_SubscriptionDeleted_DowngradesEveryHolder(t *testing.T) {
	// Two sites holding one subscription is a data anomaly; both must
	// still lose premium when it dies.
	svc, sites := newTestService(t, "site-x", "site-y", "site-z")
	ctx := context.Background()

	require.NoError(t, sites.SetPaymentTier(ctx, "site-x", sitehub.TierPremium, "cus_x", "sub_dup"))
	require.NoError(t, sites.SetPaymentTier(ctx, "site-y", sitehub.TierPremium, "cus_y", "sub_dup"))
	require.NoError(t, sites.SetPaymentTier(ctx, "site-z", sitehub.TierPremium, "cus_z", "sub_other"))

	payload := []byte(`{
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_dup"}}
	}`)
	require.NoError(t, svc.ProcessEvent(ctx, payload))

	for _, id := range []string{"site-x", "site-y"} {
		content, err := sites.ClientData(ctx, id)
		require.NoError(t, err)
		require.Equal(t, sitehub.TierFree, content.PaymentTier, id)
	}
	content, err := sites.ClientData(ctx, "site-z")
	require.NoError(t, err)
	require.Equal(t, sitehub.TierPremium, content.PaymentTier)
}

func TestProcessEvent_UnknownTypeIgnored(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.ProcessEvent(context.Background(), []byte(`{"type":"invoice.paid"}`)))
}

func TestProcessEvent_Malformed(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.ProcessEvent(context.Background(), []byte(`{`))
	require.Equal(t, sitehub.EInvalid, sitehub.ErrorCode(err))
}
