package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/inmem"
	"github.com/entry-nets/sitehub/kv"
	"github.com/entry-nets/sitehub/mock"
)

func newSeededService(t *testing.T) (*Service, *inmem.KVStore, *clock.Mock) {
	t.Helper()
	mockClock := clock.NewMock()
	store := inmem.NewKVStore()
	seedTemplate(t, store)

	onboarding := NewOnboardingService(store, nil)
	onboarding.WithClock(mockClock)
	_, err := onboarding.CreateSite(context.Background(), validRequest())
	require.NoError(t, err)

	svc := NewService(store)
	svc.WithClock(mockClock)
	return svc, store, mockClock
}

func TestSaveClientData_StampsLastUpdated(t *testing.T) {
	svc, _, mockClock := newSeededService(t)
	ctx := context.Background()

	mockClock.Add(48 * time.Hour)
	content, err := svc.ClientData(ctx, "acme")
	require.NoError(t, err)

	require.NoError(t, svc.SaveClientData(ctx, "acme", content))

	saved, err := svc.ClientData(ctx, "acme")
	require.NoError(t, err)
	require.True(t, saved.LastUpdated.Equal(mockClock.Now()),
		"lastUpdated = %v, want %v", saved.LastUpdated, mockClock.Now())
}

func TestSaveClientData_PreservesSections(t *testing.T) {
	svc, _, _ := newSeededService(t)
	ctx := context.Background()

	content, err := svc.ClientData(ctx, "acme")
	require.NoError(t, err)
	content.Sections["hero"] = json.RawMessage(`{"headline":"New Headline"}`)
	content.Sections["custom"] = json.RawMessage(`{"anything":["the","editor","wrote"]}`)

	require.NoError(t, svc.SaveClientData(ctx, "acme", content))

	saved, err := svc.ClientData(ctx, "acme")
	require.NoError(t, err)

	var hero map[string]string
	require.NoError(t, json.Unmarshal(saved.Sections["hero"], &hero))
	require.Equal(t, "New Headline", hero["headline"])
	if diff := cmp.Diff(string(content.Sections["custom"]), string(saved.Sections["custom"])); diff != "" {
		t.Fatalf("custom section mismatch (-want +got):\n%s", diff)
	}
}

func TestClientData_NotFound(t *testing.T) {
	svc, _, _ := newSeededService(t)
	_, err := svc.ClientData(context.Background(), "no-such-site")
	require.Equal(t, ErrSiteNotFound, err)
}

func TestPublishedClientData_FallbackOnStoreOutage(t *testing.T) {
	outage := &mock.KVStore{
		GetFn: func(ctx context.Context, key string) ([]byte, error) {
			return nil, kv.ErrUnavailable(errors.New("connection refused"))
		},
	}
	svc := NewService(outage)

	content, err := svc.PublishedClientData(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "Coastal Breeze", content.SiteTitle)
}

func TestClientData_HardFailOnStoreOutage(t *testing.T) {
	// The editor read never degrades: fallback content loaded into the
	// dashboard could be saved back over the tenant's real document.
	outage := &mock.KVStore{
		GetFn: func(ctx context.Context, key string) ([]byte, error) {
			return nil, kv.ErrUnavailable(errors.New("connection refused"))
		},
	}
	svc := NewService(outage)

	_, err := svc.ClientData(context.Background(), "acme")
	require.Equal(t, sitehub.EUnavailable, sitehub.ErrorCode(err))
}

func TestPublishedClientData_NotFoundStaysHard(t *testing.T) {
	svc, _, _ := newSeededService(t)
	_, err := svc.PublishedClientData(context.Background(), "no-such-site")
	require.Equal(t, ErrSiteNotFound, err)
}

func TestMedia_NewestFirst(t *testing.T) {
	svc, _, _ := newSeededService(t)
	ctx := context.Background()

	first := sitehub.MediaItem{URL: "https://img.example/a.jpg", PublicID: "a"}
	second := sitehub.MediaItem{URL: "https://img.example/b.jpg", PublicID: "b"}

	_, err := svc.AddMedia(ctx, "acme", first)
	require.NoError(t, err)
	list, err := svc.AddMedia(ctx, "acme", second)
	require.NoError(t, err)

	require.Len(t, list, 2)
	require.Equal(t, "b", list[0].PublicID)
	require.Equal(t, "a", list[1].PublicID)
	require.False(t, list[0].CreatedAt.IsZero())
}

func TestRemoveMedia(t *testing.T) {
	svc, _, _ := newSeededService(t)
	ctx := context.Background()

	_, err := svc.AddMedia(ctx, "acme", sitehub.MediaItem{URL: "https://img.example/a.jpg", PublicID: "a"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMedia(ctx, "acme", "a"))
	require.Equal(t, ErrMediaNotFound, svc.RemoveMedia(ctx, "acme", "a"))

	list, err := svc.MediaList(ctx, "acme")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListSites(t *testing.T) {
	svc, store, _ := newSeededService(t)
	ctx := context.Background()

	onboarding := NewOnboardingService(store, nil)
	req := validRequest()
	req.SiteID = "beta"
	req.BusinessName = "Beta Bakery"
	_, err := onboarding.CreateSite(ctx, req)
	require.NoError(t, err)

	summaries, err := svc.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3) // acme, beta, coastal-breeze template

	byID := map[string]sitehub.SiteSummary{}
	for _, s := range summaries {
		byID[s.SiteID] = s
	}
	require.Equal(t, "Acme Plumbing", byID["acme"].BusinessName)
	require.Equal(t, "Beta Bakery", byID["beta"].BusinessName)
	require.Equal(t, "owner@acme.example", byID["acme"].Email)
}

func TestListSites_CorruptTenantBecomesStub(t *testing.T) {
	svc, store, _ := newSeededService(t)
	ctx := context.Background()

	// A tenant whose content no longer parses must not hide the others.
	require.NoError(t, store.Set(ctx, kv.SiteClient("broken"), []byte("{not json"), 0))

	summaries, err := svc.ListSites(ctx)
	require.NoError(t, err)

	var broken, acme *sitehub.SiteSummary
	for i := range summaries {
		switch summaries[i].SiteID {
		case "broken":
			broken = &summaries[i]
		case "acme":
			acme = &summaries[i]
		}
	}
	require.NotNil(t, broken)
	require.NotEmpty(t, broken.Err)
	require.NotNil(t, acme)
	require.Empty(t, acme.Err)
	require.Equal(t, "Acme Plumbing", acme.BusinessName)
}

func TestSetPaymentTier(t *testing.T) {
	svc, _, _ := newSeededService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPaymentTier(ctx, "acme", sitehub.TierPremium, "cus_123", "sub_456"))

	content, err := svc.ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, sitehub.TierPremium, content.PaymentTier)

	settings, err := svc.Settings(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "cus_123", settings.StripeCustomerID)
	require.Equal(t, "sub_456", settings.SubscriptionID)

	// Downgrade clears the dead subscription id.
	require.NoError(t, svc.SetPaymentTier(ctx, "acme", sitehub.TierFree, "", ""))
	settings, err = svc.Settings(ctx, "acme")
	require.NoError(t, err)
	require.Empty(t, settings.SubscriptionID)
}

func TestFindSitesBySubscription(t *testing.T) {
	svc, store, _ := newSeededService(t)
	ctx := context.Background()

	onboarding := NewOnboardingService(store, nil)
	req := validRequest()
	req.SiteID = "beta"
	_, err := onboarding.CreateSite(ctx, req)
	require.NoError(t, err)

	require.NoError(t, svc.SetPaymentTier(ctx, "acme", sitehub.TierPremium, "cus_1", "sub_shared"))
	require.NoError(t, svc.SetPaymentTier(ctx, "beta", sitehub.TierPremium, "cus_2", "sub_shared"))

	matches, err := svc.FindSitesBySubscription(ctx, "sub_shared")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"acme", "beta"}, matches)

	matches, err = svc.FindSitesBySubscription(ctx, "sub_unknown")
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestDeployStatusCache(t *testing.T) {
	svc, _, _ := newSeededService(t)
	ctx := context.Background()

	cached, err := svc.CachedDeployStatus(ctx, "acme")
	require.NoError(t, err)
	require.Nil(t, cached)

	status := &sitehub.DeployStatus{SiteID: "acme", State: sitehub.DeployReady, ProjectID: "prj_1"}
	require.NoError(t, svc.CacheDeployStatus(ctx, status))

	cached, err = svc.CachedDeployStatus(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, status, cached)
}
