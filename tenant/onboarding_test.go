package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/inmem"
	"github.com/entry-nets/sitehub/kv"
	"github.com/entry-nets/sitehub/mock"
)

func seedTemplate(t *testing.T, store kv.Store) {
	t.Helper()
	content, err := FallbackContent()
	require.NoError(t, err)
	require.NoError(t, kv.SetJSON(context.Background(), store, kv.SiteClient(DefaultTemplateSiteID), content, 0))
}

func validRequest() sitehub.CreateSiteRequest {
	return sitehub.CreateSiteRequest{
		SiteID:       "acme",
		BusinessName: "Acme Plumbing",
		BusinessType: "plumber",
		Password:     "sandcastle",
		AdminEmail:   "owner@acme.example",
	}
}

func TestCreateSite(t *testing.T) {
	store := inmem.NewKVStore()
	seedTemplate(t, store)
	svc := NewOnboardingService(store, &mock.DeployService{})
	ctx := context.Background()

	record, err := svc.CreateSite(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, "acme", record.SiteID)
	require.False(t, record.DeployPending)

	sites := NewService(store)
	content, err := sites.ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Plumbing", content.SiteTitle)
	require.Equal(t, "plumber", content.BusinessType)
	require.Equal(t, sitehub.TierFree, content.PaymentTier)
	// Template sections survive the clone.
	require.Contains(t, content.Sections, "hero")

	settings, err := sites.Settings(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "owner@acme.example", settings.AdminEmail)
	require.NotEmpty(t, settings.AdminPasswordHash)
	require.NotEqual(t, "sandcastle", settings.AdminPasswordHash)
}

func TestCreateSite_ValidationBeforeStoreAccess(t *testing.T) {
	// Any store access fails the test: validation errors must be decided
	// before the request costs a round trip or writes anything.
	store := &mock.KVStore{
		GetFn: func(ctx context.Context, key string) ([]byte, error) {
			t.Fatalf("unexpected store read of %q", key)
			return nil, nil
		},
		SetFn: func(ctx context.Context, key string, value []byte, ttl time.Duration) error {
			t.Fatalf("unexpected store write of %q", key)
			return nil
		},
	}
	svc := NewOnboardingService(store, &mock.DeployService{})
	ctx := context.Background()

	req := validRequest()
	req.SiteID = "bad id!"
	_, err := svc.CreateSite(ctx, req)
	require.Equal(t, sitehub.EInvalid, sitehub.ErrorCode(err))

	req = validRequest()
	req.Password = "tiny"
	_, err = svc.CreateSite(ctx, req)
	require.Equal(t, sitehub.EInvalid, sitehub.ErrorCode(err))
}

func TestCreateSite_Duplicate(t *testing.T) {
	store := inmem.NewKVStore()
	seedTemplate(t, store)
	svc := NewOnboardingService(store, &mock.DeployService{})
	ctx := context.Background()

	_, err := svc.CreateSite(ctx, validRequest())
	require.NoError(t, err)

	// Change everything but the id; the first site must win untouched.
	req := validRequest()
	req.BusinessName = "Acme Impostor"
	req.Password = "different-password"
	_, err = svc.CreateSite(ctx, req)
	require.Equal(t, ErrSiteExists, err)

	content, err := NewService(store).ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Plumbing", content.SiteTitle)
}

func TestCreateSite_TemplateMissing(t *testing.T) {
	svc := NewOnboardingService(inmem.NewKVStore(), &mock.DeployService{})
	_, err := svc.CreateSite(context.Background(), validRequest())
	require.Equal(t, ErrTemplateMissing, err)
}

func TestCreateSite_DeployFailureIsNotFatal(t *testing.T) {
	store := inmem.NewKVStore()
	seedTemplate(t, store)
	deploySvc := &mock.DeployService{
		CreateProjectFn: func(ctx context.Context, siteID string, env map[string]string) (string, error) {
			return "", &sitehub.Error{Code: sitehub.EUpstream, Msg: "deploy platform request failed"}
		},
	}
	svc := NewOnboardingService(store, deploySvc)
	ctx := context.Background()

	record, err := svc.CreateSite(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, record.DeployPending)

	// The durable half of the operation survives the provisioning failure.
	content, err := NewService(store).ClientData(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "Acme Plumbing", content.SiteTitle)
}

func TestDeleteSite_Protected(t *testing.T) {
	// Protected ids are refused before the store is ever consulted.
	store := &mock.KVStore{
		GetFn: func(ctx context.Context, key string) ([]byte, error) {
			t.Fatalf("unexpected store read of %q", key)
			return nil, nil
		},
		DelFn: func(ctx context.Context, key string) error {
			t.Fatalf("unexpected store delete of %q", key)
			return nil
		},
	}
	svc := NewOnboardingService(store, nil)
	ctx := context.Background()

	require.Equal(t, ErrProtectedSite, svc.DeleteSite(ctx, "entry-nets"))
	require.Equal(t, ErrProtectedSite, svc.DeleteSite(ctx, "coastal-breeze"))
}

func TestDeleteSite(t *testing.T) {
	store := inmem.NewKVStore()
	seedTemplate(t, store)
	svc := NewOnboardingService(store, &mock.DeployService{})
	ctx := context.Background()

	_, err := svc.CreateSite(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSite(ctx, "acme"))

	keys, err := store.Keys(ctx, "site:acme:")
	require.NoError(t, err)
	require.Empty(t, keys)

	require.Equal(t, ErrSiteNotFound, svc.DeleteSite(ctx, "acme"))
}

func TestDeleteSite_PartialFailureSurfaces(t *testing.T) {
	backing := inmem.NewKVStore()
	seedTemplate(t, backing)
	ctx := context.Background()

	create := NewOnboardingService(backing, nil)
	_, err := create.CreateSite(ctx, validRequest())
	require.NoError(t, err)

	// Settings deletion fails; every other key must still be attempted and
	// the caller must hear about the failure.
	flaky := &mock.KVStore{
		GetFn: backing.Get,
		SetFn: backing.Set,
		KeysFn: backing.Keys,
		DelFn: func(ctx context.Context, key string) error {
			if key == "site:acme:settings" {
				return errors.New("disk on fire")
			}
			return backing.Del(ctx, key)
		},
	}
	svc := NewOnboardingService(flaky, nil)

	err = svc.DeleteSite(ctx, "acme")
	require.Error(t, err)
	require.Equal(t, sitehub.EUnavailable, sitehub.ErrorCode(err))

	// The content record is gone even though settings survived.
	_, err = backing.Get(ctx, "site:acme:client")
	require.Equal(t, kv.ErrKeyNotFound, err)
	_, err = backing.Get(ctx, "site:acme:settings")
	require.NoError(t, err)
}
