// Command sitehubd runs the sitehub API server.
package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/entry-nets/sitehub"
	"github.com/entry-nets/sitehub/authorizer"
	"github.com/entry-nets/sitehub/bearer"
	"github.com/entry-nets/sitehub/billing"
	"github.com/entry-nets/sitehub/bolt"
	"github.com/entry-nets/sitehub/deploy"
	"github.com/entry-nets/sitehub/http"
	"github.com/entry-nets/sitehub/logger"
	"github.com/entry-nets/sitehub/media"
	"github.com/entry-nets/sitehub/session"
	"github.com/entry-nets/sitehub/tenant"
)

func main() {
	cmd, _ := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	BoltPath       string
	BindAddress    string
	SessionLength  time.Duration
	OperatorSecret string
	TemplateSite   string
	DeployURL      string
	DeployToken    string
	MediaURL       string
	MediaKey       string
	BillingSecret  string
	LogLevel       string
}

func newRootCommand() (*cobra.Command, *viper.Viper) {
	v := viper.New()
	v.SetEnvPrefix("SITEHUB")
	v.AutomaticEnv()
	// Dashed flag keys must map onto underscored env vars, e.g.
	// SITEHUB_BOLT_PATH overrides bolt-path.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cmd := &cobra.Command{
		Use:   "sitehubd",
		Short: "sitehubd runs the multi-tenant website builder API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(loadConfig(v))
		},
	}

	flags := cmd.Flags()
	flags.String("bolt-path", "sitehub.bolt", "path to the boltdb file")
	flags.String("http-bind-address", ":8087", "address the API server listens on")
	flags.Duration("session-length", 24*time.Hour, "admin session time to live")
	flags.String("operator-secret", "", "signing secret for operator bearer tokens")
	flags.String("template-site", tenant.DefaultTemplateSiteID, "site cloned when creating tenants")
	flags.String("deploy-url", "", "deploy platform base url (empty disables provisioning)")
	flags.String("deploy-token", "", "deploy platform API token")
	flags.String("media-url", "", "media host base url (empty disables host deletes)")
	flags.String("media-key", "", "media host API key")
	flags.String("billing-secret", "", "payments webhook signing secret (empty disables the webhook)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlags(flags)

	return cmd, v
}

func loadConfig(v *viper.Viper) config {
	return config{
		BoltPath:       v.GetString("bolt-path"),
		BindAddress:    v.GetString("http-bind-address"),
		SessionLength:  v.GetDuration("session-length"),
		OperatorSecret: v.GetString("operator-secret"),
		TemplateSite:   v.GetString("template-site"),
		DeployURL:      v.GetString("deploy-url"),
		DeployToken:    v.GetString("deploy-token"),
		MediaURL:       v.GetString("media-url"),
		MediaKey:       v.GetString("media-key"),
		BillingSecret:  v.GetString("billing-secret"),
		LogLevel:       v.GetString("log-level"),
	}
}

func run(cfg config) error {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log := logger.New(os.Stdout, level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := bolt.NewKVStore(cfg.BoltPath)
	store.WithLogger(log.Named("bolt"))
	if err := store.Open(ctx); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sessionSvc := session.NewService(store, cfg.SessionLength)
	sessionSvc.WithLogger(log.Named("session"))
	passwords := session.NewPasswords(store)

	tenantSvc := tenant.NewService(store)
	tenantSvc.WithLogger(log.Named("tenant"))

	var deploySvc *deploy.Client
	if cfg.DeployURL != "" {
		deploySvc = deploy.NewClient(cfg.DeployURL, cfg.DeployToken)
		deploySvc.WithLogger(log.Named("deploy"))
	}

	onboarding := tenant.NewOnboardingService(store, deployOrNil(deploySvc))
	onboarding.WithLogger(log.Named("onboarding"))
	onboarding.WithTemplateSite(cfg.TemplateSite)

	bearerValidator := bearer.NewValidator([]byte(cfg.OperatorSecret))
	authz := authorizer.New(sessionSvc, bearerValidator)
	authz.WithLogger(log.Named("authz"))

	var mediaSvc *media.Client
	if cfg.MediaURL != "" {
		mediaSvc = media.NewClient(cfg.MediaURL, cfg.MediaKey)
		mediaSvc.WithLogger(log.Named("media"))
	}

	var billingSvc *billing.Service
	if cfg.BillingSecret != "" {
		billingSvc = billing.NewService(tenantSvc, []byte(cfg.BillingSecret))
		billingSvc.WithLogger(log.Named("billing"))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	backend := &http.APIBackend{
		Logger:            log,
		SessionService:    sessionSvc,
		PasswordsService:  passwords,
		SiteService:       tenantSvc,
		TenantService:     tenantSvc,
		OnboardingService: onboarding,
		DeployService:     deployOrNil(deploySvc),
		MediaService:      mediaOrNil(mediaSvc),
		BillingService:    billingSvc,
		Authorizer:        authz,
		BearerValidator:   bearerValidator,
		Registry:          registry,
	}

	srv := &nethttp.Server{
		Addr:              cfg.BindAddress,
		Handler:           http.NewAPIHandler(backend),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.BindAddress))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// deployOrNil avoids handing a typed nil pointer to an interface field.
func deployOrNil(c *deploy.Client) sitehub.DeployService {
	if c == nil {
		return nil
	}
	return c
}

func mediaOrNil(c *media.Client) sitehub.MediaService {
	if c == nil {
		return nil
	}
	return c
}
