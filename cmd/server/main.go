// Command server is the submission backend's composition root: it reads
// configuration, opens the database and every upstream integration,
// wires them into internal/api.Handlers, and serves spec.md §6's HTTP
// surface on an Echo instance. Grounded on the teacher's
// registry/cmd/registryservice/main.go bootstrap/signal-handling shape,
// adapted from its single BoltDB-backed service to this backend's
// Postgres store plus the wider set of upstream clients publish.
// Orchestrator and internal/api.Handlers depend on.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/CSCfi/metadata-submitter-sub002/http"
	"github.com/CSCfi/metadata-submitter-sub002/internal/api"
	"github.com/CSCfi/metadata-submitter-sub002/internal/authsvc"
	"github.com/CSCfi/metadata-submitter-sub002/internal/cache"
	"github.com/CSCfi/metadata-submitter-sub002/internal/config"
	"github.com/CSCfi/metadata-submitter-sub002/internal/fileprovider"
	"github.com/CSCfi/metadata-submitter-sub002/internal/health"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/adminclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/dataciteclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/keystoneclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/metaxclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/pidclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/projectservice"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/remsclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/rorclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/metaxmapper"
	"github.com/CSCfi/metadata-submitter-sub002/internal/middleware"
	"github.com/CSCfi/metadata-submitter-sub002/internal/obs"
	"github.com/CSCfi/metadata-submitter-sub002/internal/oidcauth"
	"github.com/CSCfi/metadata-submitter-sub002/internal/publish"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Log.WithError(err).Fatal("failed to load configuration")
	}
	obs.Configure("info", "text")

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		obs.Log.WithError(err).Fatal("failed to open database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	membershipCache := newMembershipCache(cfg)
	referenceCache := cache.New()
	rorCache := cache.New()

	ror := rorclient.New(cfg.RorURL, rorCache)
	metax := metaxclient.New(cfg.MetaxURL, cfg.MetaxToken, referenceCache)
	rems := remsclient.New(cfg.RemsURL, cfg.RemsKey, cfg.RemsUser, cfg.RemsDiscoveryURL)
	pid := pidclient.New(cfg.CSCPIDURL, cfg.CSCPIDKey)
	datacite := dataciteclient.New(cfg.DataciteAPI, cfg.DataciteUser, cfg.DataciteKey, cfg.DataciteDOIPrefix)
	admin := adminclient.New(cfg.AdminAPIURL)
	keystone := keystoneclient.New(cfg.KeystoneURL)
	projects := projectservice.New(projectservice.Config{
		Host:     cfg.CSCLDAPHost,
		BindUser: cfg.CSCLDAPUser,
		Password: cfg.CSCLDAPPassword,
	}, membershipCache)

	ctx := context.Background()
	files, err := fileprovider.New(ctx, fileprovider.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		obs.Log.WithError(err).Fatal("failed to initialize object storage provider")
	}

	refData, err := metaxmapper.Load()
	if err != nil {
		obs.Log.WithError(err).Fatal("failed to load embedded field-of-science reference data")
	}
	mapper := metaxmapper.New(ror, refData)
	mapper.SetMetaxFieldsOfScience(metax)

	var oidcProvider *oidcauth.Provider
	if cfg.OIDCURL != "" {
		oidcProvider, err = oidcauth.New(ctx, oidcauth.Config{
			ProviderURL:  cfg.OIDCURL,
			ClientID:     cfg.AAIClientID,
			ClientSecret: cfg.AAIClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       splitScopes(cfg.OIDCScope),
		})
		if err != nil {
			obs.Log.WithError(err).Fatal("failed to discover OIDC provider")
		}
	}

	authSvc := authsvc.New(cfg.JWTSecret)

	orchestrator := &publish.Orchestrator{
		Submissions:   store.SubmissionRepository{},
		Registrations: store.RegistrationRepository{},
		Files:         files,
		Metax:         metax,
		Rems:          rems,
		Pid:           pid,
		Datacite:      datacite,
		Mapper:        mapper,
	}

	h := api.NewHandlers()
	h.Submissions = store.SubmissionRepository{}
	h.Objects = store.MetadataObjectRepository{}
	h.Files = store.FileRepository{}
	h.Registrations = store.RegistrationRepository{}
	h.Auth = authSvc
	h.Projects = projects
	h.OIDC = oidcProvider
	h.FileProvider = files
	h.Admin = admin
	h.Keystone = keystone
	h.Rems = rems
	h.Orchestrator = orchestrator
	h.HealthTimeout = cfg.RequestTimeout
	h.OIDCSecureCookie = cfg.OIDCSecureCookie
	h.BaseURL = cfg.BaseURL
	h.Probes = []health.Probe{
		{Name: "datacite", Check: datacite.Health},
		{Name: "metax", Check: metax.Health},
		{Name: "rems", Check: rems.Health},
		{Name: "pid", Check: pid.Health},
		{Name: "ror", Check: ror.Health},
		{Name: "admin", Check: admin.Health},
		{Name: "keystone", Check: keystone.Health},
	}

	serverCfg := http.DefaultServerConfig()
	serverCfg.Port = cfg.Port
	serverCfg.ReadTimeout = cfg.RequestTimeout
	serverCfg.WriteTimeout = cfg.RequestTimeout
	serverCfg.ShutdownTimeout = cfg.ShutdownTimeout
	serverCfg.RateLimit = cfg.RateLimit

	e := http.NewEchoServer(serverCfg)
	e.Use(middleware.Session(db, api.APIPrefix))
	api.RegisterRoutes(e, h, authSvc, middleware.Auth(authSvc))

	go func() {
		if err := http.StartServer(e, serverCfg); err != nil {
			obs.Log.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := http.GracefulShutdown(e, cfg.ShutdownTimeout); err != nil {
		obs.Log.WithError(err).Error("graceful shutdown failed")
	}
}

// newMembershipCache prefers a Redis-backed membership cache so project
// memberships survive restarts across replicas (spec.md §3); it falls
// back to the in-process TTLCache when REDIS_ADDR is unset, e.g. local
// development and single-replica deployments.
func newMembershipCache(cfg *config.Config) projectservice.MembershipCache {
	if cfg.RedisAddr == "" {
		return cache.New()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return cache.NewRedisBacked(client, "project-membership:")
}

// splitScopes turns spec.md §6's space-separated OIDC_SCOPE into the
// slice oidcauth.Config expects, the same token split the original
// Python RPHandler config performs on its scope string.
func splitScopes(scope string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(scope); i++ {
		if i == len(scope) || scope[i] == ' ' {
			if i > start {
				out = append(out, scope[start:i])
			}
			start = i + 1
		}
	}
	return out
}
