package api

import (
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/authsvc"
	"github.com/CSCfi/metadata-submitter-sub002/internal/cache"
	"github.com/CSCfi/metadata-submitter-sub002/internal/fileprovider"
	"github.com/CSCfi/metadata-submitter-sub002/internal/health"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/adminclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/keystoneclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/projectservice"
	"github.com/CSCfi/metadata-submitter-sub002/internal/integrations/remsclient"
	"github.com/CSCfi/metadata-submitter-sub002/internal/oidcauth"
	"github.com/CSCfi/metadata-submitter-sub002/internal/publish"
	"github.com/CSCfi/metadata-submitter-sub002/internal/store"
)

// oidcSessionTTLSeconds bounds how long a /login-issued state/PKCE pair
// waits for its matching /callback before it is considered abandoned.
const oidcSessionTTLSeconds = 10 * 60

// Handlers wires the store repositories, integrations, and core
// subsystems (auth, publish orchestrator, OIDC) this package's HTTP
// handlers delegate to. cmd/server/main.go constructs one instance per
// process and calls RegisterRoutes.
type Handlers struct {
	Submissions   store.SubmissionRepository
	Objects       store.MetadataObjectRepository
	Files         store.FileRepository
	Registrations store.RegistrationRepository

	Auth     *authsvc.Service
	Projects *projectservice.Service
	OIDC     *oidcauth.Provider

	// oidcSessions correlates the state generated by BeginLogin with its
	// AuthSession until the callback arrives, keyed by state.
	oidcSessions *cache.TTLCache

	FileProvider *fileprovider.Provider
	Admin        *adminclient.Client
	Keystone     *keystoneclient.Client
	Rems         *remsclient.Client

	Orchestrator *publish.Orchestrator

	Probes        []health.Probe
	HealthTimeout time.Duration

	OIDCSecureCookie bool
	BaseURL          string
}

// NewHandlers builds a Handlers with its own in-process OIDC session
// cache; every other dependency is supplied by the caller.
func NewHandlers() *Handlers {
	return &Handlers{oidcSessions: cache.New()}
}
