// Package projectservice resolves a user's project memberships against
// the CSC LDAP directory, grounded on original_source/metadata_backend/
// api/services/ldap.py (simple bind + subtree search filtering by
// service profile), wired onto github.com/go-ldap/ldap/v3 the way the
// broader ecosystem pack (ClusterCockpit-cc-backend, cs3org-reva,
// gravitational-teleport go.mod entries) reaches for LDAP access, wrapped
// with the 1-hour TTL cache spec.md §3 requires for project membership.
package projectservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

const membershipTTLSeconds = 60 * 60 // 1 hour

const (
	searchBaseDN      = "ou=idm,dc=csc,dc=fi"
	projectAttribute  = "CSCPrjNum"
	serviceProfile    = "SP_SD-SUBMIT"
	searchFilterFormat = "(&(objectClass=applicationProcess)(CSCSPCommonStatus=ready)(CSCUserName=%s))"
)

// Config carries the CSC_LDAP_HOST|USER|PASSWORD settings, choosing
// LDAP/LDAPS by scheme with default ports 389/636 per spec.md §6.
type Config struct {
	Host     string // e.g. "ldaps://ldap.csc.fi" or "ldap://ldap.csc.fi:389"
	BindUser string
	Password string
}

// MembershipCache is satisfied by both internal/cache.TTLCache
// (in-process) and internal/cache.RedisBackedCache (durable across
// replicas, the deployment this service targets per spec.md §3's "cached
// for up to 1h per user").
type MembershipCache interface {
	GetOrLoad(ctx context.Context, key string, ttlSeconds int, load func(ctx context.Context) (interface{}, error)) (interface{}, error)
}

type Service struct {
	cfg   Config
	cache MembershipCache
}

func New(cfg Config, c MembershipCache) *Service {
	return &Service{cfg: cfg, cache: c}
}

// Projects returns userID's project memberships (those with the SD Submit
// service profile enabled), cached for up to 1h.
func (s *Service) Projects(ctx context.Context, userID string) ([]string, error) {
	key := "ldap-projects:" + userID
	v, err := s.cache.GetOrLoad(ctx, key, membershipTTLSeconds, func(ctx context.Context) (interface{}, error) {
		return s.queryLDAP(userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// IsMember reports whether userID is affiliated with projectID, mirroring
// the original's verify_user_project.
func (s *Service) IsMember(ctx context.Context, userID, projectID string) (bool, error) {
	projects, err := s.Projects(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range projects {
		if p == projectID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) queryLDAP(userID string) ([]string, error) {
	conn, err := s.dial()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamServer, "LDAP connect", err)
	}
	defer conn.Close()

	if err := conn.Bind(s.cfg.BindUser, s.cfg.Password); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamServer, "LDAP bind", err)
	}

	req := ldap.NewSearchRequest(
		searchBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf(searchFilterFormat, ldap.EscapeFilter(userID)),
		[]string{projectAttribute},
		nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamServer, "LDAP search", err)
	}

	var projects []string
	for _, entry := range result.Entries {
		if !strings.Contains(entry.DN, serviceProfile) {
			continue
		}
		projects = append(projects, entry.GetAttributeValues(projectAttribute)...)
	}
	return projects, nil
}

func (s *Service) dial() (*ldap.Conn, error) {
	u, err := url.Parse(s.cfg.Host)
	if err != nil {
		return nil, err
	}

	dialOpts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: 5 * time.Second})}

	switch strings.ToLower(u.Scheme) {
	case "ldaps":
		port := u.Port()
		if port == "" {
			port = "636"
		}
		return ldap.DialURL(fmt.Sprintf("ldaps://%s:%s", u.Hostname(), port),
			append(dialOpts, ldap.DialWithTLSConfig(&tls.Config{}))...)
	case "ldap":
		port := u.Port()
		if port == "" {
			port = "389"
		}
		return ldap.DialURL(fmt.Sprintf("ldap://%s:%s", u.Hostname(), port), dialOpts...)
	default:
		return nil, fmt.Errorf("unsupported LDAP protocol: %s", u.Scheme)
	}
}

// Health reports whether the LDAP server is reachable and will bind,
// returning the dial or bind error. It is not among the svcclient.Health
// probes cmd/server registers for /health.
func (s *Service) Health(ctx context.Context) error {
	conn, err := s.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Bind(s.cfg.BindUser, s.cfg.Password)
}
