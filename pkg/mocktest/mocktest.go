// Package mocktest provides a lifecycle helper for embedding the mock
// identity provider in Go tests.
//
// A typical test obtains an instance, points the system under test at
// its issuer, and fills Authorization headers from AccessToken:
//
//	idp := mocktest.New(t)
//	cfg.IssuerURL = idp.IssuerURL()
//	req.Header.Set("Authorization", "Bearer "+idp.AccessToken(token.Config{Subject: "alice"}))
package mocktest

import (
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/mockidp/mockidp/pkg/config"
	"github.com/mockidp/mockidp/pkg/keys"
	"github.com/mockidp/mockidp/pkg/server"
	"github.com/mockidp/mockidp/pkg/token"
)

// Instance is a running mock identity provider bound to one test. It is
// stopped automatically when the test finishes.
type Instance struct {
	t    testing.TB
	mock *server.Mock
}

// Option customizes the instance configuration before startup.
type Option func(*config.ServerConfig)

// WithRealm sets the default realm.
func WithRealm(realm string) Option {
	return func(c *config.ServerConfig) {
		c.Realm = realm
	}
}

// WithAlgorithm selects the signing algorithm of the instance's key.
func WithAlgorithm(alg keys.Algorithm) Option {
	return func(c *config.ServerConfig) {
		c.Algorithm = string(alg)
	}
}

// WithTLS serves the endpoints over HTTPS with a self-signed
// certificate. Use Client for a client that accepts it.
func WithTLS() Option {
	return func(c *config.ServerConfig) {
		c.TLS = true
	}
}

// New starts an instance on an ephemeral port and registers cleanup with
// the test. Startup failure fails the test immediately.
func New(t testing.TB, opts ...Option) *Instance {
	t.Helper()

	cfg := config.DefaultServerConfig()
	cfg.Port = 0
	for _, opt := range opts {
		opt(cfg)
	}

	m, err := server.New(cfg)
	if err != nil {
		t.Fatalf("failed to create mock identity provider: %v", err)
	}
	if err := m.Start(); err != nil {
		t.Fatalf("failed to start mock identity provider: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop() })

	return &Instance{t: t, mock: m}
}

// Mock returns the underlying server for advanced use cases.
func (i *Instance) Mock() *server.Mock {
	return i.mock
}

// BaseURL returns the base URL of the running instance.
func (i *Instance) BaseURL() string {
	return i.mock.BaseURL()
}

// IssuerURL returns the issuer for the instance's default realm.
func (i *Instance) IssuerURL() string {
	return i.mock.IssuerURL()
}

// JWKSURL returns the key-set endpoint for the default realm.
func (i *Instance) JWKSURL() string {
	return i.IssuerURL() + "/protocol/openid-connect/certs"
}

// DiscoveryURL returns the provider-configuration endpoint for the
// default realm.
func (i *Instance) DiscoveryURL() string {
	return i.IssuerURL() + "/.well-known/openid-configuration"
}

// AccessToken issues a token for the default realm, failing the test on
// error.
func (i *Instance) AccessToken(cfg token.Config) string {
	i.t.Helper()
	compact, err := i.mock.AccessToken(cfg)
	if err != nil {
		i.t.Fatalf("failed to issue access token: %v", err)
	}
	return compact
}

// Client returns an HTTP client that accepts the instance's self-signed
// certificate in TLS mode. In plain HTTP mode it is a default client.
func (i *Instance) Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}
