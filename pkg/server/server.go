// Package server wires the mock identity provider together: key
// material, token generator, issuer resolution and the discovery
// endpoints, behind a single Mock value with a Start/Stop lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mockidp/mockidp/pkg/config"
	"github.com/mockidp/mockidp/pkg/issuer"
	"github.com/mockidp/mockidp/pkg/keys"
	"github.com/mockidp/mockidp/pkg/logging"
	"github.com/mockidp/mockidp/pkg/tlsutil"
	"github.com/mockidp/mockidp/pkg/token"
)

// Timeouts for the HTTP server. All endpoints are in-memory computation,
// so generous bounds only guard against stuck clients.
const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Mock is one running (or startable) mock identity provider instance.
// Several independent instances can coexist in a process; nothing is
// shared between them.
type Mock struct {
	cfg       *config.ServerConfig
	key       *keys.KeyMaterial
	generator *token.Generator
	log       *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	port       int
	running    bool
}

// Option is a functional option for configuring a Mock.
type Option func(*Mock)

// WithLogger sets the operational logger. The default discards output.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mock) {
		if log != nil {
			m.log = log
		}
	}
}

// New constructs an instance and generates its signing key. A nil config
// selects the defaults (realm "master", HTTP on port 8000, RS256).
// Key generation failure means the instance cannot be constructed.
func New(cfg *config.ServerConfig, opts ...Option) (*Mock, error) {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	alg, err := keys.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	km, err := keys.Generate(alg)
	if err != nil {
		return nil, err
	}

	var genOpts []token.GeneratorOption
	if cfg.TokenLifetime != "" {
		// Validated above.
		d, _ := time.ParseDuration(cfg.TokenLifetime)
		genOpts = append(genOpts, token.WithLifetime(d))
	}

	m := &Mock{
		cfg:       cfg,
		key:       km,
		generator: token.NewGenerator(km, genOpts...),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Key returns the instance's key material.
func (m *Mock) Key() *keys.KeyMaterial {
	return m.key
}

// Realm returns the default realm of the instance.
func (m *Mock) Realm() string {
	return m.cfg.Realm
}

// Port returns the port the instance listens on. Before Start this is
// the configured port; afterwards the actually bound one, which matters
// when an ephemeral port was requested.
func (m *Mock) Port() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portLocked()
}

// BaseURL returns the default base URL of the instance, used when a
// request carries no host indicator and for programmatic issuance.
func (m *Mock) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURLLocked()
}

// IssuerURL returns the issuer for the default realm under the default
// base URL.
func (m *Mock) IssuerURL() string {
	return issuer.URL(m.BaseURL(), m.cfg.Realm)
}

func (m *Mock) portLocked() int {
	if m.running && m.port != 0 {
		return m.port
	}
	return m.cfg.Port
}

func (m *Mock) baseURLLocked() string {
	cfg := *m.cfg
	cfg.Port = m.portLocked()
	return cfg.BaseURL()
}

// AccessToken issues a signed access token for the default realm and
// base URL. This is the programmatic entry point tests use to fill an
// Authorization header; it does not require the server to be running.
func (m *Mock) AccessToken(cfg token.Config) (string, error) {
	return m.generator.Sign(cfg, m.IssuerURL())
}

// AccessTokenFor issues a token whose issuer is constructed from an
// explicit base URL and realm, for clients that reach the mock under a
// different hostname than the configured default.
func (m *Mock) AccessTokenFor(cfg token.Config, baseURL, realm string) (string, error) {
	return m.generator.Sign(cfg, issuer.URL(baseURL, realm))
}

// Start binds the listener and serves the discovery endpoints until
// Stop. Binding and TLS setup failures are reported synchronously.
func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", m.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", m.cfg.Port, err)
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		m.port = addr.Port
	}

	srv := &http.Server{
		Handler:      m.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	if m.cfg.TLS {
		cert, err := tlsutil.SelfSignedCertificate(m.cfg.Hostname)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		go func() {
			if err := srv.ServeTLS(ln, "", ""); err != nil && err != http.ErrServerClosed {
				m.log.Error("HTTPS server error", "error", err)
			}
		}()
	} else {
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				m.log.Error("HTTP server error", "error", err)
			}
		}()
	}

	m.httpServer = srv
	m.running = true
	m.log.Info("mock identity provider started",
		"base_url", m.baseURLLocked(),
		"realm", m.cfg.Realm,
		"algorithm", m.key.Algorithm(),
		"kid", m.key.KeyID())
	return nil
}

// Stop gracefully shuts the server down. Stopping an instance that is
// not running is a no-op.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := m.httpServer.Shutdown(ctx)
	m.httpServer = nil
	m.running = false
	m.log.Info("mock identity provider stopped")

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
