package server

import (
	"context"
	"net/http"

	"github.com/mockidp/mockidp/pkg/discovery"
	"github.com/mockidp/mockidp/pkg/httputil"
	"github.com/mockidp/mockidp/pkg/issuer"
	"github.com/mockidp/mockidp/pkg/jwks"
)

// baseURLKey carries the per-request resolved base URL in the request
// context.
type baseURLKey struct{}

// Handler returns the HTTP handler serving the realm-scoped discovery
// endpoints. It can be mounted in an external server (tests wrap it in
// httptest) independently of Start.
func (m *Mock) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/realms/{realm}/protocol/openid-connect/certs", m.handleCerts)
	mux.HandleFunc("GET /auth/realms/{realm}/.well-known/openid-configuration", m.handleOpenIDConfiguration)
	mux.HandleFunc("GET /health", m.handleHealth)
	return m.resolveBaseURL(mux)
}

// resolveBaseURL computes the externally visible base URL for each
// request before any endpoint logic runs. The request host wins over the
// configured default; the scheme follows the connection's TLS state.
func (m *Mock) resolveBaseURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		base, err := issuer.Resolve(r.Host, m.BaseURL(), r.TLS != nil)
		if err != nil {
			m.log.Error("failed to resolve base URL", "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "server_error", "unable to resolve base URL")
			return
		}
		ctx := context.WithValue(r.Context(), baseURLKey{}, base)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestBaseURL(r *http.Request) string {
	base, _ := r.Context().Value(baseURLKey{}).(string)
	return base
}

// handleCerts serves the JSON Web Key Set for a realm. The key set is
// recomputed from the key material on every request; there is no cached
// state to invalidate.
func (m *Mock) handleCerts(w http.ResponseWriter, r *http.Request) {
	m.log.Debug("serving key set", "realm", r.PathValue("realm"))
	httputil.WriteOK(w, jwks.Render(m.key))
}

// handleOpenIDConfiguration serves the OpenID provider metadata for a
// realm, with all URLs derived from the base URL the client used.
func (m *Mock) handleOpenIDConfiguration(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r)
	iss := issuer.URL(base, r.PathValue("realm"))
	m.log.Debug("serving provider configuration", "issuer", iss)
	httputil.WriteOK(w, discovery.Build(iss, base))
}

func (m *Mock) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, map[string]string{"status": "ok"})
}
