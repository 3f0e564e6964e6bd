// Package token constructs and signs access tokens from a caller-supplied
// configuration.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mockidp/mockidp/pkg/keys"
)

// DefaultLifetime is the token validity applied when no explicit
// expiration is configured.
const DefaultLifetime = 10 * time.Hour

// ErrInvalidConfig is returned for a malformed token configuration, such
// as an expiration before the issuance instant.
var ErrInvalidConfig = errors.New("invalid token configuration")

// Config describes the token to issue. The zero value is usable and
// produces a minimal token. A Config passed to Sign is treated as
// read-only: issuance never mutates it and never retains references to
// its slices or maps.
type Config struct {
	// Subject is the principal the token is issued for.
	Subject string

	// Audience lists the intended recipients. The aud claim is omitted
	// entirely when empty, rendered as a plain string for a single
	// entry and as an array otherwise.
	Audience []string

	// AuthorizedParty sets the azp claim when non-empty.
	AuthorizedParty string

	// Scope sets the scope claim when non-empty.
	Scope string

	// IssuedAt defaults to the wall clock at issuance.
	IssuedAt time.Time

	// Expiration defaults to IssuedAt plus DefaultLifetime.
	Expiration time.Time

	// NotBefore sets the nbf claim when non-zero.
	NotBefore time.Time

	// AuthTime sets the auth_time claim when non-zero.
	AuthTime time.Time

	// ACR sets the acr claim when non-empty.
	ACR string

	// SessionID sets the session_state claim when non-empty.
	SessionID string

	// User-profile claims, each emitted only when non-empty.
	PreferredUsername string
	Name              string
	GivenName         string
	FamilyName        string
	Email             string

	// RealmRoles are emitted under realm_access.roles.
	RealmRoles []string

	// ResourceRoles maps a client ID to the roles emitted under
	// resource_access.<client>.roles.
	ResourceRoles map[string][]string

	// Claims are merged into the token body last, so they override any
	// generated claim, including iss and sub. That makes it possible to
	// construct adversarial tokens for negative tests.
	Claims map[string]any
}

// Generator issues signed compact tokens using one instance's key
// material. It holds no mutable state and is safe for concurrent use.
type Generator struct {
	key      *keys.KeyMaterial
	lifetime time.Duration
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithLifetime overrides the default token validity applied when a
// config has no explicit expiration.
func WithLifetime(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.lifetime = d
		}
	}
}

// NewGenerator creates a Generator signing with the given key material.
func NewGenerator(key *keys.KeyMaterial, opts ...GeneratorOption) *Generator {
	g := &Generator{key: key, lifetime: DefaultLifetime}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Sign builds the claim set for cfg, signs it, and returns the compact
// three-part token. Two calls with an identical config differ only in
// jti and, when IssuedAt is defaulted, in iat/exp.
func (g *Generator) Sign(cfg Config, issuer string) (string, error) {
	now := time.Now()

	issuedAt := cfg.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = now
	}
	expiration := cfg.Expiration
	if expiration.IsZero() {
		expiration = issuedAt.Add(g.lifetime)
	}
	if expiration.Before(issuedAt) {
		return "", fmt.Errorf("%w: expiration %s is before issuance %s",
			ErrInvalidConfig, expiration.Format(time.RFC3339), issuedAt.Format(time.RFC3339))
	}

	claims := jwt.MapClaims{
		"iss": issuer,
		"sub": cfg.Subject,
		"iat": issuedAt.Unix(),
		"exp": expiration.Unix(),
		"jti": uuid.NewString(),
		"typ": "Bearer",
	}

	switch len(cfg.Audience) {
	case 0:
		// aud omitted entirely
	case 1:
		claims["aud"] = cfg.Audience[0]
	default:
		claims["aud"] = append([]string(nil), cfg.Audience...)
	}

	if cfg.AuthorizedParty != "" {
		claims["azp"] = cfg.AuthorizedParty
	}
	if cfg.Scope != "" {
		claims["scope"] = cfg.Scope
	}
	if !cfg.NotBefore.IsZero() {
		claims["nbf"] = cfg.NotBefore.Unix()
	}
	if !cfg.AuthTime.IsZero() {
		claims["auth_time"] = cfg.AuthTime.Unix()
	}
	if cfg.ACR != "" {
		claims["acr"] = cfg.ACR
	}
	if cfg.SessionID != "" {
		claims["session_state"] = cfg.SessionID
	}
	if cfg.PreferredUsername != "" {
		claims["preferred_username"] = cfg.PreferredUsername
	}
	if cfg.Name != "" {
		claims["name"] = cfg.Name
	}
	if cfg.GivenName != "" {
		claims["given_name"] = cfg.GivenName
	}
	if cfg.FamilyName != "" {
		claims["family_name"] = cfg.FamilyName
	}
	if cfg.Email != "" {
		claims["email"] = cfg.Email
	}

	if len(cfg.RealmRoles) > 0 {
		claims["realm_access"] = map[string]any{
			"roles": append([]string(nil), cfg.RealmRoles...),
		}
	}
	if len(cfg.ResourceRoles) > 0 {
		access := make(map[string]any, len(cfg.ResourceRoles))
		for client, roles := range cfg.ResourceRoles {
			access[client] = map[string]any{
				"roles": append([]string(nil), roles...),
			}
		}
		claims["resource_access"] = access
	}

	// Caller-supplied claims win on collision.
	for name, value := range cfg.Claims {
		claims[name] = value
	}

	token := jwt.NewWithClaims(g.key.SigningMethod(), claims)
	token.Header["kid"] = g.key.KeyID()

	return g.key.Sign(token)
}
