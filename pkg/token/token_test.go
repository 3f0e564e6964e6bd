package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockidp/mockidp/pkg/keys"
)

const testIssuer = "http://localhost:8000/auth/realms/master"

func newTestGenerator(t *testing.T) (*Generator, *keys.KeyMaterial) {
	t.Helper()
	km, err := keys.Generate(keys.RS256)
	require.NoError(t, err)
	return NewGenerator(km), km
}

// parseClaims verifies the signature against the generator's public key
// and returns the decoded claim set.
func parseClaims(t *testing.T, km *keys.KeyMaterial, compact string) (jwt.MapClaims, map[string]any) {
	t.Helper()
	parsed, err := jwt.Parse(compact, func(*jwt.Token) (any, error) {
		return km.PublicKey(), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	return claims, parsed.Header
}

func TestSignStandardClaims(t *testing.T) {
	gen, km := newTestGenerator(t)

	compact, err := gen.Sign(Config{Subject: "alice"}, testIssuer)
	require.NoError(t, err)

	claims, header := parseClaims(t, km, compact)
	assert.Equal(t, testIssuer, claims["iss"])
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "Bearer", claims["typ"])
	assert.NotEmpty(t, claims["jti"])
	assert.NotContains(t, claims, "aud")

	assert.Equal(t, "RS256", header["alg"])
	assert.Equal(t, km.KeyID(), header["kid"])

	iat, ok := claims["iat"].(float64)
	require.True(t, ok)
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Unix(), iat, 5)
	assert.Equal(t, DefaultLifetime, time.Duration(exp-iat)*time.Second)
}

func TestSignAudienceShapes(t *testing.T) {
	gen, km := newTestGenerator(t)

	t.Run("single audience is a string", func(t *testing.T) {
		compact, err := gen.Sign(Config{Audience: []string{"backend"}}, testIssuer)
		require.NoError(t, err)
		claims, _ := parseClaims(t, km, compact)
		assert.Equal(t, "backend", claims["aud"])
	})

	t.Run("multiple audiences are an array", func(t *testing.T) {
		compact, err := gen.Sign(Config{Audience: []string{"backend", "frontend"}}, testIssuer)
		require.NoError(t, err)
		claims, _ := parseClaims(t, km, compact)
		assert.Equal(t, []any{"backend", "frontend"}, claims["aud"])
	})

	t.Run("empty audience omits the claim", func(t *testing.T) {
		compact, err := gen.Sign(Config{}, testIssuer)
		require.NoError(t, err)
		claims, _ := parseClaims(t, km, compact)
		assert.NotContains(t, claims, "aud")
	})
}

func TestSignRoleClaims(t *testing.T) {
	gen, km := newTestGenerator(t)

	compact, err := gen.Sign(Config{
		Subject:    "alice",
		RealmRoles: []string{"admin", "user"},
		ResourceRoles: map[string][]string{
			"account": {"manage-account"},
		},
	}, testIssuer)
	require.NoError(t, err)

	claims, _ := parseClaims(t, km, compact)

	realmAccess, ok := claims["realm_access"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"admin", "user"}, realmAccess["roles"])

	resourceAccess, ok := claims["resource_access"].(map[string]any)
	require.True(t, ok)
	account, ok := resourceAccess["account"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"manage-account"}, account["roles"])
}

func TestSignOptionalClaims(t *testing.T) {
	gen, km := newTestGenerator(t)

	authTime := time.Now().Add(-time.Minute).Truncate(time.Second)
	compact, err := gen.Sign(Config{
		Subject:           "alice",
		AuthorizedParty:   "client-a",
		Scope:             "openid profile",
		AuthTime:          authTime,
		ACR:               "1",
		SessionID:         "sess-1",
		PreferredUsername: "alice",
		Name:              "Alice Example",
		GivenName:         "Alice",
		FamilyName:        "Example",
		Email:             "alice@example.com",
	}, testIssuer)
	require.NoError(t, err)

	claims, _ := parseClaims(t, km, compact)
	assert.Equal(t, "client-a", claims["azp"])
	assert.Equal(t, "openid profile", claims["scope"])
	assert.Equal(t, float64(authTime.Unix()), claims["auth_time"])
	assert.Equal(t, "1", claims["acr"])
	assert.Equal(t, "sess-1", claims["session_state"])
	assert.Equal(t, "alice", claims["preferred_username"])
	assert.Equal(t, "Alice Example", claims["name"])
	assert.Equal(t, "alice@example.com", claims["email"])
}

func TestSignOmitsUnsetOptionalClaims(t *testing.T) {
	gen, km := newTestGenerator(t)

	compact, err := gen.Sign(Config{Subject: "alice"}, testIssuer)
	require.NoError(t, err)

	claims, _ := parseClaims(t, km, compact)
	for _, name := range []string{
		"azp", "scope", "nbf", "auth_time", "acr", "session_state",
		"preferred_username", "name", "given_name", "family_name", "email",
		"realm_access", "resource_access",
	} {
		assert.NotContains(t, claims, name)
	}
}

func TestSignCustomClaimsOverrideGenerated(t *testing.T) {
	gen, km := newTestGenerator(t)

	compact, err := gen.Sign(Config{
		Subject: "alice",
		Claims: map[string]any{
			"sub":    "mallory",
			"iss":    "https://evil.example.com",
			"tenant": "t-42",
		},
	}, testIssuer)
	require.NoError(t, err)

	claims, _ := parseClaims(t, km, compact)
	assert.Equal(t, "mallory", claims["sub"])
	assert.Equal(t, "https://evil.example.com", claims["iss"])
	assert.Equal(t, "t-42", claims["tenant"])
}

func TestSignExplicitTimestamps(t *testing.T) {
	gen, km := newTestGenerator(t)

	issuedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	expiration := issuedAt.Add(30 * time.Minute)
	notBefore := issuedAt.Add(-time.Minute)

	compact, err := gen.Sign(Config{
		IssuedAt:   issuedAt,
		Expiration: expiration,
		NotBefore:  notBefore,
	}, testIssuer)
	require.NoError(t, err)

	// jwt.Parse rejects expired tokens, so decode the payload through the
	// parser with validation bounds disabled via explicit time.
	parsed, err := jwt.Parse(compact, func(*jwt.Token) (any, error) {
		return km.PublicKey(), nil
	}, jwt.WithTimeFunc(func() time.Time { return issuedAt.Add(time.Minute) }))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)

	assert.Equal(t, float64(issuedAt.Unix()), claims["iat"])
	assert.Equal(t, float64(expiration.Unix()), claims["exp"])
	assert.Equal(t, float64(notBefore.Unix()), claims["nbf"])
}

func TestSignRejectsExpirationBeforeIssuance(t *testing.T) {
	gen, _ := newTestGenerator(t)

	issuedAt := time.Now()
	_, err := gen.Sign(Config{
		IssuedAt:   issuedAt,
		Expiration: issuedAt.Add(-time.Hour),
	}, testIssuer)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSignTokensAreUnique(t *testing.T) {
	gen, km := newTestGenerator(t)
	cfg := Config{Subject: "alice", IssuedAt: time.Unix(1700000000, 0)}

	first, err := gen.Sign(cfg, testIssuer)
	require.NoError(t, err)
	second, err := gen.Sign(cfg, testIssuer)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "jti must differ between issuances")

	opts := jwt.WithTimeFunc(func() time.Time { return time.Unix(1700000060, 0) })
	parse := func(compact string) jwt.MapClaims {
		parsed, err := jwt.Parse(compact, func(*jwt.Token) (any, error) {
			return km.PublicKey(), nil
		}, opts)
		require.NoError(t, err)
		return parsed.Claims.(jwt.MapClaims)
	}

	a, b := parse(first), parse(second)
	assert.NotEqual(t, a["jti"], b["jti"])

	// Everything except jti is deterministic for a fixed config.
	delete(a, "jti")
	delete(b, "jti")
	assert.Equal(t, a, b)
}

func TestSignDoesNotMutateConfig(t *testing.T) {
	gen, _ := newTestGenerator(t)

	cfg := Config{
		Subject:       "alice",
		Audience:      []string{"backend"},
		RealmRoles:    []string{"admin"},
		ResourceRoles: map[string][]string{"account": {"view"}},
		Claims:        map[string]any{"tenant": "t-1"},
	}

	_, err := gen.Sign(cfg, testIssuer)
	require.NoError(t, err)

	assert.Equal(t, []string{"backend"}, cfg.Audience)
	assert.Equal(t, []string{"admin"}, cfg.RealmRoles)
	assert.Equal(t, map[string][]string{"account": {"view"}}, cfg.ResourceRoles)
	assert.Equal(t, map[string]any{"tenant": "t-1"}, cfg.Claims)
}

func TestWithLifetime(t *testing.T) {
	km, err := keys.Generate(keys.RS256)
	require.NoError(t, err)
	gen := NewGenerator(km, WithLifetime(30*time.Minute))

	compact, err := gen.Sign(Config{Subject: "alice"}, testIssuer)
	require.NoError(t, err)

	claims, _ := parseClaims(t, km, compact)
	iat := claims["iat"].(float64)
	exp := claims["exp"].(float64)
	assert.Equal(t, 30*time.Minute, time.Duration(exp-iat)*time.Second)
}

func TestSignWithAllAlgorithms(t *testing.T) {
	for _, alg := range []keys.Algorithm{keys.RS256, keys.ES256, keys.HS256} {
		t.Run(string(alg), func(t *testing.T) {
			km, err := keys.Generate(alg)
			require.NoError(t, err)
			gen := NewGenerator(km)

			compact, err := gen.Sign(Config{Subject: "alice"}, testIssuer)
			require.NoError(t, err)
			assert.NotEmpty(t, compact)

			parsed, err := jwt.Parse(compact, func(tok *jwt.Token) (any, error) {
				if alg == keys.HS256 {
					// No published public key for HMAC; verify shape only.
					return nil, jwt.ErrTokenUnverifiable
				}
				return km.PublicKey(), nil
			})
			if alg == keys.HS256 {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(alg), parsed.Header["alg"])
		})
	}
}
