package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockidp/mockidp/pkg/keys"
)

func TestRenderRSA(t *testing.T) {
	km, err := keys.Generate(keys.RS256)
	require.NoError(t, err)

	set := Render(km)
	require.Len(t, set.Keys, 1)

	key := set.Keys[0]
	assert.Equal(t, "RSA", key.Kty)
	assert.Equal(t, "sig", key.Use)
	assert.Equal(t, km.KeyID(), key.Kid)
	assert.Equal(t, "RS256", key.Alg)
	assert.NotEmpty(t, key.N)
	assert.NotEmpty(t, key.E)
	assert.Empty(t, key.Crv)

	// The rendered modulus must round-trip to the actual public key.
	pub, ok := km.PublicKey().(*rsa.PublicKey)
	require.True(t, ok)
	n, err := base64.RawURLEncoding.DecodeString(key.N)
	require.NoError(t, err)
	assert.Zero(t, pub.N.Cmp(new(big.Int).SetBytes(n)))
}

func TestRenderEC(t *testing.T) {
	km, err := keys.Generate(keys.ES256)
	require.NoError(t, err)

	set := Render(km)
	require.Len(t, set.Keys, 1)

	key := set.Keys[0]
	assert.Equal(t, "EC", key.Kty)
	assert.Equal(t, "sig", key.Use)
	assert.Equal(t, km.KeyID(), key.Kid)
	assert.Equal(t, "ES256", key.Alg)
	assert.Equal(t, "P-256", key.Crv)

	// P-256 coordinates are 32 bytes, fixed width.
	x, err := base64.RawURLEncoding.DecodeString(key.X)
	require.NoError(t, err)
	assert.Len(t, x, 32)
	y, err := base64.RawURLEncoding.DecodeString(key.Y)
	require.NoError(t, err)
	assert.Len(t, y, 32)
}

func TestRenderHMACIsEmpty(t *testing.T) {
	km, err := keys.Generate(keys.HS256)
	require.NoError(t, err)

	set := Render(km)
	require.NotNil(t, set.Keys, "keys must render as an empty array, not null")
	assert.Empty(t, set.Keys)
}

func TestRenderIdempotent(t *testing.T) {
	km, err := keys.Generate(keys.RS256)
	require.NoError(t, err)

	assert.Equal(t, Render(km), Render(km))
}
