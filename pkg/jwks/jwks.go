// Package jwks renders the public half of a mock instance's key material
// as a JSON Web Key Set.
package jwks

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"math/big"

	"github.com/mockidp/mockidp/pkg/keys"
)

// JWKS is a JSON Web Key Set document.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is a single JSON Web Key. Only the fields relevant to the key type
// are populated.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`

	// RSA parameters
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// EC parameters
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// Render projects the instance's public key into a key set. It is a pure
// function of the key material: no side effects, safe to call
// concurrently and arbitrarily often.
//
// For a symmetric HS256 key there is nothing publishable, so the key set
// is empty. Verifiers relying on JWKS alone cannot validate HS256 tokens
// from the mock; they must be configured with the shared secret
// separately.
func Render(km *keys.KeyMaterial) *JWKS {
	set := &JWKS{Keys: []JWK{}}

	switch pub := km.PublicKey().(type) {
	case *rsa.PublicKey:
		set.Keys = append(set.Keys, JWK{
			Kty: "RSA",
			Use: "sig",
			Kid: km.KeyID(),
			Alg: string(km.Algorithm()),
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	case *ecdsa.PublicKey:
		size := (pub.Curve.Params().BitSize + 7) / 8
		set.Keys = append(set.Keys, JWK{
			Kty: "EC",
			Use: "sig",
			Kid: km.KeyID(),
			Alg: string(km.Algorithm()),
			Crv: "P-256",
			X:   base64.RawURLEncoding.EncodeToString(pub.X.FillBytes(make([]byte, size))),
			Y:   base64.RawURLEncoding.EncodeToString(pub.Y.FillBytes(make([]byte, size))),
		})
	}

	return set
}
