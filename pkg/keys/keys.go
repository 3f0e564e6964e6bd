// Package keys manages the signing key material of a mock identity
// provider instance.
//
// A KeyMaterial value holds exactly one active signing key, generated
// fresh at construction. The key identifier is the RFC 7638 JWK
// thumbprint of the key, so it is stable for the lifetime of the
// instance and two independently generated keys will not collide.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithm identifies a supported JWT signing algorithm.
type Algorithm string

// Supported signing algorithms.
const (
	RS256 Algorithm = "RS256"
	ES256 Algorithm = "ES256"
	HS256 Algorithm = "HS256"
)

// DefaultAlgorithm is used when no algorithm is configured. RS256 keeps
// JWKS-based verification working out of the box; HS256 tokens cannot be
// verified from the published key set alone.
const DefaultAlgorithm = RS256

// rsaKeySize is the modulus size for generated RSA keys.
const rsaKeySize = 2048

// hmacSecretSize is the byte length of generated HS256 secrets.
const hmacSecretSize = 32

// ErrUnsupportedAlgorithm is returned when an algorithm outside the
// supported set is requested.
var ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

// ParseAlgorithm parses an algorithm name. An empty string selects
// DefaultAlgorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "":
		return DefaultAlgorithm, nil
	case RS256, ES256, HS256:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// KeyMaterial holds the active signing key of one mock instance.
// The private key or secret never leaves this package; signing happens
// through Sign. All fields are immutable after Generate, so a single
// value is safe for concurrent use.
type KeyMaterial struct {
	algorithm  Algorithm
	keyID      string
	signingKey any              // *rsa.PrivateKey, *ecdsa.PrivateKey, or []byte
	publicKey  crypto.PublicKey // nil for HS256
}

// Generate creates fresh key material for the given algorithm.
// Generation failure is fatal to instance construction: there is no key
// to fall back to.
func Generate(alg Algorithm) (*KeyMaterial, error) {
	switch alg {
	case RS256:
		key, err := rsa.GenerateKey(rand.Reader, rsaKeySize)
		if err != nil {
			return nil, fmt.Errorf("failed to generate RSA key: %w", err)
		}
		return &KeyMaterial{
			algorithm:  alg,
			keyID:      rsaThumbprint(&key.PublicKey),
			signingKey: key,
			publicKey:  &key.PublicKey,
		}, nil
	case ES256:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate EC key: %w", err)
		}
		return &KeyMaterial{
			algorithm:  alg,
			keyID:      ecThumbprint(&key.PublicKey),
			signingKey: key,
			publicKey:  &key.PublicKey,
		}, nil
	case HS256:
		secret := make([]byte, hmacSecretSize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate HMAC secret: %w", err)
		}
		return &KeyMaterial{
			algorithm:  alg,
			keyID:      octThumbprint(secret),
			signingKey: secret,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// Algorithm returns the signing algorithm of the active key.
func (k *KeyMaterial) Algorithm() Algorithm {
	return k.algorithm
}

// KeyID returns the stable key identifier embedded in token headers and
// published in the JWKS document.
func (k *KeyMaterial) KeyID() string {
	return k.keyID
}

// PublicKey returns the public half of the active key, or nil for the
// symmetric HS256 algorithm.
func (k *KeyMaterial) PublicKey() crypto.PublicKey {
	return k.publicKey
}

// SigningMethod returns the jwt.SigningMethod matching the active key.
func (k *KeyMaterial) SigningMethod() jwt.SigningMethod {
	switch k.algorithm {
	case ES256:
		return jwt.SigningMethodES256
	case HS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodRS256
	}
}

// Sign produces the compact serialization of the given token using the
// private key. Signing failure is per-call; the key does not degrade.
func (k *KeyMaterial) Sign(token *jwt.Token) (string, error) {
	signed, err := token.SignedString(k.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// RFC 7638 thumbprints: SHA-256 over the canonical JSON of the required
// JWK members, base64url-encoded without padding.

func rsaThumbprint(pub *rsa.PublicKey) string {
	e := big.NewInt(int64(pub.E)).Bytes()
	input := fmt.Sprintf(`{"e":%q,"kty":"RSA","n":%q}`,
		base64.RawURLEncoding.EncodeToString(e),
		base64.RawURLEncoding.EncodeToString(pub.N.Bytes()))
	return thumbprint(input)
}

func ecThumbprint(pub *ecdsa.PublicKey) string {
	x, y := ecCoordinates(pub)
	input := fmt.Sprintf(`{"crv":"P-256","kty":"EC","x":%q,"y":%q}`,
		base64.RawURLEncoding.EncodeToString(x),
		base64.RawURLEncoding.EncodeToString(y))
	return thumbprint(input)
}

func octThumbprint(secret []byte) string {
	input := fmt.Sprintf(`{"k":%q,"kty":"oct"}`,
		base64.RawURLEncoding.EncodeToString(secret))
	return thumbprint(input)
}

func thumbprint(input string) string {
	sum := sha256.Sum256([]byte(input))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ecCoordinates returns the fixed-width big-endian affine coordinates of
// a P-256 public key, as required for JWK encoding.
func ecCoordinates(pub *ecdsa.PublicKey) (x, y []byte) {
	size := (pub.Curve.Params().BitSize + 7) / 8
	x = pub.X.FillBytes(make([]byte, size))
	y = pub.Y.FillBytes(make([]byte, size))
	return x, y
}
