// Package issuer resolves the externally visible base URL of the mock
// for a given request, and constructs issuer URLs from it.
//
// A single running mock can be reached under several hostnames (for
// example container-internal and host-mapped addresses). Resolving the
// base URL from the request's own host indicator keeps issued tokens and
// discovery documents self-consistent with whichever address the client
// actually used.
package issuer

import "errors"

// realmPath is the path prefix under which realms are scoped.
const realmPath = "/auth/realms/"

// ErrNoBaseURL is returned when neither the request nor the
// configuration provides a base URL. It is never silently defaulted to
// an empty string.
var ErrNoBaseURL = errors.New("no request host and no configured base URL")

// Resolve derives the base URL for a request. A request host indicator
// wins over the configured default; the scheme follows the TLS state of
// the connection. With no host indicator the configured default is used
// as-is.
func Resolve(requestHost, configuredDefault string, tlsActive bool) (string, error) {
	if requestHost != "" {
		scheme := "http://"
		if tlsActive {
			scheme = "https://"
		}
		return scheme + requestHost, nil
	}
	if configuredDefault == "" {
		return "", ErrNoBaseURL
	}
	return configuredDefault, nil
}

// URL constructs the issuer URL for a realm under the given base URL.
// The same value must be used for the token's iss claim and for the
// URLs advertised in the discovery document served to that request.
func URL(baseURL, realm string) string {
	return baseURL + realmPath + realm
}
