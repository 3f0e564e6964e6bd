// Package discovery builds the OpenID provider-configuration document
// served at /.well-known/openid-configuration.
package discovery

// Document is the provider metadata returned for a realm.
//
// The signing-algorithm list describes protocol capability and always
// advertises RS256, ES256 and HS256, independent of which single
// algorithm the running instance actually signs with.
type Document struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	JwksURI                          string   `json:"jwks_uri"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	EndSessionEndpoint               string   `json:"end_session_endpoint"`
}

// Build renders the document for an issuer and the base URL it was
// derived from. Endpoint URLs are path-appended to the base URL or the
// issuer, covering the fields relying-party libraries commonly read.
func Build(issuer, baseURL string) *Document {
	return &Document{
		Issuer:                           issuer,
		AuthorizationEndpoint:            baseURL + "/authenticate",
		TokenEndpoint:                    issuer + "/protocol/openid-connect/token",
		JwksURI:                          issuer + "/protocol/openid-connect/certs",
		ResponseTypesSupported:           []string{"code", "code id_token", "id_token", "token id_token"},
		SubjectTypesSupported:            []string{"public"},
		IDTokenSigningAlgValuesSupported: []string{"RS256", "ES256", "HS256"},
		EndSessionEndpoint:               baseURL + "/logout",
	}
}
