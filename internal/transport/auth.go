package transport

import "net/http"

// Authenticator applies authentication to HTTP requests. Credentials are
// opaque strings; token acquisition happens in the source packages.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request) {
	// No authentication applied
}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct {
	Token func() string
}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request) {
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// HeaderAuth implements custom header authentication with a direct value,
// e.g. the Yandex "Api-Key" header or the Uzum opaque Authorization token.
type HeaderAuth struct {
	Header string
	Value  string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request) {
	if a.Value != "" {
		req.Header.Set(a.Header, a.Value)
	}
}
