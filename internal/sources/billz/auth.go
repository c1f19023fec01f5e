package billz

import (
	"context"
	"sync"
	"time"

	"github.com/toparuz/marketsync/internal/transport"
	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// tokenTTL is how long a login token is trusted before a fresh login.
const tokenTTL = 12 * time.Hour

// loginRequest is the wire shape of the login call.
type loginRequest struct {
	SecretToken string `json:"secret_token"`
}

// loginResponse is the wire shape of the login response.
type loginResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// tokenSource performs the Billz login handshake and caches the resulting
// token, refreshing it when stale. The rest of the system only ever sees
// the opaque token string.
type tokenSource struct {
	authURL string
	secret  string

	mu        sync.Mutex
	token     string
	fetchedAt time.Time
}

// newTokenSource creates a token source for the given auth endpoint.
func newTokenSource(authURL, secret string) *tokenSource {
	return &tokenSource{authURL: authURL, secret: secret}
}

// current returns the cached token without refreshing it.
func (ts *tokenSource) current() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.token
}

// Token returns a valid login token, performing the handshake if the cached
// one is missing or stale.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && time.Since(ts.fetchedAt) < tokenTTL {
		return ts.token, nil
	}

	if ts.secret == "" {
		return "", &errors.AuthenticationError{
			Source:  SourceName,
			Method:  "token",
			Message: "secret token not configured",
		}
	}

	client := transport.New(&transport.NoAuth{})
	resp, err := client.JSON(ctx, "POST", ts.authURL, loginRequest{SecretToken: ts.secret})
	if err != nil {
		return "", &errors.AuthenticationError{Source: SourceName, Method: "token", Message: "login request failed", Err: err}
	}

	var body loginResponse
	if err := transport.DecodeResponse(SourceName, resp, &body); err != nil {
		return "", &errors.AuthenticationError{Source: SourceName, Method: "token", Message: "login failed", Err: err}
	}
	if body.Data.AccessToken == "" {
		return "", &errors.AuthenticationError{Source: SourceName, Method: "token", Message: "login response carried no access token"}
	}

	ts.token = body.Data.AccessToken
	ts.fetchedAt = time.Now()
	logging.FromContext(ctx).Debug().Str("source", SourceName).Msg("Login token refreshed")
	return ts.token, nil
}
