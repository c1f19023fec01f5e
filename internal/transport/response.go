package transport

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/toparuz/marketsync/pkg/errors"
	"github.com/toparuz/marketsync/pkg/logging"
)

// DecodeResponse decodes a JSON response into the target structure. A
// non-2xx status becomes an APIError carrying the status code and body, so
// callers can drive retry decisions off it.
func DecodeResponse(source string, resp *http.Response, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapFetch(source, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errors.APIError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   resp.Request.URL.Path,
		}
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", source+" response", err)
	}

	return nil
}
