package requesting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"bitbucket.org/crgw/rental-desk/internal/schema"
)

// RequestErrors classifies the transport outcome of a remote call. A 401 is reported before
// anything looks at the body; every other status is handed back for the caller to parse.
func RequestErrors(response *http.Response, err error) (*http.Response, *schema.RemoteError) {
	if err != nil {
		if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			e := schema.NewTimeoutError(err.Error())
			return nil, &e
		}

		e := schema.NewConnectionError(err.Error())
		return nil, &e
	}

	if response.StatusCode == http.StatusUnauthorized {
		response.Body.Close()
		e := schema.NewUnauthorizedError(fmt.Sprintf("remote service returned status code %d", response.StatusCode))
		return nil, &e
	}

	return response, nil
}

func IsSuccessful(code int) bool {
	return code >= 200 && code <= 299
}
