package sessionkit

import (
	"net/http"
	"net/http/httputil"
	"os"

	"github.com/rs/zerolog/log"
)

// debugTransport logs each identity-provider request/response when debug
// logging is requested. It dumps full bodies, which may include
// credentials and profile data, so it is strictly a development aid.
//
// Enable with SESSIONKIT_DEBUG=true or DEBUG=true.
type debugTransport struct{ base http.RoundTripper }

func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if debugLoggingRequested() {
		if reqDump, err := httputil.DumpRequestOut(req, true); err == nil {
			log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_dump", string(reqDump)).Msg("HTTP request")
		}
	}

	resp, err := dt.base.RoundTrip(req)
	if err != nil {
		if debugLoggingRequested() {
			log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		}
		return nil, err
	}

	if debugLoggingRequested() {
		if respDump, err := httputil.DumpResponse(resp, true); err == nil {
			log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status_code", resp.StatusCode).Str("response_dump", string(respDump)).Msg("HTTP response")
		}
	}
	return resp, nil
}

// debugLoggingRequested checks if HTTP debug logging should be enabled.
// Both environment variables are supported: SESSIONKIT_DEBUG for targeted
// debugging of this SDK, DEBUG for broader application debugging.
func debugLoggingRequested() bool {
	return os.Getenv("SESSIONKIT_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
