package remote

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/openai/openai-go/v3"

	"github.com/jonwraymond/embedcache/resilience"
)

var (
	// ErrMissingAPIKey indicates the client was built without an API key.
	ErrMissingAPIKey = errors.New("remote: api key is required")

	// ErrBadResponse indicates a response that does not match the request.
	ErrBadResponse = errors.New("remote: unexpected response")
)

// Classify marks err with the failure kind the retry policy acts on:
//
//   - 429 is a rate limit.
//   - 408 and 504, and network timeouts, are timeouts.
//   - Other 5xx responses and connection failures mean the service is
//     unavailable.
//   - Any other API error is permanent.
//
// Context errors are returned unchanged so that the caller's cancellation
// stays recognizable. A nil err yields nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusTooManyRequests:
			return resilience.Transient(resilience.KindRateLimit, err)
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return resilience.Transient(resilience.KindTimeout, err)
		case code >= 500 && code <= 599:
			return resilience.Transient(resilience.KindUnavailable, err)
		default:
			return resilience.Permanent(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return resilience.Transient(resilience.KindTimeout, err)
		}
		return resilience.Transient(resilience.KindUnavailable, err)
	}
	return err
}
