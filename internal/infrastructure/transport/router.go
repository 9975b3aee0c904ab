package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
)

// Router sends remote requests through an ordered list of proxy strategies,
// falling through on transport-level failures. Any single transport may be
// blocked by a cross-origin policy or a flaky relay; the caller never needs
// to know which one ultimately worked.
type Router struct {
	strategies []Strategy
	client     *http.Client
}

// NewRouter creates a router with the given strategy order
func NewRouter(strategies ...Strategy) *Router {
	return &Router{
		strategies: strategies,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

// NewDefaultRouter builds the standard Direct-then-Relay order. An empty
// relay URL yields a direct-only router.
func NewDefaultRouter(relayURL string) *Router {
	if relayURL == "" {
		return NewRouter(DirectStrategy{})
	}
	return NewRouter(DirectStrategy{}, RelayStrategy{RelayURL: relayURL})
}

// SetClient swaps the underlying HTTP client (tests use httptest clients)
func (r *Router) SetClient(c *http.Client) {
	r.client = c
}

// Send issues a request to the target URL, trying each strategy in order.
//
// A definitive remote rejection (auth, not-found, 4xx envelope) is returned
// as an unsuccessful Response with nil error: the proxy was reachable and
// retrying through another one would not change the remote's answer. Only
// when every strategy fails at the transport level does Send return a
// TransportError carrying the last failure message.
func (r *Router) Send(ctx context.Context, target, method string, creds Credentials, payload interface{}) (*Response, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = encoded
	}

	lastError := ""
	for _, strategy := range r.strategies {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := strategy.BuildRequest(ctx, target, method, creds, body)
		if err != nil {
			lastError = fmt.Sprintf("%s: %v", strategy.Name(), err)
			continue
		}

		httpResp, err := r.client.Do(req)
		if err != nil {
			// Network-level failure, try the next strategy
			lastError = fmt.Sprintf("%s: %v", strategy.Name(), err)
			continue
		}

		raw, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			lastError = fmt.Sprintf("%s: %v", strategy.Name(), err)
			continue
		}

		verdict, resp := classify(raw, strategy.EmptyBodyMeansBlocked())
		switch verdict {
		case verdictSuccess:
			return resp, nil
		case verdictFailure:
			return resp, nil
		default:
			lastError = fmt.Sprintf("%s: %s", strategy.Name(), resp.Error)
			log.Printf("⚠️  Proxy %s failed for %s: %s", strategy.Name(), target, resp.Error)
		}
	}

	return nil, apperrors.NewTransportError(target, lastError)
}
