package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
)

// Credentials carries Basic auth material for the remote endpoint
type Credentials struct {
	Username string
	Password string
}

// Basic returns the base64 user:password token
func (c Credentials) Basic() string {
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
}

// Empty reports whether no credentials are present
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// Strategy builds a request for one way of reaching the remote endpoint.
// Strategies are tried in order by the Router until one produces a usable
// response; unit tests inject deterministic fakes.
type Strategy interface {
	// Name identifies the strategy in error messages and logs
	Name() string

	// BuildRequest constructs a strategy-specific request for the target URL
	BuildRequest(ctx context.Context, target, method string, creds Credentials, payload []byte) (*http.Request, error)

	// EmptyBodyMeansBlocked reports whether an empty response body should be
	// read as a cross-origin block rather than a legitimate empty reply
	EmptyBodyMeansBlocked() bool
}

// DirectStrategy calls the endpoint verbatim with a Basic-Auth header.
// Works whenever the remote has open cross-origin policy (or the caller is
// not a browser at all).
type DirectStrategy struct{}

func (DirectStrategy) Name() string { return "Direct" }

func (DirectStrategy) EmptyBodyMeansBlocked() bool { return true }

func (DirectStrategy) BuildRequest(ctx context.Context, target, method string, creds Credentials, payload []byte) (*http.Request, error) {
	var body *bytes.Reader
	if payload != nil && method != http.MethodGet {
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if !creds.Empty() {
		req.Header.Set("Authorization", "Basic "+creds.Basic())
	}
	return req, nil
}

// RelayStrategy rewrites the target URL as a query parameter of a fixed relay
// endpoint and passes credentials in the query string. No custom headers are
// set on mutating calls beyond text/plain, so a browser never issues a
// cross-origin preflight for it.
type RelayStrategy struct {
	RelayURL string
}

func (RelayStrategy) Name() string { return "Relay" }

func (RelayStrategy) EmptyBodyMeansBlocked() bool { return false }

func (s RelayStrategy) BuildRequest(ctx context.Context, target, method string, creds Credentials, payload []byte) (*http.Request, error) {
	relayed := s.RelayURL + "?url=" + url.QueryEscape(target)
	if !creds.Empty() {
		relayed += "&auth=" + url.QueryEscape(creds.Basic())
	}
	if method != "" && method != http.MethodGet {
		relayed += "&method=" + method
	}

	// The relay accepts only GET and POST; every mutating verb is tunneled
	// through POST with the real verb in the query string.
	wireMethod := http.MethodGet
	var body *bytes.Reader
	if method != http.MethodGet {
		wireMethod = http.MethodPost
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, wireMethod, relayed, body)
	if err != nil {
		return nil, err
	}
	if payload != nil && method != http.MethodGet {
		req.Header.Set("Content-Type", "text/plain")
	}
	return req, nil
}
