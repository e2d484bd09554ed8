package httputil

import (
	"fmt"
	"net/http"
)

// UserAgentTransport sets User-Agent on requests that do not carry one.
type UserAgentTransport struct {
	UserAgent           string
	UnderlyingTransport http.RoundTripper
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" && t.UserAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}
	return underlying(t.UnderlyingTransport).RoundTrip(req)
}

// BasicAuthTransport authenticates with a username and API token.
type BasicAuthTransport struct {
	Username            string
	Token               string
	UnderlyingTransport http.RoundTripper
}

func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Token)
	return underlying(t.UnderlyingTransport).RoundTrip(req)
}

// BearerTransport authenticates with a personal access token.
type BearerTransport struct {
	Token               string
	UnderlyingTransport http.RoundTripper
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", t.Token))
	return underlying(t.UnderlyingTransport).RoundTrip(req)
}

func underlying(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}
