package netconfig

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/proxy"
)

func newDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
}

// newAgent returns a transport that connects directly. Proxy is left nil so
// the environment is never consulted a second time.
func newAgent(insecure bool) *http.Transport {
	t := &http.Transport{
		DialContext:           newDialer().DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return t
}

// newNativeAgent returns a transport that keeps net/http's own
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY handling.
func newNativeAgent() *http.Transport {
	t := newAgent(false)
	t.Proxy = http.ProxyFromEnvironment
	return t
}

func newProxyAgent(spec *ProxySpec, insecure bool) *http.Transport {
	t := newAgent(insecure)
	t.Proxy = http.ProxyURL(spec.URL)
	return t
}

// newSOCKSAgent tunnels every connection, plain or TLS, through the SOCKS
// endpoint.
func newSOCKSAgent(spec *ProxySpec, insecure bool) (*http.Transport, error) {
	dialer, err := proxy.FromURL(spec.URL, newDialer())
	if err != nil {
		return nil, errors.Wrap(err, "unable to create socks dialer")
	}

	t := newAgent(insecure)
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return t, nil
}

// agentTransport picks the agent matching the request scheme.
type agentTransport struct {
	http     http.RoundTripper
	https    http.RoundTripper
	fallback http.RoundTripper
}

func (t *agentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	switch req.URL.Scheme {
	case "https":
		if t.https != nil {
			return t.https.RoundTrip(req)
		}
	case "http":
		if t.http != nil {
			return t.http.RoundTrip(req)
		}
	}

	return t.fallback.RoundTrip(req)
}

func (t *agentTransport) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}

	for _, rt := range []http.RoundTripper{t.http, t.https, t.fallback} {
		if ci, ok := rt.(closeIdler); ok {
			ci.CloseIdleConnections()
		}
	}
}
