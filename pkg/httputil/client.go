package httputil

import (
	"net/http"
	"time"

	"github.com/ekristen/atlas/pkg/common"
	"github.com/ekristen/atlas/pkg/netconfig"
)

// DefaultTimeout bounds a whole request, including reading the body.
const DefaultTimeout = 60 * time.Second

// NewClient creates an HTTP client whose transport follows the proxy, NO_PROXY
// and SSL_VERIFY settings resolved for service and targetURL.
func NewClient(service, targetURL string, opts ...netconfig.Option) *http.Client {
	return &http.Client{
		Transport: NewTransport(service, targetURL, opts...),
		Timeout:   DefaultTimeout,
	}
}

// NewTransport resolves the network configuration for service and targetURL
// and returns the transport built from it, tagged with the tool's user agent.
func NewTransport(service, targetURL string, opts ...netconfig.Option) http.RoundTripper {
	cfg := netconfig.Resolve(service, targetURL, opts...)

	return &UserAgentTransport{
		UserAgent:           common.UserAgent(),
		UnderlyingTransport: cfg.RoundTripper(),
	}
}
