package netconfig

import (
	"net/url"
	"strings"
)

type ProxyScheme string

const (
	SchemeHTTP  ProxyScheme = "http"
	SchemeHTTPS ProxyScheme = "https"
	SchemeSOCKS ProxyScheme = "socks"
)

// ProxySpec is a parsed proxy endpoint. It is never modified after parsing.
type ProxySpec struct {
	Scheme ProxyScheme
	URL    *url.URL
}

// String returns the endpoint with any password redacted.
func (p *ProxySpec) String() string {
	if p == nil || p.URL == nil {
		return ""
	}
	return p.URL.Redacted()
}

// ParseProxy parses raw as an endpoint for scheme. Values without a URL
// scheme get a default one (http:// or socks5://). It returns nil when raw is
// empty, unparsable, uses a scheme the agent cannot speak, or lacks a host
// and port.
func ParseProxy(scheme ProxyScheme, raw string) *ProxySpec {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if !strings.Contains(raw, "://") {
		if scheme == SchemeSOCKS {
			raw = "socks5://" + raw
		} else {
			raw = "http://" + raw
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}

	u.Scheme = strings.ToLower(u.Scheme)

	switch scheme {
	case SchemeSOCKS:
		switch u.Scheme {
		case "socks", "socks5":
			u.Scheme = "socks5"
		case "socks5h":
		default:
			return nil
		}
	default:
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil
		}
	}

	if u.Hostname() == "" || u.Port() == "" {
		return nil
	}

	return &ProxySpec{Scheme: scheme, URL: u}
}
