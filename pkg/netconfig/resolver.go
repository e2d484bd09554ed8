package netconfig

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Strategy is the outbound connection path chosen for a service.
type Strategy int

const (
	// StrategyDefault means nothing is configured; net/http defaults apply.
	StrategyDefault Strategy = iota
	// StrategyDirect connects directly with TLS verification disabled.
	StrategyDirect
	// StrategyBypass connects directly because NO_PROXY matched the target.
	StrategyBypass
	// StrategySOCKS tunnels http and https traffic through one SOCKS agent.
	StrategySOCKS
	// StrategyHTTPProxy sends traffic through HTTP/HTTPS proxy agents.
	StrategyHTTPProxy
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyBypass:
		return "bypass"
	case StrategySOCKS:
		return "socks"
	case StrategyHTTPProxy:
		return "http-proxy"
	default:
		return "default"
	}
}

// NetworkConfig is the result of a resolution. It belongs to the client that
// requested it and must not be shared.
type NetworkConfig struct {
	Strategy Strategy

	// HTTPAgent serves http:// requests, HTTPSAgent serves https://
	// requests. With StrategySOCKS both point at the same transport.
	HTTPAgent  *http.Transport
	HTTPSAgent *http.Transport

	// HTTPProxy and HTTPSProxy are the endpoints behind the agents.
	HTTPProxy  *ProxySpec
	HTTPSProxy *ProxySpec

	// DisableNativeProxy is set whenever an explicit agent is installed;
	// net/http must not apply its own environment proxy on top.
	DisableNativeProxy bool

	InsecureSkipVerify bool
}

// Proxied reports whether any proxy agent is installed.
func (c *NetworkConfig) Proxied() bool {
	return c.Strategy == StrategySOCKS || c.Strategy == StrategyHTTPProxy
}

// RoundTripper builds the transport a client should use. Requests whose
// scheme has no agent go to a fallback transport: direct when a proxy is
// bypassed or already handled, otherwise net/http's environment handling.
// Call it once per client.
func (c *NetworkConfig) RoundTripper() http.RoundTripper {
	var fallback *http.Transport
	if c.DisableNativeProxy || c.Strategy == StrategyBypass {
		fallback = newAgent(false)
	} else {
		fallback = newNativeAgent()
	}

	if c.HTTPAgent == nil && c.HTTPSAgent == nil {
		return fallback
	}

	t := &agentTransport{fallback: fallback}
	if c.HTTPAgent != nil {
		t.http = c.HTTPAgent
	}
	if c.HTTPSAgent != nil {
		t.https = c.HTTPSAgent
	}

	return t
}

// Option customises a resolution.
type Option func(*options)

type options struct {
	sslVerify bool
	lookup    LookupFunc
	log       logrus.FieldLogger
}

// WithSSLVerify sets the verification default used when neither the service
// nor the global SSL_VERIFY variable is set.
func WithSSLVerify(verify bool) Option {
	return func(o *options) {
		o.sslVerify = verify
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(lookup LookupFunc) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Resolve reads the environment for service and selects the outbound
// configuration for targetURL. It never fails: anything malformed degrades to
// the default connection behaviour.
func Resolve(service, targetURL string, opts ...Option) *NetworkConfig {
	o := &options{
		sslVerify: true,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	settings := ReadSettings(service, o.lookup, o.sslVerify)
	cfg := Select(settings, targetURL)

	logResolution(o.log, settings, targetURL, cfg)

	return cfg
}

// Select is the pure part of Resolve.
func Select(s Settings, targetURL string) *NetworkConfig {
	insecure := !s.SSLVerify

	if ShouldBypass(targetURL, s.NoProxy) {
		cfg := &NetworkConfig{Strategy: StrategyBypass, InsecureSkipVerify: insecure}
		if insecure {
			cfg.HTTPSAgent = newAgent(true)
			cfg.DisableNativeProxy = true
		}
		return cfg
	}

	if spec := ParseProxy(SchemeSOCKS, s.SOCKSProxy); spec != nil {
		if agent, err := newSOCKSAgent(spec, insecure); err == nil {
			return &NetworkConfig{
				Strategy:           StrategySOCKS,
				HTTPAgent:          agent,
				HTTPSAgent:         agent,
				HTTPProxy:          spec,
				HTTPSProxy:         spec,
				DisableNativeProxy: true,
				InsecureSkipVerify: insecure,
			}
		}
	}

	httpsSpec := ParseProxy(SchemeHTTPS, s.HTTPSProxy)
	httpSpec := ParseProxy(SchemeHTTP, s.HTTPProxy)

	if httpsSpec != nil || httpSpec != nil {
		forHTTPS, forHTTP := httpsSpec, httpSpec
		if forHTTPS == nil {
			forHTTPS = httpSpec
		}
		if forHTTP == nil {
			forHTTP = httpsSpec
		}

		return &NetworkConfig{
			Strategy:           StrategyHTTPProxy,
			HTTPAgent:          newProxyAgent(forHTTP, false),
			HTTPSAgent:         newProxyAgent(forHTTPS, insecure),
			HTTPProxy:          forHTTP,
			HTTPSProxy:         forHTTPS,
			DisableNativeProxy: true,
			InsecureSkipVerify: insecure,
		}
	}

	if insecure {
		return &NetworkConfig{
			Strategy:           StrategyDirect,
			HTTPSAgent:         newAgent(true),
			DisableNativeProxy: true,
			InsecureSkipVerify: true,
		}
	}

	return &NetworkConfig{Strategy: StrategyDefault}
}

// TargetProxy returns the endpoint that will carry requests to targetURL,
// or nil when the connection is direct.
func (c *NetworkConfig) TargetProxy(targetURL string) *ProxySpec {
	if targetScheme(targetURL) == "http" {
		return c.HTTPProxy
	}
	return c.HTTPSProxy
}

func targetScheme(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func logResolution(log logrus.FieldLogger, s Settings, targetURL string, cfg *NetworkConfig) {
	if log == nil {
		return
	}

	entry := log.WithField("component", "netconfig").
		WithField("service", s.Service).
		WithField("strategy", cfg.Strategy.String()).
		WithField("ssl_verify", !cfg.InsecureSkipVerify)

	switch cfg.Strategy {
	case StrategyBypass:
		entry.WithField("no_proxy", s.NoProxy).Infof("target %s matched NO_PROXY, connecting directly", redactTarget(targetURL))
	case StrategySOCKS:
		entry.WithField("proxy", cfg.HTTPSProxy.String()).Info("using socks proxy")
	case StrategyHTTPProxy:
		entry.WithField("proxy", cfg.TargetProxy(targetURL).String()).Info("using http proxy")
	case StrategyDirect:
		entry.Info("no proxy configured, tls verification disabled")
	default:
		entry.Info("no proxy configured")
	}
}

func redactTarget(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Redacted()
}
