package netconfig

import (
	"os"
	"strings"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Settings is a snapshot of the environment values that drive resolution for
// one service. Values are raw strings; nothing has been parsed yet.
type Settings struct {
	Service    string
	SSLVerify  bool
	SOCKSProxy string
	HTTPSProxy string
	HTTPProxy  string
	NoProxy    string
}

// Prefix returns the environment variable prefix for a service, e.g. JIRA_.
func Prefix(service string) string {
	service = strings.TrimSpace(service)
	if service == "" {
		return ""
	}

	service = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' || r == ' ' {
			return '_'
		}
		return r
	}, service)

	return strings.ToUpper(service) + "_"
}

// Chains lists the candidate variables, in precedence order, for every
// setting the resolver reads.
type Chains struct {
	SSLVerify  []string
	SOCKSProxy []string
	HTTPSProxy []string
	HTTPProxy  []string
	NoProxy    []string
}

// ChainsFor builds the lookup chains for a service. Service scoped names come
// first, then the global upper and lower case names, then ALL_PROXY for the
// http and https schemes.
func ChainsFor(service string) Chains {
	p := Prefix(service)

	scoped := func(name string) []string {
		if p == "" {
			return nil
		}
		return []string{p + name}
	}

	return Chains{
		SSLVerify:  append(scoped("SSL_VERIFY"), "SSL_VERIFY"),
		SOCKSProxy: append(scoped("SOCKS_PROXY"), "SOCKS_PROXY", "socks_proxy"),
		HTTPSProxy: append(scoped("HTTPS_PROXY"), "HTTPS_PROXY", "https_proxy", "ALL_PROXY", "all_proxy"),
		HTTPProxy:  append(scoped("HTTP_PROXY"), "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"),
		NoProxy:    append(scoped("NO_PROXY"), "NO_PROXY", "no_proxy"),
	}
}

// firstOf returns the first non-empty value found for keys.
func firstOf(lookup LookupFunc, keys []string) string {
	for _, key := range keys {
		if v, ok := lookup(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// ReadSettings reads the environment once through lookup. defaultVerify is
// used when no SSL_VERIFY variable is set.
func ReadSettings(service string, lookup LookupFunc, defaultVerify bool) Settings {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	chains := ChainsFor(service)

	s := Settings{
		Service:    service,
		SSLVerify:  defaultVerify,
		SOCKSProxy: firstOf(lookup, chains.SOCKSProxy),
		HTTPSProxy: firstOf(lookup, chains.HTTPSProxy),
		HTTPProxy:  firstOf(lookup, chains.HTTPProxy),
		NoProxy:    firstOf(lookup, chains.NoProxy),
	}

	if v := firstOf(lookup, chains.SSLVerify); v != "" {
		s.SSLVerify = v != "false"
	}

	return s
}
