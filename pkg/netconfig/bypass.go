package netconfig

import (
	"net/url"
	"strings"
)

// ShouldBypass reports whether the host of targetURL is excluded from proxying
// by noProxy, a comma separated NO_PROXY style list. Entries may be an exact
// hostname, a domain suffix with a leading dot, a parent domain, or "*".
//
// A target that cannot be parsed never bypasses.
func ShouldBypass(targetURL, noProxy string) bool {
	if strings.TrimSpace(noProxy) == "" {
		return false
	}

	host := targetHostname(targetURL)
	if host == "" {
		return false
	}

	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}

		if matchEntry(host, entry) {
			return true
		}
	}

	return false
}

func matchEntry(host, entry string) bool {
	switch {
	case entry == "*":
		return true
	case entry == host:
		return true
	case strings.HasPrefix(entry, "."):
		return strings.HasSuffix(host, entry)
	default:
		return strings.HasSuffix(host, "."+entry)
	}
}

// targetHostname returns the lower-cased hostname of rawURL, or an empty
// string when it is not an absolute URL with a host.
func targetHostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Hostname())
}
