package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/ekristen/atlas/pkg/netconfig"
)

const (
	ServiceJira       = "jira"
	ServiceConfluence = "confluence"
	// ServiceAtlassian scopes the network settings used by the OAuth flow.
	ServiceAtlassian = "atlassian"

	// CloudAPIURL is the gateway OAuth clients talk to.
	CloudAPIURL = "https://api.atlassian.com"
)

type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthToken  AuthType = "token"
	AuthOAuth2 AuthType = "oauth2"
)

// OAuth holds the client registration used for 3LO.
type OAuth struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	CloudID      string
}

// Complete reports whether every value needed to call the API is present.
func (o OAuth) Complete() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.CloudID != ""
}

// Service is the connection configuration of one Atlassian product.
type Service struct {
	Name string
	URL  string

	Auth          AuthType
	Username      string
	APIToken      string
	PersonalToken string
	OAuth         OAuth

	SSLVerify bool
	ReadOnly  bool
}

// APIURL is the base URL requests are sent to. OAuth clients go through the
// cloud gateway instead of the site URL.
func (s *Service) APIURL() string {
	if s.Auth == AuthOAuth2 {
		return fmt.Sprintf("%s/ex/%s/%s", CloudAPIURL, s.Name, s.OAuth.CloudID)
	}
	return s.URL
}

// IsCloud reports whether the service is an Atlassian Cloud site.
func (s *Service) IsCloud() bool {
	if s.Auth == AuthOAuth2 {
		return true
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	return strings.HasSuffix(host, ".atlassian.net") ||
		strings.HasSuffix(host, ".jira.com") ||
		strings.HasSuffix(host, ".jira-dev.com")
}

// Load builds the configuration for service from the environment. A nil
// lookup uses os.LookupEnv.
func Load(service string, lookup netconfig.LookupFunc) (*Service, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	prefix := netconfig.Prefix(service)

	s := &Service{
		Name:          service,
		URL:           strings.TrimRight(get(prefix+"URL"), "/"),
		Username:      get(prefix + "USERNAME"),
		APIToken:      get(prefix + "API_TOKEN"),
		PersonalToken: get(prefix + "PERSONAL_TOKEN"),
		OAuth:         LoadOAuth(lookup),
		SSLVerify:     get(prefix+"SSL_VERIFY") != "false",
		ReadOnly:      isTrue(get("READ_ONLY_MODE")) || isTrue(get(prefix+"READ_ONLY")),
	}

	if s.URL == "" {
		return nil, fmt.Errorf("%sURL is not set", prefix)
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %sURL", prefix)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid %sURL %q, expected an http or https url", prefix, s.URL)
	}

	switch {
	case s.OAuth.Complete():
		s.Auth = AuthOAuth2
	case s.PersonalToken != "":
		s.Auth = AuthToken
	case s.Username != "" && s.APIToken != "":
		s.Auth = AuthBasic
	default:
		return nil, fmt.Errorf("no credentials configured for %s, set %sUSERNAME and %sAPI_TOKEN, %sPERSONAL_TOKEN, or the ATLASSIAN_OAUTH_* variables",
			service, prefix, prefix, prefix)
	}

	return s, nil
}

// LoadOAuth reads the ATLASSIAN_OAUTH_* variables.
func LoadOAuth(lookup netconfig.LookupFunc) OAuth {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	return OAuth{
		ClientID:     get("ATLASSIAN_OAUTH_CLIENT_ID"),
		ClientSecret: get("ATLASSIAN_OAUTH_CLIENT_SECRET"),
		RedirectURI:  get("ATLASSIAN_OAUTH_REDIRECT_URI"),
		Scope:        get("ATLASSIAN_OAUTH_SCOPE"),
		CloudID:      get("ATLASSIAN_OAUTH_CLOUD_ID"),
	}
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
