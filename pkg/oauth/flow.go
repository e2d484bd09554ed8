package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/ekristen/atlas/pkg/config"
)

const (
	AuthURL      = "https://auth.atlassian.com/authorize"
	TokenURL     = "https://auth.atlassian.com/oauth/token"
	ResourcesURL = config.CloudAPIURL + "/oauth/token/accessible-resources"

	DefaultRedirectURI = "http://localhost:8080/callback"
	DefaultScope       = "read:jira-work write:jira-work read:jira-user " +
		"read:confluence-content.all write:confluence-content read:confluence-space.summary " +
		"search:confluence offline_access"

	DefaultTimeout = 5 * time.Minute
)

// NewConfig builds the oauth2 client configuration, filling in the default
// redirect URI and scope.
func NewConfig(o config.OAuth) *oauth2.Config {
	redirect := o.RedirectURI
	if redirect == "" {
		redirect = DefaultRedirectURI
	}

	scope := o.Scope
	if scope == "" {
		scope = DefaultScope
	}

	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  redirect,
		Scopes:       strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Resource is a site the token grants access to.
type Resource struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Scopes []string `json:"scopes"`
}

// Flow runs the authorization code grant against a local callback server.
type Flow struct {
	Config *oauth2.Config
	Store  *Store

	// HTTPClient is used for the code exchange and the resource lookup.
	HTTPClient   *http.Client
	ResourcesURL string

	// Listener overrides the listener derived from the redirect URI.
	Listener net.Listener

	OpenBrowser func(string) error
	Out         io.Writer
	Timeout     time.Duration

	log *logrus.Entry
}

func NewFlow(cfg *oauth2.Config, store *Store, client *http.Client) *Flow {
	return &Flow{
		Config:       cfg,
		Store:        store,
		HTTPClient:   client,
		ResourcesURL: ResourcesURL,
		OpenBrowser:  OpenURL,
		Out:          os.Stdout,
		Timeout:      DefaultTimeout,
		log:          logrus.WithField("component", "oauth"),
	}
}

// AuthCodeURL returns the URL the user has to visit.
func (f *Flow) AuthCodeURL(state string) string {
	return f.Config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("audience", "api.atlassian.com"),
		oauth2.SetAuthURLParam("prompt", "consent"))
}

type callbackResult struct {
	code string
	err  error
}

// Run starts the callback server, sends the user to the authorization page,
// waits for the redirect and exchanges the code. The credential is saved to
// the store when one is set.
func (f *Flow) Run(ctx context.Context) (*Credential, error) {
	log := f.logger()

	redirect, err := url.Parse(f.Config.RedirectURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redirect uri")
	}

	ln := f.Listener
	if ln == nil {
		if redirect.Port() == "" {
			return nil, fmt.Errorf("redirect uri %s must include a port", f.Config.RedirectURL)
		}

		ln, err = net.Listen("tcp", redirect.Host)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to listen on %s", redirect.Host)
		}
	}

	state, err := newState()
	if err != nil {
		return nil, err
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, callbackHandler(state, results))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("callback server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := f.AuthCodeURL(state)

	out := f.Out
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "Open the following URL in your browser to authorize access:\n\n  %s\n\n", authURL)

	if f.OpenBrowser != nil {
		if err := f.OpenBrowser(authURL); err != nil {
			log.WithError(err).Debug("unable to open browser")
		}
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.WithField("address", ln.Addr().String()).Info("waiting for authorization callback")

	var res callbackResult
	select {
	case res = <-results:
	case <-waitCtx.Done():
		return nil, errors.Wrap(waitCtx.Err(), "authorization was not completed")
	}

	if res.err != nil {
		return nil, res.err
	}

	return f.Exchange(ctx, res.code)
}

// Exchange trades the authorization code for a token, looks up the cloud id
// of the first accessible site and saves the credential.
func (f *Flow) Exchange(ctx context.Context, code string) (*Credential, error) {
	log := f.logger()

	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}

	tok, err := f.Config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "unable to exchange authorization code")
	}

	cred := &Credential{ClientID: f.Config.ClientID}
	cred.setToken(tok)

	resources, err := f.AccessibleResources(ctx, tok)
	if err != nil {
		return nil, err
	}

	if len(resources) == 0 {
		log.Warn("token does not grant access to any site")
	} else {
		cred.CloudID = resources[0].ID
		cred.SiteURL = resources[0].URL
		log.WithField("site", cred.SiteURL).WithField("cloud_id", cred.CloudID).Info("authorized site")
	}

	if f.Store != nil {
		if err := f.Store.Save(cred); err != nil {
			return nil, errors.Wrap(err, "unable to save credential")
		}
		log.WithField("path", f.Store.Path()).Info("credential saved")
	}

	return cred, nil
}

// AccessibleResources lists the sites tok grants access to.
func (f *Flow) AccessibleResources(ctx context.Context, tok *oauth2.Token) ([]Resource, error) {
	endpoint := f.ResourcesURL
	if endpoint == "" {
		endpoint = ResourcesURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	tok.SetAuthHeader(req)

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list accessible resources")
	}
	defer resp.Body.Close()

	if resp.StatusCode > 399 {
		return nil, fmt.Errorf("received error code %d listing accessible resources", resp.StatusCode)
	}

	var resources []Resource
	if err := json.NewDecoder(resp.Body).Decode(&resources); err != nil {
		return nil, errors.Wrap(err, "unable to decode accessible resources")
	}

	return resources, nil
}

// TokenSource returns a refreshing token source for the stored credential of
// cfg.ClientID. Refreshed tokens are written back to the store.
func TokenSource(ctx context.Context, cfg *oauth2.Config, store *Store, client *http.Client) (oauth2.TokenSource, error) {
	cred, err := store.Load(cfg.ClientID)
	if err != nil {
		return nil, err
	}

	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}

	return &persistingSource{
		store: store,
		cred:  cred,
		src:   cfg.TokenSource(ctx, cred.Token()),
	}, nil
}

func (f *Flow) logger() *logrus.Entry {
	if f.log == nil {
		f.log = logrus.WithField("component", "oauth")
	}
	return f.log
}

func callbackHandler(state string, results chan<- callbackResult) http.HandlerFunc {
	var once sync.Once

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s %s", q.Get("error"), q.Get("error_description"))
		case q.Get("state") != state:
			res.err = errors.New("state mismatch in authorization callback")
		case q.Get("code") == "":
			res.err = errors.New("authorization callback is missing the code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete, you can close this window.")
		}

		once.Do(func() {
			results <- res
		})
	}
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "unable to generate state")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
