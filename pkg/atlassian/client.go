package atlassian

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/httputil"
	"github.com/ekristen/atlas/pkg/netconfig"
	"github.com/ekristen/atlas/pkg/oauth"
)

// ErrReadOnly is returned by write operations when read-only mode is on.
var ErrReadOnly = errors.New("operation not permitted in read-only mode")

// Client sends JSON requests to one Atlassian product.
type Client struct {
	Service *config.Service

	baseURL *url.URL
	http    *http.Client
	log     *logrus.Entry
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	store      *oauth.Store
	netOpts    []netconfig.Option
}

// WithHTTPClient skips transport construction and uses client as is.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTokenStore sets the store OAuth credentials are read from.
func WithTokenStore(store *oauth.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithNetworkOptions is passed through to the network resolver.
func WithNetworkOptions(opts ...netconfig.Option) Option {
	return func(o *options) {
		o.netOpts = append(o.netOpts, opts...)
	}
}

// New builds an authenticated client for svc. The transport is resolved once
// here from the service's proxy and TLS settings.
func New(ctx context.Context, svc *config.Service, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	base, err := url.Parse(strings.TrimRight(svc.APIURL(), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid base url")
	}

	c := &Client{
		Service: svc,
		baseURL: base,
		http:    o.httpClient,
		log:     logrus.WithField("component", svc.Name),
	}

	if c.http == nil {
		c.http, err = newHTTPClient(ctx, svc, o)
		if err != nil {
			return nil, err
		}
	}

	return c, nil
}

func newHTTPClient(ctx context.Context, svc *config.Service, o *options) (*http.Client, error) {
	netOpts := append([]netconfig.Option{netconfig.WithSSLVerify(svc.SSLVerify)}, o.netOpts...)
	base := httputil.NewTransport(svc.Name, svc.APIURL(), netOpts...)

	var rt http.RoundTripper
	switch svc.Auth {
	case config.AuthBasic:
		rt = &httputil.BasicAuthTransport{Username: svc.Username, Token: svc.APIToken, UnderlyingTransport: base}
	case config.AuthToken:
		rt = &httputil.BearerTransport{Token: svc.PersonalToken, UnderlyingTransport: base}
	case config.AuthOAuth2:
		store := o.store
		if store == nil {
			path, err := oauth.DefaultPath()
			if err != nil {
				return nil, err
			}
			store = oauth.NewStore(path)
		}

		refresh := httputil.NewClient(config.ServiceAtlassian, oauth.TokenURL, o.netOpts...)
		ts, err := oauth.TokenSource(ctx, oauth.NewConfig(svc.OAuth), store, refresh)
		if err != nil {
			return nil, err
		}
		rt = &oauth2.Transport{Source: ts, Base: base}
	default:
		return nil, errors.Errorf("unsupported auth type %q", svc.Auth)
	}

	return &http.Client{Transport: rt, Timeout: httputil.DefaultTimeout}, nil
}

// CheckWrite returns ErrReadOnly when the service is in read-only mode.
func (c *Client) CheckWrite() error {
	if c.Service.ReadOnly {
		return ErrReadOnly
	}
	return nil
}

// Do sends a request to path relative to the base URL. body, when not nil,
// is JSON encoded; out, when not nil, receives the decoded response.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "unable to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.WithField("method", method).WithField("path", u.Path)
	log.Debug("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, u.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read response body")
	}

	log.WithField("status", resp.StatusCode).Debug("received response")

	if resp.StatusCode > 399 {
		return newError(req, resp, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "unable to decode response")
	}

	return nil
}
