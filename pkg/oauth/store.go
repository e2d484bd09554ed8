package oauth

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

var ErrNoCredential = errors.New("no stored oauth credential, run `atlas oauth setup` first")

// Credential is what the flow persists for one OAuth client.
type Credential struct {
	ClientID     string    `yaml:"client_id"`
	CloudID      string    `yaml:"cloud_id,omitempty"`
	SiteURL      string    `yaml:"site_url,omitempty"`
	AccessToken  string    `yaml:"access_token"`
	RefreshToken string    `yaml:"refresh_token,omitempty"`
	TokenType    string    `yaml:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry,omitempty"`
}

// Token converts the credential to an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

func (c *Credential) setToken(t *oauth2.Token) {
	c.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
	c.TokenType = t.TokenType
	c.Expiry = t.Expiry
}

type file struct {
	Credentials map[string]Credential `yaml:"credentials"`
}

// Store persists credentials as yaml, keyed by client id.
type Store struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns ~/.config/atlas/oauth.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "atlas", "oauth.yaml"), nil
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the credential stored for clientID, or ErrNoCredential.
func (s *Store) Load(clientID string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}

	c, ok := f.Credentials[clientID]
	if !ok {
		return nil, ErrNoCredential
	}

	return &c, nil
}

// Save writes c, replacing any credential for the same client id.
func (s *Store) Save(c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}

	f.Credentials[c.ClientID] = *c

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrap(err, "unable to create credential directory")
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}

func (s *Store) read() (*file, error) {
	f := &file{Credentials: make(map[string]Credential)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, errors.Wrap(err, "unable to read credential store")
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, errors.Wrap(err, "unable to parse credential store")
	}

	if f.Credentials == nil {
		f.Credentials = make(map[string]Credential)
	}

	return f, nil
}

// persistingSource writes refreshed tokens back to the store.
type persistingSource struct {
	mu    sync.Mutex
	store *Store
	cred  *Credential
	src   oauth2.TokenSource
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	t, err := p.src.Token()
	if err != nil {
		return nil, errors.Wrap(err, "unable to refresh oauth token")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t.AccessToken != p.cred.AccessToken {
		p.cred.setToken(t)
		if err := p.store.Save(p.cred); err != nil {
			logrus.WithError(err).WithField("component", "oauth").Warn("unable to persist refreshed token")
		}
	}

	return t, nil
}
