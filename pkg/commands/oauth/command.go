package oauth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rancher/wrangler/v3/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ekristen/atlas/pkg/commands"
	"github.com/ekristen/atlas/pkg/common"
	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/httputil"
	"github.com/ekristen/atlas/pkg/oauth"
)

// prompter asks for values that were not passed as flags.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter() *prompter {
	return &prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	v, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

func (p *prompter) secret(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.line(label)
	}

	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Wrap(err, "unable to read secret")
	}
	return strings.TrimSpace(string(b)), nil
}

// exports renders the variables that make the other commands use the stored
// credential.
func exports(o config.OAuth, cred *oauth.Credential) string {
	var b strings.Builder
	fmt.Fprintf(&b, "export ATLASSIAN_OAUTH_CLIENT_ID=%s\n", o.ClientID)
	fmt.Fprintf(&b, "export ATLASSIAN_OAUTH_CLIENT_SECRET=<your client secret>\n")
	if o.RedirectURI != "" && o.RedirectURI != oauth.DefaultRedirectURI {
		fmt.Fprintf(&b, "export ATLASSIAN_OAUTH_REDIRECT_URI=%s\n", o.RedirectURI)
	}
	if o.Scope != "" {
		fmt.Fprintf(&b, "export ATLASSIAN_OAUTH_SCOPE=%q\n", o.Scope)
	}
	if cred.CloudID != "" {
		fmt.Fprintf(&b, "export ATLASSIAN_OAUTH_CLOUD_ID=%s\n", cred.CloudID)
	}
	if cred.SiteURL != "" {
		fmt.Fprintf(&b, "export JIRA_URL=%s\n", cred.SiteURL)
		fmt.Fprintf(&b, "export CONFLUENCE_URL=%s/wiki\n", strings.TrimSuffix(cred.SiteURL, "/"))
	}
	return b.String()
}

// loadConfig reads the client settings from the flags, prompting for the id
// and secret when they are missing.
func loadConfig(cmd *cli.Command, p *prompter) (config.OAuth, error) {
	o := config.OAuth{
		ClientID:     cmd.String("client-id"),
		ClientSecret: cmd.String("client-secret"),
		RedirectURI:  cmd.String("redirect-uri"),
		Scope:        cmd.String("scope"),
	}

	var err error
	if o.ClientID == "" {
		if o.ClientID, err = p.line("OAuth client id"); err != nil {
			return o, err
		}
	}
	if o.ClientSecret == "" {
		if o.ClientSecret, err = p.secret("OAuth client secret"); err != nil {
			return o, err
		}
	}
	if o.ClientID == "" || o.ClientSecret == "" {
		return o, fmt.Errorf("client id and client secret are required")
	}

	return o, nil
}

// withSignals returns a context that is also cancelled on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	sigCtx := signals.SetupSignalContext()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-sigCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func Setup(ctx context.Context, cmd *cli.Command) error {
	log := logrus.WithField("command", "oauth-setup")

	o, err := loadConfig(cmd, newPrompter())
	if err != nil {
		return err
	}

	path := cmd.String("store-path")
	if path == "" {
		if path, err = oauth.DefaultPath(); err != nil {
			return err
		}
	}

	ctx, cancel := withSignals(ctx)
	defer cancel()

	flow := oauth.NewFlow(
		oauth.NewConfig(o),
		oauth.NewStore(path),
		httputil.NewClient(config.ServiceAtlassian, oauth.TokenURL),
	)
	flow.Out = os.Stderr
	if cmd.Bool("no-browser") {
		flow.OpenBrowser = nil
	}

	cred, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	log.WithField("path", path).WithField("cloud_id", cred.CloudID).Info("oauth credential saved")
	if cred.CloudID == "" {
		log.Warn("the token grants access to no site, set ATLASSIAN_OAUTH_CLOUD_ID once a site is authorized")
	}

	_, err = fmt.Fprint(commands.Writer(cmd), exports(o, cred))
	return err
}

func setupFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "client-id",
			Usage:   "OAuth 2.0 client id of the app",
			Sources: cli.EnvVars("ATLASSIAN_OAUTH_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:    "client-secret",
			Usage:   "OAuth 2.0 client secret of the app",
			Sources: cli.EnvVars("ATLASSIAN_OAUTH_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:    "redirect-uri",
			Usage:   "callback URL registered with the app",
			Sources: cli.EnvVars("ATLASSIAN_OAUTH_REDIRECT_URI"),
			Value:   oauth.DefaultRedirectURI,
		},
		&cli.StringFlag{
			Name:    "scope",
			Usage:   "space separated scopes to request",
			Sources: cli.EnvVars("ATLASSIAN_OAUTH_SCOPE"),
		},
		&cli.StringFlag{
			Name:  "store-path",
			Usage: "file the credential is written to (default ~/.config/atlas/oauth.yaml)",
		},
		&cli.BoolFlag{
			Name:  "no-browser",
			Usage: "only print the authorization url",
		},
	}
}

func init() {
	cmd := &cli.Command{
		Name:   "oauth",
		Usage:  "manage OAuth 2.0 credentials",
		Flags:  commands.GlobalFlags(),
		Before: commands.GlobalBefore,
		Commands: []*cli.Command{
			{
				Name:   "setup",
				Usage:  "authorize the app in a browser and store the token",
				Flags:  setupFlags(),
				Action: Setup,
			},
		},
	}

	common.RegisterCommand(cmd)
}
