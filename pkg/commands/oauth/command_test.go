package oauth

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/oauth"
)

func Test_Exports(t *testing.T) {
	out := exports(config.OAuth{ClientID: "abc"}, &oauth.Credential{
		CloudID: "cloud-1",
		SiteURL: "https://example.atlassian.net",
	})

	assert.Contains(t, out, "export ATLASSIAN_OAUTH_CLIENT_ID=abc\n")
	assert.Contains(t, out, "export ATLASSIAN_OAUTH_CLOUD_ID=cloud-1\n")
	assert.Contains(t, out, "export JIRA_URL=https://example.atlassian.net\n")
	assert.Contains(t, out, "export CONFLUENCE_URL=https://example.atlassian.net/wiki\n")
	assert.NotContains(t, out, "REDIRECT_URI")
}

func Test_Exports_CustomRedirect(t *testing.T) {
	out := exports(config.OAuth{ClientID: "abc", RedirectURI: "http://localhost:9000/cb"}, &oauth.Credential{CloudID: "c"})

	assert.Contains(t, out, "export ATLASSIAN_OAUTH_REDIRECT_URI=http://localhost:9000/cb\n")
	assert.NotContains(t, out, "JIRA_URL")
}

func Test_Exports_NoSite(t *testing.T) {
	out := exports(config.OAuth{ClientID: "abc"}, &oauth.Credential{})

	assert.Contains(t, out, "export ATLASSIAN_OAUTH_CLIENT_ID=abc\n")
	assert.NotContains(t, out, "ATLASSIAN_OAUTH_CLOUD_ID")
}

func runLoadConfig(t *testing.T, input string, args ...string) (config.OAuth, error) {
	t.Helper()

	for _, key := range []string{
		"ATLASSIAN_OAUTH_CLIENT_ID", "ATLASSIAN_OAUTH_CLIENT_SECRET",
		"ATLASSIAN_OAUTH_REDIRECT_URI", "ATLASSIAN_OAUTH_SCOPE",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	var (
		o   config.OAuth
		err error
	)
	cmd := &cli.Command{
		Name:  "setup",
		Flags: setupFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			p := &prompter{in: bufio.NewReader(strings.NewReader(input)), out: &bytes.Buffer{}, fd: -1}
			o, err = loadConfig(cmd, p)
			return nil
		},
	}

	require.NoError(t, cmd.Run(context.Background(), append([]string{"setup"}, args...)))
	return o, err
}

func Test_LoadConfig_Flags(t *testing.T) {
	o, err := runLoadConfig(t, "", "--client-id", "id", "--client-secret", "secret", "--scope", "read:jira-work")
	require.NoError(t, err)

	assert.Equal(t, "id", o.ClientID)
	assert.Equal(t, "secret", o.ClientSecret)
	assert.Equal(t, oauth.DefaultRedirectURI, o.RedirectURI)
	assert.Equal(t, "read:jira-work", o.Scope)
}

func Test_LoadConfig_Prompts(t *testing.T) {
	o, err := runLoadConfig(t, "prompted-id\nprompted-secret\n")
	require.NoError(t, err)

	assert.Equal(t, "prompted-id", o.ClientID)
	assert.Equal(t, "prompted-secret", o.ClientSecret)
}

func Test_LoadConfig_MissingSecret(t *testing.T) {
	_, err := runLoadConfig(t, "", "--client-id", "id")
	assert.EqualError(t, err, "client id and client secret are required")
}

func Test_WithSignals_FollowsParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())

	ctx, cancel := withSignals(parent)
	defer cancel()

	cancelParent()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled with its parent")
	}
}

func Test_Prompter_Line(t *testing.T) {
	var out bytes.Buffer
	p := &prompter{in: bufio.NewReader(strings.NewReader("  my-client \n")), out: &out, fd: -1}

	v, err := p.line("OAuth client id")
	require.NoError(t, err)
	assert.Equal(t, "my-client", v)
	assert.Equal(t, "OAuth client id: ", out.String())
}

func Test_Prompter_SecretWithoutTerminal(t *testing.T) {
	var out bytes.Buffer
	p := &prompter{in: bufio.NewReader(strings.NewReader("s3cret")), out: &out, fd: -1}

	v, err := p.secret("OAuth client secret")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)
}
