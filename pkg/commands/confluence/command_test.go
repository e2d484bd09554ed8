package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func runReadBody(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var body string
	cmd := &cli.Command{
		Name:  "test",
		Flags: bodyFlags(),
		Action: func(_ context.Context, cmd *cli.Command) (err error) {
			body, err = readBody(cmd)
			return err
		},
	}

	err := cmd.Run(context.Background(), append([]string{"test"}, args...))
	return body, err
}

func Test_ReadBody_Flag(t *testing.T) {
	body, err := runReadBody(t, "--body", "<p>inline</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>inline</p>", body)
}

func Test_ReadBody_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>from file</p>"), 0600))

	body, err := runReadBody(t, "--body", "ignored", "--body-file", path)
	require.NoError(t, err)
	assert.Equal(t, "<p>from file</p>", body)

	_, err = runReadBody(t, "--body-file", filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}

func Test_ReadBody_Stdin(t *testing.T) {
	orig := stdin
	defer func() { stdin = orig }()
	stdin = strings.NewReader("<p>piped</p>")

	body, err := runReadBody(t, "--body-file", "-")
	require.NoError(t, err)
	assert.Equal(t, "<p>piped</p>", body)
}

func setupEnv(t *testing.T, url string) {
	t.Helper()

	t.Setenv("CONFLUENCE_URL", url)
	t.Setenv("CONFLUENCE_USERNAME", "me")
	t.Setenv("CONFLUENCE_API_TOKEN", "secret")
	t.Setenv("CONFLUENCE_PERSONAL_TOKEN", "")
	t.Setenv("CONFLUENCE_NO_PROXY", "*")
	t.Setenv("ATLASSIAN_OAUTH_CLIENT_ID", "")
	t.Setenv("READ_ONLY_MODE", "")
	t.Setenv("CONFLUENCE_READ_ONLY", "")
	t.Setenv("ATLAS_FORMAT", "json")
}

func Test_Command_UpdateTitleKeepsBody(t *testing.T) {
	var sent struct {
		Title string `json:"title"`
		Body  struct {
			Storage struct {
				Value string `json:"value"`
			} `json:"storage"`
		} `json:"body"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/rest/api/content/123", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			_, _ = w.Write([]byte(`{"id":"123","type":"page","title":"Renamed","version":{"number":3}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"123","type":"page","title":"Runbook","version":{"number":2},
"body":{"storage":{"value":"<p>keep me</p>","representation":"storage"}}}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	setupEnv(t, srv.URL+"/wiki")

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.Writer = &out

	err := cmd.Run(context.Background(), []string{"confluence", "page", "update", "--title", "Renamed", "123"})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", sent.Title)
	assert.Equal(t, "<p>keep me</p>", sent.Body.Storage.Value)
	assert.Contains(t, out.String(), `"title": "Renamed"`)
}

func Test_Command_ArgumentCount(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1/wiki")

	cmd := NewCommand()
	cmd.Writer = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"confluence", "page", "get"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 argument(s): PAGE-ID")

	cmd = NewCommand()
	cmd.Writer = &bytes.Buffer{}

	err = cmd.Run(context.Background(), []string{"confluence", "comment", "123"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 argument(s): PAGE-ID BODY")
}
