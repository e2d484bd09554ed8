package atlassian

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekristen/atlas/pkg/config"
	"github.com/ekristen/atlas/pkg/netconfig"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*config.Service)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc := &config.Service{
		Name:      config.ServiceJira,
		URL:       srv.URL + "/base",
		Auth:      config.AuthBasic,
		Username:  "me",
		APIToken:  "secret",
		SSLVerify: true,
	}
	if mutate != nil {
		mutate(svc)
	}

	logger, _ := logtest.NewNullLogger()
	c, err := New(context.Background(), svc, WithNetworkOptions(
		netconfig.WithLookup(func(string) (string, bool) { return "", false }),
		netconfig.WithLogger(logger),
	))
	require.NoError(t, err)

	return c
}

func Test_Client_Do(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "me", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/base/rest/api/2/issue", r.URL.Path)
		assert.Equal(t, "summary", r.URL.Query().Get("fields"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bar", in["foo"])

		_, _ = w.Write([]byte(`{"key":"ABC-1"}`))
	}, nil)

	var out struct {
		Key string `json:"key"`
	}
	err := c.Do(context.Background(), http.MethodPost, "/rest/api/2/issue",
		url.Values{"fields": {"summary"}}, map[string]string{"foo": "bar"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "ABC-1", out.Key)
}

func Test_Client_Do_BearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer pat", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}, func(s *config.Service) {
		s.Auth = config.AuthToken
		s.PersonalToken = "pat"
	})

	require.NoError(t, c.Do(context.Background(), http.MethodDelete, "x", nil, nil, nil))
}

func Test_Client_Do_JiraError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages":["bad jql"],"errors":{"summary":"required","project":"missing"}}`))
	}, nil)

	err := c.Do(context.Background(), http.MethodGet, "/rest/api/2/search", url.Values{"jql": {"x"}}, nil, nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, []string{"bad jql", "project: missing", "summary: required"}, apiErr.Messages)
	assert.NotContains(t, apiErr.URL, "jql")
	assert.False(t, IsNotFound(err))
}

func Test_Client_Do_ConfluenceNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"statusCode":404,"message":"No content found with id: 1"}`))
	}, nil)

	err := c.Do(context.Background(), http.MethodGet, "/rest/api/content/1", nil, nil, nil)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "No content found with id: 1")
}

func Test_Client_CheckWrite(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {}, func(s *config.Service) {
		s.ReadOnly = true
	})
	assert.ErrorIs(t, c.CheckWrite(), ErrReadOnly)

	c = newTestClient(t, func(http.ResponseWriter, *http.Request) {}, nil)
	assert.NoError(t, c.CheckWrite())
}

func Test_ErrorMessages_PlainText(t *testing.T) {
	assert.Equal(t, []string{"Service Unavailable"}, errorMessages([]byte("Service Unavailable\n")))
	assert.Nil(t, errorMessages(nil))
}
