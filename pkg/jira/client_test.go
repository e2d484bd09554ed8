package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekristen/atlas/pkg/atlassian"
	"github.com/ekristen/atlas/pkg/config"
)

func setup(t *testing.T, mux *http.ServeMux, readOnly bool) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	svc := &config.Service{
		Name:      config.ServiceJira,
		URL:       srv.URL,
		Auth:      config.AuthToken,
		SSLVerify: true,
		ReadOnly:  readOnly,
	}

	api, err := atlassian.New(context.Background(), svc, atlassian.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return New(api)
}

func decode(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func Test_Jira_ValidateIssueKey(t *testing.T) {
	for _, key := range []string{"ABC-1", "A1_B-1234"} {
		assert.NoError(t, ValidateIssueKey(key), key)
	}
	for _, key := range []string{"", "abc-1", "ABC", "ABC-", "1ABC-1", "ABC-1/../x"} {
		assert.ErrorIs(t, ValidateIssueKey(key), atlassian.ErrInvalidInput, key)
	}
}

func Test_Jira_GetIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/ABC-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "summary,status", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"id":"10001","key":"ABC-1","fields":{"summary":"Fix it","status":{"name":"Open"},"labels":["a"]}}`))
	})

	issue, err := setup(t, mux, false).GetIssue(context.Background(), "ABC-1", []string{"summary", "status"})
	require.NoError(t, err)

	assert.Equal(t, "ABC-1", issue.Key)
	assert.Equal(t, "Fix it", issue.Fields.Summary)
	assert.Equal(t, "Open", issue.Fields.Status.Name)
	assert.Equal(t, []string{"a"}, issue.Fields.Labels)
}

func Test_Jira_GetIssue_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/ABC-2", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorMessages":["Issue does not exist or you do not have permission to see it."]}`))
	})

	_, err := setup(t, mux, false).GetIssue(context.Background(), "ABC-2", nil)
	assert.True(t, atlassian.IsNotFound(err))
}

func Test_Jira_Search(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "project = ABC", q.Get("jql"))
		assert.Equal(t, "100", q.Get("maxResults"))
		assert.Equal(t, "0", q.Get("startAt"))
		_, _ = w.Write([]byte(`{"startAt":0,"maxResults":100,"total":1,"issues":[{"key":"ABC-1"}]}`))
	})

	res, err := setup(t, mux, false).Search(context.Background(), "project = ABC", SearchOptions{MaxResults: 500, StartAt: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "ABC-1", res.Issues[0].Key)

	_, err = setup(t, http.NewServeMux(), false).Search(context.Background(), " ", SearchOptions{})
	assert.ErrorIs(t, err, atlassian.ErrInvalidInput)
}

func Test_Jira_CreateIssue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		fields := decode(t, r)["fields"].(map[string]interface{})
		assert.Equal(t, "ABC", fields["project"].(map[string]interface{})["key"])
		assert.Equal(t, "Task", fields["issuetype"].(map[string]interface{})["name"])
		assert.Equal(t, "New thing", fields["summary"])
		assert.Equal(t, "bob", fields["assignee"].(map[string]interface{})["name"])
		assert.Equal(t, "x", fields["customfield_10010"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"10002","key":"ABC-2"}`))
	})

	issue, err := setup(t, mux, false).CreateIssue(context.Background(), CreateIssueInput{
		ProjectKey: "abc",
		Summary:    "New thing",
		Assignee:   "bob",
		Fields:     map[string]interface{}{"customfield_10010": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC-2", issue.Key)
}

func Test_Jira_CreateIssue_Validation(t *testing.T) {
	c := setup(t, http.NewServeMux(), false)

	_, err := c.CreateIssue(context.Background(), CreateIssueInput{Summary: "x"})
	assert.ErrorIs(t, err, atlassian.ErrInvalidInput)

	_, err = c.CreateIssue(context.Background(), CreateIssueInput{ProjectKey: "ABC"})
	assert.ErrorIs(t, err, atlassian.ErrInvalidInput)
}

func Test_Jira_WritesBlockedInReadOnly(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(http.ResponseWriter, *http.Request) {
		called = true
	})

	c := setup(t, mux, true)
	ctx := context.Background()

	_, err := c.CreateIssue(ctx, CreateIssueInput{ProjectKey: "ABC", Summary: "x"})
	assert.ErrorIs(t, err, atlassian.ErrReadOnly)

	assert.ErrorIs(t, c.UpdateIssue(ctx, "ABC-1", map[string]interface{}{"summary": "x"}), atlassian.ErrReadOnly)

	_, err = c.AddComment(ctx, "ABC-1", "hello")
	assert.ErrorIs(t, err, atlassian.ErrReadOnly)

	assert.ErrorIs(t, c.TransitionIssue(ctx, "ABC-1", "Done"), atlassian.ErrReadOnly)

	assert.False(t, called)
}

func Test_Jira_AddComment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/ABC-1/comment", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hello", decode(t, r)["body"])
		_, _ = w.Write([]byte(`{"id":"1","body":"hello"}`))
	})

	comment, err := setup(t, mux, false).AddComment(context.Background(), "ABC-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1", comment.ID)
}

func Test_Jira_TransitionIssue_ByName(t *testing.T) {
	var posted string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/issue/ABC-1/transitions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"transitions":[{"id":"11","name":"In Progress"},{"id":"31","name":"Done"}]}`))
			return
		}
		posted = decode(t, r)["transition"].(map[string]interface{})["id"].(string)
		w.WriteHeader(http.StatusNoContent)
	})

	c := setup(t, mux, false)

	require.NoError(t, c.TransitionIssue(context.Background(), "ABC-1", "done"))
	assert.Equal(t, "31", posted)

	require.NoError(t, c.TransitionIssue(context.Background(), "ABC-1", "11"))
	assert.Equal(t, "11", posted)

	err := c.TransitionIssue(context.Background(), "ABC-1", "Reopen")
	assert.ErrorIs(t, err, atlassian.ErrInvalidInput)
}

func Test_Jira_ServerInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/serverInfo", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"version":"9.12.2","deploymentType":"Server","serverTitle":"Jira"}`))
	})

	info, err := setup(t, mux, false).ServerInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, info.IsCloud())

	v, err := info.SemVer()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), v.Major())
}

func Test_Jira_ListProjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/project", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1","key":"ABC","name":"Alpha"}]`))
	})

	projects, err := setup(t, mux, false).ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "ABC", projects[0].Key)
}
