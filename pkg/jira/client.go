package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ekristen/atlas/pkg/atlassian"
)

const (
	apiPrefix = "/rest/api/2"

	DefaultMaxResults = 50
	MaxMaxResults     = 100
	DefaultIssueType  = "Task"
)

var issueKeyRegexp = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[0-9]+$`)

// ValidateIssueKey checks key has the PROJECT-123 form.
func ValidateIssueKey(key string) error {
	if !issueKeyRegexp.MatchString(key) {
		return atlassian.Invalid("invalid issue key %q", key)
	}
	return nil
}

type Client struct {
	api *atlassian.Client
	log *logrus.Entry
}

func New(api *atlassian.Client) *Client {
	return &Client{
		api: api,
		log: logrus.WithField("component", "jira"),
	}
}

// GetIssue fetches an issue. fields limits the returned fields; nil means
// all navigable fields.
func (c *Client) GetIssue(ctx context.Context, key string, fields []string) (*Issue, error) {
	if err := ValidateIssueKey(key); err != nil {
		return nil, err
	}

	query := url.Values{}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}

	var issue Issue
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/issue/"+key, query, nil, &issue); err != nil {
		return nil, errors.Wrapf(err, "unable to get issue %s", key)
	}

	return &issue, nil
}

type SearchOptions struct {
	Fields     []string
	StartAt    int
	MaxResults int
}

// Search runs a JQL query. MaxResults is clamped to 1..100.
func (c *Client) Search(ctx context.Context, jql string, opts SearchOptions) (*SearchResult, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, atlassian.Invalid("jql is required")
	}

	max := opts.MaxResults
	switch {
	case max <= 0:
		max = DefaultMaxResults
	case max > MaxMaxResults:
		max = MaxMaxResults
	}

	start := opts.StartAt
	if start < 0 {
		start = 0
	}

	query := url.Values{
		"jql":        {jql},
		"startAt":    {strconv.Itoa(start)},
		"maxResults": {strconv.Itoa(max)},
	}
	if len(opts.Fields) > 0 {
		query.Set("fields", strings.Join(opts.Fields, ","))
	}

	var res SearchResult
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/search", query, nil, &res); err != nil {
		return nil, errors.Wrap(err, "unable to search issues")
	}

	c.log.WithField("total", res.Total).WithField("returned", len(res.Issues)).Debug("search complete")

	return &res, nil
}

type CreateIssueInput struct {
	ProjectKey  string
	Summary     string
	IssueType   string
	Description string
	Priority    string
	Assignee    string
	Labels      []string

	// Fields are merged into the request as is, e.g. custom fields.
	Fields map[string]interface{}
}

func (in *CreateIssueInput) validate() error {
	if strings.TrimSpace(in.ProjectKey) == "" {
		return atlassian.Invalid("project key is required")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return atlassian.Invalid("summary is required")
	}
	return nil
}

// CreateIssue creates an issue and returns its id and key.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error) {
	if err := c.api.CheckWrite(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	issueType := in.IssueType
	if issueType == "" {
		issueType = DefaultIssueType
	}

	fields := map[string]interface{}{
		"project":   map[string]string{"key": strings.ToUpper(in.ProjectKey)},
		"summary":   in.Summary,
		"issuetype": map[string]string{"name": issueType},
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.Priority != "" {
		fields["priority"] = map[string]string{"name": in.Priority}
	}
	if in.Assignee != "" {
		fields["assignee"] = c.userRef(in.Assignee)
	}
	if len(in.Labels) > 0 {
		fields["labels"] = in.Labels
	}
	for k, v := range in.Fields {
		fields[k] = v
	}

	var created Issue
	if err := c.api.Do(ctx, http.MethodPost, apiPrefix+"/issue", nil, map[string]interface{}{"fields": fields}, &created); err != nil {
		return nil, errors.Wrap(err, "unable to create issue")
	}

	c.log.WithField("key", created.Key).Info("issue created")

	return &created, nil
}

// UpdateIssue sets fields on an existing issue.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]interface{}) error {
	if err := c.api.CheckWrite(); err != nil {
		return err
	}
	if err := ValidateIssueKey(key); err != nil {
		return err
	}
	if len(fields) == 0 {
		return atlassian.Invalid("no fields to update")
	}

	if err := c.api.Do(ctx, http.MethodPut, apiPrefix+"/issue/"+key, nil, map[string]interface{}{"fields": fields}, nil); err != nil {
		return errors.Wrapf(err, "unable to update issue %s", key)
	}

	return nil
}

func (c *Client) AddComment(ctx context.Context, key, body string) (*Comment, error) {
	if err := c.api.CheckWrite(); err != nil {
		return nil, err
	}
	if err := ValidateIssueKey(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, atlassian.Invalid("comment body is required")
	}

	var comment Comment
	if err := c.api.Do(ctx, http.MethodPost, apiPrefix+"/issue/"+key+"/comment", nil, map[string]string{"body": body}, &comment); err != nil {
		return nil, errors.Wrapf(err, "unable to comment on issue %s", key)
	}

	return &comment, nil
}

func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	if err := ValidateIssueKey(key); err != nil {
		return nil, err
	}

	var res struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/issue/"+key+"/transitions", nil, nil, &res); err != nil {
		return nil, errors.Wrapf(err, "unable to get transitions for %s", key)
	}

	return res.Transitions, nil
}

// TransitionIssue moves an issue through a workflow transition given by id
// or, case-insensitively, by name.
func (c *Client) TransitionIssue(ctx context.Context, key, transition string) error {
	if err := c.api.CheckWrite(); err != nil {
		return err
	}
	if err := ValidateIssueKey(key); err != nil {
		return err
	}

	transition = strings.TrimSpace(transition)
	if transition == "" {
		return atlassian.Invalid("transition is required")
	}

	id := transition
	if _, err := strconv.Atoi(transition); err != nil {
		available, err := c.GetTransitions(ctx, key)
		if err != nil {
			return err
		}

		id = ""
		for _, t := range available {
			if strings.EqualFold(t.Name, transition) {
				id = t.ID
				break
			}
		}
		if id == "" {
			return atlassian.Invalid("transition %q is not available for %s", transition, key)
		}
	}

	body := map[string]interface{}{"transition": map[string]string{"id": id}}
	if err := c.api.Do(ctx, http.MethodPost, apiPrefix+"/issue/"+key+"/transitions", nil, body, nil); err != nil {
		return errors.Wrapf(err, "unable to transition issue %s", key)
	}

	c.log.WithField("key", key).WithField("transition", id).Info("issue transitioned")

	return nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/project", nil, nil, &projects); err != nil {
		return nil, errors.Wrap(err, "unable to list projects")
	}
	return projects, nil
}

func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/serverInfo", nil, nil, &info); err != nil {
		return nil, errors.Wrap(err, "unable to get server info")
	}
	return &info, nil
}

// userRef identifies a user the way the deployment expects: account id on
// cloud, username on server and data center.
func (c *Client) userRef(user string) map[string]string {
	if c.api.Service.IsCloud() {
		return map[string]string{"accountId": user}
	}
	return map[string]string{"name": user}
}

// BrowseURL is the web link to an issue.
func (c *Client) BrowseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", strings.TrimRight(c.api.Service.URL, "/"), key)
}
