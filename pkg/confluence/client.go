package confluence

import (
	"context"
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
	apiPrefix = "/rest/api"

	// pageExpand is what GetPage asks for so a page can be shown and
	// updated without a second request.
	pageExpand = "body.storage,version,space"

	DefaultLimit = 25
	MaxLimit     = 100
)

var pageIDRegexp = regexp.MustCompile(`^[0-9]+$`)

// ValidatePageID checks id is numeric.
func ValidatePageID(id string) error {
	if !pageIDRegexp.MatchString(id) {
		return atlassian.Invalid("invalid page id %q", id)
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
		log: logrus.WithField("component", "confluence"),
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func (c *Client) GetPage(ctx context.Context, id string) (*Page, error) {
	if err := ValidatePageID(id); err != nil {
		return nil, err
	}

	var page Page
	query := url.Values{"expand": {pageExpand}}
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/content/"+id, query, nil, &page); err != nil {
		return nil, errors.Wrapf(err, "unable to get page %s", id)
	}

	return &page, nil
}

// Search runs a CQL query.
func (c *Client) Search(ctx context.Context, cql string, limit int) (*SearchResult, error) {
	if strings.TrimSpace(cql) == "" {
		return nil, atlassian.Invalid("cql is required")
	}

	query := url.Values{
		"cql":   {cql},
		"limit": {strconv.Itoa(clampLimit(limit))},
	}

	var res SearchResult
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/content/search", query, nil, &res); err != nil {
		return nil, errors.Wrap(err, "unable to search content")
	}

	c.log.WithField("size", res.Size).Debug("search complete")

	return &res, nil
}

func (c *Client) ListSpaces(ctx context.Context, limit int) ([]Space, error) {
	var res spaceList
	query := url.Values{"limit": {strconv.Itoa(clampLimit(limit))}}
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/space", query, nil, &res); err != nil {
		return nil, errors.Wrap(err, "unable to list spaces")
	}
	return res.Results, nil
}

// GetChildren lists the child pages of a page.
func (c *Client) GetChildren(ctx context.Context, id string, limit int) ([]Page, error) {
	if err := ValidatePageID(id); err != nil {
		return nil, err
	}

	var res SearchResult
	query := url.Values{"limit": {strconv.Itoa(clampLimit(limit))}}
	if err := c.api.Do(ctx, http.MethodGet, apiPrefix+"/content/"+id+"/child/page", query, nil, &res); err != nil {
		return nil, errors.Wrapf(err, "unable to list children of page %s", id)
	}

	return res.Results, nil
}

type CreatePageInput struct {
	SpaceKey string
	Title    string
	// Body is in storage (XHTML) format.
	Body     string
	ParentID string
}

func (c *Client) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	if err := c.api.CheckWrite(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SpaceKey) == "" {
		return nil, atlassian.Invalid("space key is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, atlassian.Invalid("title is required")
	}
	if in.ParentID != "" {
		if err := ValidatePageID(in.ParentID); err != nil {
			return nil, err
		}
	}

	body := map[string]interface{}{
		"type":  "page",
		"title": in.Title,
		"space": map[string]string{"key": in.SpaceKey},
		"body":  storageBody(in.Body),
	}
	if in.ParentID != "" {
		body["ancestors"] = []map[string]string{{"id": in.ParentID}}
	}

	var page Page
	if err := c.api.Do(ctx, http.MethodPost, apiPrefix+"/content", nil, body, &page); err != nil {
		return nil, errors.Wrap(err, "unable to create page")
	}

	c.log.WithField("id", page.ID).WithField("space", in.SpaceKey).Info("page created")

	return &page, nil
}

type UpdatePageInput struct {
	ID    string
	Title string
	Body  string
	// Message is the version comment.
	Message string
}

// UpdatePage replaces the title and body of a page. The current version is
// fetched first and the new version number is one higher. An empty Title or
// Body keeps the current one.
func (c *Client) UpdatePage(ctx context.Context, in UpdatePageInput) (*Page, error) {
	if err := c.api.CheckWrite(); err != nil {
		return nil, err
	}

	if in.Title == "" && in.Body == "" {
		return nil, atlassian.Invalid("page %s: a new title or body is required", in.ID)
	}

	current, err := c.GetPage(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	title := in.Title
	if title == "" {
		title = current.Title
	}

	content := in.Body
	if content == "" {
		content = current.Content()
	}

	next := 1
	if current.Version != nil {
		next = current.Version.Number + 1
	}

	body := map[string]interface{}{
		"id":      in.ID,
		"type":    "page",
		"title":   title,
		"body":    storageBody(content),
		"version": Version{Number: next, Message: in.Message},
	}

	var page Page
	if err := c.api.Do(ctx, http.MethodPut, apiPrefix+"/content/"+in.ID, nil, body, &page); err != nil {
		return nil, errors.Wrapf(err, "unable to update page %s", in.ID)
	}

	c.log.WithField("id", in.ID).WithField("version", next).Info("page updated")

	return &page, nil
}

// AddComment adds a footer comment to a page.
func (c *Client) AddComment(ctx context.Context, pageID, comment string) (*Page, error) {
	if err := c.api.CheckWrite(); err != nil {
		return nil, err
	}
	if err := ValidatePageID(pageID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(comment) == "" {
		return nil, atlassian.Invalid("comment body is required")
	}

	body := map[string]interface{}{
		"type":      "comment",
		"container": map[string]string{"id": pageID, "type": "page"},
		"body":      storageBody(comment),
	}

	var created Page
	if err := c.api.Do(ctx, http.MethodPost, apiPrefix+"/content", nil, body, &created); err != nil {
		return nil, errors.Wrapf(err, "unable to comment on page %s", pageID)
	}

	return &created, nil
}

func storageBody(value string) Body {
	return Body{Storage: &Storage{Value: value, Representation: "storage"}}
}
