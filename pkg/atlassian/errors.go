package atlassian

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Error is a non-2xx response.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Messages   []string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

func newError(req *http.Request, resp *http.Response, body []byte) *Error {
	u := *req.URL
	u.RawQuery = ""

	return &Error{
		Method:     req.Method,
		URL:        u.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Messages:   errorMessages(body),
	}
}

// errorMessages collects the messages Jira (errorMessages, errors.<field>)
// and Confluence (message) put in error bodies.
func errorMessages(body []byte) []string {
	if !gjson.ValidBytes(body) {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 256 {
			return []string{s}
		}
		return nil
	}

	var msgs []string

	gjson.GetBytes(body, "errorMessages").ForEach(func(_, v gjson.Result) bool {
		msgs = append(msgs, v.String())
		return true
	})

	var fields []string
	gjson.GetBytes(body, "errors").ForEach(func(k, v gjson.Result) bool {
		fields = append(fields, fmt.Sprintf("%s: %s", k.String(), v.String()))
		return true
	})
	sort.Strings(fields)
	msgs = append(msgs, fields...)

	if m := gjson.GetBytes(body, "message"); m.Exists() && m.String() != "" {
		msgs = append(msgs, m.String())
	}

	return msgs
}
