// Package docservice creates documents on the JSON visualization service
// and builds the viewer links for them.
package docservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/use-agent/jsonpick/settings"
)

const createPath = "/api/create.json?utm_source=chrome-extension"

// Document is the service's answer to a create call.
type Document struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Location string `json:"location"`
}

type createRequest struct {
	Title   string `json:"title"`
	Content any    `json:"content"`
}

// Client talks to the document-creation endpoint. Calls are one-shot: a
// failed create is reported, never retried.
type Client struct {
	http *resty.Client
}

// New creates a Client whose requests time out after timeout.
func New(timeout time.Duration) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "jsonpick/1.0")
	c.JSONMarshal = json.Marshal
	c.JSONUnmarshal = json.Unmarshal
	return &Client{http: c}
}

// Create stores content under title on the service at serverURL (the
// public service when empty) and returns the new document.
func (c *Client) Create(ctx context.Context, serverURL, title string, content any) (*Document, error) {
	if serverURL == "" {
		serverURL = settings.DefaultServerURL
	}
	endpoint := strings.TrimSuffix(serverURL, "/") + createPath

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createRequest{Title: title, Content: content}).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("docservice: create: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("docservice: create: server returned status %d", resp.StatusCode())
	}

	var doc Document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("docservice: decode response: %w", err)
	}
	if doc.Location == "" {
		return nil, fmt.Errorf("docservice: response has no location")
	}

	slog.Debug("docservice: document created",
		"server", serverURL,
		"title", title,
		"location", doc.Location,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &doc, nil
}

// ViewerURL decorates a document location for opening in a new tab: the
// theme query parameter (dark unless set) and, unless the default view is
// the column view, the view name as an extra path segment.
func ViewerURL(location string, s settings.Settings) (string, error) {
	u, err := themed(location, s.Theme)
	if err != nil {
		return "", err
	}
	if s.DefaultView != "" && s.DefaultView != settings.DefaultView {
		u.Path = u.Path + "/" + s.DefaultView
		u.RawPath = ""
	}
	return u.String(), nil
}

// ThemedURL only adds the theme parameter. Auto mode embeds the viewer in
// place of the page and keeps the service's default view.
func ThemedURL(location, theme string) (string, error) {
	u, err := themed(location, theme)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func themed(location, theme string) (*url.URL, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("docservice: invalid location %q: %w", location, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("docservice: location %q is not absolute", location)
	}
	if theme == "" {
		theme = settings.DefaultTheme
	}
	param := "theme=" + url.QueryEscape(theme)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u, nil
}
