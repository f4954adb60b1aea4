package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// extractResponse mirrors the jsonpick extract API response.
type extractResponse struct {
	Success   bool   `json:"success"`
	SourceURL string `json:"source_url"`
	Options   []struct {
		Title        string          `json:"title"`
		JSON         json.RawMessage `json:"json"`
		Unrecognized []string        `json:"unrecognized"`
	} `json:"options"`
	Error *apiError `json:"error"`
}

// documentResponse mirrors the jsonpick documents API response.
type documentResponse struct {
	Success   bool      `json:"success"`
	Title     string    `json:"title"`
	Location  string    `json:"location"`
	ViewerURL string    `json:"viewer_url"`
	Error     *apiError `json:"error"`
}

func main() {
	apiURL := os.Getenv("JSONPICK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("JSONPICK_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "JSONPICK_API_KEY is required")
		os.Exit(1)
	}

	client := newAPIClient(apiURL, apiKey)

	s := server.NewMCPServer(
		"jsonpick",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_json",
		mcp.WithDescription("Find the JSON documents on a web page: a raw JSON response, a JSON file on GitHub, a Firestore console document, or the page's Open Graph tags."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page"),
		),
		mcp.WithString("wait_for",
			mcp.Description("CSS selector to wait for before reading the page (e.g. '.f7e-field-list' for the Firestore console)"),
		),
		mcp.WithString("cdp_url",
			mcp.Description("Chrome DevTools endpoint of a browser that is already logged in"),
		),
	)
	s.AddTool(extractTool, handleExtract(client))

	openTool := mcp.NewTool("open_in_viewer",
		mcp.WithDescription("Extract JSON from a web page and upload one document to the JSON viewer. Returns the viewer URL."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page"),
		),
		mcp.WithNumber("option",
			mcp.Description("Index of the extracted document to open (default: 0)"),
		),
		mcp.WithString("wait_for",
			mcp.Description("CSS selector to wait for before reading the page"),
		),
		mcp.WithString("cdp_url",
			mcp.Description("Chrome DevTools endpoint of a browser that is already logged in"),
		),
	)
	s.AddTool(openTool, handleOpen(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newAPIClient(apiURL, apiKey string) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")).
		SetTimeout(150*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", apiKey).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
}

// apiPost sends payload to the jsonpick API and decodes the JSON answer into
// out whatever the status code; error statuses carry an error body too.
func apiPost(ctx context.Context, client *resty.Client, path string, payload, out any) error {
	resp, err := client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(path)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode(), err)
	}
	return nil
}

// pageArgs collects the page-source arguments shared by both tools.
func pageArgs(request mcp.CallToolRequest) (map[string]any, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return nil, fmt.Errorf("url is required")
	}
	payload := map[string]any{"url": url}
	if waitFor := request.GetString("wait_for", ""); waitFor != "" {
		payload["wait_for"] = waitFor
	}
	if cdpURL := request.GetString("cdp_url", ""); cdpURL != "" {
		payload["cdp_url"] = cdpURL
	}
	return payload, nil
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleExtract(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := pageArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp extractResponse
		if err := apiPost(ctx, client, "/api/v1/extract", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(errorText("extraction failed", resp.Error)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultText("No JSON found on " + resp.SourceURL), nil
		}
		return mcp.NewToolResultText(formatOptions(resp)), nil
	}
}

// formatOptions renders each document under a numbered header, pretty
// printed when possible.
func formatOptions(resp extractResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Source: %s\nFound %d document(s)\n\n", resp.SourceURL, len(resp.Options))
	for i, opt := range resp.Options {
		fmt.Fprintf(&sb, "--- [%d] %s ---\n", i, opt.Title)
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, opt.JSON, "", "  "); err != nil {
			sb.Write(opt.JSON)
		} else {
			sb.Write(pretty.Bytes())
		}
		if len(opt.Unrecognized) > 0 {
			fmt.Fprintf(&sb, "\nUndecoded fields: %s", strings.Join(opt.Unrecognized, ", "))
		}
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func handleOpen(client *resty.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := pageArgs(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if option := request.GetInt("option", 0); option > 0 {
			payload["option"] = option
		}

		var resp documentResponse
		if err := apiPost(ctx, client, "/api/v1/documents", payload, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("document creation failed", resp.Error)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Title: %s\nDocument: %s\nOpen: %s", resp.Title, resp.Location, resp.ViewerURL)), nil
	}
}
