// Package notion implements the Notion REST client used by the sync
// adapters: page create/update/archive and block children list/append.
// Every request passes through the shared rate limiter.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/a13xperi/kaa-notion-backend-sub005/errors"
	"github.com/a13xperi/kaa-notion-backend-sub005/internal/httpclient"
)

const (
	defaultBaseURL = "https://api.notion.com"
	apiVersion     = "2022-06-28"
	requestTimeout = 30 * time.Second
)

// ClientConfig configures a Notion client.
type ClientConfig struct {
	Token             string
	BaseURL           string  // empty = production API; tests point this at httptest servers
	RequestsPerSecond float64 // 0 = Notion default of 3
	HTTPClient        *http.Client
}

// Client talks to the Notion API. Safe for concurrent use; the embedded
// limiter serializes token acquisition across all in-flight jobs.
type Client struct {
	http    *http.Client
	limiter *Limiter
	token   string
	baseURL string
	logger  *zap.SugaredLogger
}

// NewClient creates a Notion client. An empty token produces an
// unconfigured client: Configured() returns false and trigger hooks skip
// enqueueing entirely.
func NewClient(cfg ClientConfig, logger *zap.SugaredLogger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(requestTimeout)
	}
	return &Client{
		http:    httpClient,
		limiter: NewLimiter(cfg.RequestsPerSecond),
		token:   cfg.Token,
		baseURL: baseURL,
		logger:  logger.Named("notion"),
	}
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c.token != ""
}

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion API error %d (%s): %s", e.Status, e.Code, e.Message)
}

// CreatePage creates a page in a database, optionally seeded with child
// blocks (used to lay down the section headings on project pages).
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties Properties, children []Block) (*Page, error) {
	body := map[string]interface{}{
		"parent":     map[string]interface{}{"database_id": databaseID},
		"properties": properties,
	}
	if len(children) > 0 {
		body["children"] = children
	}

	var page Page
	if err := c.doRequest(ctx, http.MethodPost, "/v1/pages", body, &page); err != nil {
		return nil, errors.Wrap(err, "failed to create page")
	}
	return &page, nil
}

// UpdatePage updates a page's properties.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties Properties) (*Page, error) {
	body := map[string]interface{}{"properties": properties}

	var page Page
	if err := c.doRequest(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, &page); err != nil {
		return nil, errors.Wrapf(err, "failed to update page %s", pageID)
	}
	return &page, nil
}

// ArchivePage archives (soft-deletes) a page.
func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	body := map[string]interface{}{"archived": true}
	if err := c.doRequest(ctx, http.MethodPatch, "/v1/pages/"+pageID, body, nil); err != nil {
		return errors.Wrapf(err, "failed to archive page %s", pageID)
	}
	return nil
}

// ListChildren returns all child blocks of a block or page, following
// pagination cursors until exhausted. Each fetched page of results costs
// one rate limiter token.
func (c *Client) ListChildren(ctx context.Context, blockID string) ([]Block, error) {
	var all []Block
	cursor := ""
	for {
		path := "/v1/blocks/" + blockID + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}

		var resp struct {
			Results    []Block `json:"results"`
			HasMore    bool    `json:"has_more"`
			NextCursor string  `json:"next_cursor"`
		}
		if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, errors.Wrapf(err, "failed to list children of %s", blockID)
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// AppendChildren appends blocks under a parent, positioned after the given
// sibling block id (or at the end when after is empty). Returns the created
// blocks so callers can capture their ids.
func (c *Client) AppendChildren(ctx context.Context, blockID string, children []Block, after string) ([]Block, error) {
	body := map[string]interface{}{"children": children}
	if after != "" {
		body["after"] = after
	}

	var resp struct {
		Results []Block `json:"results"`
	}
	if err := c.doRequest(ctx, http.MethodPatch, "/v1/blocks/"+blockID+"/children", body, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to append children to %s", blockID)
	}
	return resp.Results, nil
}

// UpdateBlock replaces a block's content in place.
func (c *Client) UpdateBlock(ctx context.Context, blockID string, block Block) error {
	body := map[string]interface{}{}
	switch {
	case block.ToDo != nil:
		body["to_do"] = block.ToDo
	case block.BulletedListItem != nil:
		body["bulleted_list_item"] = block.BulletedListItem
	case block.Paragraph != nil:
		body["paragraph"] = block.Paragraph
	case block.Heading2 != nil:
		body["heading_2"] = block.Heading2
	default:
		return errors.Newf("unsupported block type for update: %s", block.Type)
	}

	if err := c.doRequest(ctx, http.MethodPatch, "/v1/blocks/"+blockID, body, nil); err != nil {
		return errors.Wrapf(err, "failed to update block %s", blockID)
	}
	return nil
}

// ArchiveBlock archives (removes) a block.
func (c *Client) ArchiveBlock(ctx context.Context, blockID string) error {
	body := map[string]interface{}{"archived": true}
	if err := c.doRequest(ctx, http.MethodPatch, "/v1/blocks/"+blockID, body, nil); err != nil {
		return errors.Wrapf(err, "failed to archive block %s", blockID)
	}
	return nil
}

// doRequest acquires a rate limiter token, performs one HTTP exchange, and
// decodes the response into out when non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	if !c.Configured() {
		return errors.ErrNotConfigured
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return errors.Wrap(err, "rate limiter wait interrupted")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		c.logger.Warnw("Notion request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "failed to decode response")
		}
	}
	return nil
}
