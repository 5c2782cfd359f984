// Package crm is a GraphQL client for the remote item-tracking boards.
package crm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/JonMunkholm/FormRelay/internal/core"
	"github.com/JonMunkholm/FormRelay/internal/logging"
)

// Errors classifying remote failures. Their text is matched by
// core.MapError, so keep "unauthorized" and "rate limit" in the messages.
var (
	ErrUnauthorized = errors.New("crm: unauthorized")
	ErrRateLimited  = errors.New("crm: rate limit exceeded")

	// ErrBlockedSource is returned for file sources that are not a
	// permitted http(s) URL.
	ErrBlockedSource = errors.New("crm: file source not allowed")
)

// maxErrorBody caps how much of a failed response body is kept in errors.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	URL     string
	FileURL string
	Token   string
	Version string
	Timeout time.Duration

	// FileHosts restricts the hosts file URLs are fetched from. Listed hosts
	// may resolve to internal addresses. When empty, any host resolving to a
	// public address is allowed.
	FileHosts []string
}

// Client implements core.ItemBoard over the remote GraphQL API.
type Client struct {
	url        string
	fileURL    string
	token      string
	version    string
	httpClient *http.Client

	fileHosts   map[string]struct{}
	fetchClient *http.Client
}

var _ core.ItemBoard = (*Client)(nil)

// New creates a Client. A zero Timeout means 20 seconds.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		url:        cfg.URL,
		fileURL:    cfg.FileURL,
		token:      cfg.Token,
		version:    cfg.Version,
		httpClient: &http.Client{Timeout: timeout},
		fileHosts:  make(map[string]struct{}, len(cfg.FileHosts)),
	}
	for _, h := range cfg.FileHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			c.fileHosts[h] = struct{}{}
		}
	}
	c.fetchClient = c.newFetchClient(timeout)
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data         json.RawMessage `json:"data"`
	Errors       []graphQLError  `json:"errors"`
	ErrorCode    string          `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
	StatusCode   int             `json:"status_code"`
}

// err folds the error shapes the API uses into one error.
func (r *graphQLResponse) err() error {
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	if r.ErrorMessage != "" {
		msgs = append(msgs, r.ErrorMessage)
	}
	if len(msgs) == 0 {
		return nil
	}
	if r.StatusCode == http.StatusTooManyRequests || strings.Contains(r.ErrorCode, "RateLimit") || strings.Contains(r.ErrorCode, "Complexity") {
		return fmt.Errorf("%w: %s", ErrRateLimited, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("crm: graphql error: %s", strings.Join(msgs, "; "))
}

const createItemMutation = `mutation ($board: ID!, $group: String, $name: String!, $columns: JSON) {
  create_item (board_id: $board, group_id: $group, item_name: $name, column_values: $columns, create_labels_if_missing: true) { id }
}`

// CreateItem creates an item and returns its id.
func (c *Client) CreateItem(ctx context.Context, req core.CreateItemRequest) (string, error) {
	columns, err := json.Marshal(req.Columns)
	if err != nil {
		return "", fmt.Errorf("crm: encode columns: %w", err)
	}
	vars := map[string]any{
		"board":   req.BoardID,
		"name":    req.Name,
		"columns": string(columns),
	}
	if req.GroupID != "" {
		vars["group"] = req.GroupID
	}

	var out struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	if err := c.do(ctx, graphQLRequest{Query: createItemMutation, Variables: vars}, &out); err != nil {
		return "", fmt.Errorf("create item on board %s: %w", req.BoardID, err)
	}
	if out.CreateItem.ID == "" {
		return "", fmt.Errorf("create item on board %s: response carried no item id", req.BoardID)
	}
	return out.CreateItem.ID, nil
}

const changeColumnsMutation = `mutation ($board: ID!, $item: ID!, $columns: JSON!) {
  change_multiple_column_values (board_id: $board, item_id: $item, column_values: $columns, create_labels_if_missing: true) { id }
}`

// UpdateColumns writes several column values of one item.
func (c *Client) UpdateColumns(ctx context.Context, boardID, itemID string, columns core.ColumnValues) error {
	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("crm: encode columns: %w", err)
	}
	vars := map[string]any{
		"board":   boardID,
		"item":    itemID,
		"columns": string(encoded),
	}
	if err := c.do(ctx, graphQLRequest{Query: changeColumnsMutation, Variables: vars}, nil); err != nil {
		return fmt.Errorf("update item %s: %w", itemID, err)
	}
	return nil
}

// do posts one GraphQL request and decodes its data into out when out is
// not nil.
func (c *Client) do(ctx context.Context, gq graphQLRequest, out any) error {
	data, err := json.Marshal(gq)
	if err != nil {
		return fmt.Errorf("crm: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	return c.send(ctx, req, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.token)
	if c.version != "" {
		req.Header.Set("API-Version", c.version)
	}
}

func (c *Client) send(ctx context.Context, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("crm: call %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).Debug("crm call",
		"url", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w (retry after %q)", ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("crm: server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	if err := gr.err(); err != nil {
		return err
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("crm: decode data: %w", err)
	}
	return nil
}
