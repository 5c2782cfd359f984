package crm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	"github.com/goccy/go-json"
)

// maxUploadBytes caps a single uploaded file.
const maxUploadBytes = 500 << 20

// UploadFile attaches a file to a file column and returns the asset id.
// source must be an http(s) URL; it is fetched without credentials.
func (c *Client) UploadFile(ctx context.Context, boardID, itemID, columnID, source string) (string, error) {
	if c.fileURL == "" {
		return "", fmt.Errorf("upload %s: no file endpoint configured", source)
	}
	if !isNumericID(itemID) {
		return "", fmt.Errorf("upload %s: item id %q is not numeric", source, itemID)
	}
	name, body, err := c.openSource(ctx, source)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", source, err)
	}
	defer body.Close()

	col, _ := json.Marshal(columnID)
	query := fmt.Sprintf(`mutation ($file: File!) { add_file_to_column (item_id: %s, column_id: %s, file: $file) { id } }`,
		itemID, col)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("query", query); err != nil {
		return "", fmt.Errorf("upload %s: %w", source, err)
	}
	part, err := mw.CreateFormFile("variables[file]", name)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", source, err)
	}
	n, err := io.Copy(part, io.LimitReader(body, maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("upload %s: read: %w", source, err)
	}
	if n > maxUploadBytes {
		return "", fmt.Errorf("upload %s: file exceeds %d bytes", source, maxUploadBytes)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.fileURL, &buf)
	if err != nil {
		return "", fmt.Errorf("upload %s: build request: %w", source, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setHeaders(req)

	var out struct {
		AddFile struct {
			ID string `json:"id"`
		} `json:"add_file_to_column"`
	}
	if err := c.send(ctx, req, &out); err != nil {
		return "", fmt.Errorf("upload %s to item %s: %w", name, itemID, err)
	}
	return out.AddFile.ID, nil
}

// openSource fetches source and returns its file name and content.
func (c *Client) openSource(ctx context.Context, source string) (string, io.ReadCloser, error) {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", nil, fmt.Errorf("%w: not an http(s) URL", ErrBlockedSource)
	}
	if err := c.checkFileHost(u.Hostname()); err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.fetchClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil, fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "attachment"
	}
	return name, resp.Body, nil
}

func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
