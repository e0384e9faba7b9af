package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
)

// Client uploads blobs to the hosted object store and hands back the public
// URL that gets persisted on the owning row (complaint attachments, avatars).
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	http    *http.Client
}

func NewClient(baseURL, apiKey, bucket string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		bucket:  bucket,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "object store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("object store returned %d: %s", resp.StatusCode, data)
	}

	return c.PublicURL(key), nil
}

func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, key)
}
