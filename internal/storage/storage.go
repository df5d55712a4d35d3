// Package storage talks to the external object store holding payment
// evidence images. The core never inspects file contents; it only moves
// bytes in and hands out pointers and public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// Client is a Supabase-style storage client for a single public bucket.
type Client struct {
	baseURL string
	bucket  string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, bucket, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		bucket:  bucket,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Upload stores the evidence bytes under objectPath and returns the
// pointer the ledger persists.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", &apperrors.UpstreamFailure{Service: "storage", Err: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &apperrors.UpstreamFailure{Service: "storage", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &apperrors.UpstreamFailure{
			Service: "storage",
			Err:     fmt.Errorf("upload %s: unexpected status %d", objectPath, resp.StatusCode),
		}
	}
	return objectPath, nil
}

// PublicURL resolves a stored pointer to its public download URL. Empty
// pointers resolve to an empty URL.
func (c *Client) PublicURL(objectPath string) string {
	if objectPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath)
}

// EvidencePath builds the bucket path for a new receipt:
// {raffle}/{reference-digits}-{uuid}{ext}.
func EvidencePath(raffleID, reference, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	ref := models.NormalizeDigits(reference)
	if ref == "" {
		ref = "sr"
	}
	return fmt.Sprintf("%s/%s-%s%s", raffleID, ref, uuid.NewString(), ext)
}
