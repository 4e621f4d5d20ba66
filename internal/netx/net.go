// Package netx contains plain HTTP helpers shared by the uploaders.
package netx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/sheharfix/civicsync/internal/common"
)

// PutPresigned uploads data to a presigned object-storage URL with a single
// PUT. Any non-2xx status is a *common.StatusError of kind common.ErrUpload.
func PutPresigned(ctx context.Context, client *http.Client, url, contentType string, data []byte) error {
	if client == nil {
		client = http.DefaultClient
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &common.StatusError{
			Kind:       common.ErrUpload,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	return nil
}

// StripQuery drops the query string from a presigned URL, leaving the
// durable object location.
func StripQuery(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}
