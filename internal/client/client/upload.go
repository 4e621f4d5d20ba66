package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
)

// Upload endpoints served by the backend.
const (
	EndpointIssueImage    = "/upload/issue-image"
	EndpointProgressImage = "/upload/progress-image"
	EndpointResolvedImage = "/upload/resolved-image"
)

// Uploader stores one attachment and returns its durable URL.
type Uploader interface {
	Upload(ctx context.Context, endpoint string, att models.Attachment) (string, error)
}

// Upload implements Uploader by delegating to UploadFile.
func (c *HTTPClient) Upload(ctx context.Context, endpoint string, att models.Attachment) (string, error) {
	return c.UploadFile(ctx, endpoint, att)
}

// UploadFile posts att as the multipart field "file" and returns the url
// field of the JSON response. Failures wrap common.ErrUpload and are not
// retried.
func (c *HTTPClient) UploadFile(ctx context.Context, endpoint string, att models.Attachment) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, attachmentName(att)))
	h.Set("Content-Type", contentType(att))
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUpload, err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", common.ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(RequestIDHeaderName, uuid.NewString())
	c.authorize(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "upload failed", "endpoint", endpoint, "error", err)
		return "", fmt.Errorf("%w (%w): %s: %w", common.ErrUpload, common.ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", common.ErrUpload, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &common.StatusError{Kind: common.ErrUpload, StatusCode: resp.StatusCode, Body: snippet(data)}
	}

	res, err := Decode[models.UploadResult](data)
	if err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", fmt.Errorf("%w: upload response has no url", common.ErrDecode)
	}
	return res.URL, nil
}

func attachmentName(att models.Attachment) string {
	if att.Name != "" {
		return path.Base(att.Name)
	}
	return uuid.NewString()
}

func contentType(att models.Attachment) string {
	if att.ContentType != "" {
		return att.ContentType
	}
	if len(att.Data) > 0 {
		return http.DetectContentType(att.Data)
	}
	return "application/octet-stream"
}

// objectKey builds a storage key for att under the upload endpoint's
// folder, e.g. "issue-image/<uuid>.jpg".
func objectKey(endpoint string, att models.Attachment) string {
	folder := strings.TrimPrefix(path.Base(endpoint), "/")
	if folder == "" || folder == "." {
		folder = "uploads"
	}
	return folder + "/" + uuid.NewString() + path.Ext(att.Name)
}
