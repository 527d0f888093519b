// Package extractor performs the single transport call to the remote PII
// extraction service.
//
// One call sends every selected file as a part of one multipart request and
// decodes one JSON response. There is no retry, chunking or partial-success
// handling: any network error, non-2xx status or undecodable body fails the
// whole call with pii.ErrExtractionFailed.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/google/uuid"
)

const (
	// DefaultURL is the extraction endpoint of a locally running service.
	DefaultURL = "http://127.0.0.1:8000/extract"

	// DefaultFieldName is the multipart field every file part is sent under.
	DefaultFieldName = "files"

	// maxResponseBytes caps the decoded response body.
	maxResponseBytes = 64 << 20

	// maxErrorBodyBytes caps how much of a failed response is kept for logs.
	maxErrorBodyBytes = 512
)

// Options configures a Client.
type Options struct {
	URL       string
	FieldName string
	// Timeout bounds one extraction call. Zero means no timeout.
	Timeout time.Duration
}

// Client sends files to the extraction service.
type Client struct {
	url     string
	field   string
	timeout time.Duration
	http    *http.Client
	limiter *Limiter
	logger  *slog.Logger
}

// New creates a Client. A nil httpClient uses a client without a global
// timeout; a nil limiter disables process-wide concurrency limiting.
func New(opts Options, httpClient *http.Client, limiter *Limiter, logger *slog.Logger) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.FieldName == "" {
		opts.FieldName = DefaultFieldName
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     opts.URL,
		field:   opts.FieldName,
		timeout: opts.Timeout,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

// URL returns the extraction endpoint.
func (c *Client) URL() string {
	return c.url
}

// Extract sends files as one multipart request and decodes the response.
func (c *Client) Extract(ctx context.Context, files []pii.File) (*pii.Response, error) {
	if len(files) == 0 {
		return nil, pii.ErrNothingSelected
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", pii.ErrExtractionFailed, err)
		}
		defer c.limiter.Release()
	}

	reqID := uuid.New().String()
	logger := c.logger.With("req_id", reqID)
	start := time.Now()

	body, contentType, err := encodeMultipart(c.field, files)
	if err != nil {
		logger.Error("extractor.encode_error", "error", err)
		return nil, fmt.Errorf("%w: encode multipart: %w", pii.ErrExtractionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		logger.Error("extractor.build_request_error", "error", err)
		return nil, fmt.Errorf("%w: build request: %w", pii.ErrExtractionFailed, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	logger.Info("extractor.request",
		"url", c.url,
		"files", len(files),
		"content_length", len(body),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("extractor.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("%w: %w", pii.ErrExtractionFailed, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("extractor.response_body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		logger.Error("extractor.response_status",
			"status", resp.StatusCode,
			"detail", strings.TrimSpace(string(detail)),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("%w: non-2xx status: %d", pii.ErrExtractionFailed, resp.StatusCode)
	}

	var out pii.Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		logger.Error("extractor.decode_error", "error", err)
		return nil, fmt.Errorf("%w: decode response: %w", pii.ErrExtractionFailed, err)
	}

	logger.Info("extractor.response",
		"status", resp.StatusCode,
		"result", out.Status,
		"rows", out.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes one part per file under field, keeping each file's
// content type when known.
func encodeMultipart(field string, files []pii.File) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", ct)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part %q: %w", f.Name, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
