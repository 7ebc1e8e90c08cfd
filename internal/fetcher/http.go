package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/net/html/charset"

	"github.com/ternarybob/harvest/internal/common"
	"github.com/ternarybob/harvest/internal/models"
)

// HTTPStrategy is the lightweight first tier: a direct GET with a desktop
// browser user agent, redirect following and a bounded timeout. Most pages
// are static, so this tier keeps throughput high on the common case.
type HTTPStrategy struct {
	client *http.Client
	config common.FetcherConfig
	logger arbor.ILogger
}

// NewHTTPStrategy creates the HTTP tier. A nil client gets a default one
// with the configured timeout; tests inject their own.
func NewHTTPStrategy(config common.FetcherConfig, client *http.Client, logger arbor.ILogger) *HTTPStrategy {
	if client == nil {
		client = &http.Client{Timeout: config.RequestTimeout.Std()}
	}
	return &HTTPStrategy{
		client: client,
		config: config,
		logger: logger,
	}
}

// Name implements Strategy.
func (s *HTTPStrategy) Name() string {
	return string(models.TierHTTP)
}

// Fetch issues the GET. Success is status < 400 with usable content. PDF
// responses (by header or magic bytes) come back as raw binary; text and
// HTML are decoded to UTF-8 honoring the declared or sniffed charset.
func (s *HTTPStrategy) Fetch(ctx context.Context, url string) (*models.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8,zh;q=0.7")

	resp, err := s.client.Do(req)
	if err != nil {
		return &models.FetchResult{
			OK:       false,
			FinalURL: url,
			Tier:     models.TierHTTP,
		}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	contentType := resp.Header.Get("Content-Type")
	result := &models.FetchResult{
		FinalURL:    finalURL,
		HTTPStatus:  resp.StatusCode,
		ContentType: contentType,
		Tier:        models.TierHTTP,
	}

	if resp.StatusCode >= 400 {
		return result, fmt.Errorf("http status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(s.config.MaxBodySize)))
	if err != nil {
		return result, fmt.Errorf("failed to read body: %w", err)
	}

	if contentType == "" {
		contentType = http.DetectContentType(body)
		result.ContentType = contentType
	}

	if isPDF(contentType, body) {
		result.OK = true
		result.Binary = true
		result.BinaryBody = body
		return result, nil
	}

	text, err := decodeText(body, contentType)
	if err != nil {
		// Undecodable bytes are still worth handing to the extractor raw
		text = string(body)
	}
	if strings.TrimSpace(text) == "" {
		return result, fmt.Errorf("empty response body")
	}

	result.OK = true
	result.Body = text
	return result, nil
}

// isPDF checks the declared content type and the file magic.
func isPDF(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "application/pdf") {
		return true
	}
	return len(body) >= 4 && bytes.Equal(body[:4], []byte("%PDF"))
}

// decodeText converts a response body to UTF-8 using the charset declared
// in the content type or sniffed from the bytes. The harvested corpus
// includes GBK-encoded pages, so this is not optional.
func decodeText(body []byte, contentType string) (string, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
