package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/discogram/discogram/pkg/logger"
)

// ErrTooLarge is returned when a remote file exceeds FetchOptions.MaxBytes.
var ErrTooLarge = errors.New("file exceeds size limit")

// FilenameFromURL returns the unescaped last path segment of rawURL, or
// "file" when the URL has no usable path.
func FilenameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	name := path.Base(p)
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}

// Extension returns the lowercased extension of filename including the dot.
func Extension(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

// SanitizeFilename removes potentially dangerous characters from a filename
// so it can be used as an upload name.
func SanitizeFilename(filename string) string {
	base := filepath.Base(filename)

	base = strings.ReplaceAll(base, "..", "")
	base = strings.ReplaceAll(base, "/", "_")
	base = strings.ReplaceAll(base, "\\", "_")

	if base == "" || base == "." {
		return "file"
	}
	return base
}

// Fetcher downloads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetchOptions holds optional parameters for downloading files
type FetchOptions struct {
	Timeout      time.Duration
	MaxBytes     int64
	ExtraHeaders map[string]string
	LoggerPrefix string
}

// HTTPFetcher is a Fetcher over net/http. Each Fetch is an independent
// request with no retry.
type HTTPFetcher struct {
	client *http.Client
	opts   FetchOptions
}

func NewHTTPFetcher(opts FetchOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.LoggerPrefix == "" {
		opts.LoggerPrefix = "fetch"
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	// Add extra headers (e.g., Authorization)
	for key, value := range f.opts.ExtraHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Telegram file URLs embed the bot token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("download %s: %w", FilenameFromURL(rawURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	if f.opts.MaxBytes > 0 && resp.ContentLength > f.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, f.opts.MaxBytes)
	}

	var body io.Reader = resp.Body
	if f.opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	if f.opts.MaxBytes > 0 && int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, f.opts.MaxBytes)
	}

	logger.DebugCF(f.opts.LoggerPrefix, "File downloaded successfully", map[string]interface{}{
		"name": FilenameFromURL(rawURL),
		"size": len(data),
	})

	return data, nil
}
