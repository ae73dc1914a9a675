// scraper/downloader.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyterat/deepstate-map-data/config"
)

// maxPayloadBytes bounds how much of a response body is read.
const maxPayloadBytes = 256 << 20

// Downloader performs GET requests against the source API with a per-request
// timeout and a fixed number of attempts.
type Downloader struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewDownloader builds a Downloader from the source section of the config.
func NewDownloader(cfg config.SourceConfig, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Downloader{
		client:     &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		maxRetries: maxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

// Download fetches url, retrying failed attempts after the configured delay.
// Every failure is reported as a *FetchError.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		body, err := d.get(ctx, url)
		if err == nil {
			d.logger.Debug("source request succeeded", "url", url, "attempt", attempt, "bytes", len(body))
			return body, nil
		}
		lastErr = err
		d.logger.Warn("source request failed", "url", url, "attempt", attempt, "max_attempts", d.maxRetries, "error", err)

		if attempt == d.maxRetries {
			break
		}
		d.logger.Info("retrying source request", "delay", d.retryDelay)
		timer := time.NewTimer(d.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &FetchError{URL: url, Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	d.logger.Error("all source request attempts failed", "url", url)
	return nil, &FetchError{URL: url, Attempts: d.maxRetries, Err: lastErr}
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("received status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
