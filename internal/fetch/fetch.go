// Package fetch retrieves raw ICS feed text over HTTP.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrorKind distinguishes the failure classes a fetch can hit.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindDecode  ErrorKind = "decode"
)

// Error is a failed fetch. Callers treat any Error as "zero events for
// this feed this cycle" rather than aborting a multi-feed sync.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config holds fetcher configuration.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Fetcher downloads feed documents with retry and exponential backoff.
type Fetcher struct {
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "fetcher"),
	}
}

// Fetch retrieves the feed at url and returns its text. A response whose
// body is itself a base64 data URL wrapping the calendar document is
// decoded transparently.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	var err error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		body, err = f.doRequest(ctx, url)
		if err == nil {
			return body, nil
		}

		var fe *Error
		if errors.As(err, &fe) && fe.Kind == KindDecode {
			// Retrying will not fix a malformed payload.
			return "", err
		}

		if attempt == f.maxAttempts {
			break
		}

		backoff := f.calculateBackoff(attempt)
		f.logger.Warn("fetch failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", &Error{Kind: KindNetwork, URL: url, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	return "", err
}

func (f *Fetcher) doRequest(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Kind: KindNetwork, URL: url, Err: err}
	}

	req.Header.Set("Accept", "text/calendar, text/plain")
	req.Header.Set("User-Agent", "CalSync/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Kind: KindStatus, URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindNetwork, URL: url, Err: err}
	}

	text, err := unwrapDataURL(string(raw))
	if err != nil {
		return "", &Error{Kind: KindDecode, URL: url, Err: err}
	}

	return text, nil
}

// unwrapDataURL returns the plain document. Some wrapper endpoints serve
// the calendar as a base64 data URL instead of raw text.
func unwrapDataURL(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "data:") {
		return body, nil
	}

	meta, payload, ok := strings.Cut(trimmed, ",")
	if !ok {
		return "", errors.New("data url missing payload")
	}

	if !strings.HasSuffix(meta, ";base64") {
		return payload, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode base64 payload: %w", err)
	}

	return string(decoded), nil
}

func (f *Fetcher) calculateBackoff(attempt int) time.Duration {
	backoff := f.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > f.maxBackoff {
		backoff = f.maxBackoff
	}
	return backoff
}
