package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/couchcryptid/event-points-etl/internal/config"
	"github.com/couchcryptid/event-points-etl/internal/domain"
)

var (
	// ErrFetch reports a dataset that could not be retrieved or read.
	ErrFetch = errors.New("fetch dataset")

	// ErrSchemaMismatch reports a dataset whose header lacks configured columns.
	ErrSchemaMismatch = fmt.Errorf("%w: schema mismatch", ErrFetch)
)

// Fetcher retrieves the source dataset from an http(s) URL or a local file.
// It implements pipeline.Fetcher.
type Fetcher struct {
	location string
	client   *retryablehttp.Client
	decoder  *Decoder
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher for the configured SOURCE_URL.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.SourceRetries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = cfg.SourceTimeout
	client.Logger = logger

	return &Fetcher{
		location: cfg.SourceURL,
		client:   client,
		decoder:  NewDecoder(cfg.Schema, cfg.SourceDateLayouts),
		logger:   logger,
	}
}

// Fetch downloads (or opens) the dataset and decodes every data line.
// All failures wrap ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.SourceRow, error) {
	body, err := f.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	rows, err := f.decoder.Decode(body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("dataset decoded", "rows", len(rows))
	return rows, nil
}

func (f *Fetcher) open(ctx context.Context) (io.ReadCloser, error) {
	u, err := url.Parse(f.location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 { // "C:\..." parses with a one-letter scheme
		return f.openFile(f.location)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.get(ctx, f.location)
	case "file":
		return f.openFile(u.Path)
	default:
		return nil, fmt.Errorf("%w: unsupported source scheme %q", ErrFetch, u.Scheme)
	}
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, body)
	}
	return resp.Body, nil
}

func (f *Fetcher) openFile(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return file, nil
}
