package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 64 << 20

type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Rate limits requests per second; zero or less means unlimited.
	Rate float64
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Fetcher downloads resources one at a time and stores each body verbatim
// under the resource name.
type Fetcher struct {
	log       *slog.Logger
	storage   domain.Storage
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func NewFetcher(log *slog.Logger, storage domain.Storage, opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = domain.DefaultFetchTimeoutSeconds * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = domain.DefaultUserAgent
	}
	return &Fetcher{
		log:       log,
		storage:   storage,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

type Report struct {
	Fetched []string
	Failed  map[string]error
}

func (r *Report) OK() bool { return len(r.Failed) == 0 }

// Fetch downloads every resource in order. A failed resource is logged and
// recorded in the report; its local file keeps whatever content it had.
// Cancelling ctx marks the remaining resources as failed.
func (f *Fetcher) Fetch(ctx context.Context, resources []domain.Resource) *Report {
	report := &Report{Failed: make(map[string]error)}
	for _, res := range resources {
		if err := f.limiter.Wait(ctx); err != nil {
			report.Failed[res.Name] = err
			continue
		}
		size, err := f.fetchOne(ctx, res)
		if err != nil {
			f.log.Error("download failed", "resource", res.Name, "url", res.URL, "error", err)
			report.Failed[res.Name] = err
			continue
		}
		f.log.Info("downloaded", "resource", res.Name, "bytes", size)
		report.Fetched = append(report.Fetched, res.Name)
	}
	return report
}

func (f *Fetcher) fetchOne(ctx context.Context, res domain.Resource) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, res.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	// Read the whole body first so a broken transfer never replaces a good file.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return 0, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return 0, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}

	if err = f.storage.WriteFile(res.Name, domain.FileInfo{FName: res.Name, FMode: domain.ArtifactMode}, bytes.NewReader(body)); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	return len(body), nil
}
