package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rudd3r/nftroute/pkg/domain"
	"github.com/Rudd3r/nftroute/pkg/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rules.yaml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "payload:\n  - DOMAIN,example.com\n")
	})
	mux.HandleFunc("/direct.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "example.com\n")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/agent", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.UserAgent())
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetch(t *testing.T) {
	srv := newTestServer(t)
	storage := mocks.NewMockStorage()
	f := NewFetcher(discardLogger(), storage, Options{Timeout: time.Second})

	report := f.Fetch(context.Background(), []domain.Resource{
		{Name: "rules.yaml", URL: srv.URL + "/rules.yaml", Kind: domain.KindRuleSet},
		{Name: "direct.txt", URL: srv.URL + "/direct.txt", Kind: domain.KindDirect},
	})

	assert.True(t, report.OK())
	assert.Equal(t, []string{"rules.yaml", "direct.txt"}, report.Fetched)

	data, err := storage.GetFileContent("rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, "payload:\n  - DOMAIN,example.com\n", string(data))

	data, err = storage.GetFileContent("direct.txt")
	require.NoError(t, err)
	assert.Equal(t, "example.com\n", string(data))
}

func TestFetchFailuresAreSkipped(t *testing.T) {
	srv := newTestServer(t)
	storage := mocks.NewMockStorage()
	storage.Put("stale.txt", "previous content")
	f := NewFetcher(discardLogger(), storage, Options{Timeout: 200 * time.Millisecond})

	report := f.Fetch(context.Background(), []domain.Resource{
		{Name: "stale.txt", URL: srv.URL + "/missing"},
		{Name: "absent.txt", URL: "http://127.0.0.1:1/unreachable"},
		{Name: "slow.txt", URL: srv.URL + "/slow"},
		{Name: "bad.txt", URL: "://not a url"},
		{Name: "rules.yaml", URL: srv.URL + "/rules.yaml"},
	})

	assert.Equal(t, []string{"rules.yaml"}, report.Fetched)
	require.Len(t, report.Failed, 4)
	assert.Contains(t, report.Failed["stale.txt"].Error(), "404")
	assert.False(t, report.OK())

	data, err := storage.GetFileContent("stale.txt")
	require.NoError(t, err)
	assert.Equal(t, "previous content", string(data), "failed fetch must not touch the old file")
	assert.False(t, storage.FileExists("absent.txt"))
	assert.False(t, storage.FileExists("slow.txt"))
}

func TestFetchStoreFailure(t *testing.T) {
	srv := newTestServer(t)
	storage := mocks.NewMockStorage()
	storage.FailWrite("rules.yaml", assert.AnError)
	f := NewFetcher(discardLogger(), storage, Options{})

	report := f.Fetch(context.Background(), []domain.Resource{
		{Name: "rules.yaml", URL: srv.URL + "/rules.yaml"},
		{Name: "direct.txt", URL: srv.URL + "/direct.txt"},
	})

	assert.Equal(t, []string{"direct.txt"}, report.Fetched)
	assert.ErrorIs(t, report.Failed["rules.yaml"], assert.AnError)
}

func TestFetchUserAgent(t *testing.T) {
	srv := newTestServer(t)

	t.Run("default", func(t *testing.T) {
		storage := mocks.NewMockStorage()
		NewFetcher(discardLogger(), storage, Options{}).
			Fetch(context.Background(), []domain.Resource{{Name: "ua", URL: srv.URL + "/agent"}})
		data, err := storage.GetFileContent("ua")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultUserAgent, string(data))
	})

	t.Run("custom", func(t *testing.T) {
		storage := mocks.NewMockStorage()
		NewFetcher(discardLogger(), storage, Options{UserAgent: "tester/0.1"}).
			Fetch(context.Background(), []domain.Resource{{Name: "ua", URL: srv.URL + "/agent"}})
		data, err := storage.GetFileContent("ua")
		require.NoError(t, err)
		assert.Equal(t, "tester/0.1", string(data))
	})
}

func TestFetchCancelled(t *testing.T) {
	srv := newTestServer(t)
	storage := mocks.NewMockStorage()
	f := NewFetcher(discardLogger(), storage, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.Fetch(ctx, []domain.Resource{
		{Name: "rules.yaml", URL: srv.URL + "/rules.yaml"},
		{Name: "direct.txt", URL: srv.URL + "/direct.txt"},
	})

	assert.Empty(t, report.Fetched)
	assert.Len(t, report.Failed, 2)
	assert.ErrorIs(t, report.Failed["rules.yaml"], context.Canceled)
}

func TestFetchRateLimited(t *testing.T) {
	srv := newTestServer(t)
	storage := mocks.NewMockStorage()
	f := NewFetcher(discardLogger(), storage, Options{Rate: 10})

	start := time.Now()
	report := f.Fetch(context.Background(), []domain.Resource{
		{Name: "a", URL: srv.URL + "/direct.txt"},
		{Name: "b", URL: srv.URL + "/direct.txt"},
		{Name: "c", URL: srv.URL + "/direct.txt"},
	})

	assert.True(t, report.OK())
	// burst of one: the second and third requests each wait ~100ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
