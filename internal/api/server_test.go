package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auction-indexer/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	summary *scanner.RunSummary
	err     error
	calls   int
}

func (f *fakeRunner) Run(ctx context.Context) (*scanner.RunSummary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Ping(ctx context.Context) error {
	return f.err
}

func newTestServer(runner ScanRunner, secret string) *Server {
	cfg := &ServerConfig{Host: "127.0.0.1", Port: "0"}
	return NewServer(cfg, runner, &fakeHealth{}, &fakeHealth{}, secret)
}

func TestHandleScanRequiresSecret(t *testing.T) {
	runner := &fakeRunner{summary: &scanner.RunSummary{}}
	srv := newTestServer(runner, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/internal/scan", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, runner.calls)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
}

func TestHandleScanRejectsWrongSecret(t *testing.T) {
	runner := &fakeRunner{summary: &scanner.RunSummary{}}
	srv := newTestServer(runner, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/internal/scan", nil)
	req.Header.Set("X-Scan-Secret", "wrong")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestHandleScanReturnsSummary(t *testing.T) {
	runner := &fakeRunner{summary: &scanner.RunSummary{
		ChainsProcessed:      2,
		TotalBlocksScanned:   4200,
		TotalEventsProcessed: 17,
		TotalErrors:          1,
		Errors:               []string{"base: provider unavailable"},
	}}
	srv := newTestServer(runner, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/internal/scan", nil)
	req.Header.Set("X-Scan-Secret", "hunter2")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)

	var summary scanner.RunSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 2, summary.ChainsProcessed)
	assert.Equal(t, uint64(4200), summary.TotalBlocksScanned)
	assert.Equal(t, 17, summary.TotalEventsProcessed)
	assert.Equal(t, []string{"base: provider unavailable"}, summary.Errors)
}

func TestHandleScanFoldsRunErrorIntoSummary(t *testing.T) {
	runner := &fakeRunner{
		summary: &scanner.RunSummary{},
		err:     errors.New("failed to load event topic catalog: connection refused"),
	}
	srv := newTestServer(runner, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/scan", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary scanner.RunSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
	assert.Equal(t, 1, summary.TotalErrors)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "event topic catalog")
}

func TestHandleScanEmptySecretAllowsAll(t *testing.T) {
	runner := &fakeRunner{summary: &scanner.RunSummary{}}
	srv := newTestServer(runner, "")

	req := httptest.NewRequest(http.MethodPost, "/internal/scan", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestHandleHealthHealthy(t *testing.T) {
	srv := newTestServer(&fakeRunner{summary: &scanner.RunSummary{}}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleHealthDegraded(t *testing.T) {
	cfg := &ServerConfig{Host: "127.0.0.1", Port: "0"}
	srv := NewServer(cfg, &fakeRunner{summary: &scanner.RunSummary{}}, &fakeHealth{err: errors.New("dial tcp: refused")}, &fakeHealth{}, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
}

func TestScanRouteMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakeRunner{summary: &scanner.RunSummary{}}, "")

	req := httptest.NewRequest(http.MethodGet, "/internal/scan", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
