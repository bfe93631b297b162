package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketdash/internal/controller"
	"marketdash/internal/domain"
	"marketdash/internal/gateway"
)

type stubGateway struct {
	searchCalls atomic.Int32
	searchErr   error
	quoteErr    error
}

func (g *stubGateway) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	if g.quoteErr != nil {
		return domain.Quote{}, g.quoteErr
	}
	return domain.Quote{Current: 101, PreviousClose: 100}, nil
}

func (g *stubGateway) GeneralNews(context.Context) ([]domain.NewsItem, error) {
	return []domain.NewsItem{{ID: "1", Headline: "Markets open"}}, nil
}

func (g *stubGateway) SearchSymbols(_ context.Context, query string) ([]domain.SymbolMatch, error) {
	g.searchCalls.Add(1)
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	return []domain.SymbolMatch{{Symbol: "AAPL", Description: "APPLE INC", Type: "Common Stock"}}, nil
}

func (g *stubGateway) CompanyProfile(_ context.Context, symbol string) (*domain.CompanyProfile, error) {
	return &domain.CompanyProfile{Ticker: symbol, Name: "Apple Inc"}, nil
}

func (g *stubGateway) CompanyNews(context.Context, string, time.Time, time.Time) ([]domain.NewsItem, error) {
	return nil, nil
}

func newTestServer(t *testing.T, gw *stubGateway) (*Server, *controller.Controller) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := controller.New(gw, controller.Options{Logger: log})
	return NewServer(ctrl, log), ctrl
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSnapshot(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})
	rec := do(t, s.Handler(), "GET", "/api/snapshot")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	snap := decode[controller.Snapshot](t, rec)
	assert.False(t, snap.Running)
	assert.Empty(t, snap.Watchlist)
	assert.Nil(t, snap.Selected)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})
	rec := do(t, s.Handler(), "GET", "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})
	rec := do(t, s.Handler(), "OPTIONS", "/api/selection/AAPL")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestSearch(t *testing.T) {
	gw := &stubGateway{}
	s, _ := newTestServer(t, gw)
	rec := do(t, s.Handler(), "GET", "/api/search?q=apple")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "apple", resp.Term)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "AAPL", resp.Results[0].Symbol)
	assert.False(t, resp.Superseded)
	assert.Nil(t, resp.Error)
}

func TestSearchShortTerm(t *testing.T) {
	gw := &stubGateway{}
	s, _ := newTestServer(t, gw)
	rec := do(t, s.Handler(), "GET", "/api/search?q=a")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	assert.Equal(t, "a", resp.Term)
	assert.Empty(t, resp.Results)
	assert.Equal(t, int32(0), gw.searchCalls.Load())
}

func TestSearchFailure(t *testing.T) {
	gw := &stubGateway{searchErr: gateway.Fail("search", "", gateway.ReasonRateLimited, errors.New("429"))}
	s, _ := newTestServer(t, gw)
	rec := do(t, s.Handler(), "GET", "/api/search?q=apple")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SearchResponse](t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, controller.OpSearch, resp.Error.Op)
	assert.Equal(t, gateway.ReasonRateLimited, resp.Error.Reason)
}

func TestSelect(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})
	rec := do(t, s.Handler(), "PUT", "/api/selection/aapl")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap := decode[controller.Snapshot](t, rec)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "AAPL", snap.Selected.Symbol)
	require.NotNil(t, snap.Selected.Profile)
	assert.Equal(t, "Apple Inc", snap.Selected.Profile.Name)

	rec = do(t, s.Handler(), "DELETE", "/api/selection")
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[controller.Snapshot](t, rec)
	assert.Nil(t, snap.Selected)
}

func TestSelectFailure(t *testing.T) {
	gw := &stubGateway{quoteErr: gateway.Fail("quote", "NOPE", gateway.ReasonInvalidSymbol, errors.New("no quote data"))}
	s, ctrl := newTestServer(t, gw)
	rec := do(t, s.Handler(), "PUT", "/api/selection/NOPE")

	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[SelectionErrorResponse](t, rec)
	require.NotNil(t, resp.Report)
	assert.Equal(t, controller.OpSelect, resp.Report.Op)
	assert.Equal(t, "NOPE", resp.Report.Symbol)
	assert.Equal(t, gateway.ReasonInvalidSymbol, resp.Report.Reason)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, ctrl.Snapshot().Selected)
}

func TestStream(t *testing.T) {
	s, ctrl := newTestServer(t, &stubGateway{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first controller.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, ctrl.Snapshot().Version, first.Version)

	ctrl.Search(context.Background(), "apple")

	// Intermediate snapshots may be skipped; the final one must arrive.
	for {
		var snap controller.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		assert.Greater(t, snap.Version, first.Version)
		if len(snap.SearchResults) == 1 {
			assert.Equal(t, "apple", snap.SearchTerm)
			break
		}
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s, _ := newTestServer(t, &stubGateway{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
