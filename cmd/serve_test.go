package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/config"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/prospect"
	"github.com/sells-group/leadscout/internal/store"
)

const plumbersTable = `Here are the top local businesses:

| Business Name | Phone | Address | Rank | Website | Rating | Distance |
|---|---|---|---|---|---|---|
| Acme Plumbing | (512) 555-0101 | 100 Congress Ave | 1 | https://acme.example.com | 4.8 | 1.2 km |
| Budget Drains | (512) 555-0102 | N/A | 2 | None | 4.1 | 3.4 km |
`

// fixedGenerator returns a canned reply or error for handler tests.
type fixedGenerator struct {
	text string
	err  error
}

func (g *fixedGenerator) Name() string { return "gemini" }

func (g *fixedGenerator) Generate(_ context.Context, _ prospect.GenRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func testConfig() *config.Config {
	c := &config.Config{Provider: "gemini"}
	c.Gemini.Key = "test-key"
	c.Search.DefaultRadiusKm = 10
	c.Search.RadiusTolerance = 1.05
	c.Search.RankOffset = 1
	c.Search.Concurrency = 1
	c.Cooldown.FallbackSecs = 60
	return c
}

func newTestServer(t *testing.T, gen prospect.Generator) *apiServer {
	t.Helper()
	cfg = testConfig()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "leadscout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return &apiServer{
		searcher: prospect.NewSearcher(gen, "test-key", prospect.DefaultOptions()),
		store:    st,
		results:  model.NewLeadSet(),
	}
}

func postSearch(t *testing.T, r http.Handler, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	r := buildRouter(newTestServer(t, &fixedGenerator{text: plumbersTable}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Search(t *testing.T) {
	api := newTestServer(t, &fixedGenerator{text: plumbersTable})
	r := buildRouter(api)

	rr := postSearch(t, r, map[string]any{
		"keyword":  "plumbers",
		"location": "Austin, TX",
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Leads []model.Lead `json:"leads"`
		Count int          `json:"count"`
		Total int          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Leads, 2)
	assert.Equal(t, "Acme Plumbing", resp.Leads[0].BusinessName)
	assert.Equal(t, "plumbers", resp.Leads[0].Keyword)
	assert.Equal(t, 2, resp.Total)

	// The session set accumulates across requests.
	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req)
	require.Equal(t, http.StatusOK, rr2.Code)
	assert.Contains(t, rr2.Body.String(), "Acme Plumbing")
}

func TestRouter_SearchMissingKeyword(t *testing.T) {
	r := buildRouter(newTestServer(t, &fixedGenerator{text: plumbersTable}))

	rr := postSearch(t, r, map[string]any{"location": "Austin, TX"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "keyword is required")
}

func TestRouter_SearchMissingLocation(t *testing.T) {
	r := buildRouter(newTestServer(t, &fixedGenerator{text: plumbersTable}))

	rr := postSearch(t, r, map[string]any{"keyword": "plumbers"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "location or lat/lng is required")
}

func TestRouter_SearchQuotaExhausted(t *testing.T) {
	gen := &fixedGenerator{err: errors.New("googleapi: Error 429: quota exceeded, retry in 30s")}
	r := buildRouter(newTestServer(t, gen))

	rr := postSearch(t, r, map[string]any{
		"keyword":  "plumbers",
		"location": "Austin, TX",
	})

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.EqualValues(t, 30, resp["retry_after_seconds"])
}

func TestRouter_SearchNoResults(t *testing.T) {
	gen := &fixedGenerator{text: "I could not find any matching businesses in that area, apologies."}
	r := buildRouter(newTestServer(t, gen))

	rr := postSearch(t, r, map[string]any{
		"keyword":  "plumbers",
		"location": "Austin, TX",
	})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ClearLeads(t *testing.T) {
	api := newTestServer(t, &fixedGenerator{text: plumbersTable})
	r := buildRouter(api)

	postSearch(t, r, map[string]any{"keyword": "plumbers", "location": "Austin, TX"})
	require.Equal(t, 2, api.results.Len())

	req := httptest.NewRequest(http.MethodDelete, "/api/leads", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, api.results.Len())
}

func TestRouter_Searches(t *testing.T) {
	api := newTestServer(t, &fixedGenerator{text: plumbersTable})
	r := buildRouter(api)

	rr := postSearch(t, r, map[string]any{"keyword": "plumbers", "location": "Austin, TX"})
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/searches?status=complete", nil)
	rr2 := httptest.NewRecorder()
	r.ServeHTTP(rr2, req)

	require.Equal(t, http.StatusOK, rr2.Code)
	var resp struct {
		Searches []store.SearchRecord `json:"searches"`
		Count    int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "plumbers", resp.Searches[0].Keyword)
	assert.Equal(t, 2, resp.Searches[0].LeadCount)
}

func TestRouter_SearchFailureRecorded(t *testing.T) {
	gen := &fixedGenerator{err: errors.New("rpc error: connection reset")}
	api := newTestServer(t, gen)
	r := buildRouter(api)

	rr := postSearch(t, r, map[string]any{"keyword": "plumbers", "location": "Austin, TX"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	// The failure record is written asynchronously.
	require.Eventually(t, func() bool {
		recs, err := api.store.ListSearches(context.Background(), store.SearchFilter{Status: store.StatusFailed})
		return err == nil && len(recs) == 1
	}, time.Second, 10*time.Millisecond)

	recs, err := api.store.ListSearches(context.Background(), store.SearchFilter{Status: store.StatusFailed})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "plumbers", recs[0].Keyword, "failure rows carry the keyword that failed")
}
