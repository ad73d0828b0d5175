package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCandidates = []models.Candidate{
	{ID: "1", Headline: "Senior Marketing Executive", Category: "Executive", Sectors: []string{"Retail"}, Tags: []string{"Brand"}},
	{ID: "2", Headline: "Finance Director", Category: "Finance", Sectors: []string{"Manufacturing"}, Tags: []string{"M&A"}},
	{ID: "3", Headline: "VP Engineering", Category: "Technology", Sectors: []string{"Retail", "SaaS"}, Summary: "Scaled platform teams"},
}

type staticLister []models.Candidate

func (l staticLister) FetchAll(context.Context) []models.Candidate { return l }

func newESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

// ==========================
// Indexer
// ==========================

func TestIndexer_BulkBody(t *testing.T) {
	var lines []string
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candidates/_bulk", r.URL.Path)
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		_, _ = io.WriteString(w, `{"took":3,"errors":false,"items":[]}`)
	})

	idx := NewIndexer(client, "candidates", logger.NewTestLogger(t))
	require.NoError(t, idx.Index(context.Background(), testCandidates[:2]))

	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"candidates","_id":"1"}}`, lines[0])
	var doc models.Candidate
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "Senior Marketing Executive", doc.Headline)
}

func TestIndexer_BulkItemErrors(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":true,"items":[{"index":{"_id":"1","error":{"type":"mapper_parsing_exception"}}},{"index":{"_id":"2"}}]}`)
	})

	err := NewIndexer(client, "candidates", logger.NewTestLogger(t)).Index(context.Background(), testCandidates[:2])

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchFailed))
	assert.Contains(t, err.(*apperrors.StandardError).Details, "1 of 2")
}

func TestIndexer_EmptyIsNoop(t *testing.T) {
	called := false
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	require.NoError(t, NewIndexer(client, "candidates", logger.NewTestLogger(t)).Index(context.Background(), nil))
	assert.False(t, called)
}

func TestIndexer_Query(t *testing.T) {
	var body map[string]interface{}
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candidates/_search", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("size"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"3","headline":"VP Engineering"}}]}}`)
	})

	res, err := NewIndexer(client, "candidates", logger.NewTestLogger(t)).
		Query(context.Background(), Query{Text: "engineering", Category: "Technology", Size: 5})

	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", res.Engine)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "3", res.Candidates[0].ID)

	raw, _ := json.Marshal(body)
	assert.Contains(t, string(raw), "multi_match")
	assert.Contains(t, string(raw), "Technology")
}

// ==========================
// Searcher
// ==========================

func TestSearcher_FallsBackToLocal(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"unavailable"}`)
	})
	s := NewSearcher(NewIndexer(client, "candidates", logger.NewTestLogger(t)), staticLister(testCandidates), logger.NewTestLogger(t))

	res := s.Search(context.Background(), Query{Text: "finance"})

	assert.Equal(t, "local", res.Engine)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "2", res.Candidates[0].ID)
}

func TestSearcher_NoIndexer(t *testing.T) {
	s := NewSearcher(nil, staticLister(testCandidates), logger.NewTestLogger(t))

	res := s.Search(context.Background(), Query{Sector: "retail"})

	assert.Equal(t, int64(2), res.Total)
}

func TestMatchLocal(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "empty matches all", query: Query{}, want: []string{"1", "2", "3"}},
		{name: "all terms required", query: Query{Text: "senior executive"}, want: []string{"1"}},
		{name: "case insensitive summary", query: Query{Text: "PLATFORM"}, want: []string{"3"}},
		{name: "category filter", query: Query{Category: "finance"}, want: []string{"2"}},
		{name: "sector and text", query: Query{Text: "vp", Sector: "Retail"}, want: []string{"3"}},
		{name: "no match", query: Query{Text: "astronaut"}, want: []string{}},
		{name: "size limits page not total", query: Query{Size: 1}, want: []string{"1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MatchLocal(testCandidates, tt.query)
			ids := make([]string, 0, len(res.Candidates))
			for _, c := range res.Candidates {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestBuildQuery_MatchAllWithoutText(t *testing.T) {
	raw, err := json.Marshal(buildQuery(Query{Text: "  "}))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "match_all"))
}
