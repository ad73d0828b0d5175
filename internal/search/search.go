// Package search provides full-text candidate search. Candidates are
// mirrored into Elasticsearch after every successful remote read; when the
// index is unavailable the current candidate list is matched in memory.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultSize = 20
	maxSize     = 100
)

// Query is a search request. Text is matched against the descriptive
// fields; Category and Sector are exact filters.
type Query struct {
	Text     string `form:"q" json:"q"`
	Category string `form:"category" json:"category,omitempty"`
	Sector   string `form:"sector" json:"sector,omitempty"`
	Size     int    `form:"size" json:"size,omitempty"`
}

func (q Query) size() int {
	switch {
	case q.Size < 1:
		return defaultSize
	case q.Size > maxSize:
		return maxSize
	}
	return q.Size
}

type Result struct {
	Candidates []models.Candidate `json:"candidates"`
	Total      int64              `json:"total"`
	Engine     string             `json:"engine"` // "elasticsearch" or "local"
}

// Indexer writes and queries the candidate index.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search-indexer"}),
	}
}

// Index upserts every candidate with a single bulk request keyed by id.
func (i *Indexer) Index(ctx context.Context, candidates []models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range candidates {
		meta := map[string]interface{}{"index": map[string]interface{}{"_index": i.index, "_id": c.ID}}
		if err := enc.Encode(meta); err != nil {
			return apperrors.NewSearchFailedError(err)
		}
		if err := enc.Encode(c); err != nil {
			return apperrors.NewSearchFailedError(err)
		}
	}

	req := esapi.BulkRequest{
		Index: i.index,
		Body:  bytes.NewReader(buf.Bytes()),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchFailedError(fmt.Errorf("bulk index failed: %s", res.String()))
	}

	var r struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID    string          `json:"_id"`
			Error json.RawMessage `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return apperrors.NewSearchFailedError(err)
	}
	if r.Errors {
		failed := 0
		for _, item := range r.Items {
			for _, op := range item {
				if len(op.Error) > 0 {
					failed++
				}
			}
		}
		return apperrors.NewSearchFailedError(fmt.Errorf("%d of %d documents failed to index", failed, len(candidates)))
	}

	i.logger.Debug("Indexed candidates", map[string]interface{}{"count": len(candidates)})
	return nil
}

// Query runs a multi_match search with optional term filters.
func (i *Indexer) Query(ctx context.Context, q Query) (*Result, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}

	size := q.size()
	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchFailedError(fmt.Errorf("search query failed: %s", res.String()))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Candidate `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, apperrors.NewSearchFailedError(err)
	}

	out := make([]models.Candidate, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		out = append(out, h.Source)
	}
	return &Result{Candidates: out, Total: r.Hits.Total.Value, Engine: "elasticsearch"}, nil
}

func buildQuery(q Query) map[string]interface{} {
	var must []interface{}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    text,
				"fields":   []string{"headline^3", "title^2", "summary", "category", "tags^2", "sectors", "notableEmployers", "resumeText", "location"},
				"operator": "and",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	var filter []interface{}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{"match": map[string]interface{}{"category": q.Category}})
	}
	if q.Sector != "" {
		filter = append(filter, map[string]interface{}{"match": map[string]interface{}{"sectors": q.Sector}})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

// Lister supplies the candidate list used for local matching.
type Lister interface {
	FetchAll(ctx context.Context) []models.Candidate
}

// Searcher prefers the index and falls back to matching the current list.
type Searcher struct {
	indexer *Indexer
	source  Lister
	logger  logger.Logger
}

// NewSearcher accepts a nil indexer, in which case every search is local.
func NewSearcher(indexer *Indexer, source Lister, log logger.Logger) *Searcher {
	return &Searcher{
		indexer: indexer,
		source:  source,
		logger:  log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

func (s *Searcher) Search(ctx context.Context, q Query) *Result {
	if s.indexer != nil {
		res, err := s.indexer.Query(ctx, q)
		if err == nil {
			return res
		}
		s.logger.Warn("Index search failed, matching locally", map[string]interface{}{"error": err.Error()})
	}
	return MatchLocal(s.source.FetchAll(ctx), q)
}

// MatchLocal returns candidates containing every query term, case
// insensitively, that also pass the filters.
func MatchLocal(candidates []models.Candidate, q Query) *Result {
	terms := strings.Fields(strings.ToLower(q.Text))
	limit := q.size()

	out := make([]models.Candidate, 0)
	var total int64
	for _, c := range candidates {
		if q.Category != "" && !strings.EqualFold(c.Category, q.Category) {
			continue
		}
		if q.Sector != "" && !containsFold(c.Sectors, q.Sector) {
			continue
		}
		if !matchesAll(searchText(c), terms) {
			continue
		}
		total++
		if len(out) < limit {
			out = append(out, c)
		}
	}
	return &Result{Candidates: out, Total: total, Engine: "local"}
}

func searchText(c models.Candidate) string {
	parts := []string{c.Headline, c.Title, c.Summary, c.Category, c.Location, c.NotableEmployers, c.ResumeText}
	parts = append(parts, c.Sectors...)
	parts = append(parts, c.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
