// Package service provides the Matchlight operations built on top of the
// request layer: search, feed exports and project/record/alert administration.
package service

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/fingerprint"
	"github.com/raphaelgruber/matchlight-go/internal/models"
)

// SearchTimeout is the per-attempt timeout for the search and artifact
// detail calls, which are far slower than the rest of the API.
const SearchTimeout = 90 * time.Second

// SearchService runs retrospective fingerprint searches.
type SearchService struct {
	client  *client.Client
	fp      *fingerprint.Dispatcher
	timeout time.Duration
}

// NewSearchService creates a search service. fp may be nil, in which case
// only searches by precomputed fingerprints are possible.
func NewSearchService(c *client.Client, fp *fingerprint.Dispatcher) *SearchService {
	return &SearchService{client: c, fp: fp, timeout: SearchTimeout}
}

// SetTimeout overrides the per-attempt timeout of the two search calls.
func (s *SearchService) SetTimeout(d time.Duration) {
	s.timeout = d
}

// SearchQuery selects what to search for. Exactly one field must be set;
// empty strings and a nil Fingerprints count as unset.
type SearchQuery struct {
	Text         string
	Fingerprints []string
	Email        string
	SSN          string
	Phone        string
}

func (q SearchQuery) kinds() int {
	n := 0
	for _, s := range []string{q.Text, q.Email, q.SSN, q.Phone} {
		if s != "" {
			n++
		}
	}
	if q.Fingerprints != nil {
		n++
	}
	return n
}

// Search fingerprints the query, looks it up in the index and joins every
// hit with its artifact's URL history. All network calls complete before
// Search returns.
func (s *SearchService) Search(ctx context.Context, q SearchQuery) (*SearchResults, error) {
	if q.kinds() != 1 {
		return nil, &client.ValidationError{Msg: "must specify exactly one search type per call"}
	}

	fps, err := s.derive(q)
	if err != nil {
		return nil, err
	}

	var searchResp struct {
		Results []models.SearchHit `json:"results"`
	}
	resp, err := s.client.Request(ctx, "/search",
		map[string]any{"fingerprints": fps},
		client.WithEndpoint(s.client.SearchEndpoint()),
		client.WithTimeout(s.timeout))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if err := resp.JSON(&searchResp); err != nil {
		return nil, err
	}
	hits := searchResp.Results

	slog.Debug("search returned hits", "hits", len(hits), "fingerprints", len(fps))
	if len(hits) == 0 {
		return newSearchResults(nil, nil), nil
	}

	history, err := s.artifactHistory(ctx, distinctArtifacts(hits))
	if err != nil {
		return nil, err
	}
	return newSearchResults(hits, history), nil
}

func (s *SearchService) derive(q SearchQuery) ([]string, error) {
	if q.Fingerprints != nil {
		return q.Fingerprints, nil
	}
	if s.fp == nil {
		return nil, fingerprint.ErrUnavailable
	}
	switch {
	case q.Email != "":
		return s.fp.Email(q.Email)
	case q.Phone != "":
		return s.fp.Phone(q.Phone)
	case q.SSN != "":
		return s.fp.SSN(q.SSN)
	default:
		return s.fp.Tokens([]byte(q.Text), fingerprint.ModeText)
	}
}

// urlVisit is one entry of an artifact's URL history.
type urlVisit struct {
	ts  int64
	url string
}

// artifactHistory fetches the details of ids and returns each artifact's
// URL history sorted ascending by timestamp. The ids are sent in the JSON
// form the index returned them.
func (s *SearchService) artifactHistory(ctx context.Context, ids []json.RawMessage) (map[string][]urlVisit, error) {
	resp, err := s.client.Request(ctx, "/artifact/details", ids,
		client.WithEndpoint(s.client.SearchEndpoint()),
		client.WithTimeout(s.timeout))
	if err != nil {
		return nil, fmt.Errorf("artifact details: %w", err)
	}

	var body struct {
		Status  string                           `json:"status"`
		Message string                           `json:"message"`
		Details map[string]models.ArtifactDetail `json:"details"`
	}
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	if body.Status != "success" {
		return nil, client.NewDomainError(body.Message, "Failed to get artifact details")
	}

	history := make(map[string][]urlVisit, len(body.Details))
	for id, detail := range body.Details {
		visits := make([]urlVisit, 0, len(detail.URL))
		for rawTS, u := range detail.URL {
			ts, err := strconv.ParseInt(rawTS, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("artifact %s: invalid timestamp %q: %w", id, rawTS, err)
			}
			visits = append(visits, urlVisit{ts: ts, url: u})
		}
		slices.SortFunc(visits, func(a, b urlVisit) int {
			return cmp.Or(cmp.Compare(a.ts, b.ts), cmp.Compare(a.url, b.url))
		})
		history[id] = visits
	}
	return history, nil
}

func distinctArtifacts(hits []models.SearchHit) []json.RawMessage {
	seen := make(map[string]struct{}, len(hits))
	ids := make([]json.RawMessage, 0, len(hits))
	for _, h := range hits {
		id := string(h.ArtifactID)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, h.RawArtifactID())
	}
	return ids
}

// SearchResults is a single-pass iterator over the results of one search.
// Every hit is expanded into one result per URL in its artifact's history,
// in hit order. A hit whose artifact has no details yields nothing.
//
//	for res.Next() {
//		r := res.Result()
//	}
type SearchResults struct {
	hits    []models.SearchHit
	history map[string][]urlVisit
	total   int

	hit   int
	visit int
	cur   models.SearchResult
}

func newSearchResults(hits []models.SearchHit, history map[string][]urlVisit) *SearchResults {
	r := &SearchResults{hits: hits, history: history, visit: -1}
	for _, h := range hits {
		r.total += len(history[string(h.ArtifactID)])
	}
	return r
}

// Len returns the total number of results, consumed or not.
func (r *SearchResults) Len() int { return r.total }

// Next advances to the next result and reports whether there is one.
func (r *SearchResults) Next() bool {
	for r.hit < len(r.hits) {
		h := r.hits[r.hit]
		visits := r.history[string(h.ArtifactID)]
		r.visit++
		if r.visit < len(visits) {
			v := visits[r.visit]
			r.cur = models.SearchResult{Score: h.Score, TS: time.Unix(v.ts, 0).UTC(), URL: v.url}
			return true
		}
		r.hit++
		r.visit = -1
	}
	r.cur = models.SearchResult{}
	return false
}

// Result returns the current result. Only valid after Next returned true.
func (r *SearchResults) Result() models.SearchResult { return r.cur }

// All returns an iterator over the remaining results.
func (r *SearchResults) All() iter.Seq[models.SearchResult] {
	return func(yield func(models.SearchResult) bool) {
		for r.Next() {
			if !yield(r.cur) {
				return
			}
		}
	}
}

// Collect drains the remaining results into a slice.
func (r *SearchResults) Collect() []models.SearchResult {
	return slices.Collect(r.All())
}
