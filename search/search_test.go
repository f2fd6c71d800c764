package search

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/pawel-madurski/elasticsearch-image/core"
	"github.com/pawel-madurski/elasticsearch-image/feature"
	"github.com/pawel-madurski/elasticsearch-image/hashing"
	"github.com/pawel-madurski/elasticsearch-image/index"
)

const (
	testFeatureField = "img.DEEP"
	testHashField    = "img.DEEP.hash.LSH"
)

// encodeVec builds the stored byte representation of a feature vector
func encodeVec(t *testing.T, vector []float64) []byte {
	t.Helper()

	buf := make([]byte, 4+4*len(vector))
	binary.BigEndian.PutUint32(buf, uint32(len(vector)))
	for i, v := range vector {
		binary.BigEndian.PutUint32(buf[4+4*i:], math.Float32bits(float32(v)))
	}
	return buf
}

func makeFeature(t *testing.T, vector []float64) feature.Feature {
	t.Helper()

	f, err := feature.Decode(core.FeatureDeep, encodeVec(t, vector))
	if err != nil {
		t.Fatalf("decode test feature: %v", err)
	}
	return f
}

// queryTerms returns the decimal hash terms the composer will derive for a
// query vector
func queryTerms(t *testing.T, vector []float64) []string {
	t.Helper()

	codes, err := hashing.Codes(core.HashLSH, vector)
	if err != nil {
		t.Fatalf("hash query vector: %v", err)
	}

	terms := make([]string, len(codes))
	for i, code := range codes {
		terms[i] = strconv.FormatInt(int64(code), 10)
	}
	return terms
}

// addDoc indexes a document under the given hash terms
func addDoc(t *testing.T, ix *index.Index, id string, vector []float64, terms []string) {
	t.Helper()

	doc := index.Document{
		ID:     id,
		Stored: map[string][]byte{testFeatureField: encodeVec(t, vector)},
	}
	if terms != nil {
		doc.Terms = map[string][]string{testHashField: terms}
	}

	if err := ix.Add(doc); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		distance, want float64
	}{
		{0, 2},
		{0.5, 1.5},
		{1, 1},
		{2, 0.5},
		{4, 0.25},
	}

	for _, tc := range cases {
		if got := Similarity(tc.distance); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("Similarity(%f) = %f, want %f", tc.distance, got, tc.want)
		}
	}
}

func TestComposeNoQueryFeature(t *testing.T) {
	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}

	if _, err := Compose(req, nil, ScoreModeSingle); !errors.Is(err, core.ErrNoQueryFeature) {
		t.Errorf("expected ErrNoQueryFeature for nil feature, got %v", err)
	}

	if _, err := Compose(req, &emptyFeature{}, ScoreModeSingle); !errors.Is(err, core.ErrNoQueryFeature) {
		t.Errorf("expected ErrNoQueryFeature for empty feature, got %v", err)
	}
}

// emptyFeature is a feature with no vector at all
type emptyFeature struct {
	feature.Feature
}

func (emptyFeature) Vector() []float64 { return nil }

func TestExhaustiveSearch(t *testing.T) {
	ix := index.New(0)
	queryVec := []float64{1, 0, 0}

	addDoc(t, ix, "exact", []float64{1, 0, 0}, nil)
	addDoc(t, ix, "close", []float64{1, 1, 0}, nil)
	addDoc(t, ix, "orthogonal", []float64{0, 1, 0}, nil)
	addDoc(t, ix, "opposite", []float64{-1, 0, 0}, nil)

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}
	q, err := Compose(req, makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if !q.Exhaustive() {
		t.Fatal("query without hash should be exhaustive")
	}

	results, err := NewSearcher(ix).Search(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("exhaustive search should score every stored document, got %d", len(results))
	}

	// Cosine distances 0, 1-1/sqrt(2), 1, 2 map to these scores
	wantOrder := []string{"exact", "close", "orthogonal", "opposite"}
	wantScores := []float64{2, 1 + 1/math.Sqrt2, 1, 0.5}

	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("rank %d: got %s, want %s", i, results[i].ID, want)
		}
		if math.Abs(results[i].Score-wantScores[i]) > 1e-6 {
			t.Errorf("rank %d: score %f, want %f", i, results[i].Score, wantScores[i])
		}
	}
}

func TestHashedMatchesExhaustiveAtFullRecall(t *testing.T) {
	queryVec := []float64{0.5, 0.25, 0.75}
	terms := queryTerms(t, queryVec)

	vectors := map[string][]float64{
		"a": {0.5, 0.25, 0.75},
		"b": {0.7, 0.1, 0.4},
		"c": {0.1, 0.9, 0.2},
	}

	hashed := index.New(0)
	plain := index.New(0)
	// Index every document under every query term so hashed retrieval
	// sees the full candidate set
	for id, vec := range vectors {
		addDoc(t, hashed, id, vec, terms)
		addDoc(t, plain, id, vec, nil)
	}

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep, Hash: core.HashLSH}
	hq, err := Compose(req, makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if hq.Exhaustive() {
		t.Fatal("hashed query should not be exhaustive")
	}

	eq, err := Compose(core.SearchRequest{Field: "img", Feature: core.FeatureDeep},
		makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	hashedResults, err := NewSearcher(hashed).Search(context.Background(), hq, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	plainResults, err := NewSearcher(plain).Search(context.Background(), eq, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(hashedResults) != len(plainResults) {
		t.Fatalf("result counts differ: %d != %d", len(hashedResults), len(plainResults))
	}

	for i := range hashedResults {
		if hashedResults[i].ID != plainResults[i].ID {
			t.Errorf("rank %d: %s != %s", i, hashedResults[i].ID, plainResults[i].ID)
		}
		if math.Abs(hashedResults[i].Score-plainResults[i].Score) > 1e-12 {
			t.Errorf("rank %d: scores differ: %v != %v",
				i, hashedResults[i].Score, plainResults[i].Score)
		}
	}
}

func TestMultiBucketScoreModes(t *testing.T) {
	queryVec := []float64{1, 0, 0}
	terms := queryTerms(t, queryVec)
	numTerms := len(terms)

	buildIndex := func() *index.Index {
		ix := index.New(0)
		addDoc(t, ix, "doc", []float64{1, 0, 0}, terms)
		return ix
	}

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep, Hash: core.HashLSH}

	single, err := Compose(req, makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	results, err := NewSearcher(buildIndex()).Search(context.Background(), single, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	// Matching every bucket still yields the canonical score once
	if math.Abs(results[0].Score-2) > 1e-12 {
		t.Errorf("single mode score = %f, want 2", results[0].Score)
	}

	sum, err := Compose(req, makeFeature(t, queryVec), ScoreModeSum)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	results, err = NewSearcher(buildIndex()).Search(context.Background(), sum, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if math.Abs(results[0].Score-2*float64(numTerms)) > 1e-9 {
		t.Errorf("sum mode score = %f, want %f", results[0].Score, 2*float64(numTerms))
	}
}

func TestBoostScalesScores(t *testing.T) {
	ix := index.New(0)
	addDoc(t, ix, "a", []float64{1, 1, 0}, nil)

	base := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}
	boosted := base
	boosted.Boost = 3

	bq, err := Compose(base, makeFeature(t, []float64{1, 0, 0}), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	xq, err := Compose(boosted, makeFeature(t, []float64{1, 0, 0}), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	searcher := NewSearcher(ix)
	plain, err := searcher.Search(context.Background(), bq, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	scaled, err := searcher.Search(context.Background(), xq, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if math.Abs(scaled[0].Score-3*plain[0].Score) > 1e-12 {
		t.Errorf("boost 3 should triple the score: %f vs %f", scaled[0].Score, plain[0].Score)
	}
}

func TestLimitCapsScoredDocuments(t *testing.T) {
	queryVec := []float64{1, 0, 0}
	terms := queryTerms(t, queryVec)

	ix := index.New(0)
	addDoc(t, ix, "first", []float64{1, 0, 0}, terms)
	addDoc(t, ix, "second", []float64{0, 1, 0}, terms)
	addDoc(t, ix, "third", []float64{0, 0, 1}, terms)

	req := core.SearchRequest{
		Field:   "img",
		Feature: core.FeatureDeep,
		Hash:    core.HashLSH,
		Limit:   1,
	}

	q, err := Compose(req, makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	results, err := NewSearcher(ix).Search(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	// Only one document is admitted; cached hits in later buckets reuse
	// it rather than consuming new slots
	if len(results) != 1 {
		t.Fatalf("limit 1 should admit exactly one document, got %d", len(results))
	}
	if results[0].ID != "first" {
		t.Errorf("admission follows index order, got %s", results[0].ID)
	}
}

func TestDeletedDocumentsSkipped(t *testing.T) {
	queryVec := []float64{1, 0, 0}
	terms := queryTerms(t, queryVec)

	ix := index.New(0)
	addDoc(t, ix, "keep", []float64{1, 0, 0}, terms)
	addDoc(t, ix, "drop", []float64{1, 0.1, 0}, terms)
	ix.Delete("drop")

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep, Hash: core.HashLSH}
	q, err := Compose(req, makeFeature(t, queryVec), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	results, err := NewSearcher(ix).Search(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 || results[0].ID != "keep" {
		t.Errorf("tombstoned document should not match: %v", results)
	}
}

func TestUndecodableStoredFeatureIgnored(t *testing.T) {
	ix := index.New(0)
	addDoc(t, ix, "good", []float64{1, 0, 0}, nil)

	// A document whose stored bytes are garbage must not abort the query
	if err := ix.Add(index.Document{
		ID:     "poisoned",
		Stored: map[string][]byte{testFeatureField: []byte("junk")},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}
	q, err := Compose(req, makeFeature(t, []float64{1, 0, 0}), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	results, err := NewSearcher(ix).Search(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 || results[0].ID != "good" {
		t.Errorf("poisoned document should be a silent non-match: %v", results)
	}
}

func TestSearchSizeTruncation(t *testing.T) {
	ix := index.New(0)
	addDoc(t, ix, "a", []float64{1, 0, 0}, nil)
	addDoc(t, ix, "b", []float64{1, 1, 0}, nil)
	addDoc(t, ix, "c", []float64{0, 1, 0}, nil)

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}
	q, err := Compose(req, makeFeature(t, []float64{1, 0, 0}), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	results, err := NewSearcher(ix).Search(context.Background(), q, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("unexpected top results: %v", results)
	}
}

func TestSearchCanceledContext(t *testing.T) {
	ix := index.New(0)
	addDoc(t, ix, "a", []float64{1, 0, 0}, nil)

	req := core.SearchRequest{Field: "img", Feature: core.FeatureDeep}
	q, err := Compose(req, makeFeature(t, []float64{1, 0, 0}), ScoreModeSingle)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewSearcher(ix).Search(ctx, q, 0); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestScoreCache(t *testing.T) {
	cache := NewScoreCache()

	if _, ok := cache.Get(3); ok {
		t.Error("empty cache should miss")
	}

	cache.Put(3, 1.5)
	score, ok := cache.Get(3)
	if !ok || score != 1.5 {
		t.Errorf("cache round-trip failed: %v %v", score, ok)
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", cache.Len())
	}
}

func TestAdmission(t *testing.T) {
	a := newAdmission(2)

	if !a.tryAdmit() || !a.tryAdmit() {
		t.Fatal("first admissions within the cap should succeed")
	}
	if a.tryAdmit() {
		t.Error("admission above the cap should fail")
	}

	a.release()
	if !a.tryAdmit() {
		t.Error("released slot should be reusable")
	}
}
