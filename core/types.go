package core

import (
	"time"
)

// FeatureKind identifies an image feature descriptor and its distance function
type FeatureKind string

const (
	FeatureColorHistogram    FeatureKind = "COLORHISTOGRAM"
	FeatureOpponentHistogram FeatureKind = "OPPONENT_HISTOGRAM"
	FeatureEdgeHistogram     FeatureKind = "EDGE_HISTOGRAM"
	FeatureDeep              FeatureKind = "DEEP"
)

// HashKind identifies a hash code generation algorithm
type HashKind string

const (
	HashBitSampling HashKind = "BIT_SAMPLING"
	HashLSH         HashKind = "LSH"
)

// FeatureFieldName returns the indexed field holding the stored byte
// representation of a feature, e.g. "img.COLORHISTOGRAM"
func FeatureFieldName(baseField string, kind FeatureKind) string {
	return baseField + "." + string(kind)
}

// HashFieldName returns the indexed field holding hash code terms for a
// feature field, e.g. "img.COLORHISTOGRAM.hash.BIT_SAMPLING"
func HashFieldName(featureField string, kind HashKind) string {
	return featureField + ".hash." + string(kind)
}

// LookupRef addresses a previously stored feature by document coordinates
type LookupRef struct {
	Index   string `json:"index"`
	Type    string `json:"type"`
	ID      string `json:"id"`
	Path    string `json:"path"`
	Routing string `json:"routing,omitempty"`
}

// SearchRequest is the validated parameter set for one image query
type SearchRequest struct {
	Field   string      `json:"field"`
	Feature FeatureKind `json:"feature"`
	Image   []byte      `json:"image,omitempty"`
	Hash    HashKind    `json:"hash,omitempty"`
	Boost   float64     `json:"boost"`
	Limit   int         `json:"limit,omitempty"`
	Size    int         `json:"size"`
	Lookup  *LookupRef  `json:"lookup,omitempty"`
}

// SearchResult represents a single search result
type SearchResult struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"` // Similarity score - higher values indicate higher similarity
}

// IndexInfo represents a named image index with its field mapping
type IndexInfo struct {
	Name      string    `json:"name"`
	Mapping   Mapping   `json:"mapping"`
	CreatedAt time.Time `json:"created_at"`
}

// Mapping declares which document fields hold images and how they are indexed
type Mapping struct {
	Fields map[string]FieldMapping `json:"fields" yaml:"fields"`
}

// FieldMapping configures feature extraction and hashing for one image field
type FieldMapping struct {
	Features []FeatureKind `json:"features" yaml:"features"`
	Hashes   []HashKind    `json:"hashes,omitempty" yaml:"hashes,omitempty"`
}
