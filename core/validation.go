package core

import (
	"fmt"
	"strings"
)

// ValidFeatureKind reports whether kind names a supported feature descriptor
func ValidFeatureKind(kind FeatureKind) bool {
	switch kind {
	case FeatureColorHistogram, FeatureOpponentHistogram, FeatureEdgeHistogram, FeatureDeep:
		return true
	}
	return false
}

// ValidHashKind reports whether kind names a supported hash algorithm
func ValidHashKind(kind HashKind) bool {
	switch kind {
	case HashBitSampling, HashLSH:
		return true
	}
	return false
}

// ValidateSearchRequest checks if an image search request is valid.
// It rejects malformed requests before any index access happens.
func ValidateSearchRequest(req SearchRequest) error {
	if req.Field == "" {
		return fmt.Errorf("%w: no field", ErrMalformedQuery)
	}

	if req.Feature == "" {
		return ErrNoFeature
	}

	if !ValidFeatureKind(req.Feature) {
		return fmt.Errorf("%w: %s", ErrUnknownFeatureKind, req.Feature)
	}

	if req.Hash != "" && !ValidHashKind(req.Hash) {
		return fmt.Errorf("%w: %s", ErrUnknownHashKind, req.Hash)
	}

	if len(req.Image) > 0 && req.Lookup != nil {
		return fmt.Errorf("%w: image and lookup coordinates are mutually exclusive", ErrMalformedQuery)
	}

	if len(req.Image) == 0 {
		if req.Lookup == nil {
			return fmt.Errorf("%w: neither image nor lookup coordinates supplied", ErrMalformedQuery)
		}
		if req.Lookup.Type == "" || req.Lookup.ID == "" || req.Lookup.Path == "" {
			return fmt.Errorf("%w: incomplete lookup coordinates", ErrMalformedQuery)
		}
	}

	if req.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrMalformedQuery, req.Limit)
	}

	if req.Limit > 0 && req.Hash == "" {
		return fmt.Errorf("%w: limit is only supported together with hash", ErrMalformedQuery)
	}

	if req.Boost < 0 {
		return fmt.Errorf("%w: boost cannot be negative, got %f", ErrMalformedQuery, req.Boost)
	}

	return nil
}

// ValidateDocument checks if a document can be stored
func ValidateDocument(doc Document) error {
	if doc.Index == "" {
		return fmt.Errorf("document index cannot be empty")
	}
	if doc.Type == "" {
		return fmt.Errorf("document type cannot be empty")
	}
	if doc.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(doc.Fields) == 0 {
		return fmt.Errorf("document must contain at least one stored field")
	}
	return nil
}

// ValidateIndexName checks if an index name is usable as a storage key
func ValidateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("index name cannot be empty")
	}

	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("index name cannot contain path separators")
	}

	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("index name cannot start with underscore")
	}

	return nil
}

// ValidateMapping checks if a field mapping is valid
func ValidateMapping(mapping Mapping) error {
	if len(mapping.Fields) == 0 {
		return fmt.Errorf("mapping must declare at least one image field")
	}

	for field, fm := range mapping.Fields {
		if field == "" {
			return fmt.Errorf("mapped field name cannot be empty")
		}
		if len(fm.Features) == 0 {
			return fmt.Errorf("field %s must declare at least one feature", field)
		}
		for _, feat := range fm.Features {
			if !ValidFeatureKind(feat) {
				return fmt.Errorf("field %s: %w: %s", field, ErrUnknownFeatureKind, feat)
			}
		}
		for _, hash := range fm.Hashes {
			if !ValidHashKind(hash) {
				return fmt.Errorf("field %s: %w: %s", field, ErrUnknownHashKind, hash)
			}
		}
	}

	return nil
}
