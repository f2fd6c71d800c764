package api

import (
	"encoding/json"
	"fmt"

	"github.com/pawel-madurski/elasticsearch-image/core"
)

// parseImageQuery turns the JSON query clause into a validated parameter
// set. Expected shape:
//
//	{"image": {"<field>": {"feature": ..., "image": ..., "hash": ...,
//	                       "boost": ..., "limit": ..., "index": ...,
//	                       "type": ..., "id": ..., "path": ...,
//	                       "routing": ...}}}
//
// Unknown parameters are rejected.
func parseImageQuery(raw json.RawMessage) (core.SearchRequest, error) {
	if len(raw) == 0 {
		return core.SearchRequest{}, fmt.Errorf("%w: no query", core.ErrMalformedQuery)
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return core.SearchRequest{}, fmt.Errorf("%w: %v", core.ErrMalformedQuery, err)
	}

	imageClause, ok := outer["image"]
	if !ok || len(outer) != 1 {
		return core.SearchRequest{}, fmt.Errorf("%w: expected a single [image] clause", core.ErrMalformedQuery)
	}

	var byField map[string]json.RawMessage
	if err := json.Unmarshal(imageClause, &byField); err != nil {
		return core.SearchRequest{}, fmt.Errorf("%w: %v", core.ErrMalformedQuery, err)
	}

	if len(byField) != 1 {
		return core.SearchRequest{}, fmt.Errorf("%w: no field", core.ErrMalformedQuery)
	}

	var req core.SearchRequest
	for field, params := range byField {
		req.Field = field

		parsed, err := parseImageQueryParams(params)
		if err != nil {
			return core.SearchRequest{}, err
		}

		parsed.Field = field
		req = parsed
	}

	return req, nil
}

func parseImageQueryParams(raw json.RawMessage) (core.SearchRequest, error) {
	var params map[string]json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return core.SearchRequest{}, fmt.Errorf("%w: %v", core.ErrMalformedQuery, err)
	}

	req := core.SearchRequest{Boost: 1.0}
	lookup := core.LookupRef{}
	hasLookup := false

	for name, value := range params {
		var err error

		switch name {
		case "feature":
			var v string
			err = json.Unmarshal(value, &v)
			req.Feature = core.FeatureKind(v)
		case "image":
			err = json.Unmarshal(value, &req.Image)
		case "hash":
			var v string
			err = json.Unmarshal(value, &v)
			req.Hash = core.HashKind(v)
		case "boost":
			err = json.Unmarshal(value, &req.Boost)
		case "limit":
			err = json.Unmarshal(value, &req.Limit)
		case "index":
			err = json.Unmarshal(value, &lookup.Index)
			hasLookup = true
		case "type":
			err = json.Unmarshal(value, &lookup.Type)
			hasLookup = true
		case "id":
			err = json.Unmarshal(value, &lookup.ID)
			hasLookup = true
		case "path":
			err = json.Unmarshal(value, &lookup.Path)
			hasLookup = true
		case "routing":
			err = json.Unmarshal(value, &lookup.Routing)
			hasLookup = true
		default:
			return core.SearchRequest{}, fmt.Errorf("%w: query does not support [%s]", core.ErrMalformedQuery, name)
		}

		if err != nil {
			return core.SearchRequest{}, fmt.Errorf("%w: invalid [%s]: %v", core.ErrMalformedQuery, name, err)
		}
	}

	if hasLookup {
		req.Lookup = &lookup
	}

	return req, nil
}
