package core

import "errors"

// Common errors
var (
	ErrNoFeature          = errors.New("no feature specified for image query")
	ErrNoQueryFeature     = errors.New("no feature found for image query")
	ErrUnknownFeatureKind = errors.New("unknown feature kind")
	ErrUnknownHashKind    = errors.New("unknown hash kind")
	ErrImageProcess       = errors.New("failed to process image")
	ErrIndexNotFound      = errors.New("index not found")
	ErrIndexExists        = errors.New("index already exists")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrFieldNotFound      = errors.New("field not found")
	ErrMalformedQuery     = errors.New("image query malformed")
)
