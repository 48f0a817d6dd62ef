// Package docstore abstracts the document database the cart/order core
// persists into. Consumers see collections of JSON documents addressed
// by id; the concrete backend is an implementation detail.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("document not found")

// Document is one decoded JSON object. Values follow encoding/json
// conventions: numbers are float64, nested objects map[string]any.
type Document map[string]any

// Filter is a single field predicate. Supported ops: "==", "!=",
// "<", "<=", ">", ">=".
type Filter struct {
	Field string
	Op    string
	Value any
}

type QueryOptions struct {
	// OrderBy names a top-level field to sort on; empty means store
	// order.
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the adapter contract the managers are written against.
// Update has shallow-merge semantics; Delete of a missing id is not an
// error.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, patch Document) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, filters []Filter, opts QueryOptions) ([]Document, error)
}

// Encode converts a model struct into a Document through its JSON
// representation.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills a model struct from a Document.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
