// Package store keeps named collections of JSON records. Collections are read
// and written whole; there is no indexing, versioning or locking across
// writers, so the last Set wins.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Record is one element of a collection, kept as raw JSON so the store does
// not need to know the record's schema.
type Record = json.RawMessage

// Store is what the services talk to.
type Store interface {
	Get(ctx context.Context, key string) ([]Record, error)
	Set(ctx context.Context, key string, records []Record) error
}

// Backend is a single storage tier. Read reports found=false when the key
// has never been written, so callers can tell "absent" from "empty".
type Backend interface {
	Name() string
	Read(ctx context.Context, key string) (records []Record, found bool, err error)
	Write(ctx context.Context, key string, records []Record) error
}

// StorageError is returned when no tier could serve the call.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Load reads a collection and decodes every record into T.
func Load[T any](ctx context.Context, s Store, key string) ([]T, error) {
	records, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(records))
	for i, rec := range records {
		var item T
		if err := json.Unmarshal(rec, &item); err != nil {
			return nil, fmt.Errorf("decoding %s[%d]: %w", key, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Save encodes items and replaces the whole collection.
func Save[T any](ctx context.Context, s Store, key string, items []T) error {
	records := make([]Record, 0, len(items))
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding %s[%d]: %w", key, i, err)
		}
		records = append(records, data)
	}
	return s.Set(ctx, key, records)
}

func decodeArray(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func encodeArray(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}
