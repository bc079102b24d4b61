package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// System attributes shared by every backend
const (
	FieldID        = "$id"
	FieldCreatedAt = "$createdAt"
	FieldUpdatedAt = "$updatedAt"
)

// Store is a hosted document database reduced to the calls the app makes.
// Every call is a single round trip; implementations do not cache or retry.
type Store interface {
	// List returns the documents of a collection matching all queries
	List(ctx context.Context, collection string, queries ...Query) ([]Document, error)

	// Create inserts a document with a generated id
	Create(ctx context.Context, collection string, data map[string]any) (Document, error)

	// Update merges data into an existing document
	Update(ctx context.Context, collection, id string, data map[string]any) (Document, error)

	// Delete removes a document by id
	Delete(ctx context.Context, collection, id string) error
}

// Incrementer is implemented by stores that can find-or-create a document
// and increment one of its numeric fields in a single atomic operation.
type Incrementer interface {
	Increment(ctx context.Context, collection string, match Query, field string, delta int64, defaults map[string]any) (Document, error)
}

// Document is a schemaless record. System attributes use the $ prefix.
type Document map[string]any

// ID returns the document id
func (d Document) ID() string {
	return d.String(FieldID)
}

// CreatedAt returns the creation timestamp, or the zero time when absent
func (d Document) CreatedAt() time.Time {
	switch v := d[FieldCreatedAt].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// String returns the string value of key, or "" when absent
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the integer value of key. JSON numbers decode as float64 and
// are truncated.
func (d Document) Int(key string) int64 {
	switch v := d[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, _ := v.Float64()
			return int64(f)
		}
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

// Float returns the float value of key
func (d Document) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return 0
	}
}

// Decode copies the document into dst using its JSON tags
func (d Document) Decode(dst any) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Clone returns a shallow copy of the document
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
