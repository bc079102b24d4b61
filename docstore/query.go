package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Query methods understood by every backend
const (
	MethodEqual     = "equal"
	MethodOrderDesc = "orderDesc"
	MethodOrderAsc  = "orderAsc"
	MethodLimit     = "limit"
	MethodOffset    = "offset"
)

// Query is one filter, ordering or limit clause
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Equal matches documents whose attribute equals any of values
func Equal(attribute string, values ...any) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// OrderDesc sorts by attribute, largest first
func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

// OrderAsc sorts by attribute, smallest first
func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

// Limit caps the number of returned documents
func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []any{n}}
}

// Offset skips the first n matching documents
func Offset(n int) Query {
	return Query{Method: MethodOffset, Values: []any{n}}
}

// String renders the query in the JSON form used on the wire
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return q.Method
	}
	return string(b)
}

// LimitValue returns the limit carried by a limit query
func (q Query) LimitValue() (int, error) {
	if q.Method != MethodLimit {
		return 0, fmt.Errorf("%w: %s is not a limit", ErrInvalidQuery, q.Method)
	}
	return q.intValue()
}

// OffsetValue returns the count carried by an offset query
func (q Query) OffsetValue() (int, error) {
	if q.Method != MethodOffset {
		return 0, fmt.Errorf("%w: %s is not an offset", ErrInvalidQuery, q.Method)
	}
	return q.intValue()
}

func (q Query) intValue() (int, error) {
	if len(q.Values) != 1 {
		return 0, fmt.Errorf("%w: %s needs exactly one value", ErrInvalidQuery, q.Method)
	}
	switch v := q.Values[0].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s value %v", ErrInvalidQuery, q.Method, v)
	}
}

// Validate checks the query is well formed
func (q Query) Validate() error {
	switch q.Method {
	case MethodEqual:
		if q.Attribute == "" || len(q.Values) == 0 {
			return fmt.Errorf("%w: equal needs an attribute and at least one value", ErrInvalidQuery)
		}
	case MethodOrderAsc, MethodOrderDesc:
		if q.Attribute == "" {
			return fmt.Errorf("%w: %s needs an attribute", ErrInvalidQuery, q.Method)
		}
	case MethodLimit, MethodOffset:
		n, err := q.intValue()
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: negative %s %d", ErrInvalidQuery, q.Method, n)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidQuery, q.Method)
	}
	return nil
}

// Apply evaluates queries against docs in memory. It backs the in-memory
// store and returns a new slice.
func Apply(docs []Document, queries ...Query) ([]Document, error) {
	out := make([]Document, 0, len(docs))
	limit := -1
	offset := 0
	var orders []Query

	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		switch q.Method {
		case MethodLimit:
			limit, _ = q.LimitValue()
		case MethodOffset:
			offset, _ = q.OffsetValue()
		case MethodOrderAsc, MethodOrderDesc:
			orders = append(orders, q)
		}
	}

	for _, doc := range docs {
		if matches(doc, queries) {
			out = append(out, doc)
		}
	}

	if len(orders) > 0 {
		slices.SortStableFunc(out, func(a, b Document) int {
			for _, o := range orders {
				c := compare(a[o.Attribute], b[o.Attribute])
				if o.Method == MethodOrderDesc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if offset >= len(out) {
		out = out[:0]
	} else {
		out = out[offset:]
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(doc Document, queries []Query) bool {
	for _, q := range queries {
		if q.Method != MethodEqual {
			continue
		}
		found := false
		for _, want := range q.Values {
			if compare(doc[q.Attribute], want) == 0 && doc[q.Attribute] != nil {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// compare orders numbers numerically, times chronologically and everything
// else by its string form.
func compare(a, b any) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
