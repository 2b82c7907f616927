// package models defines the data model for the media query service
package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is one result row: column name to value.
//
// Values are strings, booleans, nil or nested lists of strings so a Record always encodes as JSON.
type Record map[string]any

// Reply is the single-use reply channel for one [Call].
//
// Implementations deliver the first of Success, Error or NotImplemented and drop the rest.
type Reply interface {
	Success(value any)                       // Success delivers a result value
	Error(code, message string, details any) // Error delivers an error kind with a message
	NotImplemented()                         // NotImplemented reports an unknown method or unsupported capability
}

// Call is one named request with its argument map.
type Call struct {
	ID        string         `json:"id,omitempty"`
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// NewCall creates a Call for method with the given arguments.
func NewCall(method string, args map[string]any) Call {
	if args == nil {
		args = map[string]any{}
	}
	return Call{Method: method, Arguments: args}
}

// Has reports whether key is present with a non-nil value.
func (c Call) Has(key string) bool {
	v, ok := c.Arguments[key]
	return ok && v != nil
}

// String returns the argument under key as a string.
//
// Integral numbers are formatted in base 10 so ids sent as numbers still read as ids.
func (c Call) String(key string) (string, bool) {
	v, ok := c.Arguments[key]
	if !ok || v == nil {
		return "", false
	}
	return stringValue(v)
}

// Int returns the argument under key as an int.
//
// JSON transports decode every number as float64, so integral floats and numeric strings are accepted.
func (c Call) Int(key string) (int, bool) {
	v, ok := c.Arguments[key]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

// StringList returns the argument under key as a list of strings.
//
// Elements that are neither strings nor integral numbers make the whole argument invalid.
func (c Call) StringList(key string) ([]string, bool) {
	v, ok := c.Arguments[key]
	if !ok || v == nil {
		return nil, false
	}

	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := stringValue(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		if s != math.Trunc(s) || s < math.MinInt64 || s >= math.MaxInt64 {
			return "", false
		}
		return strconv.FormatInt(int64(s), 10), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}

// QueryType tells a loader how to interpret a [QuerySpec].
type QueryType int

const (
	QueryDefault    QueryType = iota // selection and args are used as given
	QueryByGenre                     // args[0] is a genre name resolved in a first phase
	QueryByArtist                    // args[0] is an artist name resolved in a first phase
	QueryAlbumSongs                  // album-and-artist scoped song query
)

// QuerySpec is the input of one background store query. It is not modified once built.
type QuerySpec struct {
	Selection string
	Args      []any
	SortOrder string
	Type      QueryType
}
