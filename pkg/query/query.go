// Package query batches measurement requests.
//
// Building a document registers one [Query] per measurement. Many queries
// share a key (the same text in the same style is measured once), so
// [Resolver.Resolve] dispatches every distinct missing key exactly once
// and then invokes every callback, duplicates included, with the value
// for its key. Known values come from a persistent [Index] and, when
// configured, from a shared byte store consulted before the oracle.
package query

import "fmt"

// Measurement methods.
const (
	MethodWidth  = "inkscape-w"
	MethodHeight = "inkscape-h"
	MethodX      = "inkscape-x"
)

// Key identifies a measurement. Values are pure functions of the key.
type Key struct {
	Method  string
	Payload string
}

func (k Key) String() string {
	payload := k.Payload
	if runes := []rune(payload); len(runes) > 60 {
		payload = string(runes[:57]) + "..."
	}
	return fmt.Sprintf("%s(%q)", k.Method, payload)
}

// Query is a measurement request with the callback that consumes its value.
type Query struct {
	Key      Key
	Callback func(float64)
}

// Registry collects queries while a document is being built. It is not
// safe for concurrent use.
type Registry struct {
	queries []Query
}

// Add registers a query.
func (r *Registry) Add(key Key, callback func(float64)) {
	r.queries = append(r.queries, Query{Key: key, Callback: callback})
}

// Queries returns the registered queries in registration order.
func (r *Registry) Queries() []Query { return r.queries }

// Len returns the number of registered queries.
func (r *Registry) Len() int { return len(r.queries) }

// Keys returns the distinct keys in first-registration order.
func (r *Registry) Keys() []Key {
	return distinct(r.queries)
}

// Drain returns the registered queries and empties the registry.
func (r *Registry) Drain() []Query {
	q := r.queries
	r.queries = nil
	return q
}

func distinct(queries []Query) []Key {
	seen := make(map[Key]struct{}, len(queries))
	var keys []Key
	for _, q := range queries {
		if _, ok := seen[q.Key]; ok {
			continue
		}
		seen[q.Key] = struct{}{}
		keys = append(keys, q.Key)
	}
	return keys
}
