package types

import (
	"net/url"
	"strings"
)

/*
Key identifies one distinct read request: a resource path plus its query.

Two requests that ask for the same thing MUST produce the same Key, so query
parameters are always encoded in sorted order. The zero Key (NoKey) means
"nothing to fetch": the coordinator never issues a request for it.
*/
type Key struct {
	raw string
}

// NoKey is the absent key. Resolving it never touches the network.
var NoKey = Key{}

// NewKey builds a key from a path relative to the API root and its query.
// Leading and trailing slashes on the path are ignored.
func NewKey(path string, query url.Values) Key {
	path = strings.Trim(path, "/")
	if path == "" {
		return NoKey
	}
	if len(query) == 0 {
		return Key{raw: path}
	}
	// Encode sorts by parameter name.
	return Key{raw: path + "?" + query.Encode()}
}

// IsZero reports whether k is the absent key.
func (k Key) IsZero() bool {
	return k.raw == ""
}

// String returns the request target, e.g. "products?limit=10&skip=0".
func (k Key) String() string {
	return k.raw
}

// Path returns the part before the query.
func (k Key) Path() string {
	if i := strings.IndexByte(k.raw, '?'); i >= 0 {
		return k.raw[:i]
	}
	return k.raw
}

// HasPrefix reports whether the key's path starts with the given resource path.
// HasPrefix("todos") matches "todos", "todos/3" and "todos?limit=10" but not "todoslist".
func (k Key) HasPrefix(resource string) bool {
	resource = strings.Trim(resource, "/")
	p := k.Path()
	if !strings.HasPrefix(p, resource) {
		return false
	}
	return len(p) == len(resource) || p[len(resource)] == '/'
}
