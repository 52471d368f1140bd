package resource

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/krisalay/swrcache/types"
)

const (
	ProductsResource = "products"
	RecipesResource  = "recipes"
	TodosResource    = "todos"

	// DefaultLimit is the page size used when none is given.
	DefaultLimit = 10
)

// ListKey identifies one page of a collection. A non-positive limit means
// DefaultLimit; a negative skip means 0.
func ListKey(resource string, limit, skip int) types.Key {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if skip < 0 {
		skip = 0
	}
	return types.NewKey(resource, url.Values{
		"limit": {strconv.Itoa(limit)},
		"skip":  {strconv.Itoa(skip)},
	})
}

// ItemKey identifies one record. An empty id yields NoKey: nothing is fetched.
func ItemKey(resource, id string) types.Key {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.NoKey
	}
	return types.NewKey(resource+"/"+url.PathEscape(id), nil)
}

// SearchKey identifies a search. An empty query yields NoKey.
func SearchKey(resource, q string, limit int) types.Key {
	q = strings.TrimSpace(q)
	if q == "" {
		return types.NoKey
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return types.NewKey(resource+"/search", url.Values{
		"q":     {q},
		"limit": {strconv.Itoa(limit)},
	})
}

func CategoriesKey() types.Key {
	return types.NewKey(ProductsResource+"/categories", nil)
}
