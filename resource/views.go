package resource

import (
	"context"
	"sync"

	cache "github.com/krisalay/swrcache"
	"github.com/krisalay/swrcache/api"
	"github.com/krisalay/swrcache/types"
)

/*
Views are the typed face of a cache.Subscription.

A view binds one key at a time, decodes every snapshot of that key and hands
the typed state to its onChange callback. Changing the page, id or query
rebinds the view; results for the previous key never reach the callback.
*/

// ListState is a page of a collection as a list screen sees it.
type ListState[T any] struct {
	Items []T
	Total int
	Skip  int
	Limit int

	IsLoading    bool
	IsValidating bool
	Err          error
	Shape        Shape
}

// ItemState is one record. Item is nil until loaded, for NoKey and for null.
type ItemState[T any] struct {
	Item *T

	IsLoading    bool
	IsValidating bool
	Err          error
	Shape        Shape
}

// SliceState is a bare list such as categories.
type SliceState[T any] struct {
	Items []T

	IsLoading    bool
	IsValidating bool
	Err          error
	Shape        Shape
}

func listState[T any](snap types.Snapshot, field string, limit, skip int) ListState[T] {
	page := DecodePage[T](snap.Data, field)
	st := ListState[T]{
		Items:        page.Value.Items,
		Total:        page.Value.Total,
		Skip:         page.Value.Skip,
		Limit:        page.Value.Limit,
		IsLoading:    snap.IsLoading,
		IsValidating: snap.IsValidating,
		Err:          snap.Err,
		Shape:        page.Shape,
	}
	if page.Missing || (st.Limit == 0 && st.Skip == 0) {
		st.Limit, st.Skip = limit, skip
	}
	return st
}

func itemState[T any](snap types.Snapshot) ItemState[T] {
	item := DecodeItem[T](snap.Data)
	return ItemState[T]{
		Item:         item.Value,
		IsLoading:    snap.IsLoading,
		IsValidating: snap.IsValidating,
		Err:          snap.Err,
		Shape:        item.Shape,
	}
}

func sliceState[T any](snap types.Snapshot) SliceState[T] {
	items := DecodeSlice[T](snap.Data)
	return SliceState[T]{
		Items:        items.Value,
		IsLoading:    snap.IsLoading,
		IsValidating: snap.IsValidating,
		Err:          snap.Err,
		Shape:        items.Shape,
	}
}

// view is what every typed view shares.
type view struct {
	sub *cache.Subscription
}

func (v *view) Key() types.Key { return v.sub.Key() }

// Mutate revalidates the bound key; the current data stays visible meanwhile.
func (v *view) Mutate(ctx context.Context) { v.sub.Mutate(ctx) }

func (v *view) Close() { v.sub.Close() }

// ListView follows one page of a collection.
type ListView[T any] struct {
	view
	resource string

	mu          sync.Mutex
	limit, skip int
}

func NewListView[T any](c api.Cache, opts types.Options, resource string, onChange func(ListState[T])) *ListView[T] {
	v := &ListView[T]{resource: resource, limit: DefaultLimit}
	v.sub = cache.NewSubscription(c, opts, func(snap types.Snapshot) {
		if onChange != nil {
			limit, skip := v.paging()
			onChange(listState[T](snap, resource, limit, skip))
		}
	})
	return v
}

func (v *ListView[T]) paging() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.limit, v.skip
}

// Page moves the view to another page and returns its state.
func (v *ListView[T]) Page(ctx context.Context, limit, skip int) ListState[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if skip < 0 {
		skip = 0
	}
	v.mu.Lock()
	v.limit, v.skip = limit, skip
	v.mu.Unlock()

	snap := v.sub.Bind(ctx, ListKey(v.resource, limit, skip))
	return listState[T](snap, v.resource, limit, skip)
}

func (v *ListView[T]) State() ListState[T] {
	limit, skip := v.paging()
	return listState[T](v.sub.Snapshot(), v.resource, limit, skip)
}

// Wait blocks until the current page has no fetch in flight.
func (v *ListView[T]) Wait(ctx context.Context) (ListState[T], error) {
	_, err := v.sub.Wait(ctx)
	return v.State(), err
}

// ItemView follows one record by id.
type ItemView[T any] struct {
	view
	resource string
}

func NewItemView[T any](c api.Cache, opts types.Options, resource string, onChange func(ItemState[T])) *ItemView[T] {
	v := &ItemView[T]{resource: resource}
	v.sub = cache.NewSubscription(c, opts, func(snap types.Snapshot) {
		if onChange != nil {
			onChange(itemState[T](snap))
		}
	})
	return v
}

// SetID binds the view to id. An empty id unbinds it without a request.
func (v *ItemView[T]) SetID(ctx context.Context, id string) ItemState[T] {
	return itemState[T](v.sub.Bind(ctx, ItemKey(v.resource, id)))
}

func (v *ItemView[T]) State() ItemState[T] {
	return itemState[T](v.sub.Snapshot())
}

func (v *ItemView[T]) Wait(ctx context.Context) (ItemState[T], error) {
	_, err := v.sub.Wait(ctx)
	return v.State(), err
}

// SearchView follows the results of a query.
type SearchView[T any] struct {
	view
	resource string
	limit    int
}

func NewSearchView[T any](c api.Cache, opts types.Options, resource string, limit int, onChange func(ListState[T])) *SearchView[T] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	v := &SearchView[T]{resource: resource, limit: limit}
	v.sub = cache.NewSubscription(c, opts, func(snap types.Snapshot) {
		if onChange != nil {
			onChange(listState[T](snap, resource, limit, 0))
		}
	})
	return v
}

// SetQuery binds the view to q. An empty query unbinds it without a request.
func (v *SearchView[T]) SetQuery(ctx context.Context, q string) ListState[T] {
	snap := v.sub.Bind(ctx, SearchKey(v.resource, q, v.limit))
	return listState[T](snap, v.resource, v.limit, 0)
}

func (v *SearchView[T]) State() ListState[T] {
	return listState[T](v.sub.Snapshot(), v.resource, v.limit, 0)
}

func (v *SearchView[T]) Wait(ctx context.Context) (ListState[T], error) {
	_, err := v.sub.Wait(ctx)
	return v.State(), err
}

// SliceView follows a fixed key whose body is a bare array.
type SliceView[T any] struct {
	view
}

func NewSliceView[T any](ctx context.Context, c api.Cache, opts types.Options, key types.Key, onChange func(SliceState[T])) *SliceView[T] {
	v := &SliceView[T]{}
	v.sub = cache.NewSubscription(c, opts, func(snap types.Snapshot) {
		if onChange != nil {
			onChange(sliceState[T](snap))
		}
	})
	v.sub.Bind(ctx, key)
	return v
}

func (v *SliceView[T]) State() SliceState[T] {
	return sliceState[T](v.sub.Snapshot())
}

func (v *SliceView[T]) Wait(ctx context.Context) (SliceState[T], error) {
	_, err := v.sub.Wait(ctx)
	return v.State(), err
}
