package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/krisalay/swrcache/api"
	"github.com/krisalay/swrcache/fetch"
	"github.com/krisalay/swrcache/types"
)

/*
Client groups the resource hooks of the dashboard.

Reads go through the cache: each hook returns a view bound to a key.
Writes go straight to the executor; they are never cached and their errors
are returned. Revalidating the affected lists afterwards is the caller's
call, usually through a writepolicy.
*/
type Client struct {
	cache api.Cache
	exec  *fetch.Executor
	opts  types.Options
	log   *logrus.Entry

	Products *Products
	Recipes  *Recipes
	Todos    *Todos
}

// NewClient builds the hooks. A nil log falls back to the standard logger.
func NewClient(c api.Cache, exec *fetch.Executor, opts types.Options, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	cl := &Client{
		cache: c,
		exec:  exec,
		opts:  opts,
		log:   log.WithField("component", "resource"),
	}
	cl.Products = &Products{cl}
	cl.Recipes = &Recipes{cl}
	cl.Todos = &Todos{cl}
	return cl
}

// write validates in, sends it and decodes the response into out.
func (c *Client) write(ctx context.Context, method, path string, in any, out any) error {
	if v, ok := in.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return &ValidationError{Err: err}
		}
	}

	raw, err := c.exec.Do(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("resource: decode %s %s response: %w", method, path, err)
	}
	c.log.WithFields(logrus.Fields{"method": method, "path": path}).Debug("write completed")
	return nil
}

func itemPath(resource string, id int) string {
	return resource + "/" + strconv.Itoa(id)
}

type Products struct{ c *Client }

// List binds a view to one page of products.
func (p *Products) List(ctx context.Context, limit, skip int, onChange func(ListState[Product])) *ListView[Product] {
	v := NewListView[Product](p.c.cache, p.c.opts, ProductsResource, onChange)
	v.Page(ctx, limit, skip)
	return v
}

// ByID binds a view to one product. An empty id fetches nothing.
func (p *Products) ByID(ctx context.Context, id string, onChange func(ItemState[Product])) *ItemView[Product] {
	v := NewItemView[Product](p.c.cache, p.c.opts, ProductsResource, onChange)
	v.SetID(ctx, id)
	return v
}

// Search binds a view to a product search. An empty query fetches nothing.
func (p *Products) Search(ctx context.Context, q string, limit int, onChange func(ListState[Product])) *SearchView[Product] {
	v := NewSearchView[Product](p.c.cache, p.c.opts, ProductsResource, limit, onChange)
	v.SetQuery(ctx, q)
	return v
}

func (p *Products) Categories(ctx context.Context, onChange func(SliceState[Category])) *SliceView[Category] {
	return NewSliceView[Category](ctx, p.c.cache, p.c.opts, CategoriesKey(), onChange)
}

func (p *Products) Add(ctx context.Context, in ProductInput) (Product, error) {
	var out Product
	err := p.c.write(ctx, http.MethodPost, ProductsResource+"/add", in, &out)
	return out, err
}

func (p *Products) Update(ctx context.Context, id int, in ProductInput) (Product, error) {
	var out Product
	err := p.c.write(ctx, http.MethodPut, itemPath(ProductsResource, id), in, &out)
	return out, err
}

func (p *Products) Delete(ctx context.Context, id int) (Product, error) {
	var out Product
	err := p.c.write(ctx, http.MethodDelete, itemPath(ProductsResource, id), nil, &out)
	return out, err
}

type Recipes struct{ c *Client }

func (r *Recipes) List(ctx context.Context, limit, skip int, onChange func(ListState[Recipe])) *ListView[Recipe] {
	v := NewListView[Recipe](r.c.cache, r.c.opts, RecipesResource, onChange)
	v.Page(ctx, limit, skip)
	return v
}

func (r *Recipes) ByID(ctx context.Context, id string, onChange func(ItemState[Recipe])) *ItemView[Recipe] {
	v := NewItemView[Recipe](r.c.cache, r.c.opts, RecipesResource, onChange)
	v.SetID(ctx, id)
	return v
}

func (r *Recipes) Search(ctx context.Context, q string, limit int, onChange func(ListState[Recipe])) *SearchView[Recipe] {
	v := NewSearchView[Recipe](r.c.cache, r.c.opts, RecipesResource, limit, onChange)
	v.SetQuery(ctx, q)
	return v
}

type Todos struct{ c *Client }

func (t *Todos) List(ctx context.Context, limit, skip int, onChange func(ListState[Todo])) *ListView[Todo] {
	v := NewListView[Todo](t.c.cache, t.c.opts, TodosResource, onChange)
	v.Page(ctx, limit, skip)
	return v
}

func (t *Todos) ByID(ctx context.Context, id string, onChange func(ItemState[Todo])) *ItemView[Todo] {
	v := NewItemView[Todo](t.c.cache, t.c.opts, TodosResource, onChange)
	v.SetID(ctx, id)
	return v
}

func (t *Todos) Add(ctx context.Context, in TodoInput) (Todo, error) {
	if in.UserID == 0 {
		in.UserID = 1
	}
	var out Todo
	err := t.c.write(ctx, http.MethodPost, TodosResource+"/add", in, &out)
	return out, err
}

func (t *Todos) Update(ctx context.Context, id int, in TodoUpdate) (Todo, error) {
	var out Todo
	err := t.c.write(ctx, http.MethodPut, itemPath(TodosResource, id), in, &out)
	return out, err
}

func (t *Todos) Delete(ctx context.Context, id int) (Todo, error) {
	var out Todo
	err := t.c.write(ctx, http.MethodDelete, itemPath(TodosResource, id), nil, &out)
	return out, err
}
