// Package mockapi is an in-process stand-in for the dummyjson REST API.
//
// It serves products, recipes and todos with the same routes and response
// shapes, counts every request and lets tests slow, hold or fail them.
// Unlike the public API, writes are persisted so a refetch sees them.
package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// API is the fake server. The zero value is not usable; call New.
type API struct {
	app *fiber.App
	log *logrus.Entry

	mu      sync.Mutex
	data    map[string][]record
	calls   map[string]int
	total   int
	latency time.Duration
	failure int
	gate    chan struct{}
}

type Option func(*API)

func WithProducts(n int) Option { return func(a *API) { a.data["products"] = seedProducts(n) } }
func WithRecipes(n int) Option  { return func(a *API) { a.data["recipes"] = seedRecipes(n) } }
func WithTodos(n int) Option    { return func(a *API) { a.data["todos"] = seedTodos(n) } }

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option { return func(a *API) { a.latency = d } }

func WithLogger(log *logrus.Entry) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

func New(opts ...Option) *API {
	a := &API{
		log: logrus.NewEntry(logrus.StandardLogger()),
		data: map[string][]record{
			"products": seedProducts(DefaultProducts),
			"recipes":  seedRecipes(DefaultRecipes),
			"todos":    seedTodos(DefaultTodos),
		},
		calls: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("component", "mockapi")

	a.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"message": err.Error()})
		},
	})
	a.app.Use(a.intercept)
	a.routes(a.app)
	return a
}

func (a *API) routes(app fiber.Router) {
	app.Get("/products/categories", a.categories)
	app.Get("/:resource/search", a.search)
	app.Get("/:resource", a.list)
	app.Get("/:resource/:id", a.get)
	app.Post("/:resource/add", a.add)
	app.Put("/:resource/:id", a.update)
	app.Patch("/:resource/:id", a.update)
	app.Delete("/:resource/:id", a.remove)
}

// Handler exposes the app as a net/http handler.
func (a *API) Handler() http.Handler {
	return adaptor.FiberApp(a.app)
}

// Serve starts a local HTTP server. Callers close it.
func (a *API) Serve() *httptest.Server {
	return httptest.NewServer(a.Handler())
}

// Calls returns how many requests matched method and uri, where uri is the
// path and query without the leading slash, e.g. "todos?limit=10&skip=0".
func (a *API) Calls(method, uri string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[method+" "+strings.TrimPrefix(uri, "/")]
}

// TotalCalls returns the number of requests served so far.
func (a *API) TotalCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Hold makes new requests block until Release.
func (a *API) Hold() {
	a.mu.Lock()
	if a.gate == nil {
		a.gate = make(chan struct{})
	}
	a.mu.Unlock()
}

func (a *API) Release() {
	a.mu.Lock()
	if a.gate != nil {
		close(a.gate)
		a.gate = nil
	}
	a.mu.Unlock()
}

// Fail answers every request with status until Fail(0).
func (a *API) Fail(status int) {
	a.mu.Lock()
	a.failure = status
	a.mu.Unlock()
}

func (a *API) SetLatency(d time.Duration) {
	a.mu.Lock()
	a.latency = d
	a.mu.Unlock()
}

// Len returns the number of records of a resource.
func (a *API) Len(resource string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.data[resource])
}

func (a *API) intercept(c *fiber.Ctx) error {
	reqID := c.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	c.Set(requestIDHeader, reqID)

	a.mu.Lock()
	a.calls[c.Method()+" "+strings.TrimPrefix(c.OriginalURL(), "/")]++
	a.total++
	gate, latency, failure := a.gate, a.latency, a.failure
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"method":     c.Method(),
		"url":        c.OriginalURL(),
		"request_id": reqID,
	}).Debug("request")

	if gate != nil {
		<-gate
	}
	if latency > 0 {
		time.Sleep(latency)
	}
	if failure != 0 {
		return fiber.NewError(failure, http.StatusText(failure))
	}
	return c.Next()
}

func singular(resource string) string {
	s := strings.TrimSuffix(resource, "s")
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *API) collection(c *fiber.Ctx) (string, error) {
	res := c.Params("resource")
	a.mu.Lock()
	_, ok := a.data[res]
	a.mu.Unlock()
	if !ok {
		return "", fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("resource %q not found", res))
	}
	return res, nil
}

func (a *API) page(c *fiber.Ctx, res string, items []record) error {
	total := len(items)
	limit := c.QueryInt("limit", 30)
	skip := c.QueryInt("skip", 0)
	if skip < 0 {
		skip = 0
	}
	if skip > total {
		skip = total
	}
	end := total
	if limit > 0 && skip+limit < total {
		end = skip + limit
	}
	out := items[skip:end]
	return c.JSON(fiber.Map{
		res:     out,
		"total": total,
		"skip":  skip,
		"limit": len(out),
	})
}

func (a *API) snapshot(res string) []record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]record(nil), a.data[res]...)
}

func (a *API) list(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}
	return a.page(c, res, a.snapshot(res))
}

func (a *API) search(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	var hits []record
	for _, r := range a.snapshot(res) {
		for _, field := range []string{"title", "name", "todo", "description"} {
			if s, ok := r[field].(string); ok && strings.Contains(strings.ToLower(s), q) {
				hits = append(hits, r)
				break
			}
		}
	}
	if hits == nil {
		hits = []record{}
	}
	return a.page(c, res, hits)
}

func (a *API) categories(c *fiber.Ctx) error {
	return c.JSON(categoryList())
}

func (a *API) find(c *fiber.Ctx, res string) (int, int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return 0, -1, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid %s id '%s'", strings.ToLower(singular(res)), c.Params("id")))
	}
	for i, r := range a.data[res] {
		if r["id"] == id {
			return id, i, nil
		}
	}
	return id, -1, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("%s with id '%d' not found", singular(res), id))
}

func (a *API) get(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}
	a.mu.Lock()
	_, i, err := a.find(c, res)
	var r record
	if err == nil {
		r = a.data[res][i]
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (a *API) add(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}
	var in record
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	a.mu.Lock()
	next := 1
	for _, r := range a.data[res] {
		if id, _ := r["id"].(int); id >= next {
			next = id + 1
		}
	}
	in["id"] = next
	a.data[res] = append(a.data[res], in)
	a.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(in)
}

func (a *API) update(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}
	var in record
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	a.mu.Lock()
	id, i, err := a.find(c, res)
	var out record
	if err == nil {
		out = make(record, len(a.data[res][i])+len(in))
		for k, v := range a.data[res][i] {
			out[k] = v
		}
		for k, v := range in {
			out[k] = v
		}
		out["id"] = id
		a.data[res][i] = out
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (a *API) remove(c *fiber.Ctx) error {
	res, err := a.collection(c)
	if err != nil {
		return err
	}

	a.mu.Lock()
	_, i, err := a.find(c, res)
	var out record
	if err == nil {
		out = make(record, len(a.data[res][i])+2)
		for k, v := range a.data[res][i] {
			out[k] = v
		}
		a.data[res] = append(a.data[res][:i:i], a.data[res][i+1:]...)
	}
	a.mu.Unlock()
	if err != nil {
		return err
	}

	out["isDeleted"] = true
	out["deletedOn"] = time.Now().UTC().Format(time.RFC3339)
	return c.JSON(out)
}

// Resources lists the served collections in name order.
func (a *API) Resources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.data))
	for k := range a.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
