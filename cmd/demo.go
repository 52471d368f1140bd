package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/krisalay/swrcache/internal/mockapi"
	"github.com/krisalay/swrcache/resource"
)

func demoCmd() *cobra.Command {
	var latency time.Duration
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk through the cache behaviour against a local fake API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), latency)
		},
	}
	cmd.Flags().DurationVar(&latency, "latency", 80*time.Millisecond, "simulated API latency")
	return cmd
}

func section(n int, title string) {
	fmt.Printf("\n==================== %d) %s ====================\n", n, title)
}

func runDemo(ctx context.Context, latency time.Duration) error {
	log := cfg.Logger()
	api := mockapi.New(mockapi.WithLatency(latency), mockapi.WithLogger(logrus.NewEntry(log)))
	srv := api.Serve()
	defer srv.Close()

	section(0, "SYSTEM BOOT")
	a, err := newApp(cfg, srv.URL)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Println("fake API  →", srv.URL)
	fmt.Println("resources →", api.Resources())
	fmt.Printf("cache     → %d shards, capacity %d, %s eviction\n", cfg.Shards, cfg.Capacity, cfg.Eviction)

	// ---------------- first load ----------------
	section(1, "FIRST LOAD (MISS)")
	start := time.Now()
	todos := a.client.Todos.List(ctx, 5, 0, func(st resource.ListState[resource.Todo]) {
		fmt.Printf("VIEW   → loading=%v validating=%v items=%d\n", st.IsLoading, st.IsValidating, len(st.Items))
	})
	st, err := todos.Wait(ctx)
	if err != nil {
		return err
	}
	printTodos(os.Stdout, st)
	fmt.Println("took", time.Since(start).Round(time.Millisecond), "| network calls:", api.TotalCalls())

	// ---------------- hit ----------------
	section(2, "SECOND VIEW OF THE SAME PAGE (HIT)")
	start = time.Now()
	again := a.client.Todos.List(ctx, 5, 0, nil)
	hit := again.State()
	again.Close()
	fmt.Printf("served %d todos in %s, loading=%v | network calls: %d\n",
		len(hit.Items), time.Since(start).Round(time.Microsecond), hit.IsLoading, api.TotalCalls())
	if snap, ok := a.cache.Peek(todos.Key()); ok {
		fmt.Println("data fetched", humanize.Time(snap.LastFetchedAt))
	}

	// ---------------- dedup ----------------
	section(3, "CONCURRENT VIEWS SHARE ONE REQUEST")
	before := api.TotalCalls()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := settled(gctx, a.client.Recipes.List(gctx, 5, 0, nil))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("25 recipe views → %d network call(s)\n", api.TotalCalls()-before)

	// ---------------- conditional ----------------
	section(4, "CONDITIONAL FETCH (NO ID, NO REQUEST)")
	before = api.TotalCalls()
	item := a.client.Products.ByID(ctx, "", nil)
	empty := item.State()
	fmt.Printf("item=%v loading=%v | network calls: %d\n", empty.Item, empty.IsLoading, api.TotalCalls()-before)
	item.SetID(ctx, "3")
	one, err := item.Wait(ctx)
	item.Close()
	if err != nil {
		return err
	}
	if one.Item != nil {
		fmt.Printf("id set → product %d %q | network calls: %d\n", one.Item.ID, one.Item.Title, api.TotalCalls()-before)
	}

	// ---------------- write + revalidate ----------------
	section(5, "WRITE, THEN REVALIDATE THE LIST")
	total := st.Total
	added, err := a.client.Todos.Add(ctx, resource.TodoInput{Todo: "Try the revalidating cache"})
	if err != nil {
		return err
	}
	fmt.Printf("POST   → todo %d created\n", added.ID)
	a.writes.OnWrite(ctx, todos.Key())
	if err := a.settle(ctx); err != nil {
		return err
	}
	st, err = todos.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("total before=%d after=%d\n", total, st.Total)

	// ---------------- stale on error ----------------
	section(6, "FAILED REVALIDATION KEEPS THE DATA")
	api.Fail(http.StatusServiceUnavailable)
	todos.Mutate(ctx)
	st, err = todos.Wait(ctx)
	api.Fail(0)
	if err != nil {
		return err
	}
	fmt.Printf("items still shown: %d | error: %v\n", len(st.Items), st.Err)
	todos.Close()

	// ---------------- eviction ----------------
	section(7, "EVICTION (CAPACITY 2)")
	small := *cfg
	small.Shards, small.Capacity = 1, 2
	tiny, err := newApp(&small, srv.URL)
	if err != nil {
		return err
	}
	for skip := 0; skip < 3; skip++ {
		if _, err := settled(ctx, tiny.client.Products.List(ctx, 5, skip*5, nil)); err != nil {
			tiny.Close()
			return err
		}
	}
	fmt.Printf("3 pages loaded → %d cached, %d evicted\n", tiny.cache.Store().Len(), tiny.cache.Stats().Evictions)
	tiny.Close()

	// ---------------- metrics ----------------
	section(8, "METRICS")
	printStats(os.Stdout, a.cache.Stats(), a.cache.Store().Len())
	fmt.Println("requests served by the fake API:", humanize.Comma(int64(api.TotalCalls())))
	return nil
}
