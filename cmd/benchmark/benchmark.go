package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/swrcache"
	"github.com/krisalay/swrcache/engine"
	"github.com/krisalay/swrcache/eviction"
	"github.com/krisalay/swrcache/expiration"
	"github.com/krisalay/swrcache/fetch"
	"github.com/krisalay/swrcache/internal/mockapi"
	"github.com/krisalay/swrcache/resource"
	"github.com/krisalay/swrcache/types"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	// ---------------- Config ----------------
	const (
		shards     = 8
		capacity   = 4096
		pages      = 50
		goroutines = 200
		viewsPerG  = 500
		latency    = 20 * time.Millisecond
		staleAfter = 250 * time.Millisecond
	)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	fmt.Println("\n================ SWR CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards        :", shards)
	fmt.Println("Capacity      :", capacity)
	fmt.Println("Distinct Pages:", pages)
	fmt.Println("Goroutines    :", goroutines)
	fmt.Println("Views/G       :", viewsPerG)
	fmt.Println("API Latency   :", latency)
	fmt.Println("Stale After   :", staleAfter)
	fmt.Println("---------------------------------")

	// ---------------- Fake API ----------------
	api := mockapi.New(mockapi.WithLatency(latency), mockapi.WithLogger(logrus.NewEntry(log)))
	srv := api.Serve()
	defer srv.Close()

	exec, err := fetch.New(srv.URL, fetch.WithLogger(logrus.NewEntry(log)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// ---------------- Cache ----------------
	stats := &types.Stats{}
	eng := engine.NewCacheEngine(
		expiration.New(staleAfter),
		nil,
		exec,
		stats,
		logrus.NewEntry(log),
	)
	c := cache.NewCoordinator(shards, capacity, eviction.LRU, eng)
	client := resource.NewClient(c, exec, types.StableOptions(), logrus.NewEntry(log))

	// ---------------- Load Test ----------------
	fmt.Println("\nRunning concurrent views...")

	var resolved atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < goroutines; i++ {
		i := i
		g.Go(func() error {
			for j := 0; j < viewsPerG; j++ {
				skip := ((i + j) % pages) * resource.DefaultLimit
				v := client.Todos.List(gctx, resource.DefaultLimit, skip, nil)
				v.Close()
				resolved.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	duration := time.Since(start)
	c.Close()

	total := resolved.Load()
	s := c.Stats()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Views Resolved   : %s\n", humanize.Comma(total))
	fmt.Printf("Network Calls    : %s\n", humanize.Comma(int64(api.TotalCalls())))
	fmt.Printf("Hits / Misses    : %s / %s\n", humanize.Comma(s.Hits), humanize.Comma(s.Misses))
	fmt.Printf("Deduplicated     : %s\n", humanize.Comma(s.Dedups))
	fmt.Printf("Hit Rate         : %.2f%%\n", s.HitRate()*100)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %s views/sec\n", humanize.CommafWithDigits(float64(total)/duration.Seconds(), 2))
	fmt.Println("=========================================")
}
