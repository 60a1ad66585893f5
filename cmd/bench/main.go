// Command bench runs a synthetic insert/retrieve workload against the
// cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quotecache/priocache/cache"
	pmet "github.com/quotecache/priocache/metrics/prom"
	"github.com/spf13/cobra"
)

var (
	maxNodes    uint64
	workers     int
	duration    time.Duration
	retrievePct int

	symbolCount int
	zipfS       float64
	zipfV       float64
	seed        int64
	preload     int

	pprofAddr   string
	metricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "bench",
		Short: "Load-test the priority cache with a Zipf-skewed symbol workload",
		RunE:  run,
	}

	flags := root.Flags()
	flags.Uint64Var(&maxNodes, "max-nodes", 1_000_000, "arena capacity (records)")
	flags.IntVar(&workers, "workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
	flags.DurationVar(&duration, "duration", 10*time.Second, "benchmark duration")
	flags.IntVar(&retrievePct, "retrieve-pct", 80, "retrieve percentage [0..100]; remainder is inserts")

	flags.IntVar(&symbolCount, "symbols", 10_000, "distinct symbol keyspace size")
	flags.Float64Var(&zipfS, "zipf-s", 1.1, "Zipf s > 1 (skew)")
	flags.Float64Var(&zipfV, "zipf-v", 1.0, "Zipf v")
	flags.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flags.IntVar(&preload, "preload", 0, "symbols to preload with a few priority levels each (0 = symbols/2)")

	flags.StringVar(&pprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	flags.StringVar(&metricsAddr, "http", ":8080", "serve Prometheus metrics at addr")

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(_ *cobra.Command, _ []string) error {
	if pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", pprofAddr)
			log.Println(http.ListenAndServe(pprofAddr, nil))
		}()
	}

	metrics := pmet.New(nil, "priocache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", metricsAddr)
		log.Println(http.ListenAndServe(metricsAddr, nil))
	}()

	c, err := cache.New(cache.Config{
		MaxNodes:        maxNodes,
		CleanupInterval: time.Second,
		Metrics:         metrics,
	})
	if err != nil {
		return fmt.Errorf("cache.New: %w", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	pl := preload
	if pl == 0 {
		pl = symbolCount / 2
	}
	for i := 0; i < pl; i++ {
		s := symbolName(i)
		for p := int32(0); p < 8; p++ {
			c.Insert(float64(i), s, p, time.Minute)
		}
	}

	workersN := workers
	if workersN <= 0 {
		workersN = 1
	}

	var retrieves, inserts, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seed + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfS, zipfV, uint64(symbolCount-1))

			symbolByZipf := func() string {
				return symbolName(int(localZipf.Uint64()))
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < retrievePct {
					atomic.AddUint64(&retrieves, 1)
					if _, ok := c.GetHighestPriority(symbolByZipf()); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&inserts, 1)
					c.Insert(localR.Float64()*1000, symbolByZipf(), int32(localR.Intn(8)), time.Minute)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	ops := atomic.LoadUint64(&total)
	retrievesN := atomic.LoadUint64(&retrieves)
	insertsN := atomic.LoadUint64(&inserts)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if retrievesN > 0 {
		hitRate = float64(hitsN) / float64(retrievesN) * 100
	}

	fmt.Printf("max-nodes=%d workers=%d symbols=%d dur=%v seed=%d\n",
		maxNodes, workersN, symbolCount, elapsed, seed)
	fmt.Printf("ops=%d (%.0f ops/s)  retrieves=%d  inserts=%d\n",
		ops, float64(ops)/elapsed.Seconds(), retrievesN, insertsN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	return nil
}

func symbolName(i int) string {
	return fmt.Sprintf("SYM%06d", i)
}
