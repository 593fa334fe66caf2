// Command bench runs a synthetic workload against a bounded cache and a
// timeout map and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/cachekit/cache"
	"github.com/IvanBrykalov/cachekit/config"
	"github.com/IvanBrykalov/cachekit/schedule"
)

type value struct{ s string }

func main() {
	// ---- Flags ----
	var (
		cfgPath   = flag.String("config", "", "YAML config file (flags below override it)")
		capacity  = flag.Int("cap", 0, "cache capacity (entries, 0 = from config)")
		order     = flag.String("order", "", "eviction order: access | insertion")
		retention = flag.String("retention", "", "value retention: strong | weak | soft")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		ttl      = flag.Duration("ttl", 200*time.Millisecond, "timeout-map entry ttl")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", "", "serve Prometheus metrics at addr (overrides config)")
	)
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}
	log := cfg.Log.NewLogger(os.Stderr).Named("bench")
	hclog.SetDefault(log)

	if err := applyFlags(&cfg, *capacity, *order, *retention, *metricsAddr); err != nil {
		log.Error("invalid flags", "error", err)
		os.Exit(2)
	}

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info("pprof: serving", "addr", *pprofAddr)
			log.Error("pprof server stopped", "error", http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	reg := prometheus.DefaultRegisterer
	cacheMetrics := cfg.Metrics.NewMetrics(reg, "cache")
	timeoutMetrics := cfg.Metrics.NewMetrics(reg, "timeout")
	if cfg.Metrics.Enabled {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics: serving", "addr", cfg.Metrics.Addr)
			log.Error("metrics server stopped", "error", http.ListenAndServe(cfg.Metrics.Addr, nil))
		}()
	}

	// ---- Build cache and timeout map ----
	cache.WarmUp()
	c, err := config.NewCache[string, value](cfg.Cache, config.Deps{Metrics: cacheMetrics, Logger: log})
	if err != nil {
		log.Error("cannot build cache", "error", err)
		os.Exit(2)
	}
	defer func() { _ = c.Stop() }()

	sched := schedule.NewCron(schedule.CronOptions{Logger: log.Named("schedule")})
	defer func() { _ = sched.Shutdown(context.Background()) }()

	tm, err := config.NewTimeoutMap[string, *value](cfg.Timeout, sched, config.Deps{Metrics: timeoutMetrics, Logger: log})
	if err != nil {
		log.Error("cannot build timeout map", "error", err)
		os.Exit(2)
	}
	defer func() { _ = tm.Stop() }()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = cfg.Cache.MaxSize / 2
	}
	// Weak and soft caches only keep values that are referenced elsewhere.
	pinned := make([]*value, 0, pl)
	for i := 0; i < pl; i++ {
		v := &value{s: "v" + strconv.Itoa(i)}
		pinned = append(pinned, v)
		c.Put("k:"+strconv.Itoa(i), v)
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	workersN := max(*workers, 1)

	// ---- Load generation ----
	var reads, writes, hits, misses, total atomic.Uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		id := w
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, *zipfS, *zipfV, keysMax)

			keyByZipf := func() string {
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for ctx.Err() == nil {
				total.Add(1)
				k := keyByZipf()
				if int(localR.Int31n(100)) < readPctVal {
					reads.Add(1)
					if _, ok := c.Get(k); ok {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
					tm.Get(k)
				} else {
					writes.Add(1)
					v := &value{s: "v" + strconv.Itoa(localR.Int())}
					c.Put(k, v)
					tm.Put(k, v, *ttl)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)
	runtime.KeepAlive(pinned)

	// ---- Report ----
	ops := total.Load()
	readsN := reads.Load()
	hitsN := hits.Load()

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("order=%s retention=%s cap=%d workers=%d keys=%d dur=%v seed=%d\n",
		cfg.Cache.Order, cfg.Cache.Retention, cfg.Cache.MaxSize, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writes.Load())
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, misses.Load(), hitRate)
	s := c.Stats()
	fmt.Printf("Len()=%d evictions=%d reclaimed=%d timeout.Len()=%d\n", c.Len(), s.Evictions, s.Reclaimed, tm.Len())
}

// applyFlags overrides cfg with explicitly set flags and re-validates.
func applyFlags(cfg *config.Config, capacity int, order, retention, metricsAddr string) error {
	if capacity > 0 {
		cfg.Cache.MaxSize = capacity
	}
	if order != "" {
		o, err := config.ParseOrder(order)
		if err != nil {
			return err
		}
		cfg.Cache.Order = o
	}
	if retention != "" {
		r, err := config.ParseRetention(retention)
		if err != nil {
			return err
		}
		cfg.Cache.Retention = r
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
		cfg.Metrics.Enabled = true
	}
	return cfg.Validate()
}
