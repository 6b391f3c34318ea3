// Command bench runs a synthetic workload against the cache and exposes optional pprof/Prometheus endpoints.
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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/boundedmap/boundedmap/cache"
	"github.com/boundedmap/boundedmap/internal/util"
	pmet "github.com/boundedmap/boundedmap/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		capacity  = flag.Int64("cap", 100_000, "capacity (total weight)")
		shards    = flag.Int("shards", 0, "number of table shards (0=auto)")
		stripes   = flag.Int("stripes", 0, "number of read buffers (0=auto)")
		threshold = flag.Int("drain", 0, "read events per stripe before a drain (0=default)")
		weigher   = flag.String("weigher", "entries", "weigher: entries | bytes")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")
		opsRate  = flag.Int("rate", 0, "total ops/s limit (0 = unlimited)")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		dist    = flag.String("dist", "zipf", "key distribution: zipf | uniform")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Info().Str("addr", *pprofAddr).Msg("pprof: serving")
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Error().Err(err).Msg("pprof server stopped")
			}
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "boundedmap", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Info().Str("addr", *metricsAddr).Msg("metrics: serving")
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	// ---- Build cache ----
	var evictions uint64
	opt := cache.Options[string, string]{
		Capacity:       *capacity,
		Shards:         *shards,
		Stripes:        *stripes,
		DrainThreshold: *threshold,
		Hasher:         util.XXStringHasher,
		Metrics:        metrics,
		Logger:         &log.Logger,
		OnEvict:        func(string, string) { atomic.AddUint64(&evictions, 1) },
	}
	switch *weigher {
	case "entries":
		// nil => every entry weighs 1
	case "bytes":
		opt.Weigher = func(v string) int64 { return int64(len(v)) }
	default:
		log.Fatal().Str("weigher", *weigher).Msg("unknown weigher (use entries or bytes)")
	}
	c := cache.New[string, string](opt)

	// ---- Preload to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = int(*capacity / 2)
	}
	for i := 0; i < pl; i++ {
		k := "k:" + strconv.Itoa(i)
		c.Put(k, "v"+strconv.Itoa(i))
	}

	// ---- Snapshot flags for goroutines ----
	if *keys < 1 {
		log.Fatal().Int("keys", *keys).Msg("keyspace must be at least 1")
	}
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	uniform := *dist == "uniform"
	if !uniform && *dist != "zipf" {
		log.Fatal().Str("dist", *dist).Msg("unknown distribution (use zipf or uniform)")
	}
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// One shared limiter bounds the aggregate rate across all workers.
	var limiter *rate.Limiter
	if *opsRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*opsRate), *opsRate/10+1)
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			nextKey := func() string {
				if uniform {
					return "k:" + strconv.FormatUint(uint64(localR.Int63n(int64(keysMax+1))), 10)
				}
				return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, ok := c.Get(nextKey()); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					v := "v:" + strings.Repeat("x", 16+localR.Intn(48))
					c.Put(nextKey(), v)
				}
			}
		}(w)
	}
	wg.Wait()
	c.Drain()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("cap=%d weigher=%s shards=%d stripes=%d workers=%d keys=%d dist=%s dur=%v seed=%d\n",
		*capacity, *weigher, *shards, *stripes, workersN, *keys, *dist, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	fmt.Printf("evictions=%d  Len()=%d  WeightedSize()=%d\n",
		atomic.LoadUint64(&evictions), c.Len(), c.WeightedSize())
}
