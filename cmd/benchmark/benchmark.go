package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	cache "github.com/krisalay/sharecache"
	"github.com/krisalay/sharecache/engine"
	"github.com/krisalay/sharecache/eviction"
	"github.com/krisalay/sharecache/expiration"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/types"
)

// ================= BENCHMARK =================

func main() {
	var (
		shards      = flag.Int("shards", 8, "number of shards")
		capacity    = flag.Int("capacity", 4096, "cache capacity")
		preloadKeys = flag.Int("preload", 2048, "entries inserted before the run")
		goroutines  = flag.Int("goroutines", 200, "concurrent readers")
		opsPerG     = flag.Int("ops", 5000, "reads per goroutine")
		subscribers = flag.Int("subscribers", 8, "attached event subscribers")
		writers     = flag.Int("writers", 4, "concurrent writers during the run")
	)
	flag.Parse()

	_, _ = log.InitLogger(&log.Config{Level: "warn"})

	fmt.Println("\n================ CACHE LOAD BENCHMARK =================")

	// ---------------- Cache Config ----------------
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", *shards)
	fmt.Println("Capacity     :", *capacity)
	fmt.Println("Preload Keys :", *preloadKeys)
	fmt.Println("Goroutines   :", *goroutines)
	fmt.Println("Ops/Goroutine:", *opsPerG)
	fmt.Println("Subscribers  :", *subscribers)
	fmt.Println("Writers      :", *writers)
	fmt.Println("---------------------------------")

	// ---------------- Cache Engine ----------------
	eng := engine.NewCacheEngine(&expiration.ExpireAfterWrite{TTL: 60 * time.Second}, nil)

	c := cache.NewShardedCache[types.Text](cache.Options{
		Name:     "benchmark",
		Capacity: *capacity,
		Shards:   *shards,
		Eviction: eviction.LRU,
		Window:   100 * time.Millisecond,
	}, eng)

	// ---------------- Subscribers ----------------
	ctx, cancel := context.WithCancel(context.Background())
	received := atomic.NewInt64(0)
	batches := atomic.NewInt64(0)
	subWG := sync.WaitGroup{}
	for i := 0; i < *subscribers; i++ {
		sub := c.Subscribe(ctx)
		subWG.Add(1)
		go func() {
			defer subWG.Done()
			for batch := range sub.C() {
				batches.Inc()
				received.Add(int64(len(batch)))
			}
		}()
	}

	// ---------------- Preload Cache ----------------
	fmt.Println("Preloading cache...")
	ids := make([]string, *preloadKeys)
	for i := range ids {
		ids[i] = c.Insert(types.Text{Text: fmt.Sprintf("text-%d", i)}, 0).ID
	}
	fmt.Println("Preload complete.")

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")

	start := time.Now()
	hits := atomic.NewInt64(0)
	writes := atomic.NewInt64(0)

	stopWriters := make(chan struct{})
	writerWG := sync.WaitGroup{}
	for i := 0; i < *writers; i++ {
		writerWG.Add(1)
		go func(id int) {
			defer writerWG.Done()
			for j := 0; ; j++ {
				select {
				case <-stopWriters:
					return
				default:
				}
				c.Insert(types.Text{Text: fmt.Sprintf("w%d-%d", id, j)}, 0)
				writes.Inc()
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg := sync.WaitGroup{}
	wg.Add(*goroutines)
	for i := 0; i < *goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < *opsPerG; j++ {
				if _, ok := c.Get(ids[j%len(ids)]); ok {
					hits.Inc()
				}
			}
		}()
	}
	wg.Wait()

	duration := time.Since(start)
	close(stopWriters)
	writerWG.Wait()

	c.Close()
	cancel()
	subWG.Wait()

	totalOps := *goroutines * *opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Reads      : %d\n", totalOps)
	fmt.Printf("Read Hits        : %d\n", hits.Load())
	fmt.Printf("Writes           : %d\n", writes.Load())
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f reads/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Events Received  : %d in %d batches\n", received.Load(), batches.Load())
	fmt.Println("=========================================")
}
