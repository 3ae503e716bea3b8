package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/sharecache"
	"github.com/krisalay/sharecache/config"
	"github.com/krisalay/sharecache/engine"
	"github.com/krisalay/sharecache/expiration"
	"github.com/krisalay/sharecache/httpserver"
	"github.com/krisalay/sharecache/jobs"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/metrics"
	"github.com/krisalay/sharecache/recognizer"
	"github.com/krisalay/sharecache/service"
	"github.com/krisalay/sharecache/types"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "sharecache:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	params, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := log.InitLogger(&params.Log)
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	log.ReplaceGlobals(logger)
	defer func() { _ = log.Sync() }()

	metrics.Register(prometheus.DefaultRegisterer)
	gin.SetMode(gin.ReleaseMode)

	files := cache.NewShardedCache[types.Blob](cacheOptions("files", params.Image, params),
		engine.NewCacheEngine(&expiration.ExpireAfterWrite{TTL: params.Image.TTL}, metrics.NewCacheMetrics("files")))
	defer files.Close()

	texts := cache.NewShardedCache[types.Text](cacheOptions("texts", params.Text, params),
		engine.NewCacheEngine(&expiration.ExpireAfterWrite{TTL: params.Text.TTL}, metrics.NewCacheMetrics("texts")))
	defer texts.Close()

	var rec jobs.Recognizer
	if r := recognizer.New(params.OCR); r != nil {
		rec = r
	} else {
		log.Info("text recognizer disabled")
	}
	dispatcher := jobs.NewDispatcher(jobs.NewRegistry(), rec, jobs.Options{
		Workers:         params.JobWorkers,
		DeliveryTimeout: params.JobDeliveryTimeout,
		JobTimeout:      params.JobTimeout,
	})

	share, err := service.New(files, texts, dispatcher, service.Options{
		ThumbnailEnabled:   params.ThumbnailEnabled,
		ThumbnailSize:      params.ThumbnailSize,
		ThumbnailMaxPixels: params.ThumbnailMaxPixels,
		Locales:            params.Locales,
	})
	if err != nil {
		return err
	}

	server := httpserver.NewServer(params.Address,
		httpserver.NewHandlers(share, params.SessionCookie, prometheus.DefaultGatherer))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(server.Start)
	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Warn("http server shutdown", zap.Error(err))
		}
		if err := dispatcher.Shutdown(shutdownTimeout); err != nil {
			log.Warn("job pool shutdown", zap.Error(err))
		}
		return nil
	})

	return group.Wait()
}

func cacheOptions(name string, p config.CacheParams, params *config.ParamTable) cache.Options {
	return cache.Options{
		Name:          name,
		Capacity:      p.Timeout.MaxSize,
		Shards:        p.Shards,
		Eviction:      p.Eviction,
		Window:        params.EventWindow,
		BufferSize:    params.EventBufferSize,
		SweepInterval: params.SweepInterval,
	}
}
