// Veriscope API: identity verification and fuzzy resolution over a
// rate-limited upstream, fronted by an admission gate, tiered cache,
// circuit breaker, and prioritized outbound queue
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"veriscope/internal/adapters/roblox"
	"veriscope/internal/platform/breaker"
	"veriscope/internal/platform/cache"
	"veriscope/internal/platform/config"
	"veriscope/internal/platform/logger"
	"veriscope/internal/platform/metrics"
	phttp "veriscope/internal/platform/net/http"
	"veriscope/internal/platform/net/middleware"
	"veriscope/internal/platform/queue"
	"veriscope/internal/platform/ratelimit"
	"veriscope/internal/platform/retry"
	"veriscope/internal/platform/store"
	resolvehttp "veriscope/internal/services/resolve/http"
	"veriscope/internal/services/resolve/service"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	apiCfg := root.Prefix("CORE_")
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// optional backends: shared cache tier on postgres, metrics sink on clickhouse
	st, err := store.Open(ctx, store.Config{
		AppName: "veriscope",
		PG: store.PGConfig{
			Enabled:  pgCfg.MayBool("ENABLED", false),
			URL:      pgCfg.MayString("DBURL", ""),
			MaxConns: int32(pgCfg.MayInt("MAX_CONNS", 4)),
		},
		CH: store.CHConfig{
			Enabled: chCfg.MayBool("ENABLED", false),
			URL:     chCfg.MayString("DBURL", ""),
		},
	})
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var sharedTier *cache.Shared
	if st.PG != nil {
		if _, err := st.PG.Pool.Exec(ctx, cache.Schema); err != nil {
			l.Panic().Err(err).Msg("shared cache schema apply failed")
		}
		sharedTier = cache.NewShared(st.PG.Pool)
	}

	var sink metrics.Sink
	if st.CH != nil {
		if err := st.CH.Exec(ctx, metrics.CHSchema); err != nil {
			l.Panic().Err(err).Msg("metrics schema apply failed")
		}
		sink = metrics.NewCHSink(st.CH)
	}

	gateCfg := root.Prefix("GATE_")
	gate := ratelimit.New(ratelimit.Options{
		Window: gateCfg.MayDuration("WINDOW", time.Hour),
		Limit:  gateCfg.MayInt("LIMIT", 25),
	})

	cacheCfg := root.Prefix("CACHE_")
	tiered := cache.NewTiered(cache.NewMemory(cacheCfg.MayInt("FAST_CAPACITY", 100)), sharedTier)

	brkCfg := root.Prefix("BREAKER_")
	brk := breaker.New(breaker.Options{
		FailureThreshold: brkCfg.MayInt("FAILURE_THRESHOLD", 5),
		SuccessThreshold: brkCfg.MayInt("SUCCESS_THRESHOLD", 2),
		Timeout:          brkCfg.MayDuration("TIMEOUT", 60*time.Second),
		Window:           brkCfg.MayDuration("WINDOW", 120*time.Second),
	})

	qCfg := root.Prefix("QUEUE_")
	q := queue.New(queue.Options{
		MaxConcurrent: qCfg.MayInt("MAX_CONCURRENT", 3),
		MaxPerSecond:  qCfg.MayInt("MAX_PER_SECOND", 8),
		MaxPerMinute:  qCfg.MayInt("MAX_PER_MINUTE", 90),
		DispatchDelay: qCfg.MayDuration("DISPATCH_DELAY", 100*time.Millisecond),
	})

	upCfg := root.Prefix("UPSTREAM_")
	client := roblox.NewClient(roblox.Options{
		BaseURL:   upCfg.MayString("BASE_URL", ""),
		UserAgent: upCfg.MayString("USER_AGENT", ""),
		Timeout:   upCfg.MayDuration("TIMEOUT", 5*time.Second),
	})

	retryCfg := root.Prefix("RETRY_")
	retryOpts := retry.Options{
		MaxRetries:   retryCfg.MayInt("MAX_RETRIES", 2),
		InitialDelay: retryCfg.MayDuration("INITIAL_DELAY", 500*time.Millisecond),
		MaxDelay:     retryCfg.MayDuration("MAX_DELAY", 8*time.Second),
		Multiplier:   retryCfg.MayFloat64("MULTIPLIER", 2.0),
		Jitter:       retryCfg.MayDuration("JITTER", 250*time.Millisecond),
	}

	metricsCfg := root.Prefix("METRICS_")
	collector := metrics.New(metricsCfg.MayInt("CAPACITY", metrics.DefaultCapacity), sink)

	svc := service.New(service.Deps{
		Gate:     gate,
		Cache:    tiered,
		Breaker:  brk,
		Queue:    q,
		Retry:    retryOpts,
		Upstream: service.NewUpstream(client),
		Metrics:  collector,
	})

	srv := phttp.NewServer(apiCfg)
	r := srv.Router()
	r.Use(middleware.Defaults()...)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{}))
	r.Use(middleware.CORS(middleware.CORSOptions{}))

	resolvehttp.Register(r, resolvehttp.Deps{
		Svc:     svc,
		Metrics: collector,
		Breaker: brk,
		Queue:   q,
		Gate:    gate,
	})

	if err := st.Guard(ctx); err != nil {
		l.Warn().Err(err).Msg("storage backend unreachable at startup")
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	select {
	case err := <-errc:
		if err != nil {
			l.Panic().Err(err).Msg("http server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("graceful shutdown failed")
		}
		l.Info().Msg("shutdown complete")
	}
}
