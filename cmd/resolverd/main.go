package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"research-corev1/config"
	"research-corev1/internal/api"
	"research-corev1/internal/calendar"
	"research-corev1/internal/logger"
	"research-corev1/internal/metrics"
	"research-corev1/internal/model"
	"research-corev1/internal/query"
	"research-corev1/internal/resolver"
	"research-corev1/internal/store"
	redisstore "research-corev1/internal/store/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg := config.Load()
	logger.Init("resolverd", logger.ParseLevel(cfg.LogLevel))
	log.Println("[resolverd] starting...")

	paths, err := cfg.ParseSources()
	if err != nil {
		log.Fatalf("[resolverd] %v", err)
	}
	walk, ok := calendar.ParseWalkMode(cfg.PeriodWalk)
	if !ok {
		log.Fatalf("[resolverd] PERIOD_WALK=%q, want single or full", cfg.PeriodWalk)
	}

	// ---- Data stores ----
	reg, err := store.OpenSQLite(paths, cfg.DefaultSource)
	if err != nil {
		log.Fatalf("[resolverd] store init failed: %v", err)
	}
	defer reg.Close()
	if _, err := reg.Get(""); err != nil {
		log.Fatalf("[resolverd] DEFAULT_SOURCE: %v", err)
	}
	log.Printf("[resolverd] sources: %v (default %s)", reg.Names(), reg.Default())

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Optional Redis result cache ----
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		health.RedisEnabled = true
		rdb, err = redisstore.NewClient(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Printf("[resolverd] WARNING: redis init failed: %v (continuing without cache)", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	caches := make(map[string]*redisstore.CachingQuerier)
	reg.Wrap(func(name string, q model.Querier) model.Querier {
		q = prom.InstrumentQuerier(name, q)
		if rdb == nil {
			return q
		}
		cq := redisstore.NewCachingQuerier(q, rdb, redisstore.Config{TTL: cfg.CacheTTL, Prefix: "rescore:q:" + name + ":"})
		cq.OnHit = func(string) { prom.CacheHits.WithLabelValues(name).Inc() }
		cq.OnMiss = func(string) { prom.CacheMisses.WithLabelValues(name).Inc() }
		cq.Breaker().OnStateChange = func(from, to redisstore.State) {
			log.Printf("[resolverd] cache breaker %s: %s -> %s", name, from, to)
			prom.SetCircuitState(int(to))
		}
		caches[name] = cq
		return cq
	})

	pingers := make(map[string]metrics.Pinger)
	for name, p := range reg.Pingers() {
		pingers[name] = p
	}
	health.CheckAll(ctx, rdb, pingers)
	health.StartLivenessChecker(ctx, rdb, pingers, 10*time.Second)

	// ---- Calendar ----
	calQ, _ := reg.Get("")
	cal := calendar.NewCache(calendar.NewLoader(calQ, calendar.LoaderConfig{
		Exchange:     cfg.ExchangeCD,
		LookbackDays: cfg.CalendarLookbackDays,
		Walk:         walk,
	}), 0)
	cal.OnLoad = func(cached int) {
		prom.CalendarLoads.Inc()
		prom.CalendarWindows.Set(float64(cached))
	}
	go watchMarket(ctx, cal, calendar.DefaultSession, health, prom)

	// ---- Resolvers, one per source ----
	services := make(map[string]*resolver.Service)
	for _, name := range reg.Names() {
		q, _ := reg.Get(name)
		services[name] = resolver.NewService(query.NewBuilder(q, name),
			resolver.WithMetrics(prom), resolver.WithMaxParallel(cfg.MaxParallel))
	}
	lookup := func(source string) (*resolver.Service, error) {
		if source == "" {
			source = reg.Default()
		}
		if _, err := reg.Get(source); err != nil {
			return nil, err
		}
		return services[source], nil
	}

	var invalidate func(ctx context.Context, source, table string) (int, error)
	if rdb != nil {
		invalidate = func(ctx context.Context, source, table string) (int, error) {
			if source == "" {
				source = reg.Default()
			}
			cq, ok := caches[source]
			if !ok {
				return 0, fmt.Errorf("%q: %w", source, store.ErrUnknownSource)
			}
			return cq.Invalidate(ctx, table)
		}
	}

	// ---- HTTP API ----
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Calendars:  cal,
			Services:   lookup,
			Session:    calendar.DefaultSession,
			Health:     health,
			Metrics:    promhttp.Handler(),
			Invalidate: invalidate,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[resolverd] HTTP API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[resolverd] http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("[resolverd] received %v, shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[resolverd] http shutdown: %v", err)
	}
	metricsSrv.Stop(shutdownCtx)
	log.Println("[resolverd] stopped")
}

// watchMarket refreshes the session status shown on /healthz and the
// market-state gauge once a minute.
func watchMarket(ctx context.Context, cal *calendar.Cache, sess calendar.Session, health *metrics.HealthStatus, prom *metrics.Metrics) {
	update := func() {
		now := time.Now().In(calendar.CST)
		w, err := cal.Window(ctx, model.FormatDate(now))
		health.SetCalendarOK(err == nil)
		if err != nil {
			slog.Warn("calendar window unavailable", slog.String("err", err.Error()))
			w = nil
		}
		running, _ := sess.IsRunning(now, w)
		if running {
			prom.MarketState.Set(1)
		} else {
			prom.MarketState.Set(0)
		}
		health.SetMarketStatus(sess.StatusString(now, w))
	}

	update()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
