package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/betcore/line-platform/internal/bet-maker/admission"
	"github.com/betcore/line-platform/internal/bet-maker/cache"
	"github.com/betcore/line-platform/internal/bet-maker/consumer"
	bmhttp "github.com/betcore/line-platform/internal/bet-maker/http"
	"github.com/betcore/line-platform/internal/bet-maker/repo"
	sharedcache "github.com/betcore/line-platform/internal/shared/cache"
	"github.com/betcore/line-platform/internal/shared/config"
	"github.com/betcore/line-platform/internal/shared/db"
	"github.com/betcore/line-platform/internal/shared/logger"
	"github.com/betcore/line-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("bet-maker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: ledger de apostas
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache do snapshot de eventos
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	eventsCache := cache.NewEventsCache(redisClient, cfg.CacheTTL)
	ledger := repo.NewPostgres(pg)
	if err := ledger.EnsureSchema(context.Background()); err != nil {
		log.Fatal("schema bootstrap", zap.Error(err))
	}

	// Métricas Prometheus dos dois consumers
	snapConsumed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betmaker_snapshots_consumed_total", Help: "snapshots consumidos"})
	snapErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betmaker_snapshot_errors_total", Help: "erros por fase"}, []string{"stage"})
	cachedEvents := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "betmaker_cached_events", Help: "eventos no último snapshot ingerido"})
	settleApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betmaker_settlements_applied_total", Help: "liquidações aplicadas"})
	settleSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betmaker_settlements_skipped_total", Help: "mensagens puladas por motivo"}, []string{"reason"})
	settleErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betmaker_settlement_errors_total", Help: "erros por fase"}, []string{"stage"})
	prometheus.MustRegister(snapConsumed, snapErrors, cachedEvents, settleApplied, settleSkipped, settleErrors)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Consumer de snapshot: substitui a visão do cache a cada mensagem
	snapConsumer := &consumer.SnapshotConsumer{
		Log:        log,
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.TopicEventsSnapshot,
		GroupID:    "bet-maker-snapshot",
		Prefetch:   cfg.PrefetchLimit,
		Cache:      eventsCache,
		OnConsumed: func() { snapConsumed.Inc() },
		OnReplaced: func(count int) { cachedEvents.Set(float64(count)) },
		OnError:    func(stage string) { snapErrors.WithLabelValues(stage).Inc() },
	}
	go runConsumer(ctx, log, "snapshot", snapConsumer.Run)

	// Consumer de liquidação: aplica deltas de status no ledger
	settleConsumer := &consumer.SettlementConsumer{
		Log:        log,
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.TopicEventStatusUpdates,
		GroupID:    "bet-maker-settlement",
		Prefetch:   cfg.PrefetchLimit,
		Bets:       ledger,
		OnApplied:  func() { settleApplied.Inc() },
		OnSkipped:  func(reason string) { settleSkipped.WithLabelValues(reason).Inc() },
		OnError:    func(stage string) { settleErrors.WithLabelValues(stage).Inc() },
	}
	go runConsumer(ctx, log, "settlement", settleConsumer.Run)

	// Servidor de métricas e health check
	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// API REST de admissão
	ctrl := &admission.Controller{
		Log:       log,
		Snapshots: eventsCache,
		Bets:      ledger,
	}
	api := bmhttp.NewServer(log, ctrl)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}
	go func() {
		log.Info("bet-maker listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("bet-maker stopped")
}

// runConsumer mantém um consumer vivo: erro de persistência aborta o Run sem
// commit do offset e o reinício reabre o reader, forçando a reentrega.
func runConsumer(ctx context.Context, log *zap.Logger, name string, run func(context.Context) error) {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("consumer restarting", zap.String("consumer", name), zap.Error(err))
		}
		time.Sleep(2 * time.Second)
	}
}
