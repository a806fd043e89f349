package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	lphttp "github.com/betcore/line-platform/internal/line-provider/http"
	"github.com/betcore/line-platform/internal/line-provider/producer"
	"github.com/betcore/line-platform/internal/line-provider/repo"
	"github.com/betcore/line-platform/internal/shared/config"
	"github.com/betcore/line-platform/internal/shared/db"
	sharedkafka "github.com/betcore/line-platform/internal/shared/kafka"
	"github.com/betcore/line-platform/internal/shared/logger"
	"github.com/betcore/line-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("line-provider", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: fonte de verdade dos eventos
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	// Writers Kafka: snapshot completo e deltas de status, entrega persistente
	snapshotWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventsSnapshot)
	defer snapshotWriter.Close()
	statusWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventStatusUpdates)
	defer statusWriter.Close()

	store := repo.NewPostgres(pg)
	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Fatal("schema bootstrap", zap.Error(err))
	}

	// Métricas Prometheus dos dois pipelines de publicação
	snapshotsPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "line_snapshots_published_total", Help: "snapshots publicados"})
	snapshotErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "line_snapshot_errors_total", Help: "erros por fase"}, []string{"stage"})
	statusPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "line_status_updates_published_total", Help: "deltas de status publicados"})
	statusStuck := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "line_status_updates_stuck_total", Help: "deltas que atingiram o limite de tentativas"})
	prometheus.MustRegister(snapshotsPublished, snapshotErrors, statusPublished, statusStuck)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Publisher periódico do snapshot (full replace, best effort por tick)
	snap := &producer.SnapshotPublisher{
		Log:         log,
		Events:      store,
		Writer:      snapshotWriter,
		Interval:    cfg.SnapshotInterval,
		OnPublished: func(int) { snapshotsPublished.Inc() },
		OnError:     func(stage string) { snapshotErrors.WithLabelValues(stage).Inc() },
	}
	go snap.Run(ctx)

	// Dispatcher da outbox de status (deltas nunca são descartados)
	disp := &producer.Dispatcher{
		Log:           log,
		Outbox:        store,
		Writer:        statusWriter,
		PollInterval:  time.Second,
		MaxRetries:    3,
		EscalateAfter: 10,
		OnPublished:   func() { statusPublished.Inc() },
		OnStuck:       func() { statusStuck.Inc() },
	}
	go disp.Run(ctx)

	// Servidor de métricas e health check
	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	// API REST do provedor
	api := lphttp.NewServer(log, store)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}
	go func() {
		log.Info("line-provider listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	// encerra o HTTP primeiro; publishers param de agendar via contexto
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("line-provider stopped")
}
