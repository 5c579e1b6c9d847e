// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"event-matchmaker/internal/common/ai/gemini"
	awsclient "event-matchmaker/internal/common/aws"
	"event-matchmaker/internal/common/camunda"
	"event-matchmaker/internal/common/config"
	"event-matchmaker/internal/common/database"
	"event-matchmaker/internal/common/logger"
	"event-matchmaker/internal/common/observability"
	"event-matchmaker/internal/common/validation"
	"event-matchmaker/internal/matching/engagement"
	"event-matchmaker/internal/matching/engine"
	"event-matchmaker/internal/matching/lifecycle"
	"event-matchmaker/internal/matching/profiling"
	"event-matchmaker/internal/matching/ranking"
	"event-matchmaker/internal/matching/retrieval"
	"event-matchmaker/internal/store"
	"event-matchmaker/pkg/registry"

	tn "event-matchmaker/internal/workers/engagement/trigger-nudges"
	rf "event-matchmaker/internal/workers/lifecycle/record-feedback"
	sm "event-matchmaker/internal/workers/lifecycle/schedule-meeting"
	ums "event-matchmaker/internal/workers/lifecycle/update-match-status"
	gam "event-matchmaker/internal/workers/matching/generate-all-matches"
	gm "event-matchmaker/internal/workers/matching/generate-matches"
	lm "event-matchmaker/internal/workers/matching/list-matches"
	wc "event-matchmaker/internal/workers/matching/warm-candidates"
	pp "event-matchmaker/internal/workers/profiling/process-profile"
	up "event-matchmaker/internal/workers/profiling/update-profile"
)

// services are the matching components the workers call into.
type services struct {
	engine    *engine.Engine
	lifecycle *lifecycle.Service
	scheduler *engagement.Scheduler
}

// infra holds the connections that need closing and readiness checks.
type infra struct {
	zeebe    *camunda.Client
	postgres *database.PostgresClient
	redis    *database.RedisClient
	es       *database.ElasticsearchClient
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.Build(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Warn("observability unavailable, continuing without otel metrics", zap.Error(err))
		obs = observability.NewNoop()
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := connect(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("infrastructure unavailable", zap.Error(err))
	}
	defer in.close(zapLog)

	svc, err := buildServices(ctx, cfg, in, obs, log)
	if err != nil {
		zapLog.Fatal("failed to build matching services", zap.Error(err))
	}

	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	if err := registry.Validate(reg); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("activity schemas invalid", zap.Error(err))
	}

	workers := registerWorkers(cfg, in.zeebe, svc, validator, log)
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	server := newHealthServer(cfg.Server.Address, in)
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*infra, error) {
	in := &infra{}
	retry := camunda.DefaultRetryConfig
	onRetry := func(name string) func(int, time.Duration, error) {
		return func(attempt int, delay time.Duration, err error) {
			log.Warn(name+" connection failed, retrying", map[string]interface{}{
				"attempt":     attempt,
				"nextRetryIn": delay.String(),
				"error":       err.Error(),
			})
		}
	}

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		return nil, err
	}
	in.zeebe = zeebe

	in.postgres, err = database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		in.close(nil)
		return nil, err
	}
	if err := camunda.Retry(ctx, retry, in.postgres.Ping, onRetry("PostgreSQL")); err != nil {
		in.close(nil)
		return nil, err
	}
	if err := in.postgres.Migrate(ctx, cfg.APIs.GenAI.EmbeddingDimensions); err != nil {
		in.close(nil)
		return nil, err
	}

	if cfg.Matching.CacheBackend == "redis" || cfg.Engagement.DeliveryBackend == "redis" {
		in.redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			in.close(nil)
			return nil, err
		}
		if err := camunda.Retry(ctx, retry, in.redis.Ping, onRetry("Redis")); err != nil {
			in.close(nil)
			return nil, err
		}
	}

	if cfg.Matching.SimilarityBackend == "elasticsearch" {
		in.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			in.close(nil)
			return nil, err
		}
		ping := func(context.Context) error { return in.es.Ping() }
		if err := camunda.Retry(ctx, retry, ping, onRetry("Elasticsearch")); err != nil {
			in.close(nil)
			return nil, err
		}
		if err := in.es.EnsureProfileIndex(ctx, cfg.Database.Elasticsearch.ProfileIndex, cfg.APIs.GenAI.EmbeddingDimensions); err != nil {
			in.close(nil)
			return nil, err
		}
	}
	return in, nil
}

func (in *infra) close(log *zap.Logger) {
	closeErr := func(name string, err error) {
		if err != nil && log != nil {
			log.Error("Error closing "+name, zap.Error(err))
		}
	}
	if in.redis != nil {
		closeErr("Redis", in.redis.Close())
	}
	if in.postgres != nil {
		closeErr("PostgreSQL", in.postgres.Close())
	}
	if in.zeebe != nil {
		closeErr("Zeebe client", in.zeebe.Close())
	}
}

func buildServices(ctx context.Context, cfg *config.Config, in *infra, obs *observability.Observability, log logger.Logger) (*services, error) {
	st := store.NewPostgres(in.postgres.DB)

	provider, err := gemini.NewClient(ctx, cfg.APIs.GenAI, log)
	if err != nil {
		return nil, err
	}

	var (
		index   retrieval.SimilarityIndex
		indexer profiling.Indexer
	)
	switch cfg.Matching.SimilarityBackend {
	case "elasticsearch":
		es := retrieval.NewElasticsearchIndex(in.es.Client, cfg.Database.Elasticsearch.ProfileIndex)
		index, indexer = es, es
	case "memory":
		index = retrieval.NewMemoryIndex(st)
	default:
		index = retrieval.NewPGVectorIndex(in.postgres.DB)
	}

	cacheTTL := config.Seconds(cfg.Matching.CandidateCacheTTL)
	var cache retrieval.CandidateCache = retrieval.NewMemoryCandidateCache(cacheTTL)
	if cfg.Matching.CacheBackend == "redis" {
		cache = retrieval.NewRedisCandidateCache(in.redis.Client, cacheTTL)
	}

	processor := profiling.NewProcessor(provider, provider, st, indexer, log)
	retriever := retrieval.NewRetriever(retrieval.Config{
		OverfetchFactor: cfg.Matching.OverfetchFactor,
		MaxOverfetch:    cfg.Matching.MaxOverfetch,
	}, st, index, cache, processor, obs, log)
	ranker := ranking.NewRanker(provider, ranking.Config{
		RerankEnabled:     cfg.Matching.RerankEnabled,
		ConfidenceEnabled: cfg.Matching.ConfidenceEnabled,
	}, obs, log)

	eng := engine.New(engine.Config{
		TopK:            cfg.Matching.TopK,
		MinOverallScore: cfg.Matching.MinOverallScore,
		OrganizerEmails: cfg.Matching.OrganizerEmails,
	}, st, processor, retriever, ranker, obs, log)

	var delivery engagement.DeliveryStore = engagement.NewMemoryDeliveryStore()
	if cfg.Engagement.DeliveryBackend == "redis" {
		delivery = engagement.NewRedisDeliveryStore(in.redis.Client, config.Seconds(cfg.Engagement.DeliveredTTL))
	}
	notifier, err := buildNotifier(ctx, cfg)
	if err != nil {
		return nil, err
	}
	scheduler := engagement.NewScheduler(engagement.Config{MaxListed: cfg.Engagement.MaxListed},
		st, delivery, notifier, obs, log)

	return &services{
		engine:    eng,
		lifecycle: lifecycle.NewService(st, log),
		scheduler: scheduler,
	}, nil
}

// buildNotifier returns nil for the "none" channel. The scheduler then marks nudges as queued.
func buildNotifier(ctx context.Context, cfg *config.Config) (engagement.Notifier, error) {
	switch cfg.Engagement.Channel {
	case engagement.ChannelEmail:
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, err
		}
		return engagement.NewEmailNotifier(awsclient.NewSESClient(awsCfg), cfg.Notifications.Email.FromEmail), nil
	case engagement.ChannelSNS:
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, err
		}
		return engagement.NewTopicNotifier(awsclient.NewSNSClient(awsCfg), cfg.Notifications.SNS.TopicARN), nil
	default:
		return nil, nil
	}
}

func registerWorkers(cfg *config.Config, zeebe *camunda.Client, svc *services, validator *validation.Validator, log logger.Logger) []worker.JobWorker {
	timeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}
	topK := cfg.Matching.TopK

	handlers := []struct {
		taskType string
		handle   func(worker.JobClient, entities.Job)
	}{
		{pp.TaskType, pp.NewHandler(&pp.Config{Timeout: timeout(pp.TaskType)}, svc.engine, validator, log).Handle},
		{up.TaskType, up.NewHandler(&up.Config{Timeout: timeout(up.TaskType)}, svc.engine, validator, log).Handle},
		{gm.TaskType, gm.NewHandler(&gm.Config{DefaultTopK: topK, Timeout: timeout(gm.TaskType)}, svc.engine, validator, log).Handle},
		{gam.TaskType, gam.NewHandler(&gam.Config{DefaultTopK: topK, Timeout: timeout(gam.TaskType)}, svc.engine, validator, log).Handle},
		{wc.TaskType, wc.NewHandler(&wc.Config{DefaultTopK: topK, Timeout: timeout(wc.TaskType)}, svc.engine, validator, log).Handle},
		{lm.TaskType, lm.NewHandler(&lm.Config{Timeout: timeout(lm.TaskType)}, svc.engine, validator, log).Handle},
		{ums.TaskType, ums.NewHandler(&ums.Config{Timeout: timeout(ums.TaskType)}, svc.lifecycle, validator, log).Handle},
		{sm.TaskType, sm.NewHandler(&sm.Config{Timeout: timeout(sm.TaskType)}, svc.lifecycle, validator, log).Handle},
		{rf.TaskType, rf.NewHandler(&rf.Config{Timeout: timeout(rf.TaskType)}, svc.lifecycle, validator, log).Handle},
		{tn.TaskType, tn.NewHandler(&tn.Config{Timeout: timeout(tn.TaskType)}, svc.scheduler, validator, log).Handle},
	}

	var workers []worker.JobWorker
	for _, h := range handlers {
		wcfg := config.GetWorkerConfig(cfg, h.taskType)
		if !wcfg.Enabled {
			log.Info("worker disabled", map[string]interface{}{"taskType": h.taskType})
			continue
		}
		workers = append(workers, camunda.StartWorker(zeebe.Zeebe(), camunda.WorkerOptions{
			TaskType:      h.taskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
		}, h.handle, log))
	}
	return workers
}

func newHealthServer(addr string, in *infra) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true
		record := func(name string, err error) {
			if err != nil {
				checks[name] = err.Error()
				ready = false
				return
			}
			checks[name] = "ok"
		}
		record("zeebe", in.zeebe.HealthCheck(ctx))
		record("postgres", in.postgres.Ping(ctx))
		if in.redis != nil {
			record("redis", in.redis.Ping(ctx))
		}
		if in.es != nil {
			record("elasticsearch", in.es.Ping())
		}

		if !ready {
			writeStatus(w, http.StatusServiceUnavailable, "not ready", checks)
			return
		}
		writeStatus(w, http.StatusOK, "ready", checks)
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
		"time":   time.Now().Format(time.RFC3339),
	})
}
