package di

import (
    "context"
    "fmt"
    "os"
    "time"

    "CropVol/internal/domain/models"
    "CropVol/internal/domain/repository"
    domsvc "CropVol/internal/domain/service"
    "CropVol/internal/handler/api"
    internalrepo "CropVol/internal/repository"
    svccache "CropVol/internal/service/cache"
    "CropVol/internal/service/ratelimit"
    "CropVol/internal/services/volatility"
    "CropVol/internal/usecase"
    pkgcache "CropVol/pkg/cache"
    pkgch "CropVol/pkg/clickhouse"
    "CropVol/pkg/config"
    pkgkafka "CropVol/pkg/kafka"
    applogger "CropVol/pkg/logger"
    "CropVol/pkg/metrics"
    "CropVol/pkg/queue"
    "CropVol/pkg/server"

    "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideFitStore creates the fit cache: in-memory LRU, fronting Redis when enabled.
func ProvideFitStore(cfg *config.Config, log *applogger.Logger) (pkgcache.Service, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		mem := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemorySize))
		return mem, func() { _ = mem.Close() }, nil
	}
	remote, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.RedisAddr()),
		pkgcache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("fit cache backed by redis", applogger.String("addr", cfg.RedisAddr()))
	lc := pkgcache.NewLayeredCache(remote,
		pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize),
		pkgcache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	)
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideEstimator creates the EGARCH estimator from analysis settings.
func ProvideEstimator(cfg *config.Config) domsvc.VolatilityEstimator {
	return volatility.New(
		volatility.WithMaxIterations(cfg.Analysis.MaxIterations),
		volatility.WithTolerance(cfg.Analysis.Tolerance, cfg.Analysis.StallIterations),
		volatility.WithStrictConvergence(cfg.Analysis.StrictConvergence),
	)
}

// ProvideFitMemo creates the memoizing fit cache.
func ProvideFitMemo(cfg *config.Config, est domsvc.VolatilityEstimator, store pkgcache.Service, m repository.Metrics, log *applogger.Logger) *svccache.FitMemo {
	return svccache.NewFitMemo(est, store,
		svccache.WithFitTTL(cfg.Cache.FitTTL),
		svccache.WithFitTimeout(cfg.Analysis.FitTimeout),
		svccache.WithFitMetrics(m),
		svccache.WithFitLogger(log),
	)
}

// ProvideSources creates the workbook and forecast readers behind an in-memory cache.
func ProvideSources(cfg *config.Config, log *applogger.Logger) *svccache.CachingSource {
	forecasts := internalrepo.NewForecastStore(
		internalrepo.NewCSVForecastStore(),
		internalrepo.NewHTTPForecastStore(cfg.ModelService.Timeout, cfg.ModelService.Attempts),
	)
	return svccache.NewCachingSource(internalrepo.NewExcelTableStore(log), forecasts, cfg.Cache.TableTTL)
}

// ProvideFitPublisher creates the Kafka publisher for fit events, or a no-op
// publisher when no brokers are configured.
func ProvideFitPublisher(cfg *config.Config, log *applogger.Logger) (repository.FitPublisher, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return internalrepo.NoopFitPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithKeyedRouting(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	log.Info("publishing fit events", applogger.Strings("brokers", cfg.Kafka.Brokers), applogger.String("topic", cfg.Kafka.Topic))
	pub := internalrepo.NewKafkaFitPublisher(producer, cfg.Kafka.Topic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideFitHistory creates the fit audit trail: ClickHouse when enabled,
// otherwise a bounded in-process history.
func ProvideFitHistory(cfg *config.Config, log *applogger.Logger) (repository.FitHistory, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return internalrepo.NewMemoryFitHistory(cfg.Jobs.HistoryMax), func() {}, nil
	}
	ch := cfg.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithAddr(ch.Host, ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithPool(10, 5, 5*time.Minute),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.FitHistorySchema(ch.Database, ch.Table)); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("fit history backed by clickhouse", applogger.String("host", ch.Host), applogger.String("table", ch.Database+"."+ch.Table))

	store := internalrepo.NewCHFitHistory(client.DB(), ch.Database+"."+ch.Table)
	store.SetLogger(log)
	return store, func() { _ = client.Close() }, nil
}

// ProvideCatalog converts configured datasets into domain datasets, resolving
// paths against the data directory.
func ProvideCatalog(cfg *config.Config, log *applogger.Logger) (*usecase.Catalog, error) {
	out := make([]models.Dataset, 0, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		ds, err := datasetFromConfig(cfg, d)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(ds.Price.Path); err != nil {
			log.Warn("price workbook not found", applogger.String("dataset", d.Name), applogger.String("path", ds.Price.Path))
		}
		out = append(out, ds)
	}
	return usecase.NewCatalog(out), nil
}

func datasetFromConfig(cfg *config.Config, d config.Dataset) (models.Dataset, error) {
	ds := models.Dataset{
		Name:      d.Name,
		Commodity: d.Commodity,
		Level:     d.Level,
		Regions:   d.Regions,
		Price:     tableFromConfig(cfg, d.Price),
	}
	var err error
	if ds.PriceWindow.Start, ds.PriceWindow.End, err = d.PriceWindow.Bounds(); err != nil {
		return ds, fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	if ds.MeteoWindow.Start, ds.MeteoWindow.End, err = d.MeteoWindow.Bounds(); err != nil {
		return ds, fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	for _, m := range d.Meteo {
		ds.Meteo = append(ds.Meteo, models.MeteoSource{
			Name:  m.Name,
			Label: m.Label,
			Unit:  m.Unit,
			Table: tableFromConfig(cfg, m.Table),
		})
	}
	for _, f := range d.Forecasts {
		ds.Forecasts = append(ds.Forecasts, models.ForecastSource{
			Name:  f.Name,
			Label: f.Label,
			Color: f.Color,
			Path:  cfg.ResolvePath(f.Path),
			URL:   f.URL,
		})
	}
	return ds, nil
}

func tableFromConfig(cfg *config.Config, t config.Table) models.TableSource {
	return models.TableSource{Path: cfg.ResolvePath(t.Path), Sheet: t.Sheet, DateColumn: t.DateColumn}
}

// ProvidePipeline creates the volatility pipeline use case.
func ProvidePipeline(
	cfg *config.Config,
	catalog *usecase.Catalog,
	sources *svccache.CachingSource,
	fits *svccache.FitMemo,
	pub repository.FitPublisher,
	history repository.FitHistory,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.VolatilityPipeline {
	return usecase.NewVolatilityPipeline(catalog, sources, sources, fits,
		usecase.WithWorkers(cfg.Analysis.Workers),
		usecase.WithRealizedWindow(cfg.Analysis.RealizedWindow),
		usecase.WithPublisher(pub),
		usecase.WithHistory(history),
		usecase.WithMetrics(m),
		usecase.WithLogger(log),
	)
}

// ProvideJobTracker stores job status next to the memoized fits.
func ProvideJobTracker(cfg *config.Config, store pkgcache.Service) *usecase.JobTracker {
	return usecase.NewJobTracker(store, cfg.Jobs.StatusTTL)
}

// ProvideJobQueue starts the refit queue: Redis lists when Redis is enabled so
// replicas share work, otherwise an in-process queue.
func ProvideJobQueue(cfg *config.Config, log *applogger.Logger, pipeline *usecase.VolatilityPipeline, tracker *usecase.JobTracker) (usecase.JobQueue, func(), error) {
	qcfg := &queue.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		RetryLimit: cfg.Jobs.RetryLimit,
		RetryDelay: cfg.Jobs.RetryDelay,
	}

	var (
		q      queue.Queue
		client *redis.Client
	)
	if cfg.Cache.Redis.Enabled {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		rq := queue.NewRedisQueue(log, qcfg, client, queue.WithKeyPrefix(cfg.Cache.Redis.Prefix+":jobs"))
		rq.RegisterJob(usecase.NewRefitJob(pipeline, tracker, log))
		q = rq
	} else {
		mq := queue.NewMemoryQueue(log, qcfg)
		mq.RegisterJob(usecase.NewRefitJob(pipeline, tracker, log))
		q = mq
	}

	if err := q.Start(); err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, fmt.Errorf("job queue: %w", err)
	}
	return q, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := q.Stop(ctx); err != nil {
			log.Warn("job queue stop error", applogger.Error(err))
		}
		if client != nil {
			_ = client.Close()
		}
	}, nil
}

// ProvideRefits creates the background refit use case.
func ProvideRefits(pipeline *usecase.VolatilityPipeline, q usecase.JobQueue, tracker *usecase.JobTracker) *usecase.Refits {
	return usecase.NewRefits(pipeline, q, tracker)
}

// ProvideRateLimiter creates the per-client limiter for fit endpoints.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(log *applogger.Logger, pipeline *usecase.VolatilityPipeline, limiter *ratelimit.Limiter, refits *usecase.Refits) *api.VolatilityEchoHandler {
	return api.NewVolatilityEchoHandler(log, pipeline, limiter, refits)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, log *applogger.Logger, h *api.VolatilityEchoHandler) *server.App {
	return server.New(cfg, log, h)
}
