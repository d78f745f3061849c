package di

import (
	"context"
	"fmt"
	"time"

	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/handler/api"
	internalrepo "github.com/kumbhanChoksi/Signals-Backend/internal/repository"
	"github.com/kumbhanChoksi/Signals-Backend/internal/service/auth"
	svccache "github.com/kumbhanChoksi/Signals-Backend/internal/service/cache"
	"github.com/kumbhanChoksi/Signals-Backend/internal/service/ratelimit"
	"github.com/kumbhanChoksi/Signals-Backend/internal/usecase"
	pkgcache "github.com/kumbhanChoksi/Signals-Backend/pkg/cache"
	pkgch "github.com/kumbhanChoksi/Signals-Backend/pkg/clickhouse"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/config"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"
	xhttp "github.com/kumbhanChoksi/Signals-Backend/pkg/http"
	pkgkafka "github.com/kumbhanChoksi/Signals-Backend/pkg/kafka"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/metrics"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/queue"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/redisclient"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideRegistry creates the Prometheus registry shared by every component.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideDatabase opens the durable store and applies the schema.
func ProvideDatabase(cfg *config.Config) (*database.Client, error) {
	db, err := database.NewClient(
		database.WithDriver(cfg.Database.Driver),
		database.WithDSN(cfg.Database.DSN),
		database.WithMaxConnections(cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns),
		database.WithConnMaxLifetime(cfg.Database.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("database client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := internalrepo.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database schema: %w", err)
	}
	return db, nil
}

// ProvideRedis creates the Redis client shared by queue, cache and notifier.
func ProvideRedis(cfg *config.Config) (*redis.Client, error) {
	client, err := redisclient.New(
		redisclient.WithAddr(cfg.Redis.Addr),
		redisclient.WithPassword(cfg.Redis.Password),
		redisclient.WithDB(cfg.Redis.DB),
		redisclient.WithPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCacheBackend selects the result cache backend. It is nil for "none".
func ProvideCacheBackend(cfg *config.Config, rdb *redis.Client) pkgcache.Service {
	switch cfg.Cache.Backend {
	case "memory":
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
	case "none":
		return nil
	default:
		return pkgcache.NewRedisCache(rdb, pkgcache.WithRedisPrefix(cfg.Cache.Prefix))
	}
}

func ProvideSignalCache(cfg *config.Config, backend pkgcache.Service, m domrepo.Metrics, l *logger.Logger) *svccache.SignalCache {
	return svccache.NewSignalCache(backend, cfg.Cache.SignalTTL, m, l)
}

func ProvideJobStore(db *database.Client) domrepo.JobStore {
	return internalrepo.NewSQLJobStore(db)
}

func ProvideSignalStore(db *database.Client) domrepo.SignalStore {
	return internalrepo.NewSQLSignalStore(db)
}

func ProvideCandleStore(db *database.Client, l *logger.Logger) domrepo.CandleStore {
	return internalrepo.NewSQLCandleStore(db, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient creates the archive client and its table, or nil
// when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := internalrepo.NewClickHouseSignalArchive(client).Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideSignalNotifier(rdb *redis.Client, l *logger.Logger) *internalrepo.RedisSignalNotifier {
	return internalrepo.NewRedisSignalNotifier(rdb, l)
}

func ProvideSignalSubscriber(n *internalrepo.RedisSignalNotifier) domrepo.SignalSubscriber {
	return n
}

// ProvideSignalPublisher fans signal events out to Redis and, when enabled, Kafka.
func ProvideSignalPublisher(cfg *config.Config, n *internalrepo.RedisSignalNotifier, producer *pkgkafka.Producer) domrepo.SignalPublisher {
	fan := usecase.SignalFanout{n}
	if producer != nil {
		fan = append(fan, internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topics.Signals))
	}
	return fan
}

func ProvideSignalWorker(
	cfg *config.Config,
	jobs domrepo.JobStore,
	signals domrepo.SignalStore,
	candles domrepo.CandleStore,
	cache *svccache.SignalCache,
	pub domrepo.SignalPublisher,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.SignalWorker {
	return usecase.NewSignalWorker(jobs, signals, candles, cache, pub, m, usecase.WorkerConfig{
		ProcessingDelay: cfg.Worker.ProcessingDelay,
		ClaimTimeout:    cfg.Worker.ClaimTimeout,
		CandleWindow:    cfg.Worker.CandleWindow,
	}, l)
}

// ProvideQueue creates the dispatch queue in the mode the role needs. The API
// role only publishes; worker roles consume with the signal worker registered.
func ProvideQueue(cfg *config.Config, l *logger.Logger, rdb *redis.Client, worker *usecase.SignalWorker) (*queue.RedisQueue, error) {
	prefix := queue.WithKeyPrefix(cfg.Queue.KeyPrefix)
	if !cfg.RunsWorker() {
		return queue.NewRedisPublisher(l, rdb, prefix)
	}

	mode := queue.ModeConsumerOnly
	if cfg.RunsAPI() {
		mode = queue.ModeProducerConsumer
	}
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:           cfg.Queue.Workers,
		RetryLimit:        cfg.Queue.RetryLimit,
		RetryDelay:        cfg.Queue.RetryDelay,
		RetryPollInterval: cfg.Queue.RetryPollInterval,
	}, rdb, mode, prefix)
	q.RegisterJob(worker)
	return q, nil
}

func ProvideQueueService(q *queue.RedisQueue) queue.QueueService {
	return q
}

func ProvideSignalService(
	jobs domrepo.JobStore,
	signals domrepo.SignalStore,
	q queue.QueueService,
	cache *svccache.SignalCache,
	m domrepo.Metrics,
	l *logger.Logger,
) *usecase.SignalService {
	return usecase.NewSignalService(jobs, signals, q, cache, m, l)
}

func ProvideJobService(jobs domrepo.JobStore, signals domrepo.SignalStore) *usecase.JobService {
	return usecase.NewJobService(jobs, signals)
}

func ProvideCandleIngestor(candles domrepo.CandleStore, m domrepo.Metrics, l *logger.Logger) *usecase.CandleIngestor {
	return usecase.NewCandleIngestor(candles, m, l)
}

func ProvideAuthenticator(cfg *config.Config) domrepo.Authenticator {
	return auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.SubmitBurst, cfg.RateLimit.SubmitPerSecond)
}

func ProvideHealth(db *database.Client, rdb *redis.Client, q *queue.RedisQueue, l *logger.Logger) *api.Health {
	return api.NewHealth(db, rdb, q, l)
}

func ProvideStreamConfig(cfg *config.Config) api.StreamConfig {
	return api.StreamConfig{PingInterval: cfg.Stream.PingInterval}
}

func ProvideHandler(
	signals *usecase.SignalService,
	jobs *usecase.JobService,
	ingestor *usecase.CandleIngestor,
	authn domrepo.Authenticator,
	limiter *ratelimit.Limiter,
	subscriber domrepo.SignalSubscriber,
	health *api.Health,
	stream api.StreamConfig,
	l *logger.Logger,
) *api.Handler {
	return api.NewHandler(signals, jobs, ingestor, authn, limiter, subscriber, health, stream, l)
}

// ProvideHTTPServer creates the HTTP server, or nil for the worker role.
func ProvideHTTPServer(cfg *config.Config, h *api.Handler, l *logger.Logger, reg *prometheus.Registry) *xhttp.Server {
	if !cfg.RunsAPI() {
		return nil
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithLogger(l),
		xhttp.WithRegistry(reg),
		xhttp.WithMetricsEndpoint(cfg.Metrics.Enabled),
	)
}

// ProvideKafkaConsumer creates a consumer for the candle ingest topic and, when
// the archive is enabled, the signals topic. It is nil unless Kafka is enabled
// and this process runs workers.
func ProvideKafkaConsumer(
	cfg *config.Config,
	l *logger.Logger,
	reg *prometheus.Registry,
	ingestor *usecase.CandleIngestor,
	ch *pkgch.Client,
	m domrepo.Metrics,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.RunsWorker() {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
			m.RecordError("kafka_consume")
			l.Warn("kafka message failed",
				logger.String("topic", topic),
				logger.String("key", string(km.Key)),
				logger.Int64("offset", km.Offset),
				logger.Error(err))
		},
	})
	consumer.RegisterHandler(usecase.NewKafkaCandlesHandler(cfg.Kafka.Topics.Candles, ingestor, m, l))
	if ch != nil {
		archive := internalrepo.NewClickHouseSignalArchive(ch)
		consumer.RegisterHandler(usecase.NewKafkaSignalArchiveHandler(cfg.Kafka.Topics.Signals, archive, m))
	}
	return consumer, nil
}

// ProvideApp creates the application and attaches the log collector when a
// collect topic is configured.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	db *database.Client,
	rdb *redis.Client,
	cache pkgcache.Service,
	q *queue.RedisQueue,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	ch *pkgch.Client,
	httpServer *xhttp.Server,
) *server.App {
	if producer != nil && cfg.Logging.CollectTopic != "" {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval: cfg.Logging.CollectPeriod,
			Topic:        cfg.Logging.CollectTopic,
			Publisher:    producer,
		})
	}
	return server.New(cfg, l, server.Components{
		DB:         db,
		Redis:      rdb,
		Cache:      cache,
		Queue:      q,
		Producer:   producer,
		Consumer:   consumer,
		ClickHouse: ch,
		HTTP:       httpServer,
	})
}
