//go:build wireinject
// +build wireinject

package di

import (
	"github.com/kumbhanChoksi/Signals-Backend/pkg/config"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideDatabase,
		ProvideRedis,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Stores and cache
		ProvideJobStore,
		ProvideSignalStore,
		ProvideCandleStore,
		ProvideCacheBackend,
		ProvideSignalCache,

		// Signal events
		ProvideSignalNotifier,
		ProvideSignalSubscriber,
		ProvideSignalPublisher,

		// Dispatch
		ProvideSignalWorker,
		ProvideQueue,
		ProvideQueueService,

		// Use cases
		ProvideSignalService,
		ProvideJobService,
		ProvideCandleIngestor,
		ProvideKafkaConsumer,

		// HTTP
		ProvideAuthenticator,
		ProvideRateLimiter,
		ProvideHealth,
		ProvideStreamConfig,
		ProvideHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
