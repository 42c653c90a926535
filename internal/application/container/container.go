// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/AtRiskMedia/glimpse-go/internal/application/services"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/detect"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/storage"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services (stateless singletons)
	AffordanceService *services.AffordanceService
	RoutingService    *services.RoutingService
	ReconcileService  *services.ReconcileService
	AvatarService     *services.AvatarService

	// Infrastructure Dependencies
	Logger         *logging.ChanneledLogger
	LogBroadcaster *logging.LogBroadcaster
	PerfTracker    *performance.Tracker
	Storage        storage.KeyValueStore
	SnapshotCache  interfaces.SnapshotCache
	Detector       *detect.Detector
	Broadcaster    messaging.Broadcaster
	Monitor        *messaging.MonitorBroadcaster
}

// NewContainer creates and wires all singleton services
func NewContainer(logger *logging.ChanneledLogger, probe detect.Probe) (*Container, error) {
	logBroadcaster := logging.GetBroadcaster()
	perfTracker := performance.NewTracker(nil)

	kv, err := openStorage(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage backend: %w", err)
	}

	snapshotCache := stores.NewSnapshotStore(kv, config.AuthCacheTTL, logger)
	detector := detect.NewDetector(probe, logger)
	broadcaster := messaging.NewSSEBroadcaster(logger)

	monitor := messaging.NewMonitorBroadcaster(func() map[string]any {
		stats := perfTracker.GetOverallStats()
		stats["sseConnections"] = broadcaster.TotalConnectionCount()
		return stats
	}, config.MonitorTickInterval)

	avatarProcessor := media.NewAvatarProcessor(config.AvatarDir, config.AvatarSize)
	avatarService := services.NewAvatarService(avatarProcessor, config.AvatarAESKey, config.AvatarFetchLimit, logger, perfTracker)

	affordanceService := services.NewAffordanceService(snapshotCache, avatarService, monitor, logger, perfTracker)
	routingService := services.NewRoutingService(detector, services.ConfigSDKGateway{}, monitor, logger, perfTracker)
	reconcileService := services.NewReconcileService(snapshotCache, affordanceService, broadcaster, monitor, logger, perfTracker)

	return &Container{
		AffordanceService: affordanceService,
		RoutingService:    routingService,
		ReconcileService:  reconcileService,
		AvatarService:     avatarService,

		Logger:         logger,
		LogBroadcaster: logBroadcaster,
		PerfTracker:    perfTracker,
		Storage:        kv,
		SnapshotCache:  snapshotCache,
		Detector:       detector,
		Broadcaster:    broadcaster,
		Monitor:        monitor,
	}, nil
}

// openStorage selects the storage backend from configuration.
func openStorage(logger *logging.ChanneledLogger) (storage.KeyValueStore, error) {
	switch config.StorageDriver {
	case "memory":
		logger.Database().Info("Using in-memory session storage")
		return storage.NewMemoryStore(), nil

	case "sqlite3":
		db, err := database.NewConnectionWithLogger("sqlite3", "file:"+config.SQLitePath+"?_journal_mode=WAL", logger)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db, logger)

	case "libsql":
		if config.TursoURL == "" {
			return nil, fmt.Errorf("TURSO_DATABASE_URL is required for the libsql driver")
		}
		if err := database.TestTursoConnectionWithLogger(config.TursoURL, config.TursoToken, logger); err != nil {
			return nil, fmt.Errorf("turso connection check failed: %w", err)
		}
		dsn := config.TursoURL
		if config.TursoToken != "" {
			dsn += "?authToken=" + config.TursoToken
		}
		db, err := database.NewConnectionWithLogger("libsql", dsn, logger)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db, logger)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.StorageDriver)
	}
}

// Close releases infrastructure resources held by the container.
func (c *Container) Close() error {
	if c.Storage != nil {
		return c.Storage.Close()
	}
	return nil
}
