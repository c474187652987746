package repositories

import (
	"context"

	"relaycast/internal/core/ports"
	"relaycast/internal/infrastructure/repositories/memory"
	pgrepo "relaycast/internal/infrastructure/repositories/postgres"
	redisrepo "relaycast/internal/infrastructure/repositories/redis"
	"relaycast/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// RepositoryFactory builds repositories for the configured backend and
// falls back to memory when the backend cannot be reached.
type RepositoryFactory struct {
	backend     string
	redisClient *redis.Client
	pgPool      *pgxpool.Pool
	logger      *zap.SugaredLogger

	// Non-nil when event session caching is enabled.
	cachedEventSessions *CachedEventSessionRepository

	// Memory repositories are shared so every caller sees the same state.
	memEventSessions ports.EventSessionRepository
	memChannels      ports.ChannelStackRepository
	memLayouts       ports.LayoutRepository
	memParticipants  ports.ParticipantStreamRepository
}

func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		backend: BackendMemory,
		logger:  logger,
	}

	switch cfg.Storage.Backend {
	case BackendRedis:
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories", "error", err)
			break
		}
		factory.redisClient = client
		factory.backend = BackendRedis
	case BackendPostgres:
		pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.ConnectTimeout, logger)
		if err != nil {
			logger.Warnw("failed to connect to Postgres, falling back to memory repositories", "error", err)
			break
		}
		factory.pgPool = pool
		factory.backend = BackendPostgres
	}

	if factory.backend == BackendMemory {
		factory.memEventSessions = memory.NewMemoryEventSessionRepository()
		factory.memChannels = memory.NewMemoryChannelStackRepository()
		factory.memLayouts = memory.NewMemoryLayoutRepository()
		factory.memParticipants = memory.NewMemoryParticipantStreamRepository()
	}

	if ttl := cfg.Storage.EventSessionCacheTTL; ttl > 0 {
		factory.cachedEventSessions = NewCachedEventSessionRepository(factory.backendEventSessions(), ttl, clockwork.NewRealClock())
	}

	logger.Infow("repositories ready",
		"backend", factory.backend,
		"event_session_cache_ttl", cfg.Storage.EventSessionCacheTTL,
	)
	return factory
}

// Backend reports the backend in use after any fallback.
func (f *RepositoryFactory) Backend() string {
	return f.backend
}

func (f *RepositoryFactory) CreateEventSessionRepository() ports.EventSessionRepository {
	if f.cachedEventSessions != nil {
		return f.cachedEventSessions
	}
	return f.backendEventSessions()
}

func (f *RepositoryFactory) backendEventSessions() ports.EventSessionRepository {
	switch f.backend {
	case BackendRedis:
		return redisrepo.NewRedisEventSessionRepository(f.redisClient)
	case BackendPostgres:
		return pgrepo.NewPostgresEventSessionRepository(f.pgPool)
	}
	return f.memEventSessions
}

func (f *RepositoryFactory) CreateChannelStackRepository() ports.ChannelStackRepository {
	switch f.backend {
	case BackendRedis:
		return redisrepo.NewRedisChannelStackRepository(f.redisClient)
	case BackendPostgres:
		return pgrepo.NewPostgresChannelStackRepository(f.pgPool)
	}
	return f.memChannels
}

func (f *RepositoryFactory) CreateLayoutRepository() ports.LayoutRepository {
	switch f.backend {
	case BackendRedis:
		return redisrepo.NewRedisLayoutRepository(f.redisClient)
	case BackendPostgres:
		return pgrepo.NewPostgresLayoutRepository(f.pgPool)
	}
	return f.memLayouts
}

func (f *RepositoryFactory) CreateParticipantStreamRepository() ports.ParticipantStreamRepository {
	switch f.backend {
	case BackendRedis:
		return redisrepo.NewRedisParticipantStreamRepository(f.redisClient)
	case BackendPostgres:
		return pgrepo.NewPostgresParticipantStreamRepository(f.pgPool)
	}
	return f.memParticipants
}

// RedisClient is nil unless the redis backend is active.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	return f.redisClient
}

func (f *RepositoryFactory) Close() error {
	if f.cachedEventSessions != nil {
		f.cachedEventSessions.Stop()
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck pings the active backend.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	switch f.backend {
	case BackendRedis:
		return f.redisClient.Ping(ctx).Err()
	case BackendPostgres:
		return f.pgPool.Ping(ctx)
	}
	return nil
}
