package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	schemaVersionKey     = keyPrefix + "schema:version"
	currentSchemaVersion = 1
)

type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client) error
}

// Migrate runs every migration newer than the stored schema version.
func Migrate(ctx context.Context, client *redis.Client, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}
		if err := migration.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, version int) error {
	return client.Set(ctx, schemaVersionKey, version, 0).Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			// Initial key layout. Keys are created lazily on first write.
			Version: 1,
			Up:      func(ctx context.Context, client *redis.Client) error { return nil },
		},
	}
}
