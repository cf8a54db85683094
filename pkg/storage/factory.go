package storage

import (
	"context"
	"fmt"

	"github.com/flowkit/convoengine/pkg/config"
	"github.com/flowkit/convoengine/pkg/storage/memory"
	"github.com/flowkit/convoengine/pkg/storage/postgres"
	"github.com/flowkit/convoengine/pkg/storage/sqlite"
)

// New selects and constructs a Port backend based on cfg.Engine.DBType
// (spec.md §9's "runtime factory keyed on ENGINE_DB_TYPE"). Mongo and
// Dynamo are recognized selectors with no driver in this build; selecting
// them returns ErrUnavailable rather than silently falling back.
func New(ctx context.Context, cfg *config.Config) (Port, error) {
	switch cfg.Engine.DBType {
	case config.DBTypeMemory, "":
		return memory.New(), nil
	case config.DBTypeSQLite:
		return sqlite.Open(ctx, cfg.SQLite)
	case config.DBTypePostgres:
		return postgres.Open(ctx, cfg.Postgres)
	case config.DBTypeMongo, config.DBTypeDynamo:
		return nil, fmt.Errorf("%w: %s (no driver wired in this build, see DESIGN.md)", ErrUnavailable, cfg.Engine.DBType)
	default:
		return nil, fmt.Errorf("%w: unknown db type %q", ErrUnavailable, cfg.Engine.DBType)
	}
}
