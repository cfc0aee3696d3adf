package indexer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/occupation"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/database"
)

// LoadStore reads the record store from the configured dataset source.
func LoadStore(ctx context.Context, ds config.DatasetConfig, pg config.PostgresConfig) (*occupation.Store, error) {
	switch ds.Source {
	case config.SourceJSON:
		return occupation.LoadJSON(ds.Path)
	case config.SourcePostgres:
		db, err := database.OpenPostgres(pg)
		if err != nil {
			return nil, fmt.Errorf("connecting to record store: %w", err)
		}
		defer db.Close()
		return occupation.LoadSQL(ctx, db.DB)
	case config.SourceSQLite:
		db, err := database.OpenSQLite(ds.Path)
		if err != nil {
			return nil, fmt.Errorf("opening record store: %w", err)
		}
		defer db.Close()
		return occupation.LoadSQL(ctx, db.DB)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", ds.Source)
	}
}
