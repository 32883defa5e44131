package cmd

import (
	"fmt"

	"github.com/ocularid/eyemark/internal/attendance"
	"github.com/ocularid/eyemark/internal/config"
	"github.com/ocularid/eyemark/internal/extractor"
	"github.com/ocularid/eyemark/internal/match"
	"github.com/ocularid/eyemark/internal/store"
	"github.com/ocularid/eyemark/internal/store/postgres"
	"github.com/ocularid/eyemark/internal/store/sqlite"
)

// defaultDBPath is where the SQLite backend lives when EYEMARK_DB_PATH is unset.
const defaultDBPath = "db/attendance.db"

// openStore picks the storage backend. DATABASE_URL selects PostgreSQL,
// otherwise a local SQLite file is used.
func openStore(cfg *config.Config) (store.IdentityStore, error) {
	if cfg.Database.URL != "" {
		st, err := postgres.New(&cfg.Database, cfg.Extractor.Dim)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		fmt.Println("Using PostgreSQL backend")
		return st, nil
	}

	path := cfg.Database.Path
	if path == "" {
		path = defaultDBPath
	}
	st, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}
	fmt.Printf("Using SQLite backend (%s)\n", path)
	return st, nil
}

// newExtractor builds the embedding client from config.
func newExtractor(cfg *config.Config) *extractor.Client {
	return extractor.New(cfg.Extractor.URL, cfg.Extractor.Model, cfg.Extractor.Dim)
}

// newMarker wires the match pipeline with the calibrated threshold.
func newMarker(cfg *config.Config, st store.IdentityStore) *attendance.Marker {
	return attendance.NewMarker(st, match.ForEngine(cfg.Match.Engine), cfg.MatchThreshold())
}
