// Package bootstrap opens the storage backend selected by configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sacco_backoffice/internal/domain/member"
	"sacco_backoffice/internal/domain/statusrun"
	"sacco_backoffice/internal/infra/config"
	idb "sacco_backoffice/internal/infra/database"
	"sacco_backoffice/internal/infra/filestore"

	"github.com/sirupsen/logrus"
)

const migrateTimeout = 30 * time.Second

// Stores bundles the repositories of one backend.
type Stores struct {
	Members member.Repository
	Runs    statusrun.Repository
	db      *sql.DB
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStores connects to the backend named by cfg.StoreDriver.
func OpenStores(cfg *config.AppConfig, logger *logrus.Entry) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverFile:
		repo, err := filestore.NewJSONRepository(cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("could not open data file %s: %w", cfg.DataFile, err)
		}
		logger.WithField("data_file", cfg.DataFile).Info("Using JSON file store")
		return &Stores{Members: repo, Runs: repo.RunRepository()}, nil

	case config.StoreDriverPostgres:
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := idb.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not apply migrations: %w", err)
		}
		logger.Info("Database connection established and schema up to date")
		return &Stores{
			Members: idb.NewPostgresMemberRepository(db),
			Runs:    idb.NewPostgresRunRepository(db),
			db:      db,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
