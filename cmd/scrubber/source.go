package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OCAP2/scrubber/internal/config"
	"github.com/OCAP2/scrubber/internal/database"
	"github.com/OCAP2/scrubber/internal/logging"
	"github.com/OCAP2/scrubber/internal/storage"
	filestorage "github.com/OCAP2/scrubber/internal/storage/file"
	gormstorage "github.com/OCAP2/scrubber/internal/storage/gorm"
)

// DefaultSqlitePath is the database file of the sqlite source when
// source.path is unset.
const DefaultSqlitePath = "scrubber.db"

// importer is implemented by sources that can store sessions.
type importer interface {
	Import(ctx context.Context, sess *storage.Session) error
}

// dbSource closes the database connection together with the source.
type dbSource struct {
	*gormstorage.Backend
	manager *database.Manager
}

func (s *dbSource) Close() error {
	if err := s.Backend.Close(); err != nil {
		return err
	}
	return s.manager.Close()
}

// openSource creates and initializes the source selected by cfg.
func openSource(cfg config.SourceConfig, log *slog.Logger) (storage.Source, error) {
	src, err := createSource(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := src.Init(); err != nil {
		src.Close()
		return nil, fmt.Errorf("initializing %s source: %w", cfg.Type, err)
	}
	log.Info("Marker source ready", "type", cfg.Type)
	return src, nil
}

func createSource(cfg config.SourceConfig, log *slog.Logger) (storage.Source, error) {
	switch cfg.Type {
	case "", "file":
		dir := cfg.Path
		if dir == "" {
			dir = "."
		}
		return filestorage.New(dir, log.With("source", "file")), nil

	case database.DriverSQLite, database.DriverPostgres:
		sqlitePath := cfg.Path
		if cfg.Type == database.DriverSQLite && sqlitePath == "" {
			sqlitePath = DefaultSqlitePath
		}
		m := database.NewManager(logging.NewZerolog(log.With("source", cfg.Type), config.GetString("logLevel")))
		if err := m.Connect(cfg.Type, config.GetDBConfig(), sqlitePath); err != nil {
			return nil, err
		}
		return &dbSource{
			Backend: gormstorage.New(gormstorage.Dependencies{
				DB:           m.DB,
				Log:          log.With("source", m.Driver),
				PollInterval: cfg.PollInterval,
				Migrate:      m.Setup,
			}),
			manager: m,
		}, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}
