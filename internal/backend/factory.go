package backend

import (
	"context"
	"errors"
	"fmt"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/sheets"
	gsheet "casa/internal/sheets/google"
	"casa/internal/storage"
	"casa/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// overridable in tests
	dialAMQP  func(ctx context.Context, url, exchange, queue string) (*amqp.Client, error)
	newSheets func(ctx context.Context, cfg gsheet.Config) (sheets.BackupWriter, error)
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentBackend)
	}
	return &DefaultFactory{
		logger:   logger.WithComponent(log.ComponentBackend),
		dialAMQP: amqp.NewClient,
		newSheets: func(ctx context.Context, cfg gsheet.Config) (sheets.BackupWriter, error) {
			return gsheet.New(ctx, cfg)
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seeds, err := f.categorySeed(config)
	if err != nil {
		return nil, err
	}

	store, err := f.createStore(config, seeds)
	if err != nil {
		return nil, err
	}

	res := &BackendResult{Store: store}
	var eventsClient *amqp.Client

	if config.AMQPURL != "" {
		eventsClient, err = f.dialAMQP(ctx, config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			res.Events = eventsClient
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if config.GoogleSpreadsheetID != "" {
		w, err := f.newSheets(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			f.logger.Warn("Failed to initialize Google Sheets client, sheets export disabled", "error", err)
		} else {
			res.Backup = w
			f.logger.Info("Initialized Google Sheets export", "sheet", config.GoogleSheetName)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if eventsClient != nil {
			if err := eventsClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
			}
		}
		if err := store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		return errors.Join(errs...)
	}

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"events_enabled", res.Events != nil,
		"sheets_enabled", res.Backup != nil)
	return res, nil
}

func (f *DefaultFactory) categorySeed(config Config) ([]core.Category, error) {
	if config.CategorySeedFile == "" {
		return storage.DefaultCategories(), nil
	}
	seeds, err := storage.LoadCategorySeed(config.CategorySeedFile)
	if err != nil {
		return nil, fmt.Errorf("load category seed: %w", err)
	}
	f.logger.Info("Loaded category seed", "path", config.CategorySeedFile, "count", len(seeds))
	return seeds, nil
}

func (f *DefaultFactory) createStore(config Config, seeds []core.Category) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath,
			storage.WithCategorySeed(seeds), storage.WithLogger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(config.PostgresDSN,
			storage.WithCategorySeed(seeds), storage.WithLogger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres repository: %w", err)
		}
		f.logger.Info("Initialized postgres store")
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store; data is lost on exit")
		return memory.New(memory.WithCategorySeed(seeds)), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
