package storage

import (
	"fmt"

	"indicator-observer/src/interfaces"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"
)

var (
	_ interfaces.IDatabase = (*AsyncSQLiteDB)(nil)
	_ interfaces.IDatabase = (*PostgresDB)(nil)
	_ interfaces.IDatabase = NopDatabase{}
)

// -----------------------------------------------------------------------------

// NewDatabase picks the journal backend from storage.db_type. The returned
// database is not yet initialized.
func NewDatabase(cfg *models.MConfig, log *logger.Logger) (interfaces.IDatabase, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	case "none", "":
		return NopDatabase{}, nil
	default:
		return nil, fmt.Errorf("unsupported db_type %q", cfg.Storage.DBType)
	}
}

// -----------------------------------------------------------------------------

// NopDatabase discards every record.
type NopDatabase struct{}

func (NopDatabase) Initialize() error { return nil }
func (NopDatabase) SaveFetchRecords(records []models.MFetchRecord) error { return nil }
func (NopDatabase) CleanupOldData() error { return nil }
func (NopDatabase) Close() error { return nil }

func (NopDatabase) RecentFetchRecords(country string, limit int) ([]models.MFetchRecord, error) {
	return []models.MFetchRecord{}, nil
}
