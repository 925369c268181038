package storage

import (
	"database/sql"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open sqlite "+dsn, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping sqlite "+dsn, err)
	}

	// A single connection avoids SQLITE_BUSY between concurrent batches.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS fetch_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL,
			indicator TEXT NOT NULL,
			status TEXT NOT NULL,
			observations INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create fetch_records", err)
	}
	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS idx_fetch_records_country ON fetch_records (country, fetched_at)`); err != nil {
		return helpers.NewDatabaseError("create fetch_records index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveFetchRecords(records []models.MFetchRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO fetch_records (source, country, indicator, status, observations, error, duration_ms, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(r.Source, r.Country, r.Indicator, string(r.Status), r.Observations, r.Error, r.DurationMs, r.FetchedAt.UTC().UnixMilli())
		if err != nil {
			return helpers.NewDatabaseError("insert fetch record", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentFetchRecords(country string, limit int) ([]models.MFetchRecord, error) {
	query := `SELECT source, country, indicator, status, observations, error, duration_ms, fetched_at FROM fetch_records`
	args := []any{}
	if country != "" {
		query += ` WHERE country = ?`
		args = append(args, country)
	}
	query += ` ORDER BY fetched_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.DB.Query(query, args...)
	if err != nil {
		return nil, helpers.NewDatabaseError("query fetch records", err)
	}
	defer rows.Close()

	return scanFetchRecords(rows)
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).UnixMilli()

	d.Logger.Info("Cleaning up fetch records older than %d days...", retentionDays)

	res, err := d.DB.Exec("DELETE FROM fetch_records WHERE fetched_at < ?", cutoff)
	if err != nil {
		d.Logger.Error("Cleanup fetch_records error: %v", err)
		return helpers.NewDatabaseError("cleanup fetch_records", err)
	}

	n, _ := res.RowsAffected()
	d.Logger.Info("Cleanup completed (%d rows removed)", n)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// scanFetchRecords reads rows selected in journal column order.
func scanFetchRecords(rows *sql.Rows) ([]models.MFetchRecord, error) {
	records := []models.MFetchRecord{}
	for rows.Next() {
		var r models.MFetchRecord
		var status string
		var fetchedAt int64
		if err := rows.Scan(&r.Source, &r.Country, &r.Indicator, &status, &r.Observations, &r.Error, &r.DurationMs, &fetchedAt); err != nil {
			return nil, helpers.NewDatabaseError("scan fetch record", err)
		}
		r.Status = models.IndicatorStatus(status)
		r.FetchedAt = time.UnixMilli(fetchedAt).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate fetch records", err)
	}
	return records, nil
}
