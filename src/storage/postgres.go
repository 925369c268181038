package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"indicator-observer/src/helpers"
	"indicator-observer/src/logger"
	"indicator-observer/src/models"

	_ "github.com/lib/pq"
)

var unsafeSchemaChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps each binary's journal in a schema named after the executable.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PostgresDB{
		Config: cfg,
		Schema: SchemaName(name),
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

// SchemaName turns an executable name into a safe schema identifier.
func SchemaName(name string) string {
	name = unsafeSchemaChars.ReplaceAllString(strings.ToLower(name), "_")
	if name == "" {
		return "indicator_observer"
	}
	return name
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("open postgres", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return helpers.NewDatabaseError("ping postgres", err)
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return helpers.NewDatabaseError("create schema "+d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) table() string {
	return fmt.Sprintf(`"%s"."fetch_records"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL,
			indicator TEXT NOT NULL,
			status TEXT NOT NULL,
			observations INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return helpers.NewDatabaseError("create fetch_records", err)
	}

	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS fetch_records_country_idx ON %s (country, fetched_at)`, d.table())
	if _, err := d.DB.Exec(index); err != nil {
		return helpers.NewDatabaseError("create fetch_records index", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveFetchRecords(records []models.MFetchRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return helpers.NewDatabaseError("begin", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (source, country, indicator, status, observations, error, duration_ms, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.table()))
	if err != nil {
		return helpers.NewDatabaseError("prepare insert", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Source, r.Country, r.Indicator, string(r.Status), r.Observations, r.Error, r.DurationMs, r.FetchedAt.UTC()); err != nil {
			return helpers.NewDatabaseError("insert fetch record", err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentFetchRecords(country string, limit int) ([]models.MFetchRecord, error) {
	query := fmt.Sprintf(`SELECT source, country, indicator, status, observations, error, duration_ms, fetched_at FROM %s`, d.table())
	args := []any{}
	if country != "" {
		query += ` WHERE country = $1`
		args = append(args, country)
	}
	query += fmt.Sprintf(` ORDER BY fetched_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := d.DB.Query(query, args...)
	if err != nil {
		return nil, helpers.NewDatabaseError("query fetch records", err)
	}
	defer rows.Close()

	records := []models.MFetchRecord{}
	for rows.Next() {
		var r models.MFetchRecord
		var status string
		if err := rows.Scan(&r.Source, &r.Country, &r.Indicator, &status, &r.Observations, &r.Error, &r.DurationMs, &r.FetchedAt); err != nil {
			return nil, helpers.NewDatabaseError("scan fetch record", err)
		}
		r.Status = models.IndicatorStatus(status)
		r.FetchedAt = r.FetchedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, helpers.NewDatabaseError("iterate fetch records", err)
	}
	return records, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	d.Logger.Info("Cleaning up fetch records older than %d days...", retentionDays)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM %s WHERE fetched_at < $1`, d.table()), cutoff); err != nil {
		d.Logger.Error("Cleanup fetch_records error: %v", err)
		return helpers.NewDatabaseError("cleanup fetch_records", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
