package interfaces

import "indicator-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the fetch journal.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveFetchRecords inserts the per-indicator outcomes of one batch.
	SaveFetchRecords(records []models.MFetchRecord) error

	// -----------------------------------------------------------------------------

	// RecentFetchRecords returns the newest records first. An empty country
	// matches every country.
	RecentFetchRecords(country string, limit int) ([]models.MFetchRecord, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes records older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
