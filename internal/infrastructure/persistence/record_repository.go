package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// RecordRepository stores collected records as JSON payloads with the sync
// state lifted into indexed columns so the orchestrator can select unsynced
// rows without scanning documents.
type RecordRepository struct {
	db *sql.DB
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Insert stores a newly submitted record
func (r *RecordRepository) Insert(ctx context.Context, formID string, record models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, form_id, payload, synced, offline, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, constants.TableRecords)

	offline, _ := record[constants.KeyOffline].(bool)
	createdAt := record.Timestamp()
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, query, record.ID(), formID, payload, record.Synced(), offline, createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", record.ID(), err)
	}
	return nil
}

// Update rewrites a record's payload and sync columns after a state change
func (r *RecordRepository) Update(ctx context.Context, formID string, record models.Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET payload = ?, synced = ?, sync_error = ?, offline = ?
		WHERE form_id = ? AND id = ?
	`, constants.TableRecords)

	offline, _ := record[constants.KeyOffline].(bool)
	var syncErr sql.NullString
	if msg := record.SyncError(); msg != "" {
		syncErr = sql.NullString{String: msg, Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query, payload, record.Synced(), syncErr, offline, formID, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", record.ID(), err)
	}
	return nil
}

// List returns every record for a form in creation order
func (r *RecordRepository) List(ctx context.Context, formID string) ([]models.Record, error) {
	query := fmt.Sprintf(`
		SELECT payload FROM %s WHERE form_id = ? ORDER BY created_at ASC
	`, constants.TableRecords)
	return r.scan(ctx, query, formID)
}

// ListUnsynced returns the records the event flow still has to deliver.
// Synced records never reappear here, even after later edits.
func (r *RecordRepository) ListUnsynced(ctx context.Context, formID string) ([]models.Record, error) {
	query := fmt.Sprintf(`
		SELECT payload FROM %s WHERE form_id = ? AND synced = FALSE ORDER BY created_at ASC
	`, constants.TableRecords)
	return r.scan(ctx, query, formID)
}

// Count reports total and synced record counts for a form
func (r *RecordRepository) Count(ctx context.Context, formID string) (total, synced int, err error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(synced), 0) FROM %s WHERE form_id = ?
	`, constants.TableRecords)
	err = r.db.QueryRowContext(ctx, query, formID).Scan(&total, &synced)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, synced, nil
}

func (r *RecordRepository) scan(ctx context.Context, query string, args ...interface{}) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var record models.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
