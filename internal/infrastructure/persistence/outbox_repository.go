package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// OutboxEntry is one queued offline submission awaiting redelivery
type OutboxEntry struct {
	ID         string
	FormID     string
	FormTitle  string
	Payload    string
	Status     string
	RetryCount int
	LastError  string
	CreatedAt  time.Time
}

// OutboxRepository queues submissions that could not reach the store,
// so a flush after reconnecting redelivers them in arrival order.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue stores one failed submission for later retry
func (r *OutboxRepository) Enqueue(ctx context.Context, formID, formTitle string, payload interface{}) (string, error) {
	id := utils.GenerateID()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	// NOW(6) so arrival order survives same-second enqueues
	query := fmt.Sprintf(`
		INSERT INTO %s (id, form_id, form_title, payload, status, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, 0, NOW(6))
	`, constants.TableOutboxEntries)

	_, err = r.db.ExecContext(ctx, query, id, formID, formTitle, encoded, constants.OutboxStatusPending)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue submission: %w", err)
	}
	return id, nil
}

// Pending retrieves queued submissions in arrival order
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, form_id, form_title, payload, retry_count, created_at
		FROM %s
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, constants.TableOutboxEntries)

	rows, err := r.db.QueryContext(ctx, query, constants.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending submissions: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.FormID, &e.FormTitle, &e.Payload, &e.RetryCount, &e.CreatedAt); err != nil {
			continue
		}
		e.Status = constants.OutboxStatusPending
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PendingCount reports how many submissions are waiting
func (r *OutboxRepository) PendingCount(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = ?", constants.TableOutboxEntries)
	var n int
	if err := r.db.QueryRowContext(ctx, query, constants.OutboxStatusPending).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}
	return n, nil
}

// MarkProcessed retires a delivered entry
func (r *OutboxRepository) MarkProcessed(ctx context.Context, id string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, processed_at = NOW() WHERE id = ?", constants.TableOutboxEntries)
	_, err := r.db.ExecContext(ctx, query, constants.OutboxStatusProcessed, id)
	return err
}

// MarkRetry records the attempt count as passed, parking the entry as failed
// once the attempt budget is spent
func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, retryCount int, lastError string) error {
	status := constants.OutboxStatusPending
	if retryCount >= constants.MaxRetryAttempts {
		status = constants.OutboxStatusFailed
	}
	query := fmt.Sprintf(`
		UPDATE %s SET retry_count = ?, last_error = ?, status = ? WHERE id = ?
	`, constants.TableOutboxEntries)
	_, err := r.db.ExecContext(ctx, query, retryCount, lastError, status, id)
	return err
}
