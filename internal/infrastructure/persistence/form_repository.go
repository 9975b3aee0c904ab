package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// FormRepository persists form entries (schema, settings, remote config and
// the remote-mapping cache) as JSON documents keyed by form id.
type FormRepository struct {
	db *sql.DB
}

// NewFormRepository creates a new FormRepository
func NewFormRepository(db *sql.DB) *FormRepository {
	return &FormRepository{db: db}
}

// Save upserts a form entry. The mapping cache rides along, so every
// successful remote creation is durable the moment the caller saves.
func (r *FormRepository) Save(ctx context.Context, entry *models.FormEntry) error {
	doc, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize form %s: %w", entry.ID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, doc, updated_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE title = VALUES(title), doc = VALUES(doc), updated_at = VALUES(updated_at)
	`, constants.TableForms)

	_, err = r.db.ExecContext(ctx, query, entry.ID, entry.Title, doc, entry.UpdatedAt, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save form %s: %w", entry.ID, err)
	}
	return nil
}

// Get loads one form entry by id
func (r *FormRepository) Get(ctx context.Context, id string) (*models.FormEntry, error) {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", constants.TableForms)

	var doc []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("form", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form %s: %w", id, err)
	}

	var entry models.FormEntry
	if err := json.Unmarshal(doc, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse form %s: %w", id, err)
	}
	return &entry, nil
}

// List returns every stored form entry
func (r *FormRepository) List(ctx context.Context) ([]models.FormEntry, error) {
	query := fmt.Sprintf("SELECT doc FROM %s ORDER BY updated_at DESC", constants.TableForms)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list forms: %w", err)
	}
	defer rows.Close()

	var entries []models.FormEntry
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			continue
		}
		var entry models.FormEntry
		if err := json.Unmarshal(doc, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes a form entry by id
func (r *FormRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", constants.TableForms)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete form %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("form", id)
	}
	return nil
}
