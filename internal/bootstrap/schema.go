package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/database"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

// InitializeSchema creates the local store tables when they do not exist
func InitializeSchema(db *database.Connection) error {
	ctx := context.Background()

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			doc LONGTEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`, constants.TableForms),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) NOT NULL,
			form_id VARCHAR(36) NOT NULL,
			payload LONGTEXT NOT NULL,
			synced BOOLEAN NOT NULL DEFAULT FALSE,
			sync_error TEXT,
			offline BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (form_id, id),
			INDEX idx_records_unsynced (form_id, synced)
		)`, constants.TableRecords),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(36) PRIMARY KEY,
			form_id VARCHAR(36) NOT NULL,
			form_title VARCHAR(255) NOT NULL,
			payload LONGTEXT NOT NULL,
			status VARCHAR(20) NOT NULL,
			retry_count INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME(6) NOT NULL,
			processed_at DATETIME NULL,
			INDEX idx_outbox_status (status, created_at)
		)`, constants.TableOutboxEntries),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Println("✅ Local store schema ready")
	return nil
}
