package services

import (
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/database"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/dhis2"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/persistence"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/sheets"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/transport"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// ManagerConfig carries the deployment-level settings the services need
type ManagerConfig struct {
	// SheetsURL is the spreadsheet store's relay script endpoint
	SheetsURL string
	// RelayURL is the optional request-relay used when the remote API
	// blocks direct calls; empty disables the relay fallback
	RelayURL string
	// Email identifies this deployment's partition in the cloud catalog
	Email string
}

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.Connection

	Forms       *FormService
	Records     *RecordService
	Sync        *SyncService
	Outbox      *OutboxService
	Aggregation *AggregationService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.Connection, cfg ManagerConfig) *ServiceManager {
	sm := &ServiceManager{db: db}

	formRepo := persistence.NewFormRepository(db.DB())
	recordRepo := persistence.NewRecordRepository(db.DB())
	outboxRepo := persistence.NewOutboxRepository(db.DB())

	store := sheets.NewClient(cfg.SheetsURL)
	router := transport.NewDefaultRouter(cfg.RelayURL)
	newAPI := func(rc *models.RemoteConfig) RemoteAPI {
		return dhis2.NewClient(router, rc)
	}

	sm.Aggregation = NewAggregationService()
	sm.Records = NewRecordService(store, recordRepo, outboxRepo, sm.Aggregation)
	sm.Forms = NewFormService(formRepo, store, cfg.Email)
	sm.Sync = NewSyncService(newAPI, sm.Aggregation, recordRepo, formRepo.Save)
	sm.Outbox = NewOutboxService(outboxRepo, store, recordRepo, store.Ping)

	return sm
}

// Start launches the background workers
func (sm *ServiceManager) Start() {
	sm.Outbox.Start()
}

// Stop shuts the background workers down and waits for them
func (sm *ServiceManager) Stop() {
	sm.Outbox.Stop()
}
