package services

import (
	"context"
	"log"
	"time"

	apperrors "github.com/mohamedsillahkanu/icf-collect/pkg/errors"
	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
	"github.com/mohamedsillahkanu/icf-collect/pkg/utils"
)

// FormCatalog is the local form persistence surface
type FormCatalog interface {
	Save(ctx context.Context, entry *models.FormEntry) error
	Get(ctx context.Context, id string) (*models.FormEntry, error)
	List(ctx context.Context) ([]models.FormEntry, error)
	Delete(ctx context.Context, id string) error
}

// CloudCatalog is the spreadsheet store's form catalog surface
type CloudCatalog interface {
	Configured() bool
	SaveForm(ctx context.Context, email string, entry *models.FormEntry) error
	LoadForms(ctx context.Context, email string) ([]models.FormEntry, error)
	DeleteForm(ctx context.Context, email, formID, formTitle string) error
	SaveCascadeData(ctx context.Context, cascadeID, compressed string, columns []string) error
	GetCascadeData(ctx context.Context, cascadeID string) (string, []string, error)
}

// CatalogSyncResult summarizes a two-way catalog merge
type CatalogSyncResult struct {
	Pulled int `json:"pulled"`
	Pushed int `json:"pushed"`
}

// FormService owns the form catalog: local persistence plus a two-way
// last-write-wins merge with the cloud copy, keyed by form id and decided
// by UpdatedAt. The local store is authoritative between merges.
type FormService struct {
	forms FormCatalog
	cloud CloudCatalog
	email string
}

// NewFormService creates a new FormService. email identifies this
// deployment's catalog partition in the cloud store.
func NewFormService(forms FormCatalog, cloud CloudCatalog, email string) *FormService {
	return &FormService{forms: forms, cloud: cloud, email: email}
}

// Save assigns identity and timestamps, persists locally, and pushes to the
// cloud catalog best-effort. A cloud failure is not a save failure; the next
// catalog merge repairs it.
func (s *FormService) Save(ctx context.Context, entry *models.FormEntry) (*models.FormEntry, error) {
	if entry.Schema.Settings.Title == "" {
		return nil, apperrors.NewValidationError("title", "form title is required")
	}
	if entry.ID == "" {
		entry.ID = utils.GenerateID()
	}
	if entry.Schema.Settings.FormID == "" {
		entry.Schema.Settings.FormID = entry.ID
	}
	entry.Title = entry.Schema.Settings.Title
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	if err := s.forms.Save(ctx, entry); err != nil {
		return nil, err
	}

	if s.cloud != nil && s.cloud.Configured() {
		if err := s.cloud.SaveForm(ctx, s.email, entry); err != nil {
			log.Printf("⚠️ Could not push form %s to cloud catalog: %v", entry.ID, err)
		} else {
			// The rename marker has been consumed by the store
			entry.Schema.Settings.OriginalTitle = entry.Schema.Settings.Title
			if err := s.forms.Save(ctx, entry); err != nil {
				return nil, err
			}
		}
	}
	return entry, nil
}

// Get returns one form by id
func (s *FormService) Get(ctx context.Context, id string) (*models.FormEntry, error) {
	return s.forms.Get(ctx, id)
}

// List returns all known forms
func (s *FormService) List(ctx context.Context) ([]models.FormEntry, error) {
	return s.forms.List(ctx)
}

// Delete removes a form locally and from the cloud catalog
func (s *FormService) Delete(ctx context.Context, id string) error {
	entry, err := s.forms.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.forms.Delete(ctx, id); err != nil {
		return err
	}
	if s.cloud != nil && s.cloud.Configured() {
		if err := s.cloud.DeleteForm(ctx, s.email, entry.ID, entry.Title); err != nil {
			log.Printf("⚠️ Could not delete form %s from cloud catalog: %v", id, err)
		}
	}
	return nil
}

// SyncCatalog merges the local and cloud catalogs both ways. The newer copy
// of each form wins; forms known to only one side are copied to the other.
func (s *FormService) SyncCatalog(ctx context.Context) (*CatalogSyncResult, error) {
	if s.cloud == nil || !s.cloud.Configured() {
		return nil, apperrors.NewNotConfiguredError("cloud form catalog")
	}

	local, err := s.forms.List(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := s.cloud.LoadForms(ctx, s.email)
	if err != nil {
		return nil, err
	}

	localByID := make(map[string]*models.FormEntry, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}

	result := &CatalogSyncResult{}
	remoteIDs := make(map[string]bool, len(remote))
	for i := range remote {
		cloud := &remote[i]
		remoteIDs[cloud.ID] = true
		mine := localByID[cloud.ID]
		if cloud.NewerThan(mine) {
			if err := s.forms.Save(ctx, cloud); err != nil {
				return result, err
			}
			result.Pulled++
		} else if mine != nil && mine.NewerThan(cloud) {
			if err := s.cloud.SaveForm(ctx, s.email, mine); err != nil {
				log.Printf("⚠️ Could not push form %s during catalog sync: %v", mine.ID, err)
				continue
			}
			result.Pushed++
		}
	}

	for i := range local {
		if remoteIDs[local[i].ID] {
			continue
		}
		if err := s.cloud.SaveForm(ctx, s.email, &local[i]); err != nil {
			log.Printf("⚠️ Could not push form %s during catalog sync: %v", local[i].ID, err)
			continue
		}
		result.Pushed++
	}

	log.Printf("✅ Form catalog synced: %d pulled, %d pushed", result.Pulled, result.Pushed)
	return result, nil
}

// SaveCascade stores a compressed cascade dataset under a shared id
func (s *FormService) SaveCascade(ctx context.Context, cascadeID, compressed string, columns []string) error {
	if s.cloud == nil || !s.cloud.Configured() {
		return apperrors.NewNotConfiguredError("cloud form catalog")
	}
	if cascadeID == "" {
		return apperrors.NewValidationError("cascadeId", "cascade id is required")
	}
	return s.cloud.SaveCascadeData(ctx, cascadeID, compressed, columns)
}

// GetCascade fetches a compressed cascade dataset by id
func (s *FormService) GetCascade(ctx context.Context, cascadeID string) (string, []string, error) {
	if s.cloud == nil || !s.cloud.Configured() {
		return "", nil, apperrors.NewNotConfiguredError("cloud form catalog")
	}
	return s.cloud.GetCascadeData(ctx, cascadeID)
}
