package services

import (
	"log"
	"sync"
	"time"

	"github.com/mohamedsillahkanu/icf-collect/pkg/models"
)

// Log levels for sync flow entries
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogWarning = "warning"
	LogError   = "error"
)

// SyncLog collects the running per-item outcome log of a flow. Entries are
// mirrored to the process log so no error is ever silent.
type SyncLog struct {
	mu      sync.Mutex
	entries []models.SyncLogEntry
}

// NewSyncLog creates an empty log
func NewSyncLog() *SyncLog {
	return &SyncLog{}
}

// Add appends one entry and echoes it to the process log
func (l *SyncLog) Add(level, message string) {
	l.mu.Lock()
	l.entries = append(l.entries, models.SyncLogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: message,
	})
	l.mu.Unlock()

	switch level {
	case LogError:
		log.Printf("✗ %s", message)
	case LogWarning:
		log.Printf("⚠️  %s", message)
	case LogSuccess:
		log.Printf("✓ %s", message)
	default:
		log.Printf("ℹ️  %s", message)
	}
}

// Infof-style helpers keep call sites short

func (l *SyncLog) Info(msg string)    { l.Add(LogInfo, msg) }
func (l *SyncLog) Success(msg string) { l.Add(LogSuccess, msg) }
func (l *SyncLog) Warning(msg string) { l.Add(LogWarning, msg) }
func (l *SyncLog) Error(msg string)   { l.Add(LogError, msg) }

// Entries returns a copy of the collected entries
func (l *SyncLog) Entries() []models.SyncLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.SyncLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
