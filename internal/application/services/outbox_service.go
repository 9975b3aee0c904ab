package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/persistence"
	"github.com/mohamedsillahkanu/icf-collect/internal/infrastructure/sheets"
	"github.com/mohamedsillahkanu/icf-collect/pkg/constants"
)

// OutboxStore is the queue persistence surface the flush worker needs
type OutboxStore interface {
	OutboxQueue
	Pending(ctx context.Context, limit int) ([]persistence.OutboxEntry, error)
	PendingCount(ctx context.Context) (int, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, retryCount int, lastError string) error
}

// ConnectivityProbe reports whether the store endpoint is reachable
type ConnectivityProbe func(ctx context.Context) bool

const (
	flushBatchSize    = 50
	probeInterval     = 30 * time.Second
	flushCronSchedule = "@every 2m"
	flushTimeout      = 2 * time.Minute
)

// OutboxService redelivers queued submissions. A connectivity watcher
// flushes immediately when the store comes back; a cron schedule catches
// anything the watcher misses. Entries are delivered strictly in arrival
// order, stopping at the first failure so order is never inverted.
type OutboxService struct {
	outbox  OutboxStore
	store   SheetStore
	records RecordStore
	probe   ConnectivityProbe

	cron     *cron.Cron
	flushMu  sync.Mutex
	online   bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewOutboxService creates the flush worker. probe may be nil, which
// disables the watcher and leaves only the scheduled flush.
func NewOutboxService(outbox OutboxStore, store SheetStore, records RecordStore, probe ConnectivityProbe) *OutboxService {
	return &OutboxService{
		outbox:  outbox,
		store:   store,
		records: records,
		probe:   probe,
		online:  true,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the watcher goroutine and the cron schedule
func (s *OutboxService) Start() {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(flushCronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if _, err := s.Flush(ctx); err != nil {
			log.Printf("⚠️ Scheduled outbox flush failed: %v", err)
		}
	}); err != nil {
		log.Printf("⚠️ Could not schedule outbox flush: %v", err)
	}
	s.cron.Start()

	if s.probe != nil {
		s.wg.Add(1)
		go s.watch()
	}
	log.Println("✅ Outbox flush worker started")
}

// Stop halts the schedule and the watcher, waiting for them to finish
func (s *OutboxService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		s.wg.Wait()
		log.Println("Outbox flush worker stopped")
	})
}

// watch probes connectivity and flushes on the offline-to-online edge
func (s *OutboxService) watch() {
	defer s.wg.Done()
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			up := s.probe(ctx)
			if up && !s.online {
				log.Println("🔄 Store reachable again, flushing queued submissions...")
				if _, err := s.Flush(ctx); err != nil {
					log.Printf("⚠️ Outbox flush failed: %v", err)
				}
			}
			s.online = up
			cancel()
		}
	}
}

// Flush delivers pending entries oldest first. Returns how many were
// delivered; a delivery failure parks the entry for retry and stops the
// pass so later entries never overtake earlier ones.
func (s *OutboxService) Flush(ctx context.Context) (int, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if s.store == nil || !s.store.Configured() {
		return 0, nil
	}

	delivered := 0
	for {
		entries, err := s.outbox.Pending(ctx, flushBatchSize)
		if err != nil {
			return delivered, err
		}
		if len(entries) == 0 {
			return delivered, nil
		}

		for _, entry := range entries {
			var req sheets.SubmitRequest
			if err := json.Unmarshal([]byte(entry.Payload), &req); err != nil {
				// Unreadable payloads can never succeed; park them
				if merr := s.outbox.MarkRetry(ctx, entry.ID, constants.MaxRetryAttempts, "unreadable payload: "+err.Error()); merr != nil {
					return delivered, merr
				}
				continue
			}

			if err := s.store.Submit(ctx, &req); err != nil {
				if merr := s.outbox.MarkRetry(ctx, entry.ID, entry.RetryCount+1, err.Error()); merr != nil {
					return delivered, merr
				}
				return delivered, nil
			}

			if err := s.outbox.MarkProcessed(ctx, entry.ID); err != nil {
				return delivered, err
			}
			s.clearOfflineFlag(ctx, &entry, req)
			delivered++
		}

		if len(entries) < flushBatchSize {
			return delivered, nil
		}
	}
}

// PendingCount reports how many submissions still wait in the queue
func (s *OutboxService) PendingCount(ctx context.Context) (int, error) {
	return s.outbox.PendingCount(ctx)
}

func (s *OutboxService) clearOfflineFlag(ctx context.Context, entry *persistence.OutboxEntry, req sheets.SubmitRequest) {
	if req.Data == nil || req.Data.ID() == "" {
		return
	}
	delete(req.Data, constants.KeyOffline)
	if err := s.records.Update(ctx, entry.FormID, req.Data); err != nil {
		log.Printf("⚠️ Could not clear offline flag for record %s: %v", req.Data.ID(), err)
	}
}
