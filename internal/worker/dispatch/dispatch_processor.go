package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"devicesync.service/internal/core"
	"devicesync.service/internal/core/model"
	"devicesync.service/internal/ports/messaging"
	"devicesync.service/internal/ports/repository"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Dispatcher is the slice of the sync service this processor needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, syncID int64) (*model.EmployeeDeviceSync, error)
}

// DispatchProcessor handles jobs from the dispatch queue: it drives one
// Pending sync record to a terminal outcome by enrolling the employee on the
// device. A circuit breaker guards the device bridge so a dead bridge does
// not burn through records one transport fault at a time.
type DispatchProcessor struct {
	syncRepo repository.SyncRepository
	service  Dispatcher
	cb       *gobreaker.CircuitBreaker
}

// NewProcessor creates a new processor for the dispatch queue. It sets up a
// circuit breaker to shield the device bridge when it is struggling.
func NewProcessor(syncRepo repository.SyncRepository, service Dispatcher) *DispatchProcessor {
	settings := gobreaker.Settings{
		Name:        "Device-Bridge",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip if failure rate is bigger than 50% after at least 10 requests
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &DispatchProcessor{
		syncRepo: syncRepo,
		service:  service,
		cb:       gobreaker.NewCircuitBreaker(settings),
	}
}

// Process is the core logic for handling a message from the dispatch queue.
// A malformed body is dropped. A record that is no longer Pending (queue
// re-delivery after the outcome landed, or an operator beat us to it) is
// skipped without touching the device. An open circuit breaker retries with
// backoff and leaves the record untouched, so the bridge outage does not get
// recorded as device failures. Once Dispatch has run, the outcome (Synced or
// Failed) is terminal; the engine does not re-dispatch on its own.
func (p *DispatchProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.DispatchEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal dispatch event")
		return false, 0, err // Do not retry on malformed message
	}

	record, err := p.syncRepo.GetSyncRecordByID(ctx, event.SyncID)
	if err != nil {
		return true, 10, fmt.Errorf("failed to get sync record from db: %w", err)
	}
	if record == nil {
		log.Ctx(ctx).Error().Int64("sync_id", event.SyncID).Msg("Dispatch event references unknown sync record. Dropping.")
		return false, 0, nil
	}

	if record.Status != model.SyncStatusPending {
		log.Ctx(ctx).Info().
			Int64("sync_id", record.ID).
			Str("status", string(record.Status)).
			Msg("Sync record already resolved. Skipping.")
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		_, dispatchErr := p.service.Dispatch(ctx, event.SyncID)
		return nil, dispatchErr
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Bridge is down; the record is still Pending. Come back later.
			delay := calculateBackoff(1)
			return true, delay, err
		}
		if errors.Is(err, core.ErrTransportFault) {
			// The record already landed in Failed with a transport reason;
			// the engine does not re-dispatch terminal outcomes. The error
			// still counted against the breaker.
			log.Ctx(ctx).Warn().Err(err).Int64("sync_id", record.ID).Msg("Dispatch hit a transport fault")
			return false, 0, nil
		}
		// Infrastructure error inside Dispatch (store unavailable); the
		// record state is unknown, retry and let the Pending check decide.
		return true, 10, err
	}

	return false, 0, nil
}

// calculateBackoff determines how long to wait before retrying a failed job.
// It increases the delay exponentially with each retry.
func calculateBackoff(retryCount int) int32 {
	backoff := int32(math.Pow(2, float64(retryCount)) * 10)
	if backoff > 3600 {
		return 3600 // max at 1 hour
	}
	return backoff
}
