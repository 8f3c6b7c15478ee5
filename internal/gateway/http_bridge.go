package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"devicesync.service/internal/core/model"
	"devicesync.service/internal/ports/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HTTPBridge implements the DeviceCommandGateway contract against a vendor
// "device bridge" process that speaks the physical terminal protocol. The
// bridge holds the connection to the terminal; this adapter only frames the
// command, bounds the wait and writes the audit log row.
//
// The HTTP client timeout IS the acknowledgment window: a request that runs
// past it is reported as the SENT (no response) outcome, not as an error.
type HTTPBridge struct {
	client  *http.Client
	baseURL string
	logs    repository.SyncLogRepository
}

// NewHTTPBridge returns a bridge adapter with the given acknowledgment window.
func NewHTTPBridge(baseURL string, ackWindow time.Duration, logs repository.SyncLogRepository) *HTTPBridge {
	return &HTTPBridge{
		client: &http.Client{
			Timeout: ackWindow,
		},
		baseURL: baseURL,
		logs:    logs,
	}
}

// commandEnvelope is the JSON body posted to the bridge for one command.
type commandEnvelope struct {
	MessageID        string        `json:"messageId"`
	Command          model.Command `json:"command"`
	PersonID         string        `json:"personId"`
	PersonName       string        `json:"personName"`
	DeviceIdentifier string        `json:"deviceIdentifier"`
}

// bridgeResponse is what the vendor bridge answers with.
type bridgeResponse struct {
	MessageID string `json:"messageId"`
	Ack       bool   `json:"ack"`
	Error     string `json:"error,omitempty"`
}

// Send dispatches one command and returns the persisted sync log describing
// what happened within the acknowledgment window.
func (b *HTTPBridge) Send(ctx context.Context, cmd model.Command, employee model.Employee, device model.BiometricDevice) (*model.DeviceSyncLog, error) {
	envelope := commandEnvelope{
		MessageID:        uuid.NewString(),
		Command:          cmd,
		PersonID:         employee.ID,
		PersonName:       employee.FullName,
		DeviceIdentifier: device.DeviceIdentifier,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command envelope: %w", err)
	}

	entry := &model.DeviceSyncLog{
		MessageID:      envelope.MessageID,
		EmployeeID:     employee.ID,
		DeviceID:       device.ID,
		Command:        cmd,
		Status:         model.LogStatusSent,
		RequestPayload: string(payload),
		CreatedAt:      time.Now().UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/commands", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			// Silence within the window: the command may or may not have
			// reached the terminal. Recorded as SENT, not as a fault. The
			// request context may already be past its deadline, so the log
			// write must not inherit it.
			return entry, b.persist(context.WithoutCancel(ctx), entry)
		}
		b.persistBestEffort(ctx, entry)
		return nil, fmt.Errorf("device bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		b.persistBestEffort(ctx, entry)
		return nil, fmt.Errorf("failed to read bridge response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		entry.Status = model.LogStatusAcknowledged
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict:
		// The terminal explicitly refused the command. That is a protocol
		// outcome, not an error.
		entry.Status = model.LogStatusFailed
	default:
		b.persistBestEffort(ctx, entry)
		return nil, fmt.Errorf("device bridge returned unexpected status %d", resp.StatusCode)
	}

	response := string(body)
	entry.ResponsePayload = &response

	return entry, b.persist(ctx, entry)
}

func (b *HTTPBridge) persist(ctx context.Context, entry *model.DeviceSyncLog) error {
	id, err := b.logs.InsertLog(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to persist sync log %s: %w", entry.MessageID, err)
	}
	entry.ID = id
	return nil
}

func (b *HTTPBridge) persistBestEffort(ctx context.Context, entry *model.DeviceSyncLog) {
	if _, err := b.logs.InsertLog(ctx, entry); err != nil {
		log.Ctx(ctx).Warn().Err(err).
			Str("message_id", entry.MessageID).
			Msg("Failed to persist sync log for faulted dispatch")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	return errors.As(err, &uerr) && uerr.Timeout()
}
