package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devicesync.service/internal/core"
	"devicesync.service/internal/core/model"
)

type stubSyncRepo struct {
	record *model.EmployeeDeviceSync
	err    error
}

func (r *stubSyncRepo) EnsureSyncRecord(context.Context, string, string) (*model.EmployeeDeviceSync, bool, error) {
	return nil, false, errors.New("not used")
}

func (r *stubSyncRepo) GetSyncRecord(context.Context, string, string) (*model.EmployeeDeviceSync, error) {
	return nil, errors.New("not used")
}

func (r *stubSyncRepo) GetSyncRecordByID(context.Context, int64) (*model.EmployeeDeviceSync, error) {
	return r.record, r.err
}

func (r *stubSyncRepo) MarkSynced(context.Context, int64, time.Time) error { return nil }
func (r *stubSyncRepo) MarkFailed(context.Context, int64, string) error    { return nil }
func (r *stubSyncRepo) ResetPending(context.Context, int64) error          { return nil }

type stubDispatcher struct {
	calls int
	err   error
}

func (d *stubDispatcher) Dispatch(_ context.Context, syncID int64) (*model.EmployeeDeviceSync, error) {
	d.calls++
	return &model.EmployeeDeviceSync{ID: syncID}, d.err
}

func message(body string) types.Message {
	return types.Message{Body: aws.String(body), MessageId: aws.String("sqs-msg-1")}
}

func pendingRecord(id int64) *model.EmployeeDeviceSync {
	return &model.EmployeeDeviceSync{ID: id, EmployeeID: "emp-1", DeviceID: "dev-1", Status: model.SyncStatusPending}
}

func TestProcess_MalformedBodyIsDropped(t *testing.T) {
	dispatcher := &stubDispatcher{}
	p := NewProcessor(&stubSyncRepo{}, dispatcher)

	retry, _, err := p.Process(context.Background(), message("not json"))

	require.Error(t, err)
	assert.False(t, retry)
	assert.Zero(t, dispatcher.calls)
}

func TestProcess_UnknownRecordIsDropped(t *testing.T) {
	dispatcher := &stubDispatcher{}
	p := NewProcessor(&stubSyncRepo{record: nil}, dispatcher)

	retry, _, err := p.Process(context.Background(), message(`{"syncId":7,"employeeId":"emp-1","deviceId":"dev-1"}`))

	require.NoError(t, err)
	assert.False(t, retry)
	assert.Zero(t, dispatcher.calls)
}

func TestProcess_StoreErrorRetries(t *testing.T) {
	dispatcher := &stubDispatcher{}
	p := NewProcessor(&stubSyncRepo{err: errors.New("db down")}, dispatcher)

	retry, delay, err := p.Process(context.Background(), message(`{"syncId":7}`))

	require.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(10), delay)
	assert.Zero(t, dispatcher.calls)
}

func TestProcess_ResolvedRecordSkipped(t *testing.T) {
	rec := pendingRecord(7)
	rec.Status = model.SyncStatusSynced
	dispatcher := &stubDispatcher{}
	p := NewProcessor(&stubSyncRepo{record: rec}, dispatcher)

	retry, _, err := p.Process(context.Background(), message(`{"syncId":7}`))

	require.NoError(t, err)
	assert.False(t, retry)
	assert.Zero(t, dispatcher.calls, "resolved records must not reach the device")
}

func TestProcess_PendingRecordDispatched(t *testing.T) {
	dispatcher := &stubDispatcher{}
	p := NewProcessor(&stubSyncRepo{record: pendingRecord(7)}, dispatcher)

	retry, _, err := p.Process(context.Background(), message(`{"syncId":7,"employeeId":"emp-1","deviceId":"dev-1"}`))

	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestProcess_TransportFaultIsTerminal(t *testing.T) {
	dispatcher := &stubDispatcher{err: fmt.Errorf("%w: bridge unreachable", core.ErrTransportFault)}
	p := NewProcessor(&stubSyncRepo{record: pendingRecord(7)}, dispatcher)

	retry, _, err := p.Process(context.Background(), message(`{"syncId":7}`))

	require.NoError(t, err, "the record already landed in Failed; the message is done")
	assert.False(t, retry)
	assert.Equal(t, 1, dispatcher.calls)
}

func TestProcess_InfraErrorRetries(t *testing.T) {
	dispatcher := &stubDispatcher{err: errors.New("update failed")}
	p := NewProcessor(&stubSyncRepo{record: pendingRecord(7)}, dispatcher)

	retry, delay, err := p.Process(context.Background(), message(`{"syncId":7}`))

	require.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(10), delay)
}

func TestProcess_OpenBreakerRetriesWithBackoff(t *testing.T) {
	// Feed enough transport faults through the breaker to trip it, then
	// verify the next message is deferred without reaching the service.
	dispatcher := &stubDispatcher{err: fmt.Errorf("%w: bridge unreachable", core.ErrTransportFault)}
	p := NewProcessor(&stubSyncRepo{record: pendingRecord(7)}, dispatcher)

	for i := 0; i < 10; i++ {
		_, _, _ = p.Process(context.Background(), message(`{"syncId":7}`))
	}
	callsBeforeOpen := dispatcher.calls

	retry, delay, err := p.Process(context.Background(), message(`{"syncId":7}`))

	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, retry)
	assert.Greater(t, delay, int32(0))
	assert.Equal(t, callsBeforeOpen, dispatcher.calls, "open breaker must not call the service")
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, int32(20), calculateBackoff(1))
	assert.Equal(t, int32(40), calculateBackoff(2))
	assert.Equal(t, int32(3600), calculateBackoff(20), "backoff is capped at one hour")
}
