package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		name     string
		entry    DeviceSyncLog
		expected CommandOutcome
	}{
		{
			name:     "acknowledged",
			entry:    DeviceSyncLog{Status: LogStatusAcknowledged},
			expected: Acknowledged{},
		},
		{
			name:     "sent with no response is the timeout signal",
			entry:    DeviceSyncLog{Status: LogStatusSent},
			expected: NoResponse{},
		},
		{
			name:     "rejection with json error field",
			entry:    DeviceSyncLog{Status: LogStatusFailed, ResponsePayload: strPtr(`{"ack":false,"error":"duplicate person id"}`)},
			expected: Rejected{Reason: "duplicate person id"},
		},
		{
			name:     "rejection with json message field",
			entry:    DeviceSyncLog{Status: LogStatusFailed, ResponsePayload: strPtr(`{"message":"storage full"}`)},
			expected: Rejected{Reason: "storage full"},
		},
		{
			name:     "rejection with opaque payload kept verbatim",
			entry:    DeviceSyncLog{Status: LogStatusFailed, ResponsePayload: strPtr("ERR 41")},
			expected: Rejected{Reason: "ERR 41"},
		},
		{
			name:     "rejection with no payload gets a generic reason",
			entry:    DeviceSyncLog{Status: LogStatusFailed},
			expected: Rejected{Reason: "device rejected the command"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, OutcomeOf(&tt.entry))
		})
	}
}
