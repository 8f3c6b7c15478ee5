package model

import "encoding/json"

// CommandOutcome is the closed set of protocol results a dispatched command
// can produce. Keeping it a sealed interface forces callers into a type
// switch, so a new outcome kind cannot be silently ignored.
type CommandOutcome interface {
	isOutcome()
}

// Acknowledged means the device accepted the command.
type Acknowledged struct{}

// Rejected means the device explicitly refused the command and said why.
type Rejected struct {
	Reason string
}

// NoResponse means the bounded acknowledgment window elapsed with silence.
type NoResponse struct{}

func (Acknowledged) isOutcome() {}
func (Rejected) isOutcome()     {}
func (NoResponse) isOutcome()   {}

// OutcomeOf derives the protocol outcome from a gateway-written sync log entry.
func OutcomeOf(entry *DeviceSyncLog) CommandOutcome {
	switch entry.Status {
	case LogStatusAcknowledged:
		return Acknowledged{}
	case LogStatusFailed:
		return Rejected{Reason: rejectionReason(entry.ResponsePayload)}
	default:
		// A log that never left SENT is the timeout signal.
		return NoResponse{}
	}
}

// rejectionReason pulls a human-readable message out of the raw response
// payload. Vendor bridges answer with {"error": "..."} or {"message": "..."};
// anything else is kept verbatim so operators still see what came back.
func rejectionReason(payload *string) string {
	if payload == nil || *payload == "" {
		return "device rejected the command"
	}

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(*payload), &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return *payload
}
