package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender           MessageSender
	dispatchQueueURL string
}

func NewProducer(sender MessageSender, dispatchQueueURL string) *Producer {
	return &Producer{
		sender:           sender,
		dispatchQueueURL: dispatchQueueURL,
	}
}

func NewSQSProducer(client SQSClient, dispatchQueueURL string) *Producer {
	return NewProducer(&SQSSender{client: client}, dispatchQueueURL)
}

func (p *Producer) PublishDispatch(ctx context.Context, event DispatchEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch event: %w", err)
	}

	// Enrich the current span with the pair identity if available
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("app.employeeId", event.EmployeeID),
			attribute.String("app.deviceId", event.DeviceID),
		)
	}

	if err := p.sender.SendMessage(ctx, p.dispatchQueueURL, b); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
