package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/aws"
)

// Processor consumes new-order notices from the queue and surfaces them to
// staff. Delivery transports (chat, email) hang off the structured log stream;
// the processor itself only validates and formats.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a notification processor.
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.logger.Error("notifier error", zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var notice aws.NewOrderNotice
	if err := json.Unmarshal([]byte(rec.Body), &notice); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if notice.OrderCode == "" {
		return fmt.Errorf("notice missing order code, body: %s", rec.Body)
	}

	p.logger.Info("new order",
		zap.String("code", notice.OrderCode),
		zap.String("origin", notice.Origin),
		zap.String("recipient", notice.Recipient),
		zap.String("phone", notice.Phone),
		zap.String("zone", notice.Zone),
		zap.Float64("total", notice.TotalAmount),
		zap.String("summary", formatSummary(notice)))
	return nil
}

// formatSummary renders the one-line staff message.
func formatSummary(n aws.NewOrderNotice) string {
	return fmt.Sprintf("%s: %.2f for %s (%s), zone %s", n.OrderCode, n.TotalAmount, n.Recipient, n.Phone, n.Zone)
}
