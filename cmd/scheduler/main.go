package main

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/aws"
	"github.com/ksfood/orderflow/internal/metrics"
	"github.com/ksfood/orderflow/internal/orders"
	"github.com/ksfood/orderflow/internal/scheduler"
)

const defaultTimezone = "Asia/Kuwait"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	tz := os.Getenv("SCHEDULE_TZ")
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Fatal("bad SCHEDULE_TZ", zap.String("tz", tz), zap.Error(err))
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	job := scheduler.NewJob(
		orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE")),
		metrics.NewEmitter(clients.CloudWatch, logger),
		logger,
	)

	// If RUN_LOCAL=true, run as a long-lived loop waking at the weekly triggers.
	// Deployed, each EventBridge schedule rule invokes the Lambda at its trigger.
	if os.Getenv("RUN_LOCAL") == "true" {
		runLocal(job, loc, logger)
		return
	}

	lambda.Start(func(ctx context.Context, ev events.CloudWatchEvent) error {
		at := ev.Time
		if at.IsZero() {
			at = time.Now()
		}
		tr := scheduler.TransitionFor(at, loc)
		moved, err := job.Run(ctx, tr)
		if err != nil {
			// log and skip: no retry, no catch-up
			logger.Error("bulk transition failed",
				zap.String("from", tr.From), zap.String("to", tr.To),
				zap.Int("moved_before_failure", moved), zap.Error(err))
			return nil
		}
		return nil
	})
}

func runLocal(job *scheduler.Job, loc *time.Location, logger *zap.Logger) {
	for {
		at, tr := scheduler.NextTrigger(time.Now(), loc)
		logger.Info("sleeping until next trigger",
			zap.Time("at", at), zap.String("from", tr.From), zap.String("to", tr.To))
		time.Sleep(time.Until(at))

		if _, err := job.Run(context.Background(), tr); err != nil {
			// log and skip: the week's transition is simply missed
			logger.Error("bulk transition failed", zap.Error(err))
		}
	}
}
