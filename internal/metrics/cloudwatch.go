// Package metrics emits operational counters to CloudWatch. Emission is
// best-effort: a metrics failure is logged and swallowed, never propagated.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/aws"
)

// Namespace groups all metrics for this service.
const Namespace = "OrderFlow"

// Metric names.
const (
	MetricOrdersCreated        = "OrdersCreated"
	MetricNotifyFailures       = "NotificationFailures"
	MetricSchedulerTransitions = "SchedulerTransitions"
)

// Emitter publishes counts to CloudWatch.
type Emitter struct {
	client aws.CloudWatchAPI
	logger *zap.Logger
}

// NewEmitter returns an Emitter. client may be nil, in which case all emissions
// are no-ops (local runs without AWS access).
func NewEmitter(client aws.CloudWatchAPI, logger *zap.Logger) *Emitter {
	return &Emitter{client: client, logger: logger}
}

// Count emits a count metric with optional dimensions.
func (e *Emitter) Count(ctx context.Context, name string, value float64, dims map[string]string) {
	if e.client == nil {
		return
	}

	datum := cwtypes.MetricDatum{
		MetricName: &name,
		Value:      &value,
		Unit:       cwtypes.StandardUnitCount,
		Timestamp:  ptrTime(time.Now()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{Name: ptr(k), Value: ptr(v)})
	}

	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  ptr(Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		e.logger.Warn("metric emission failed", zap.String("metric", name), zap.Error(err))
	}
}

func ptr(s string) *string { return &s }

func ptrTime(t time.Time) *time.Time { return &t }
