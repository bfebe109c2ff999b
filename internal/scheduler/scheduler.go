// Package scheduler advances web-originated orders through the weekly cycle:
// Saturday 08:00 moves pending orders to processing, Saturday 17:00 moves
// processing orders to shipped. There is no catch-up: a trigger missed while the
// process was down is skipped for that week.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/metrics"
	"github.com/ksfood/orderflow/internal/orders"
)

// Transition is one scheduled bulk status change.
type Transition struct {
	From string
	To   string
}

var (
	// MorningRun is the Saturday 08:00 transition.
	MorningRun = Transition{From: orders.StatusPending, To: orders.StatusProcessing}
	// EveningRun is the Saturday 17:00 transition.
	EveningRun = Transition{From: orders.StatusProcessing, To: orders.StatusShipped}
)

const pageSize = 100

// OrderSource is the slice of the orders store the job needs.
type OrderSource interface {
	List(ctx context.Context, f orders.ListFilter) ([]orders.Order, string, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
}

// Job performs the bulk transition.
type Job struct {
	store   OrderSource
	emitter *metrics.Emitter
	logger  *zap.Logger
}

// NewJob wires a Job.
func NewJob(store OrderSource, emitter *metrics.Emitter, logger *zap.Logger) *Job {
	return &Job{store: store, emitter: emitter, logger: logger}
}

// Run advances every web-originated order currently in tr.From to tr.To and
// returns how many moved. Each document update is status-conditional, so a
// repeat run matches nothing and an order raced away by an admin update is
// skipped, not failed. A storage error ends the run early; whatever moved
// before it stays moved.
func (j *Job) Run(ctx context.Context, tr Transition) (int, error) {
	moved := 0
	cursor := ""
	for {
		page, next, err := j.store.List(ctx, orders.ListFilter{Status: tr.From, Limit: pageSize, Cursor: cursor})
		if err != nil {
			return moved, fmt.Errorf("list %s orders: %w", tr.From, err)
		}
		for _, o := range page {
			if o.Origin == orders.OriginManual {
				// staff-entered orders are advanced manually, never by the job
				continue
			}
			if err := j.store.UpdateStatus(ctx, o.OrderID, tr.From, tr.To); err != nil {
				if errors.Is(err, orders.ErrStatusMismatch) {
					continue
				}
				j.logger.Warn("bulk transition update failed",
					zap.String("code", o.Code), zap.Error(err))
				continue
			}
			moved++
		}
		if next == "" {
			break
		}
		cursor = next
	}

	j.emitter.Count(ctx, metrics.MetricSchedulerTransitions, float64(moved),
		map[string]string{"From": tr.From, "To": tr.To})
	j.logger.Info("bulk transition complete",
		zap.String("from", tr.From), zap.String("to", tr.To), zap.Int("moved", moved))
	return moved, nil
}

// trigger hours on Saturday, paired with their transitions
var triggerHours = []struct {
	hour int
	tr   Transition
}{
	{8, MorningRun},
	{17, EveningRun},
}

// NextTrigger returns the first Saturday 08:00 or 17:00 strictly after now in
// loc, with the transition that fires then.
func NextTrigger(now time.Time, loc *time.Location) (time.Time, Transition) {
	local := now.In(loc)
	for offset := 0; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		if day.Weekday() != time.Saturday {
			continue
		}
		for _, t := range triggerHours {
			at := time.Date(day.Year(), day.Month(), day.Day(), t.hour, 0, 0, 0, loc)
			if at.After(now) {
				return at, t.tr
			}
		}
	}
	// unreachable: a 7-day window always contains a Saturday trigger
	return time.Time{}, Transition{}
}

// TransitionFor maps a trigger timestamp to its transition: the morning trigger
// before noon, the evening one after.
func TransitionFor(at time.Time, loc *time.Location) Transition {
	if at.In(loc).Hour() < 12 {
		return MorningRun
	}
	return EveningRun
}
