package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/metrics"
	"github.com/ksfood/orderflow/internal/orders"
)

type fakeSource struct {
	orders  map[string]*orders.Order
	listErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{orders: map[string]*orders.Order{}}
}

func (f *fakeSource) add(id, status, origin string) {
	f.orders[id] = &orders.Order{OrderID: id, Code: "KS-" + id, Status: status, Origin: origin}
}

func (f *fakeSource) List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, string, error) {
	if f.listErr != nil {
		return nil, "", f.listErr
	}
	var out []orders.Order
	for _, o := range f.orders {
		if filter.Status == "" || o.Status == filter.Status {
			out = append(out, *o)
		}
	}
	return out, "", nil
}

func (f *fakeSource) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	o, ok := f.orders[orderID]
	if !ok || o.Status != expectedStatus {
		return orders.ErrStatusMismatch
	}
	o.Status = newStatus
	return nil
}

func newTestJob(src OrderSource) *Job {
	logger := zap.NewNop()
	return NewJob(src, metrics.NewEmitter(nil, logger), logger)
}

func TestRun_AdvancesWebOrdersOnly(t *testing.T) {
	src := newFakeSource()
	src.add("1", orders.StatusPending, orders.OriginWebGuest)
	src.add("2", orders.StatusPending, orders.OriginWebUser)
	src.add("3", orders.StatusPending, orders.OriginManual) // staff-entered, untouched
	src.add("4", orders.StatusShipped, orders.OriginWebGuest)

	moved, err := newTestJob(src).Run(context.Background(), MorningRun)
	require.NoError(t, err)
	require.Equal(t, 2, moved)

	require.Equal(t, orders.StatusProcessing, src.orders["1"].Status)
	require.Equal(t, orders.StatusProcessing, src.orders["2"].Status)
	require.Equal(t, orders.StatusPending, src.orders["3"].Status)
	require.Equal(t, orders.StatusShipped, src.orders["4"].Status)
}

func TestRun_Idempotent(t *testing.T) {
	src := newFakeSource()
	for i := 0; i < 5; i++ {
		src.add(fmt.Sprintf("o%d", i), orders.StatusPending, orders.OriginWebGuest)
	}

	job := newTestJob(src)
	first, err := job.Run(context.Background(), MorningRun)
	require.NoError(t, err)
	require.Equal(t, 5, first)

	// a second run finds nothing in the source status
	second, err := job.Run(context.Background(), MorningRun)
	require.NoError(t, err)
	require.Equal(t, 0, second)
}

func TestRun_ListFailurePropagates(t *testing.T) {
	src := newFakeSource()
	src.listErr = errors.New("storage down")

	moved, err := newTestJob(src).Run(context.Background(), MorningRun)
	require.Error(t, err)
	require.Equal(t, 0, moved)
}

func TestNextTrigger(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kuwait")
	require.NoError(t, err)

	// Wednesday -> Saturday 08:00
	wed := time.Date(2026, 8, 26, 12, 0, 0, 0, loc)
	at, tr := NextTrigger(wed, loc)
	require.Equal(t, time.Date(2026, 8, 29, 8, 0, 0, 0, loc), at)
	require.Equal(t, MorningRun, tr)

	// Saturday 09:00 -> same day 17:00
	satMorning := time.Date(2026, 8, 29, 9, 0, 0, 0, loc)
	at, tr = NextTrigger(satMorning, loc)
	require.Equal(t, time.Date(2026, 8, 29, 17, 0, 0, 0, loc), at)
	require.Equal(t, EveningRun, tr)

	// Saturday 18:00 -> next Saturday 08:00
	satEvening := time.Date(2026, 8, 29, 18, 0, 0, 0, loc)
	at, tr = NextTrigger(satEvening, loc)
	require.Equal(t, time.Date(2026, 9, 5, 8, 0, 0, 0, loc), at)
	require.Equal(t, MorningRun, tr)

	// exactly at the trigger moment we pick the next one, never re-fire
	exact := time.Date(2026, 8, 29, 8, 0, 0, 0, loc)
	at, tr = NextTrigger(exact, loc)
	require.Equal(t, time.Date(2026, 8, 29, 17, 0, 0, 0, loc), at)
	require.Equal(t, EveningRun, tr)
}

func TestTransitionFor(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kuwait")
	require.NoError(t, err)

	require.Equal(t, MorningRun, TransitionFor(time.Date(2026, 8, 29, 8, 0, 0, 0, loc), loc))
	require.Equal(t, EveningRun, TransitionFor(time.Date(2026, 8, 29, 17, 0, 0, 0, loc), loc))
}
