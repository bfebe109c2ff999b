package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/aws"
	"github.com/ksfood/orderflow/internal/catalog"
	"github.com/ksfood/orderflow/internal/counter"
	"github.com/ksfood/orderflow/internal/idempotency"
	"github.com/ksfood/orderflow/internal/metrics"
	"github.com/ksfood/orderflow/internal/users"
)

// ErrDuplicateInFlight indicates a concurrent request with the same idempotency
// token has reserved the token but not yet committed its order.
var ErrDuplicateInFlight = errors.New("duplicate request in flight")

// OrderStore is the persistence surface the service needs.
type OrderStore interface {
	Create(ctx context.Context, order Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	GetByCode(ctx context.Context, code string) (*Order, error)
	UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error
	List(ctx context.Context, f ListFilter) ([]Order, string, error)
}

// Sequencer mints the monotonic sequence numbers behind order codes.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Catalog resolves product ids to authoritative catalog documents.
type Catalog interface {
	Get(ctx context.Context, productID string) (*catalog.Product, error)
}

// UserDirectory attributes orders to registered users.
type UserDirectory interface {
	Get(ctx context.Context, userID string) (*users.User, error)
}

// TokenStore collapses retried submissions into a single order.
type TokenStore interface {
	Reserve(ctx context.Context, token, orderID string) (bool, error)
	Get(ctx context.Context, token string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, token, orderCode string) error
	MarkFailed(ctx context.Context, token, note string) error
}

// Notifier delivers the fire-and-forget new-order notice.
type Notifier interface {
	PublishNewOrder(ctx context.Context, notice aws.NewOrderNotice, attributes map[string]string) error
}

// Service implements the order lifecycle: creation with sequential codes,
// status transitions, and listings.
type Service struct {
	store    OrderStore
	seq      Sequencer
	catalog  Catalog
	users    UserDirectory
	tokens   TokenStore
	notifier Notifier
	emitter  *metrics.Emitter
	logger   *zap.Logger
	nowFunc  func() time.Time
	newIDFn  func() string
}

// NewService wires the order service. notifier may be nil (no notification
// channel configured); tokens may be nil only if idempotency tokens are never
// supplied.
func NewService(store OrderStore, seq Sequencer, cat Catalog, dir UserDirectory, tokens TokenStore, notifier Notifier, emitter *metrics.Emitter, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		seq:      seq,
		catalog:  cat,
		users:    dir,
		tokens:   tokens,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger,
		nowFunc:  time.Now,
		newIDFn:  uuid.NewString,
	}
}

// CreateItemInput is a client-suggested line item. Any client price is ignored;
// the catalog price is authoritative.
type CreateItemInput struct {
	ProductID string
	Quantity  int
}

// CreateInput is everything a caller may supply when creating an order.
type CreateInput struct {
	Items            []CreateItemInput
	Delivery         DeliveryDetails
	Origin           string
	UserID           string
	PaymentMethod    string
	IdempotencyToken string
	ShippingCost     *float64
	TotalAmount      *float64 // advisory only; always recomputed server-side
}

// CreateResult is the outcome of Create. On an idempotent replay Order is nil
// and Code carries the original order's code.
type CreateResult struct {
	Order    *Order
	Code     string
	Replayed bool
}

// Create validates the input, resolves catalog prices, mints a sequential code
// and persists the order with status pending. The order is either fully created
// or not created at all; the notification at the end is best-effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	// Idempotent replay short-circuit before any further work.
	if in.IdempotencyToken != "" {
		res, err := s.checkReplay(ctx, in.IdempotencyToken)
		if err != nil || res != nil {
			return res, err
		}
	}

	if in.UserID != "" {
		u, err := s.users.Get(ctx, in.UserID)
		if err != nil {
			return nil, fmt.Errorf("lookup user: %w: %w", ErrStorageUnavailable, err)
		}
		if u == nil {
			return nil, fmt.Errorf("user %s: %w", in.UserID, ErrNotFound)
		}
	}

	items, subtotal, err := s.resolveItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	shipping := 0.0
	if in.ShippingCost != nil {
		shipping = *in.ShippingCost
	}
	total := subtotal + shipping
	if in.TotalAmount != nil && math.Abs(*in.TotalAmount-total) > 0.005 {
		// The client total is advisory only; the recomputed value wins.
		s.logger.Warn("client total ignored",
			zap.Float64("client_total", *in.TotalAmount),
			zap.Float64("computed_total", total))
	}

	orderID := s.newIDFn()

	if in.IdempotencyToken != "" {
		created, err := s.tokens.Reserve(ctx, in.IdempotencyToken, orderID)
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency token: %w: %w", ErrStorageUnavailable, err)
		}
		if !created {
			// Lost the race to a concurrent submission with the same token.
			res, rerr := s.checkReplay(ctx, in.IdempotencyToken)
			if rerr != nil || res != nil {
				return res, rerr
			}
			return nil, ErrDuplicateInFlight
		}
	}

	seqValue, err := s.seq.Next(ctx, counter.OrderSequence)
	if err != nil {
		// The order must never exist without a sequence-derived code.
		s.releaseToken(ctx, in.IdempotencyToken, fmt.Sprintf("mint failed: %v", err))
		return nil, fmt.Errorf("mint order code: %w: %w", ErrStorageUnavailable, err)
	}
	code := fmt.Sprintf("KS-%04d", seqValue)

	now := s.nowFunc()
	order := Order{
		OrderID:          orderID,
		Code:             code,
		UserID:           in.UserID,
		Items:            items,
		Delivery:         in.Delivery,
		TotalAmount:      total,
		ShippingCost:     shipping,
		Status:           StatusPending,
		PaymentMethod:    in.PaymentMethod,
		Guest:            in.Origin == OriginWebGuest,
		Origin:           in.Origin,
		IdempotencyToken: in.IdempotencyToken,
		CreatedAt:        now,
	}

	if err := s.store.Create(ctx, order); err != nil {
		s.releaseToken(ctx, in.IdempotencyToken, fmt.Sprintf("persist failed: %v", err))
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if in.IdempotencyToken != "" {
		if err := s.tokens.MarkDone(ctx, in.IdempotencyToken, code); err != nil {
			// The order is committed; the stale reservation only degrades replays.
			s.logger.Warn("mark idempotency token done failed",
				zap.String("code", code), zap.Error(err))
		}
	}

	s.notify(ctx, order)
	s.emitter.Count(ctx, metrics.MetricOrdersCreated, 1, map[string]string{"Origin": order.Origin})
	s.logger.Info("order created",
		zap.String("code", code),
		zap.String("origin", order.Origin),
		zap.Float64("total", total),
		zap.Int("items", len(items)))

	return &CreateResult{Order: &order, Code: code}, nil
}

func (s *Service) validateInput(in CreateInput) error {
	fields := map[string]string{}
	if len(in.Items) == 0 {
		fields["items"] = "at least one item is required"
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "required"
		}
		if it.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		}
	}
	if in.Delivery.Name == "" {
		fields["delivery.name"] = "required"
	}
	if in.Delivery.Phone == "" {
		fields["delivery.phone"] = "required"
	}
	if in.Delivery.Address == "" {
		fields["delivery.address"] = "required"
	}
	if in.Delivery.Zone == "" {
		fields["delivery.zone"] = "required"
	}
	if !ValidOrigin(in.Origin) {
		fields["origin"] = "unknown origin tag"
	}
	if in.ShippingCost != nil && *in.ShippingCost < 0 {
		fields["shipping_cost"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// checkReplay returns a replay result when the token already resolved to an
// order, ErrDuplicateInFlight when the original request is still running, and
// (nil, nil) when the token is free.
func (s *Service) checkReplay(ctx context.Context, token string) (*CreateResult, error) {
	rec, err := s.tokens.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w: %w", ErrStorageUnavailable, err)
	}
	if rec == nil || rec.Status == idempotency.StatusFailed {
		return nil, nil
	}
	if rec.Status == idempotency.StatusInProgress {
		return nil, ErrDuplicateInFlight
	}
	s.logger.Info("idempotent replay", zap.String("code", rec.OrderCode))
	return &CreateResult{Code: rec.OrderCode, Replayed: true}, nil
}

func (s *Service) releaseToken(ctx context.Context, token, note string) {
	if token == "" {
		return
	}
	if err := s.tokens.MarkFailed(ctx, token, note); err != nil {
		s.logger.Warn("release idempotency token failed", zap.Error(err))
	}
}

func (s *Service) resolveItems(ctx context.Context, in []CreateItemInput) ([]OrderItem, float64, error) {
	items := make([]OrderItem, 0, len(in))
	var unavailable []string
	var subtotal float64
	for _, it := range in {
		p, err := s.catalog.Get(ctx, it.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve product %s: %w: %w", it.ProductID, ErrStorageUnavailable, err)
		}
		if p == nil || !p.Active {
			unavailable = append(unavailable, it.ProductID)
			continue
		}
		items = append(items, OrderItem{
			ProductID: p.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     p.Image,
		})
		subtotal += p.Price * float64(it.Quantity)
	}
	if len(unavailable) > 0 {
		// Partial orders are never created.
		return nil, 0, &ValidationError{UnavailableProducts: unavailable}
	}
	return items, subtotal, nil
}

func (s *Service) notify(ctx context.Context, order Order) {
	if s.notifier == nil {
		return
	}
	notice := aws.NewOrderNotice{
		OrderCode:   order.Code,
		TotalAmount: order.TotalAmount,
		Origin:      order.Origin,
		Recipient:   order.Delivery.Name,
		Phone:       order.Delivery.Phone,
		Zone:        order.Delivery.Zone,
	}
	attrs := map[string]string{"order_code": order.Code, "origin": order.Origin}
	if err := s.notifier.PublishNewOrder(ctx, notice, attrs); err != nil {
		// Fire-and-forget: the committed order stands regardless.
		s.logger.Error("new order notification failed",
			zap.String("code", order.Code), zap.Error(err))
		s.emitter.Count(ctx, metrics.MetricNotifyFailures, 1, nil)
	}
}

// Get returns the order with the given internal key.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return o, nil
}

// GetByCode returns the order with the given human-facing code.
func (s *Service) GetByCode(ctx context.Context, code string) (*Order, error) {
	o, err := s.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", code, ErrNotFound)
	}
	return o, nil
}

// List returns orders matching the filter plus a cursor for the next page.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, string, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, "", ErrInvalidStatus
	}
	if f.Origin != "" && !ValidOrigin(f.Origin) {
		return nil, "", newValidationError("origin", "unknown origin tag")
	}
	return s.store.List(ctx, f)
}

// SetStatus moves one order to newStatus, enforcing the transition table.
func (s *Service) SetStatus(ctx context.Context, orderID, newStatus string) (*Order, error) {
	if !ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if !CanTransition(o.Status, newStatus) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, newStatus, ErrInvalidTransition)
	}
	if err := s.store.UpdateStatus(ctx, orderID, o.Status, newStatus); err != nil {
		if errors.Is(err, ErrStatusMismatch) {
			// A concurrent update won; the requested transition no longer applies.
			return nil, fmt.Errorf("%s -> %s: %w", o.Status, newStatus, ErrInvalidTransition)
		}
		return nil, err
	}
	o.Status = newStatus
	o.UpdatedAt = s.nowFunc()
	s.logger.Info("order status updated",
		zap.String("code", o.Code), zap.String("status", newStatus))
	return o, nil
}

// BatchFailure reports one order that could not be updated in a batch.
type BatchFailure struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// BatchResult summarizes a batch status update. The batch is not atomic:
// partial success is an expected, reportable outcome.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// SetStatusBatch applies SetStatus independently per order. One order's failure
// does not abort the others.
func (s *Service) SetStatusBatch(ctx context.Context, orderIDs []string, newStatus string) (*BatchResult, error) {
	if !ValidStatus(newStatus) {
		return nil, ErrInvalidStatus
	}
	res := &BatchResult{Succeeded: []string{}, Failed: []BatchFailure{}}
	for _, id := range orderIDs {
		if _, err := s.SetStatus(ctx, id, newStatus); err != nil {
			res.Failed = append(res.Failed, BatchFailure{OrderID: id, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	return res, nil
}
