// Package order owns the order lifecycle: creation with total
// validation, the status machine, cancellation eligibility, per-user
// isolation, and the TTL read cache in front of the store.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swiftkart/storefront/internal/cache"
	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/logging"
	"github.com/swiftkart/storefront/internal/models"
	"github.com/swiftkart/storefront/internal/notify"
)

const Collection = "orders"

const publishTimeout = 5 * time.Second

var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrIllegalState = errors.New("illegal state")
)

// Service coordinates the store, the read caches and the notification
// sink. Both caches are injected so tests can run isolated instances
// with their own clocks.
type Service struct {
	Store  docstore.Store
	Orders *cache.TTL[models.Order]
	Lists  *cache.TTL[[]models.Order]
	Sink   notify.Sink
}

func NewService(store docstore.Store, orders *cache.TTL[models.Order], lists *cache.TTL[[]models.Order], sink notify.Sink) *Service {
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Service{Store: store, Orders: orders, Lists: lists, Sink: sink}
}

// CreateInput is the checkout payload. Items must already be a
// snapshot copy of the cart, not the live cart slice.
type CreateInput struct {
	UserID          string
	Items           []models.CartLineItem
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	ShippingCost    int64
	DiscountAmount  int64
	TotalAmount     int64
	IsTestOrder     bool
}

// Create validates the input, persists the order with status pending,
// invalidates the user's list cache and publishes order-created to the
// user's channel and the admin channel. The total must reconcile:
// totalAmount == subtotal + shippingCost - discountAmount.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.UserID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if in.ShippingAddress.Empty() {
		return nil, fmt.Errorf("%w: shipping address required", ErrValidation)
	}
	if in.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method required", ErrValidation)
	}
	if in.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount required", ErrValidation)
	}
	if in.ShippingCost < 0 || in.DiscountAmount < 0 {
		return nil, fmt.Errorf("%w: amounts must be >= 0", ErrValidation)
	}

	var subtotal int64
	for i := range in.Items {
		if in.Items[i].ProductID == "" {
			return nil, fmt.Errorf("%w: product id required", ErrValidation)
		}
		if in.Items[i].Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
		}
		if in.Items[i].UnitPrice < 0 {
			return nil, fmt.Errorf("%w: unit price must be >= 0", ErrValidation)
		}
		subtotal += in.Items[i].UnitPrice * int64(in.Items[i].Quantity)
	}
	if want := subtotal + in.ShippingCost - in.DiscountAmount; in.TotalAmount != want {
		return nil, fmt.Errorf("%w: total amount %d does not match subtotal %d + shipping %d - discount %d",
			ErrValidation, in.TotalAmount, subtotal, in.ShippingCost, in.DiscountAmount)
	}

	now := time.Now().UTC()
	o := &models.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Items:           append([]models.CartLineItem(nil), in.Items...),
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Status:          models.StatusPending,
		Subtotal:        subtotal,
		ShippingCost:    in.ShippingCost,
		DiscountAmount:  in.DiscountAmount,
		TotalAmount:     in.TotalAmount,
		IsTestOrder:     in.IsTestOrder,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	doc, err := docstore.Encode(o)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if err := s.Store.Set(ctx, Collection, o.ID, doc); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.Lists.Invalidate(o.UserID)
	s.publish(ctx, o, notify.EventOrderCreated)

	return o, nil
}

// GetByID is a cache-first read. A non-empty userID enforces
// ownership; a mismatch reads as not-found so callers cannot probe for
// other users' order ids.
func (s *Service) GetByID(ctx context.Context, orderID, userID string) (*models.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id required", ErrValidation)
	}

	if o, ok := s.Orders.Get(orderID); ok {
		if userID != "" && o.UserID != userID {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		return &o, nil
	}

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}

	s.Orders.Set(orderID, *o)
	return o, nil
}

// ListByUser returns the user's real orders, newest first. Test orders
// never show up here. An empty result is not cached, so a first order
// appears immediately instead of after TTL expiry.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	if orders, ok := s.Lists.Get(userID); ok {
		return orders, nil
	}

	docs, err := s.Store.Query(ctx, Collection,
		[]docstore.Filter{
			{Field: "userId", Op: "==", Value: userID},
			{Field: "isTestOrder", Op: "==", Value: false},
		},
		docstore.QueryOptions{OrderBy: "createdAt", Desc: true},
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		var o models.Order
		if err := docstore.Decode(doc, &o); err != nil {
			return nil, fmt.Errorf("list orders: %w", err)
		}
		orders = append(orders, o)
	}

	if len(orders) > 0 {
		s.Lists.Set(userID, orders)
	}
	return orders, nil
}

// UpdateStatus moves an order through the lifecycle. The current
// status is read straight from the store, never the cache, so a stale
// cached status cannot legalize a dead transition.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next models.OrderStatus, userID string) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, next)
	}

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && o.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}

	return s.applyStatus(ctx, o, next)
}

// Cancel is the user-facing path: ownership is mandatory and only
// pending or processing orders qualify.
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*models.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	o, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if !o.Status.Cancellable() {
		return nil, fmt.Errorf("%w: cannot cancel %s order", ErrIllegalState, o.Status)
	}

	return s.applyStatus(ctx, o, models.StatusCancelled)
}

// CountsByStatus scans all of the user's orders and tallies them per
// status. Deliberately uncached: it backs an admin-ish dashboard where
// freshness beats latency.
func (s *Service) CountsByStatus(ctx context.Context, userID string) (map[models.OrderStatus]int, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrValidation)
	}

	docs, err := s.Store.Query(ctx, Collection,
		[]docstore.Filter{{Field: "userId", Op: "==", Value: userID}},
		docstore.QueryOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	counts := make(map[models.OrderStatus]int)
	for _, doc := range docs {
		var o models.Order
		if err := docstore.Decode(doc, &o); err != nil {
			return nil, fmt.Errorf("count orders: %w", err)
		}
		counts[o.Status]++
	}
	return counts, nil
}

// applyStatus is the single status-mutation entry point shared by
// UpdateStatus and Cancel. Sequence: persist, invalidate caches,
// publish. A publish failure leaves the persisted state authoritative.
func (s *Service) applyStatus(ctx context.Context, o *models.Order, next models.OrderStatus) (*models.Order, error) {
	if !o.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot move %s order to %s", ErrIllegalState, o.Status, next)
	}

	now := time.Now().UTC()
	patch := docstore.Document{
		"status":    string(next),
		"updatedAt": now.Format(time.RFC3339Nano),
	}
	if err := s.Store.Update(ctx, Collection, o.ID, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, o.ID)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	o.Status = next
	o.UpdatedAt = now

	s.Orders.Invalidate(o.ID)
	s.Lists.Invalidate(o.UserID)
	s.publish(ctx, o, notify.EventOrderUpdated)

	return o, nil
}

func (s *Service) load(ctx context.Context, orderID string) (*models.Order, error) {
	doc, err := s.Store.Get(ctx, Collection, orderID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	var o models.Order
	if err := docstore.Decode(doc, &o); err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (s *Service) publish(ctx context.Context, o *models.Order, event string) {
	payload := map[string]any{
		"orderId":     o.ID,
		"userId":      o.UserID,
		"status":      string(o.Status),
		"totalAmount": o.TotalAmount,
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	l := logging.FromContext(ctx)
	for _, channel := range []string{notify.UserChannel(o.UserID), notify.AdminChannel} {
		if err := s.Sink.Publish(pubCtx, channel, event, payload); err != nil {
			l.Error("notification publish failed", "channel", channel, "event", event, "order_id", o.ID, "error", err)
		}
	}
}
