package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// DecideItemInput is a vendor accepting or rejecting one order line.
type DecideItemInput struct {
	OrderID      uuid.UUID
	ItemID       uuid.UUID
	VendorUserID uuid.UUID
	Action       enums.ItemAction
	Reason       *string
}

// DecideInput is the customer's answer to a split order.
type DecideInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Action     enums.CustomerDecision
}

// ItemResult is the decided line and the order it recomputed.
type ItemResult struct {
	Item  orders.OrderItemDTO `json:"item"`
	Order orders.OrderDTO     `json:"order"`
}

// DecisionResult is the order after the customer decided.
type DecisionResult struct {
	Order orders.OrderDTO       `json:"order"`
	Items []orders.OrderItemDTO `json:"items"`
}

// Service runs vendor and customer decisions against the order state machine.
type Service interface {
	DecideItem(ctx context.Context, input DecideItemInput) (*ItemResult, error)
	Decide(ctx context.Context, input DecideInput) (*DecisionResult, error)
	GetOrder(ctx context.Context, input ViewInput) (*OrderView, error)
}

type service struct {
	tx     txRunner
	repo   orders.Repository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the fulfillment service.
func NewService(tx txRunner, repo orders.Repository, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter, logg: logg, now: time.Now}, nil
}

// DecideItem applies one vendor decision. The order row lock is taken first
// so decisions on the same order are serialised and every recomputation
// sees the full item set.
func (s *service) DecideItem(ctx context.Context, input DecideItemInput) (*ItemResult, error) {
	target := input.Action.TargetStatus()
	var (
		result  *ItemResult
		from    Phase
		to      Phase
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		from = PhaseOf(*order, CountItems(items))
		if err := Guard(from, EventVendorDecision); err != nil {
			return err
		}

		vendor, err := repo.FindVendorByUser(ctx, input.VendorUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "user is not a vendor")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		item, err := repo.LockOrderItem(ctx, order.ID, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order item")
		}
		if item.VendorID != vendor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item belongs to another vendor")
		}

		if item.VendorStatus == target {
			// A repeated rejection only refreshes the reason.
			if target == enums.VendorItemStatusRejected && input.Reason != nil && !sameReason(item.RejectionReason, input.Reason) {
				if err := repo.UpdateOrderItem(ctx, item.ID, map[string]any{
					"rejection_reason": *input.Reason,
					"updated_at":       s.now().UTC(),
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rejection reason")
				}
				item.RejectionReason = input.Reason
			}
			to = from
			result = &ItemResult{Item: orders.NewOrderItemDTO(*item), Order: orders.NewOrderDTO(*order)}
			return nil
		}

		if err := s.moveStock(ctx, repo, item, target); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := itemUpdates(item, target, input.Reason, now)
		if err := repo.UpdateOrderItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order item")
		}
		for i := range items {
			if items[i].ID == item.ID {
				items[i].VendorStatus = target
			}
		}

		to = Derive(CountItems(items))
		if err := Move(from, EventVendorDecision, to); err != nil {
			return err
		}
		if order.Status != to.Status() || order.CustomerActionRequired != to.ActionRequired() {
			changed = true
			if err := s.updateStatus(ctx, tx, repo, order, to); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemDecided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.VendorUserID, Role: enums.ActorRoleVendor},
			Data: payloads.OrderItemDecidedEvent{
				OrderID:  order.ID,
				ItemID:   item.ID,
				VendorID: vendor.ID,
				Status:   target,
				Reason:   input.Reason,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit item decided")
		}

		stored, err := repo.LockOrderItem(ctx, order.ID, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order item")
		}
		result = &ItemResult{Item: orders.NewOrderItemDTO(*stored), Order: orders.NewOrderDTO(*order)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"item_id": input.ItemID.String(),
		"action":  string(input.Action),
		"from":    string(from),
		"to":      string(to),
	})
	if changed {
		s.logg.Info(logCtx, "fulfillment.order_status_changed")
	} else {
		s.logg.Debug(logCtx, "fulfillment.item_decided")
	}
	return result, nil
}

// moveStock takes stock when an item becomes accepted and returns it when
// an accepted item is rejected.
func (s *service) moveStock(ctx context.Context, repo orders.Repository, item *models.OrderItem, target enums.VendorItemStatus) error {
	var delta int
	switch {
	case target == enums.VendorItemStatusAccepted:
		delta = -item.Quantity
	case item.VendorStatus == enums.VendorItemStatusAccepted:
		delta = item.Quantity
	default:
		return nil
	}

	if _, err := repo.LockProduct(ctx, item.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	if err := repo.AdjustStock(ctx, item.ProductID, delta); err != nil {
		if errors.Is(err, orders.ErrInsufficientStock) {
			return pkgerrors.New(pkgerrors.CodeConflict, "not enough stock").
				WithDetails(map[string]any{"product_id": item.ProductID.String(), "quantity": item.Quantity})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	return nil
}

func itemUpdates(item *models.OrderItem, target enums.VendorItemStatus, reason *string, now time.Time) map[string]any {
	updates := map[string]any{"vendor_status": target, "updated_at": now}
	if target == enums.VendorItemStatusAccepted {
		updates["accepted_at"] = now
		updates["rejected_at"] = nil
		updates["rejection_reason"] = nil
		item.AcceptedAt, item.RejectedAt, item.RejectionReason = &now, nil, nil
	} else {
		updates["rejected_at"] = now
		updates["accepted_at"] = nil
		updates["rejection_reason"] = reason
		item.RejectedAt, item.AcceptedAt, item.RejectionReason = &now, nil, reason
	}
	item.VendorStatus = target
	return updates
}

func sameReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *service) updateStatus(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, to Phase) error {
	prev := order.Status
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":                   to.Status(),
		"customer_action_required": to.ActionRequired(),
		"updated_at":               s.now().UTC(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	order.Status = to.Status()
	order.CustomerActionRequired = to.ActionRequired()

	if prev == order.Status {
		return nil
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:                order.ID,
			CustomerID:             order.CustomerID,
			From:                   prev,
			To:                     order.Status,
			CustomerActionRequired: order.CustomerActionRequired,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit status changed")
	}
	return nil
}

// Decide records the customer's choice for a split order. The choice is
// final; later vendor decisions are refused.
func (s *service) Decide(ctx context.Context, input DecideInput) (*DecisionResult, error) {
	var event Event
	switch input.Action {
	case enums.CustomerDecisionCancelOrder:
		event = EventCustomerCancel
	case enums.CustomerDecisionProceedWithoutRejected:
		event = EventCustomerProceed
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown decision").
			WithDetails(map[string]any{"action": string(input.Action)})
	}

	var result *DecisionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}

		from := PhaseOf(*order, CountItems(items))
		if from != PhaseCustomerDecision {
			return pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting a customer decision").
				WithDetails(map[string]any{"status": string(order.Status)})
		}
		to := PhaseCancelled
		if event == EventCustomerProceed {
			to = PhaseProceeding
		}
		if err := Move(from, event, to); err != nil {
			return err
		}

		if event == EventCustomerCancel {
			for i := range items {
				if items[i].VendorStatus != enums.VendorItemStatusAccepted {
					continue
				}
				if err := s.moveStock(ctx, repo, &items[i], enums.VendorItemStatusRejected); err != nil {
					return err
				}
			}
		} else {
			// Proceeding keeps accepted lines only; pending lines are dropped
			// with the rejected ones and their stock is never taken.
			if CountItems(items).Accepted == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "no accepted items to proceed with")
			}
			if _, err := repo.MarkDropped(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop unaccepted items")
			}
		}

		decision := input.Action
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"customer_decision": decision}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record decision")
		}
		order.CustomerDecision = &decision
		if err := s.updateStatus(ctx, tx, repo, order, to); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCustomerDecided,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: enums.ActorRoleCustomer},
			Data: payloads.OrderCustomerDecidedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Decision:   decision,
				Status:     order.Status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit customer decided")
		}

		refreshed, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
		}
		result = &DecisionResult{Order: orders.NewOrderDTO(*order), Items: orders.NewOrderItemDTOs(refreshed)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithUserID(s.logg.WithOrderID(ctx, input.OrderID.String()), input.CustomerID.String())
	logCtx = s.logg.WithField(logCtx, "decision", string(input.Action))
	s.logg.Info(logCtx, "fulfillment.customer_decided")
	return result, nil
}

func lockOrder(ctx context.Context, repo orders.Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.LockOrder(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
	}
	return order, nil
}
