package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/fulfillment"
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

// AcceptInput is a delivery company claiming an order.
type AcceptInput struct {
	CompanyID   uuid.UUID
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

// AcceptResult is the order after assignment.
type AcceptResult struct {
	Order    models.Order
	Request  models.DeliveryRequest
	Rejected int64
}

// RequestedOrder is an order offered to a company that it can accept now.
type RequestedOrder struct {
	Order   orders.OrderDTO           `json:"order"`
	Items   []orders.OrderItemDTO     `json:"items"`
	Request orders.DeliveryRequestDTO `json:"request"`
}

// Service assigns orders to delivery companies.
type Service interface {
	AcceptOrder(ctx context.Context, input AcceptInput) (*AcceptResult, error)
	RequestedOrders(ctx context.Context, companyID, actorUserID uuid.UUID) ([]RequestedOrder, error)
}

type service struct {
	tx     txRunner
	repo   *Repository
	outbox outbox.Emitter
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the delivery assignment service.
func NewService(tx txRunner, repo *Repository, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("delivery repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter, logg: logg, now: time.Now}, nil
}

// AcceptOrder lets the first company to accept win. The order row lock
// serialises competing companies; the loser sees CONFLICT.
func (s *service) AcceptOrder(ctx context.Context, input AcceptInput) (*AcceptResult, error) {
	var result *AcceptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		company, err := operatedCompany(ctx, repo, input.CompanyID, input.ActorUserID)
		if err != nil {
			return err
		}

		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		items, err := repo.FindOrderItems(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		phase := fulfillment.PhaseOf(*order, fulfillment.CountItems(items))
		if err := fulfillment.Guard(phase, fulfillment.EventDeliveryAccepted); err != nil {
			return err
		}

		now := s.now().UTC()
		moved, err := repo.AcceptPending(ctx, order.ID, company.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept delivery request")
		}
		if moved == 0 {
			if _, findErr := repo.FindRequest(ctx, order.ID, company.ID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "delivery request not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load delivery request")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery request already processed")
		}

		rejected, err := repo.RejectSiblings(ctx, order.ID, company.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject sibling requests")
		}
		if err := repo.AssignOrder(ctx, order.ID, company.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order")
		}

		request, err := repo.FindRequest(ctx, order.ID, company.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload delivery request")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeliveryAccepted,
			AggregateType: enums.AggregateDeliveryRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.ActorRoleDelivery},
			Data: payloads.OrderDeliveryAcceptedEvent{
				OrderID:    order.ID,
				CompanyID:  company.ID,
				AcceptedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit delivery accepted")
		}

		companyID := company.ID
		order.DeliveryCompanyID = &companyID
		order.Status = enums.OrderStatusAccepted
		result = &AcceptResult{Order: *order, Request: *request, Rejected: rejected}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, input.OrderID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"company_id": input.CompanyID.String(),
		"rejected":   result.Rejected,
	})
	s.logg.Info(logCtx, "delivery.order_accepted")
	return result, nil
}

// RequestedOrders lists the company's pending requests whose orders are
// still unclaimed and have every live line accepted, oldest request first.
func (s *service) RequestedOrders(ctx context.Context, companyID, actorUserID uuid.UUID) ([]RequestedOrder, error) {
	if _, err := operatedCompany(ctx, s.repo, companyID, actorUserID); err != nil {
		return nil, err
	}

	requests, err := s.repo.ListPendingRequests(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery requests")
	}
	if len(requests) == 0 {
		return []RequestedOrder{}, nil
	}
	ids := make([]uuid.UUID, 0, len(requests))
	for _, req := range requests {
		ids = append(ids, req.OrderID)
	}
	rows, err := s.repo.FindUnassignedOrders(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load requested orders")
	}
	byID := make(map[uuid.UUID]models.Order, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]RequestedOrder, 0, len(requests))
	for _, req := range requests {
		order, ok := byID[req.OrderID]
		if !ok {
			continue
		}
		phase := fulfillment.PhaseOf(order, fulfillment.CountItems(order.Items))
		if fulfillment.Guard(phase, fulfillment.EventDeliveryAccepted) != nil {
			continue
		}
		out = append(out, RequestedOrder{
			Order:   orders.NewOrderDTO(order),
			Items:   orders.NewOrderItemDTOs(order.Items),
			Request: orders.NewDeliveryRequestDTO(req),
		})
	}
	return out, nil
}

// operatedCompany loads the company and checks the actor runs it and it may
// take deliveries.
func operatedCompany(ctx context.Context, repo *Repository, companyID, actorUserID uuid.UUID) (*models.DeliveryCompany, error) {
	company, err := repo.FindCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery company")
	}
	if company.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "user does not operate this delivery company")
	}
	if company.Status != enums.DeliveryCompanyStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "delivery company is not approved")
	}
	return company, nil
}
