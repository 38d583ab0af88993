package fulfillment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/orders"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// ViewInput names the order and the participant reading it.
type ViewInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	Role        enums.ActorRole
}

// OrderView is an order as one participant may see it. Vendors only see
// their own lines and delivery companies only their own requests.
type OrderView struct {
	Order            orders.OrderDTO             `json:"order"`
	Phase            Phase                       `json:"phase"`
	Items            []orders.OrderItemDTO       `json:"items"`
	DeliveryRequests []orders.DeliveryRequestDTO `json:"delivery_requests"`
}

// GetOrder loads the order for a customer, vendor or delivery company that
// takes part in it. Anyone else gets NOT_FOUND.
func (s *service) GetOrder(ctx context.Context, input ViewInput) (*OrderView, error) {
	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	items := order.Items
	var requests []models.DeliveryRequest
	switch input.Role {
	case enums.ActorRoleCustomer:
		if order.CustomerID != input.ActorUserID {
			return nil, orderNotFound()
		}
		if requests, err = s.repo.FindDeliveryRequests(ctx, order.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery requests")
		}
	case enums.ActorRoleVendor:
		vendor, err := s.repo.FindVendorByUser(ctx, input.ActorUserID)
		if err != nil {
			return nil, participantLookup(err, "load vendor")
		}
		items = vendorLines(order.Items, vendor.ID)
		if len(items) == 0 {
			return nil, orderNotFound()
		}
	case enums.ActorRoleDelivery:
		company, err := s.repo.FindCompanyByUser(ctx, input.ActorUserID)
		if err != nil {
			return nil, participantLookup(err, "load delivery company")
		}
		all, err := s.repo.FindDeliveryRequests(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery requests")
		}
		for _, req := range all {
			if req.CompanyID == company.ID {
				requests = append(requests, req)
			}
		}
		assigned := order.DeliveryCompanyID != nil && *order.DeliveryCompanyID == company.ID
		if len(requests) == 0 && !assigned {
			return nil, orderNotFound()
		}
	default:
		return nil, orderNotFound()
	}

	return &OrderView{
		Order:            orders.NewOrderDTO(*order),
		Phase:            PhaseOf(*order, CountItems(order.Items)),
		Items:            orders.NewOrderItemDTOs(items),
		DeliveryRequests: orders.NewDeliveryRequestDTOs(requests),
	}, nil
}

func vendorLines(items []models.OrderItem, vendorID uuid.UUID) []models.OrderItem {
	var out []models.OrderItem
	for _, item := range items {
		if item.VendorID == vendorID {
			out = append(out, item)
		}
	}
	return out
}

func participantLookup(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return orderNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}
