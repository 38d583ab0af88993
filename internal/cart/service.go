package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// Service reads carts for pricing.
type Service interface {
	Snapshot(ctx context.Context, userID, cartID uuid.UUID) (*Snapshot, error)
}

type service struct {
	repo CartRepository
}

// NewService wires the cart reader.
func NewService(repo CartRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	return &service{repo: repo}, nil
}

// Snapshot loads the user's active cart. A cart with no items is EMPTY_CART,
// and so is a cart that does not exist or belongs to someone else.
func (s *service) Snapshot(ctx context.Context, userID, cartID uuid.UUID) (*Snapshot, error) {
	record, err := s.repo.FindActiveByIDAndUser(ctx, cartID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	snap := &Snapshot{CartID: record.ID, UserID: userID, Lines: make([]Line, 0, len(record.Items))}
	for _, item := range record.Items {
		if item.Product == nil || item.Product.Vendor == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references an unavailable product").
				WithDetails(map[string]any{"product_id": item.ProductID.String()})
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item quantity must be positive").
				WithDetails(map[string]any{"cart_item_id": item.ID.String()})
		}
		price := item.Product.Price
		snap.Lines = append(snap.Lines, Line{
			CartItemID:  item.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Variant:     item.Variant,
			Quantity:    item.Quantity,
			UnitPrice:   price,
			LineTotal:   price.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2),
			Vendor:      *item.Product.Vendor,
		})
	}
	return snap, nil
}
