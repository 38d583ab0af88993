package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// Line is a priced cart item joined with its product and vendor.
type Line struct {
	CartItemID  uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Variant     *string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	Vendor      models.Vendor
}

// Snapshot is a read of the cart taken before the checkout transaction.
type Snapshot struct {
	CartID uuid.UUID
	UserID uuid.UUID
	Lines  []Line
}

// Total sums every line.
func (s *Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// DiscountLines adapts the snapshot for discount evaluation.
func (s *Snapshot) DiscountLines() []discounts.Line {
	out := make([]discounts.Line, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, discounts.Line{
			ProductID: l.ProductID,
			VendorID:  l.Vendor.ID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	return out
}

// Vendors returns the distinct vendors in first-appearance order.
func (s *Snapshot) Vendors() []models.Vendor {
	seen := make(map[uuid.UUID]struct{}, len(s.Lines))
	out := make([]models.Vendor, 0, len(s.Lines))
	for _, l := range s.Lines {
		if _, ok := seen[l.Vendor.ID]; ok {
			continue
		}
		seen[l.Vendor.ID] = struct{}{}
		out = append(out, l.Vendor)
	}
	return out
}

// Matches reports whether locked rows are still the items the snapshot was
// priced from: same ids, products, variants and quantities.
func (s *Snapshot) Matches(items []models.CartItem) bool {
	if len(items) != len(s.Lines) {
		return false
	}
	byID := make(map[uuid.UUID]Line, len(s.Lines))
	for _, l := range s.Lines {
		byID[l.CartItemID] = l
	}
	for _, item := range items {
		l, ok := byID[item.ID]
		if !ok {
			return false
		}
		if l.ProductID != item.ProductID || l.Quantity != item.Quantity || !sameVariant(l.Variant, item.Variant) {
			return false
		}
	}
	return true
}

func sameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
