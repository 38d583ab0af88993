package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Create inserts rows and fails the test on error. Associations are skipped.
func Create(t testing.TB, db *gorm.DB, rows ...any) {
	t.Helper()
	for _, row := range rows {
		if err := db.Omit(clause.Associations).Create(row).Error; err != nil {
			t.Fatalf("seed %T: %v", row, err)
		}
	}
}

// Order returns a requested cash-on-delivery order with zeroed money fields.
func Order(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:                uuid.New(),
		CustomerID:        customerID,
		AddressID:         uuid.New(),
		TotalAmount:       decimal.Zero,
		CouponDiscount:    decimal.Zero,
		LoyaltyDiscount:   decimal.Zero,
		DiscountAmount:    decimal.Zero,
		FinalAmount:       decimal.Zero,
		DeliveryFee:       decimal.Zero,
		TotalWithShipping: decimal.Zero,
		PaymentMethod:     enums.PaymentMethodCOD,
		PaymentStatus:     enums.PaymentStatusPending,
		Status:            enums.OrderStatusRequested,
	}
}

// Item returns a pending order line for product at the given quantity.
func Item(order *models.Order, product *models.Product, quantity int) *models.OrderItem {
	return &models.OrderItem{
		ID:           uuid.New(),
		OrderID:      order.ID,
		ProductID:    product.ID,
		VendorID:     product.VendorID,
		Quantity:     quantity,
		UnitPrice:    product.Price,
		LineTotal:    product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		VendorStatus: enums.VendorItemStatusPending,
	}
}

// Vendor returns a vendor owned by a fresh user.
func Vendor(name string) *models.Vendor {
	return &models.Vendor{ID: uuid.New(), UserID: uuid.New(), StoreName: name}
}

// Product returns a product of vendor with price and stock.
func Product(vendor *models.Vendor, price string, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		VendorID:      vendor.ID,
		Name:          vendor.StoreName + " product",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}
