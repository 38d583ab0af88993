package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	LockOrderItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error)
	LockProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) error
	UpdateOrderItem(ctx context.Context, itemID uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	MarkDropped(ctx context.Context, orderID uuid.UUID) (int64, error)
	FindVendorByUser(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
	FindCompanyByUser(ctx context.Context, userID uuid.UUID) (*models.DeliveryCompany, error)
	FindDeliveryRequests(ctx context.Context, orderID uuid.UUID) ([]models.DeliveryRequest, error)
}
