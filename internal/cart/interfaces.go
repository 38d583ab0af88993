package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by checkout.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActiveByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Cart, error)
	LockItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}
