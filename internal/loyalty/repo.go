package loyalty

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

var errAlreadyApplied = errors.New("loyalty already applied for order")

// Repository persists loyalty accounts and per-order application guards.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindOrder loads the order whose points are being processed.
func (r *Repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertApplication claims the order. A second claim returns errAlreadyApplied.
func (r *Repository) InsertApplication(ctx context.Context, app *models.LoyaltyApplication) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(app).Error
	if dbpkg.IsUniqueViolation(err, "loyalty_applications_order_id_key") {
		return errAlreadyApplied
	}
	return err
}

// UpdateApplication records the final point movements on the guard row.
func (r *Repository) UpdateApplication(ctx context.Context, id uuid.UUID, redeemed, earned int) error {
	return r.db.WithContext(ctx).
		Model(&models.LoyaltyApplication{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"points_redeemed": redeemed,
			"points_earned":   earned,
		}).Error
}

// LockAccount selects the user's account FOR UPDATE. It returns nil, nil when
// the user has no account yet.
func (r *Repository) LockAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	return r.findAccount(dbpkg.ForUpdate(r.db.WithContext(ctx)), userID)
}

// FindAccount reads the user's account without locking. Nil when absent.
func (r *Repository) FindAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	return r.findAccount(r.db.WithContext(ctx), userID)
}

func (r *Repository) findAccount(q *gorm.DB, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := q.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts an empty account for the user.
func (r *Repository) CreateAccount(ctx context.Context, userID uuid.UUID) (*models.LoyaltyAccount, error) {
	account := &models.LoyaltyAccount{
		ID:      uuid.New(),
		UserID:  userID,
		History: []models.LoyaltyHistoryEntry{},
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// SaveBalance writes the new balance and the full history.
func (r *Repository) SaveBalance(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).
		Model(account).
		Select("points_balance", "points_history", "updated_at").
		Updates(account).Error
}

// ListUnapplied returns committed, non-cancelled orders created before
// cutoff that have no application guard row, oldest first.
func (r *Repository) ListUnapplied(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("LEFT JOIN loyalty_applications la ON la.order_id = orders.id").
		Where("la.id IS NULL").
		Where("orders.status <> ?", enums.OrderStatusCancelled).
		Where("orders.created_at < ?", cutoff).
		Order("orders.created_at ASC").
		Limit(limit).
		Pluck("orders.id", &ids).Error
	return ids, err
}
