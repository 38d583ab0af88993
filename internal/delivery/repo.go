package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Repository reads delivery companies and mutates delivery requests.
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

// ListApproved returns approved companies with their depots, oldest first.
func (r *Repository) ListApproved(ctx context.Context) ([]models.DeliveryCompany, error) {
	var rows []models.DeliveryCompany
	err := r.db.WithContext(ctx).
		Preload("Locations", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("status = ?", enums.DeliveryCompanyStatusApproved).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindCompany loads one company by id.
func (r *Repository) FindCompany(ctx context.Context, id uuid.UUID) (*models.DeliveryCompany, error) {
	var company models.DeliveryCompany
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// CreateRequests inserts one pending request per candidate company.
func (r *Repository) CreateRequests(ctx context.Context, orderID uuid.UUID, companyIDs []uuid.UUID) ([]models.DeliveryRequest, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	rows := make([]models.DeliveryRequest, 0, len(companyIDs))
	for _, companyID := range companyIDs {
		rows = append(rows, models.DeliveryRequest{
			ID:        uuid.New(),
			OrderID:   orderID,
			CompanyID: companyID,
			Status:    enums.DeliveryRequestStatusPending,
		})
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// LockOrder selects the order FOR UPDATE.
func (r *Repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := dbpkg.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderItems returns the order's lines. Called under the order lock.
func (r *Repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListPendingRequests returns the company's requests still awaiting an
// answer, oldest first.
func (r *Repository) ListPendingRequests(ctx context.Context, companyID uuid.UUID) ([]models.DeliveryRequest, error) {
	var rows []models.DeliveryRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, enums.DeliveryRequestStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindUnassignedOrders loads the listed orders that no company has claimed
// and are not cancelled, with their lines.
func (r *Repository) FindUnassignedOrders(ctx context.Context, ids []uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Where("id IN ?", ids).
		Where("delivery_company_id IS NULL AND status <> ?", enums.OrderStatusCancelled).
		Find(&rows).Error
	return rows, err
}

// FindRequest returns the company's request for the order in any status.
func (r *Repository) FindRequest(ctx context.Context, orderID, companyID uuid.UUID) (*models.DeliveryRequest, error) {
	var req models.DeliveryRequest
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND company_id = ?", orderID, companyID).
		First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// AcceptPending flips the company's pending request to accepted and reports
// how many rows moved. Zero means it was already processed.
func (r *Repository) AcceptPending(ctx context.Context, orderID, companyID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryRequest{}).
		Where("order_id = ? AND company_id = ? AND status = ?", orderID, companyID, enums.DeliveryRequestStatusPending).
		Updates(map[string]any{
			"status":      enums.DeliveryRequestStatusAccepted,
			"accepted_at": at,
			"updated_at":  at,
		})
	return res.RowsAffected, res.Error
}

// RejectSiblings rejects every other pending request of the order.
func (r *Repository) RejectSiblings(ctx context.Context, orderID, companyID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryRequest{}).
		Where("order_id = ? AND company_id <> ? AND status = ?", orderID, companyID, enums.DeliveryRequestStatusPending).
		Updates(map[string]any{
			"status":     enums.DeliveryRequestStatusRejected,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

// AssignOrder records the winning company on the order.
func (r *Repository) AssignOrder(ctx context.Context, orderID, companyID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"delivery_company_id": companyID,
			"status":              enums.OrderStatusAccepted,
			"updated_at":          at,
		}).Error
}
