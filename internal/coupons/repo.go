package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/fulfillment-backend/pkg/db"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
)

// Repository is the data access surface for coupons and their usages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	Create(ctx context.Context, coupon *models.Coupon) error
	DeactivateVendorCoupons(ctx context.Context, vendorID uuid.UUID) (int64, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ConsumeUsage(ctx context.Context, id uuid.UUID) error
	InsertUsage(ctx context.Context, usage *models.CouponUsage) error
	FindVendorByUser(ctx context.Context, userID uuid.UUID) (*models.Vendor, error)
}

var errUsageExhausted = errors.New("coupon usage limit reached")

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to a gorm handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByCode returns nil, nil when no coupon has the code.
func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return r.findByCode(r.db.WithContext(ctx), code)
}

// FindByCodeForUpdate is FindByCode holding a row lock; use inside a transaction.
func (r *repository) FindByCodeForUpdate(ctx context.Context, code string) (*models.Coupon, error) {
	return r.findByCode(dbpkg.ForUpdate(r.db.WithContext(ctx)), code)
}

func (r *repository) findByCode(q *gorm.DB, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := q.Where("code = ?", strings.TrimSpace(code)).First(&coupon).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) Create(ctx context.Context, coupon *models.Coupon) error {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) DeactivateVendorCoupons(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("vendor_id = ? AND is_active = ?", vendorID, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()}).Error
}

// ConsumeUsage decrements a limited coupon. Unlimited coupons are untouched.
func (r *repository) ConsumeUsage(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND usage_limit IS NOT NULL AND usage_limit > 0", id).
		Update("usage_limit", gorm.Expr("usage_limit - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var limited int64
		if err := r.db.WithContext(ctx).Model(&models.Coupon{}).
			Where("id = ? AND usage_limit IS NOT NULL", id).
			Count(&limited).Error; err != nil {
			return err
		}
		if limited > 0 {
			return errUsageExhausted
		}
	}
	return nil
}

func (r *repository) InsertUsage(ctx context.Context, usage *models.CouponUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) FindVendorByUser(ctx context.Context, userID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// IsUsageExhausted reports whether err came from ConsumeUsage running dry.
func IsUsageExhausted(err error) bool {
	return errors.Is(err, errUsageExhausted)
}
