package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput is what a vendor submits to publish a coupon.
type CreateInput struct {
	Code              string
	DiscountType      enums.DiscountType
	DiscountValue     decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	ValidFrom         time.Time
	ValidTo           time.Time
	UsageLimit        *int
}

// Service manages vendor coupons.
type Service interface {
	Create(ctx context.Context, vendorUserID uuid.UUID, input CreateInput) (*models.Coupon, error)
	Toggle(ctx context.Context, vendorUserID, couponID uuid.UUID, active bool) (*models.Coupon, error)
}

type service struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the coupon service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, logg: logg, now: time.Now}, nil
}

// Create publishes a coupon and deactivates the vendor's other active ones.
func (s *service) Create(ctx context.Context, vendorUserID uuid.UUID, input CreateInput) (*models.Coupon, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	var created *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindVendorByUser(ctx, vendorUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only vendors can create coupons")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}

		existing, err := repo.FindByCode(ctx, input.Code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check coupon code")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}

		deactivated, err := repo.DeactivateVendorCoupons(ctx, vendor.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate vendor coupons")
		}

		vendorID := vendor.ID
		coupon := &models.Coupon{
			ID:                uuid.New(),
			VendorID:          &vendorID,
			Code:              strings.TrimSpace(input.Code),
			DiscountType:      input.DiscountType,
			DiscountValue:     input.DiscountValue,
			MinPurchaseAmount: input.MinPurchaseAmount,
			ValidFrom:         input.ValidFrom.UTC(),
			ValidTo:           input.ValidTo.UTC(),
			UsageLimit:        input.UsageLimit,
			IsActive:          true,
		}
		if err := repo.Create(ctx, coupon); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"coupon_id":   coupon.ID.String(),
			"vendor_id":   vendor.ID.String(),
			"deactivated": deactivated,
		})
		s.logg.Info(logCtx, "coupon.created")
		created = coupon
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Toggle flips is_active. Expired coupons cannot be re-activated.
func (s *service) Toggle(ctx context.Context, vendorUserID, couponID uuid.UUID, active bool) (*models.Coupon, error) {
	var updated *models.Coupon
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindVendorByUser(ctx, vendorUserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only vendors can manage coupons")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}

		coupon, err := repo.FindByID(ctx, couponID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
		}
		if coupon.VendorID == nil || *coupon.VendorID != vendor.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		if active && coupon.ValidTo.Before(s.now()) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot activate an expired coupon; update valid_to first")
		}

		if err := repo.SetActive(ctx, coupon.ID, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update coupon")
		}
		coupon.IsActive = active
		updated = coupon
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.DiscountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_type must be percentage or fixed")
	}
	if !input.DiscountValue.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_value must be positive")
	}
	if input.DiscountType == enums.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage discount cannot exceed 100")
	}
	if input.MinPurchaseAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_purchase_amount must not be negative")
	}
	if !input.ValidTo.After(input.ValidFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_to must be after valid_from")
	}
	if input.UsageLimit != nil && *input.UsageLimit < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage_limit must not be negative")
	}
	return nil
}
