package loyalty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/internal/discounts"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/metrics"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox"
	"github.com/angelmondragon/fulfillment-backend/pkg/outbox/payloads"
)

const (
	outcomeApplied   = "applied"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type onceEmitter interface {
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Outcome reports what ApplyOrder did to the customer's balance.
type Outcome struct {
	OrderID        uuid.UUID `json:"order_id"`
	PointsRedeemed int       `json:"points_redeemed"`
	PointsEarned   int       `json:"points_earned"`
	Balance        int       `json:"balance"`
	AlreadyApplied bool      `json:"already_applied"`
}

// Account is the read view of a user's points.
type Account struct {
	UserID  uuid.UUID                    `json:"user_id"`
	Balance int                          `json:"points_balance"`
	History []models.LoyaltyHistoryEntry `json:"points_history"`
}

// Service applies order points and reads balances.
type Service interface {
	ApplyOrder(ctx context.Context, orderID uuid.UUID) (*Outcome, error)
	Balance(ctx context.Context, userID uuid.UUID) (*Account, error)
}

type service struct {
	tx      txRunner
	repo    *Repository
	outbox  onceEmitter
	metrics *metrics.LoyaltyMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the loyalty ledger. Metrics may be nil.
func NewService(tx txRunner, repo *Repository, emitter onceEmitter, m *metrics.LoyaltyMetrics, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter, metrics: m, logg: logg, now: time.Now}, nil
}

// ApplyOrder redeems the points the order used and credits the points it
// earned, once per order. Redemption is clamped to the balance at apply time.
func (s *service) ApplyOrder(ctx context.Context, orderID uuid.UUID) (*Outcome, error) {
	var outcome *Outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := s.now().UTC()
		guard := &models.LoyaltyApplication{
			OrderID:   order.ID,
			UserID:    order.CustomerID,
			AppliedAt: now,
		}
		if err := repo.InsertApplication(ctx, guard); err != nil {
			if errors.Is(err, errAlreadyApplied) {
				outcome = &Outcome{OrderID: order.ID, AlreadyApplied: true}
				return errAlreadyApplied
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim loyalty application")
		}

		account, err := repo.LockAccount(ctx, order.CustomerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock loyalty account")
		}
		if account == nil {
			if account, err = repo.CreateAccount(ctx, order.CustomerID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create loyalty account")
			}
		}

		redeemed := order.LoyaltyPointsUsed
		if redeemed > account.PointsBalance {
			redeemed = account.PointsBalance
		}
		if redeemed < 0 {
			redeemed = 0
		}
		earned := discounts.PointsEarned(order.TotalAmount, order.DiscountAmount)

		id := order.ID
		if redeemed > 0 {
			account.History = append(account.History, models.LoyaltyHistoryEntry{
				Type:        enums.LoyaltyEntryRedeem,
				Points:      -redeemed,
				Description: "Redeemed at checkout",
				OrderID:     &id,
				Date:        now,
			})
		}
		if earned > 0 {
			account.History = append(account.History, models.LoyaltyHistoryEntry{
				Type:        enums.LoyaltyEntryEarn,
				Points:      earned,
				Description: "Earned from order",
				OrderID:     &id,
				Date:        now,
			})
		}
		account.PointsBalance = account.PointsBalance - redeemed + earned
		if redeemed > 0 || earned > 0 {
			if err := repo.SaveBalance(ctx, account); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save loyalty balance")
			}
		}
		if err := repo.UpdateApplication(ctx, guard.ID, redeemed, earned); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record loyalty application")
		}

		if err := s.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoyaltyPointsProcessed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.LoyaltyPointsProcessedEvent{
				OrderID:        order.ID,
				UserID:         order.CustomerID,
				PointsRedeemed: redeemed,
				PointsEarned:   earned,
				Balance:        account.PointsBalance,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit loyalty processed")
		}

		outcome = &Outcome{
			OrderID:        order.ID,
			PointsRedeemed: redeemed,
			PointsEarned:   earned,
			Balance:        account.PointsBalance,
		}
		return nil
	})

	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	switch {
	case errors.Is(err, errAlreadyApplied):
		s.metrics.IncOutcome(outcomeDuplicate)
		s.logg.Debug(logCtx, "loyalty.already_applied")
		return outcome, nil
	case err != nil:
		s.metrics.IncOutcome(outcomeFailed)
		return nil, err
	}

	s.metrics.IncOutcome(outcomeApplied)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"points_redeemed": outcome.PointsRedeemed,
		"points_earned":   outcome.PointsEarned,
		"balance":         outcome.Balance,
	})
	s.logg.Info(logCtx, "loyalty.applied")
	return outcome, nil
}

// Balance returns the user's points. Users without an account have zero.
func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*Account, error) {
	account, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load loyalty account")
	}
	if account == nil {
		return &Account{UserID: userID, History: []models.LoyaltyHistoryEntry{}}, nil
	}
	history := account.History
	if history == nil {
		history = []models.LoyaltyHistoryEntry{}
	}
	return &Account{UserID: userID, Balance: account.PointsBalance, History: history}, nil
}
