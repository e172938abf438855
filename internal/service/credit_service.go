package service

import (
	"errors"
	"fmt"

	"go-amana-aap/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreditLedger is the only writer of a retailer's credit snapshot. All
// mutation goes through a FOR UPDATE lock on the retailer row so two
// concurrent reservations against the same retailer serialize instead of
// both passing a stale availability check.
type CreditLedger interface {
	CanReserve(retailerID uuid.UUID, amount decimal.Decimal) (bool, decimal.Decimal, error)
	Reserve(tx *gorm.DB, aap *model.AAP, retailerID uuid.UUID, amount decimal.Decimal, actorID string) error
	Release(tx *gorm.DB, aap *model.AAP, actorID, note string) error
}

type creditLedger struct {
	db *gorm.DB
}

func NewCreditLedger(db *gorm.DB) CreditLedger {
	return &creditLedger{db: db}
}

// CanReserve is the advisory pre-check (quote time). The answer can go
// stale immediately; Reserve re-validates under the row lock.
func (l *creditLedger) CanReserve(retailerID uuid.UUID, amount decimal.Decimal) (bool, decimal.Decimal, error) {
	var retailer model.User
	if err := l.db.First(&retailer, "id = ? AND role = ?", retailerID, model.RoleRetailer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, decimal.Zero, fmt.Errorf("%w: retailer %s", ErrNotFound, retailerID)
		}
		return false, decimal.Zero, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	available := retailer.AvailableCredit()
	return amount.LessThanOrEqual(available), available, nil
}

// Reserve atomically re-checks availability and increments used_credit.
// Must run inside the same transaction as the status write it backs, so a
// failed persist rolls the reservation back (all-or-nothing).
func (l *creditLedger) Reserve(tx *gorm.DB, aap *model.AAP, retailerID uuid.UUID, amount decimal.Decimal, actorID string) error {
	if aap.CreditReserved {
		return fmt.Errorf("%w: aap %s already holds a reservation", ErrValidation, aap.ID)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: reservation amount must be positive", ErrValidation)
	}

	var retailer model.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&retailer, "id = ? AND role = ?", retailerID, model.RoleRetailer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: retailer %s", ErrNotFound, retailerID)
		}
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	// Commit-time re-validation, not just at quote time.
	available := retailer.AvailableCredit()
	if amount.GreaterThan(available) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientCredit, available, amount)
	}

	newUsed := retailer.UsedCredit.Add(amount)
	if err := tx.Model(&model.User{}).Where("id = ?", retailer.ID).
		Updates(map[string]interface{}{
			"used_credit": newUsed,
			"updated_by":  actorID,
		}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	entry := &model.CreditEntry{
		RetailerID: retailer.ID,
		AAPID:      aap.ID,
		Type:       model.CreditReserve,
		Amount:     amount,
		UsedAfter:  newUsed,
	}
	entry.CreatedBy = actorID
	entry.UpdatedBy = actorID
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	aap.CreditReserved = true
	return nil
}

// Release gives the reservation back, exactly once per AAP: the
// credit_reserved flag on the AAP row guards double release, and it is
// flipped in the same transaction as the releasing status change.
func (l *creditLedger) Release(tx *gorm.DB, aap *model.AAP, actorID, note string) error {
	if !aap.CreditReserved {
		return nil // nothing held, nothing to do
	}
	if aap.RetailerID == nil {
		return fmt.Errorf("reservation held but no retailer linked on aap %s", aap.ID)
	}

	var retailer model.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&retailer, "id = ?", *aap.RetailerID).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	newUsed := retailer.UsedCredit.Sub(aap.TotalRetailerCost)
	if newUsed.IsNegative() {
		return fmt.Errorf("release of %s would drive used_credit below zero for retailer %s",
			aap.TotalRetailerCost, retailer.ID)
	}

	if err := tx.Model(&model.User{}).Where("id = ?", retailer.ID).
		Updates(map[string]interface{}{
			"used_credit": newUsed,
			"updated_by":  actorID,
		}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	entry := &model.CreditEntry{
		RetailerID: retailer.ID,
		AAPID:      aap.ID,
		Type:       model.CreditRelease,
		Amount:     aap.TotalRetailerCost,
		UsedAfter:  newUsed,
		Note:       note,
	}
	entry.CreatedBy = actorID
	entry.UpdatedBy = actorID
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	aap.CreditReserved = false
	return nil
}
