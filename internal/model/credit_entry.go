package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditEntryType string

const (
	CreditReserve CreditEntryType = "RESERVE"
	CreditRelease CreditEntryType = "RELEASE"
)

// CreditEntry is an immutable log row written for every reserve/release
// applied to a retailer's credit snapshot. The snapshot on the user row is
// authoritative; entries exist for audit and dashboard aggregation.
type CreditEntry struct {
	BaseModel
	RetailerID uuid.UUID       `gorm:"type:uuid;not null;index" json:"retailer_id" validate:"uuid_required"`
	Retailer   *User           `gorm:"foreignKey:RetailerID" json:"retailer,omitempty" validate:"-"`
	AAPID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"aap_id" validate:"uuid_required"`
	Type       CreditEntryType `gorm:"type:varchar(10);not null" json:"type" validate:"required,oneof=RESERVE RELEASE"`
	Amount     decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"amount"`
	// Snapshot of used_credit after this entry was applied.
	UsedAfter decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"used_after"`
	Note      string          `json:"note"`
}

func (CreditEntry) TableName() string {
	return "credit_entries"
}
