package model

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an agent-assisted purchase.
type Status string

const (
	StatusDraft                   Status = "draft"
	StatusAwaitingRetailerConfirm Status = "awaiting_retailer_confirm"
	StatusPendingAdminApproval    Status = "pending_admin_approval"
	StatusFundDisbursed           Status = "fund_disbursed"
	StatusDelivered               Status = "delivered"
	StatusReceived                Status = "received"
	StatusCompleted               Status = "completed"
	StatusDeclined                Status = "declined"
	StatusExpired                 Status = "expired"
)

// Event is a lifecycle trigger applied to an AAP.
type Event string

const (
	EventLinkRetailer    Event = "link_retailer"
	EventRetailerConfirm Event = "retailer_confirm"
	EventAdminApprove    Event = "admin_approve"
	EventMarkDelivered   Event = "mark_delivered"
	EventRedeemCode      Event = "redeem_code"
	EventFinalize        Event = "finalize_settlement"
	EventDecline         Event = "decline"
	EventExpire          Event = "expire"
)

// transitions is the single source of truth for lifecycle legality.
// Decline/expire are allowed from every pre-handoff state; once the
// retailer has taken custody (received) only settlement finalization
// remains, and completed/declined/expired accept nothing.
var transitions = map[Status]map[Event]Status{
	StatusDraft: {
		EventLinkRetailer: StatusAwaitingRetailerConfirm,
		EventDecline:      StatusDeclined,
		EventExpire:       StatusExpired,
	},
	StatusAwaitingRetailerConfirm: {
		EventRetailerConfirm: StatusPendingAdminApproval,
		EventDecline:         StatusDeclined,
		EventExpire:          StatusExpired,
	},
	StatusPendingAdminApproval: {
		EventAdminApprove: StatusFundDisbursed,
		EventDecline:      StatusDeclined,
		EventExpire:       StatusExpired,
	},
	StatusFundDisbursed: {
		EventMarkDelivered: StatusDelivered,
		EventDecline:       StatusDeclined,
		EventExpire:        StatusExpired,
	},
	StatusDelivered: {
		EventRedeemCode: StatusReceived,
		EventDecline:    StatusDeclined,
		EventExpire:     StatusExpired,
	},
	StatusReceived: {
		EventFinalize: StatusCompleted,
	},
}

// NextStatus returns the resulting status for an event, or false when the
// event is not legal from the current status.
func NextStatus(from Status, ev Event) (Status, bool) {
	evs, ok := transitions[from]
	if !ok {
		return "", false
	}
	to, ok := evs[ev]
	return to, ok
}

// CanTransition reports whether ev is legal from the given status.
func CanTransition(from Status, ev Event) bool {
	_, ok := NextStatus(from, ev)
	return ok
}

// IsTerminal reports whether no event can move the AAP any further.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// RepaymentTerms are the only repayment terms offered, in days.
var RepaymentTerms = []int{3, 7, 14}

// ValidTerm reports whether termDays is one of the offered terms.
func ValidTerm(termDays int) bool {
	for _, t := range RepaymentTerms {
		if t == termDays {
			return true
		}
	}
	return false
}

const MaxProductPhotos = 10

// AAP is a single agent-assisted (Murabaha) purchase: an agent buys goods
// from a third-party seller on behalf of a retailer, financed by the
// operator, repaid at cost plus markup.
type AAP struct {
	BaseModel
	AgentID uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id" validate:"uuid_required"`
	Agent   *User     `gorm:"foreignKey:AgentID" json:"agent,omitempty" validate:"-"`

	// Set exactly once by a successful link, nil while in draft.
	RetailerID *uuid.UUID `gorm:"type:uuid;index" json:"retailer_id,omitempty"`
	Retailer   *User      `gorm:"foreignKey:RetailerID" json:"retailer,omitempty" validate:"-"`

	Status Status `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`

	ProductName   string          `gorm:"type:varchar(255);not null" json:"product_name" validate:"required"`
	Description   string          `gorm:"type:text" json:"description"`
	Quantity      int             `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"purchase_price"`
	ProductPhotos pq.StringArray  `gorm:"type:text[]" json:"product_photos" validate:"omitempty,max=10,dive,url"`

	SellerName     string `gorm:"type:varchar(255)" json:"seller_name"`
	SellerPhone    string `gorm:"type:varchar(20)" json:"seller_phone"`
	SellerLocation string `gorm:"type:varchar(255)" json:"seller_location"`

	// Pricing snapshot, computed once at link time and never recomputed.
	RepaymentTermDays int             `gorm:"default:0" json:"repayment_term_days"`
	MarkupPercentage  decimal.Decimal `gorm:"type:numeric(6,3);default:0" json:"markup_percentage"`
	MarkupAmount      decimal.Decimal `gorm:"type:numeric(18,6);default:0" json:"markup_amount"`
	TotalRetailerCost decimal.Decimal `gorm:"type:numeric(18,6);default:0" json:"total_retailer_cost"`

	// True while this AAP holds the retailer's credit reservation; flipped
	// off exactly once, on release.
	CreditReserved bool `gorm:"default:false" json:"credit_reserved"`

	// One-time custody handoff code, present only while delivered.
	PickupCode *string `gorm:"type:varchar(6)" json:"-"`
}

func (AAP) TableName() string {
	return "aaps"
}

// ReadyForLink is the draft readiness gate: an AAP may only be linked to a
// retailer once the product details, photos, and seller info are in place.
func (a *AAP) ReadyForLink() bool {
	return a.ProductName != "" &&
		a.PurchasePrice.IsPositive() &&
		len(a.ProductPhotos) >= 1 &&
		a.SellerName != "" &&
		a.SellerLocation != ""
}
