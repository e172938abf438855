package service

import (
	"errors"
	"fmt"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/pricing"
	"go-amana-aap/internal/repository"
	"go-amana-aap/internal/ws"
	"go-amana-aap/pkg/pickupcode"
	"go-amana-aap/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AAPService owns the purchase lifecycle: it is the only code that moves an
// AAP between statuses, and every transition runs under a FOR UPDATE lock
// on the AAP row so at most one transition is in flight per purchase.
type AAPService interface {
	CreateDraft(req *model.AAP, agentID uuid.UUID) error
	UpdateDraft(id uuid.UUID, req *model.AAP, agentID uuid.UUID) (*model.AAP, error)
	AddPhoto(id uuid.UUID, agentID uuid.UUID, url string) (*model.AAP, error)
	LinkRetailer(id uuid.UUID, agentID uuid.UUID, retailerPhone string, termDays int) (*model.AAP, error)
	ConfirmRetailer(id uuid.UUID, retailerID uuid.UUID) (*model.AAP, error)
	Approve(id uuid.UUID, adminID uuid.UUID) (*model.AAP, error)
	MarkDelivered(id uuid.UUID, agentID uuid.UUID) (*model.AAP, string, error)
	RedeemPickupCode(id uuid.UUID, actorID uuid.UUID, code string) (*model.AAP, error)
	Complete(id uuid.UUID, adminID uuid.UUID) (*model.AAP, error)
	Decline(id uuid.UUID, actorID uuid.UUID, reason string) (*model.AAP, error)
	Expire(id uuid.UUID, actorID uuid.UUID) (*model.AAP, error)

	GetByID(id uuid.UUID) (*model.AAP, error)
	ListForActor(actor *model.User) ([]model.AAP, error)
	PreviewQuote(score, termDays int, principal decimal.Decimal) (pricing.Quote, error)
}

type aapService struct {
	aapRepo repository.AAPRepository
	lookup  RetailerLookup
	ledger  CreditLedger
	db      *gorm.DB
	wsHub   *ws.Hub
}

func NewAAPService(aapRepo repository.AAPRepository, lookup RetailerLookup, ledger CreditLedger, db *gorm.DB, hub *ws.Hub) AAPService {
	return &aapService{
		aapRepo: aapRepo,
		lookup:  lookup,
		ledger:  ledger,
		db:      db,
		wsHub:   hub,
	}
}

func (s *aapService) CreateDraft(req *model.AAP, agentID uuid.UUID) error {
	req.AgentID = agentID
	req.Status = model.StatusDraft
	req.RetailerID = nil
	req.CreditReserved = false
	req.PickupCode = nil

	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return fmt.Errorf("%w: field '%s' failed on '%s'", ErrValidation, first.FailedField, first.Tag)
	}
	if req.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: purchase price must not be negative", ErrValidation)
	}
	if len(req.ProductPhotos) > model.MaxProductPhotos {
		return fmt.Errorf("%w: at most %d product photos", ErrValidation, model.MaxProductPhotos)
	}

	req.CreatedBy = agentID.String()
	req.UpdatedBy = agentID.String()

	if err := s.aapRepo.Create(req); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

// UpdateDraft edits product/seller details. Only the owning agent, only
// while the purchase is still a draft.
func (s *aapService) UpdateDraft(id uuid.UUID, req *model.AAP, agentID uuid.UUID) (*model.AAP, error) {
	var updated *model.AAP

	err := s.db.Transaction(func(tx *gorm.DB) error {
		aap, err := lockAAP(tx, id)
		if err != nil {
			return err
		}
		if aap.AgentID != agentID {
			return fmt.Errorf("%w: aap %s", ErrNotFound, id)
		}
		if aap.Status != model.StatusDraft {
			return fmt.Errorf("%w: cannot edit while %s", ErrIllegalTransition, aap.Status)
		}
		if req.PurchasePrice.IsNegative() {
			return fmt.Errorf("%w: purchase price must not be negative", ErrValidation)
		}
		if len(req.ProductPhotos) > model.MaxProductPhotos {
			return fmt.Errorf("%w: at most %d product photos", ErrValidation, model.MaxProductPhotos)
		}

		aap.ProductName = req.ProductName
		aap.Description = req.Description
		aap.Quantity = req.Quantity
		aap.PurchasePrice = req.PurchasePrice
		if req.ProductPhotos != nil {
			aap.ProductPhotos = req.ProductPhotos
		}
		aap.SellerName = req.SellerName
		aap.SellerPhone = req.SellerPhone
		aap.SellerLocation = req.SellerLocation
		aap.UpdatedBy = agentID.String()

		if errs := validator.ValidateStruct(aap); len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("%w: field '%s' failed on '%s'", ErrValidation, first.FailedField, first.Tag)
		}

		if err := tx.Save(aap).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		updated = aap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddPhoto appends one stored photo URL (the photo store boundary has
// already turned bytes into a URL).
func (s *aapService) AddPhoto(id uuid.UUID, agentID uuid.UUID, url string) (*model.AAP, error) {
	var updated *model.AAP

	err := s.db.Transaction(func(tx *gorm.DB) error {
		aap, err := lockAAP(tx, id)
		if err != nil {
			return err
		}
		if aap.AgentID != agentID {
			return fmt.Errorf("%w: aap %s", ErrNotFound, id)
		}
		if aap.Status != model.StatusDraft {
			return fmt.Errorf("%w: cannot add photos while %s", ErrIllegalTransition, aap.Status)
		}
		if len(aap.ProductPhotos) >= model.MaxProductPhotos {
			return fmt.Errorf("%w: at most %d product photos", ErrValidation, model.MaxProductPhotos)
		}

		aap.ProductPhotos = append(aap.ProductPhotos, url)
		aap.UpdatedBy = agentID.String()
		if err := tx.Save(aap).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		updated = aap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// LinkRetailer is the one transition with a compensating side effect: the
// credit reservation happens in the same DB transaction as the status
// write, so any downstream failure rolls both back and the AAP stays a
// draft.
func (s *aapService) LinkRetailer(id uuid.UUID, agentID uuid.UUID, retailerPhone string, termDays int) (*model.AAP, error) {
	if !model.ValidTerm(termDays) {
		return nil, fmt.Errorf("%w: repayment term must be one of %v days", ErrValidation, model.RepaymentTerms)
	}

	// Resolve the retailer first; lookup failures are reported, not retried.
	retailer, err := s.lookup.FindByPhone(retailerPhone)
	if err != nil {
		return nil, err
	}
	if retailer.ID == agentID {
		return nil, ErrSelfDealing
	}

	var linked *model.AAP
	err = s.db.Transaction(func(tx *gorm.DB) error {
		aap, err := lockAAP(tx, id)
		if err != nil {
			return err
		}
		if aap.AgentID != agentID {
			return fmt.Errorf("%w: aap %s", ErrNotFound, id)
		}

		next, ok := model.NextStatus(aap.Status, model.EventLinkRetailer)
		if !ok {
			return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, model.EventLinkRetailer, aap.Status)
		}
		if !aap.ReadyForLink() {
			return fmt.Errorf("%w: product name, positive price, at least one photo, and seller name/location are required before linking", ErrValidation)
		}

		quote, err := pricing.Price(retailer.AmanaScore, termDays, aap.PurchasePrice)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		// Commit-time reservation: re-checks availability under the
		// retailer row lock.
		if err := s.ledger.Reserve(tx, aap, retailer.ID, quote.Total, agentID.String()); err != nil {
			return err
		}

		retailerID := retailer.ID
		aap.RetailerID = &retailerID
		aap.RepaymentTermDays = termDays
		aap.MarkupPercentage = quote.Percentage
		aap.MarkupAmount = quote.Amount
		aap.TotalRetailerCost = quote.Total
		aap.Status = next
		aap.UpdatedBy = agentID.String()

		if err := tx.Save(aap).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		linked = aap
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastTransition(linked, model.EventLinkRetailer, agentID.String())
	return linked, nil
}

func (s *aapService) ConfirmRetailer(id uuid.UUID, retailerID uuid.UUID) (*model.AAP, error) {
	return s.transition(id, model.EventRetailerConfirm, retailerID.String(),
		func(tx *gorm.DB, aap *model.AAP) error {
			if aap.RetailerID == nil || *aap.RetailerID != retailerID {
				return fmt.Errorf("%w: aap %s", ErrNotFound, id)
			}
			return nil
		}, nil)
}

func (s *aapService) Approve(id uuid.UUID, adminID uuid.UUID) (*model.AAP, error) {
	return s.transition(id, model.EventAdminApprove, adminID.String(), nil, nil)
}

// MarkDelivered mints the one-time custody handoff code. Agent-only.
func (s *aapService) MarkDelivered(id uuid.UUID, agentID uuid.UUID) (*model.AAP, string, error) {
	var code string

	aap, err := s.transition(id, model.EventMarkDelivered, agentID.String(),
		func(tx *gorm.DB, aap *model.AAP) error {
			if aap.AgentID != agentID {
				return fmt.Errorf("%w: only the assigned agent can mark delivery", ErrValidation)
			}
			return nil
		},
		func(tx *gorm.DB, aap *model.AAP) error {
			generated, err := pickupcode.Generate()
			if err != nil {
				return fmt.Errorf("%w: pickup code generation: %v", ErrUpstreamUnavailable, err)
			}
			code = generated
			aap.PickupCode = &code
			return nil
		})
	if err != nil {
		return nil, "", err
	}
	return aap, code, nil
}

// RedeemPickupCode proves the physical handoff: exact match consumes the
// code, moves the AAP to received, and releases the credit reservation in
// the same transaction.
func (s *aapService) RedeemPickupCode(id uuid.UUID, actorID uuid.UUID, code string) (*model.AAP, error) {
	aap, err := s.transition(id, model.EventRedeemCode, actorID.String(),
		func(tx *gorm.DB, aap *model.AAP) error {
			if aap.PickupCode == nil || !pickupcode.Matches(*aap.PickupCode, code) {
				return ErrInvalidPickupCode
			}
			return nil
		},
		func(tx *gorm.DB, aap *model.AAP) error {
			aap.PickupCode = nil // single use
			return s.ledger.Release(tx, aap, actorID.String(), "custody handoff complete")
		})
	if err != nil && errors.Is(err, ErrIllegalTransition) {
		// A code that was already consumed reads as a bad code to the
		// caller, not as a state machine detail.
		if cur, gerr := s.aapRepo.FindByID(id); gerr == nil && cur.Status == model.StatusReceived {
			return nil, fmt.Errorf("%w: code already consumed", ErrInvalidPickupCode)
		}
	}
	return aap, err
}

func (s *aapService) Complete(id uuid.UUID, adminID uuid.UUID) (*model.AAP, error) {
	return s.transition(id, model.EventFinalize, adminID.String(), nil, nil)
}

func (s *aapService) Decline(id uuid.UUID, actorID uuid.UUID, reason string) (*model.AAP, error) {
	if reason == "" {
		reason = "declined"
	}
	return s.transition(id, model.EventDecline, actorID.String(), nil,
		func(tx *gorm.DB, aap *model.AAP) error {
			aap.PickupCode = nil
			return s.ledger.Release(tx, aap, actorID.String(), reason)
		})
}

// Expire is the same path as decline, driven by an external timer. The
// threshold policy lives with the caller, not here.
func (s *aapService) Expire(id uuid.UUID, actorID uuid.UUID) (*model.AAP, error) {
	return s.transition(id, model.EventExpire, actorID.String(), nil,
		func(tx *gorm.DB, aap *model.AAP) error {
			aap.PickupCode = nil
			return s.ledger.Release(tx, aap, actorID.String(), "expired")
		})
}

func (s *aapService) GetByID(id uuid.UUID) (*model.AAP, error) {
	aap, err := s.aapRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: aap %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return aap, nil
}

// PreviewQuote runs the same pricing function that LinkRetailer commits
// with, so the advisory preview can never drift from the stored values.
func (s *aapService) PreviewQuote(score, termDays int, principal decimal.Decimal) (pricing.Quote, error) {
	quote, err := pricing.Price(score, termDays, principal)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return quote, nil
}

func (s *aapService) ListForActor(actor *model.User) ([]model.AAP, error) {
	switch actor.Role {
	case model.RoleAgent:
		return s.aapRepo.FindByAgent(actor.ID)
	case model.RoleRetailer:
		return s.aapRepo.FindByRetailer(actor.ID)
	default:
		return s.aapRepo.FindAll()
	}
}

// lockAAP loads the AAP row under FOR UPDATE so concurrent transitions on
// the same purchase serialize.
func lockAAP(tx *gorm.DB, id uuid.UUID) (*model.AAP, error) {
	var aap model.AAP
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&aap, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: aap %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return &aap, nil
}

// transition applies one lifecycle event atomically: lock the row, check
// legality, run the guard, run the effect, persist. An error anywhere
// rolls the whole thing back, so state is never partially applied.
func (s *aapService) transition(
	id uuid.UUID,
	ev model.Event,
	actorID string,
	guard func(tx *gorm.DB, aap *model.AAP) error,
	effect func(tx *gorm.DB, aap *model.AAP) error,
) (*model.AAP, error) {
	var result *model.AAP

	err := s.db.Transaction(func(tx *gorm.DB) error {
		aap, err := lockAAP(tx, id)
		if err != nil {
			return err
		}

		next, ok := model.NextStatus(aap.Status, ev)
		if !ok {
			return fmt.Errorf("%w: %s from %s", ErrIllegalTransition, ev, aap.Status)
		}
		if guard != nil {
			if err := guard(tx, aap); err != nil {
				return err
			}
		}
		if effect != nil {
			if err := effect(tx, aap); err != nil {
				return err
			}
		}

		aap.Status = next
		aap.UpdatedBy = actorID
		if err := tx.Save(aap).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		result = aap
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastTransition(result, ev, actorID)
	return result, nil
}

// broadcastTransition pushes the status change to websocket subscribers;
// downstream consumers (notifications, dashboards) hang off this feed.
func (s *aapService) broadcastTransition(aap *model.AAP, ev model.Event, actorID string) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.Publish(ws.Event{
		Type:    "aap_update",
		Event:   string(ev),
		Status:  string(aap.Status),
		ActorID: actorID,
		AAP: map[string]interface{}{
			"id":           aap.ID,
			"agent_id":     aap.AgentID,
			"retailer_id":  aap.RetailerID,
			"product_name": aap.ProductName,
			"total_cost":   aap.TotalRetailerCost,
		},
	})
}
