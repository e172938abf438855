package handler

import (
	"go-amana-aap/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RetailerHandler struct {
	lookup service.RetailerLookup
	ledger service.CreditLedger
}

func NewRetailerHandler(lookup service.RetailerLookup, ledger service.CreditLedger) *RetailerHandler {
	return &RetailerHandler{lookup: lookup, ledger: ledger}
}

// Lookup resolves a retailer by phone for the linking flow. The snapshot
// includes the credit headroom so the agent sees availability up front;
// the authoritative check still happens at link time.
func (h *RetailerHandler) Lookup(c *fiber.Ctx) error {
	phone := c.Query("phone")

	retailer, err := h.lookup.FindByPhone(phone)
	if err != nil {
		return fail(c, err)
	}

	// An agent cannot purchase on their own behalf; flag it here too so
	// the UI can short-circuit before attempting a link.
	agent := currentUser(c)
	if agent != nil && retailer.ID == agent.ID {
		return fail(c, service.ErrSelfDealing)
	}

	snapshot := retailer.ToRetailerSnapshot()

	// Optional advisory check for a specific total. Never authoritative:
	// the ledger re-checks under a lock when the reservation commits.
	if raw := c.Query("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid amount"})
		}
		ok, available, err := h.ledger.CanReserve(retailer.ID, amount)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"retailer":    snapshot,
			"can_reserve": ok,
			"available":   available,
		})
	}

	return c.JSON(snapshot)
}
