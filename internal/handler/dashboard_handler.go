package handler

import (
	"strconv"

	"go-amana-aap/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) GetCreditMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	movement, err := h.service.GetCreditMovement(days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch credit movement"})
	}
	return c.JSON(movement)
}

// GetAAPCreditHistory shows an admin the reserve/release trail of one AAP.
func (h *DashboardHandler) GetAAPCreditHistory(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	entries, err := h.service.GetAAPCreditHistory(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch credit entries"})
	}
	return c.JSON(entries)
}

// GetMyCreditHistory shows a retailer their own ledger entries.
func (h *DashboardHandler) GetMyCreditHistory(c *fiber.Ctx) error {
	retailer := currentUser(c)

	entries, err := h.service.GetRetailerCreditHistory(retailer.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch credit entries"})
	}
	return c.JSON(entries)
}
