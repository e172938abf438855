package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/service"
	"go-amana-aap/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AAPHandler struct {
	service service.AAPService
	photos  storage.PhotoStore
}

func NewAAPHandler(s service.AAPService, photos storage.PhotoStore) *AAPHandler {
	return &AAPHandler{service: s, photos: photos}
}

// currentUser is set by the auth middleware; protected routes always have it.
func currentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals("current_user").(*model.User)
	return user
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// statusFor maps the engine's error taxonomy onto HTTP statuses. Callers
// need to tell a retryable failure from one they must correct, so nothing
// collapses into a bare 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrIllegalTransition):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrSelfDealing),
		errors.Is(err, service.ErrInsufficientCredit),
		errors.Is(err, service.ErrInvalidPickupCode):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func (h *AAPHandler) Create(c *fiber.Ctx) error {
	var aap model.AAP
	if err := c.BodyParser(&aap); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	agent := currentUser(c)
	if err := h.service.CreateDraft(&aap, agent.ID); err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Draft created", "data": aap})
}

func (h *AAPHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	var aap model.AAP
	if err := c.BodyParser(&aap); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	agent := currentUser(c)
	updated, err := h.service.UpdateDraft(id, &aap, agent.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Draft updated", "data": updated})
}

// UploadPhoto pushes the file through the photo store boundary and appends
// the resulting URL to the draft.
func (h *AAPHandler) UploadPhoto(c *fiber.Ctx) error {
	if h.photos == nil {
		return c.Status(503).JSON(fiber.Map{"error": "Photo storage is not configured"})
	}

	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Missing 'photo' file field"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Unreadable upload"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Unreadable upload"})
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	objectPath := fmt.Sprintf("aaps/%s/%d-%s", id, time.Now().UnixNano(), fileHeader.Filename)
	url, err := h.photos.Upload(c.Context(), objectPath, contentType, data)
	if err != nil {
		return c.Status(503).JSON(fiber.Map{"error": "Photo upload failed"})
	}

	agent := currentUser(c)
	updated, err := h.service.AddPhoto(id, agent.ID, url)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Photo added", "url": url, "data": updated})
}

type linkRequest struct {
	RetailerPhone string `json:"retailer_phone"`
	TermDays      int    `json:"repayment_term_days"`
}

func (h *AAPHandler) Link(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	var req linkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	agent := currentUser(c)
	linked, err := h.service.LinkRetailer(id, agent.ID, req.RetailerPhone, req.TermDays)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Retailer linked, awaiting confirmation", "data": linked})
}

func (h *AAPHandler) Confirm(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	retailer := currentUser(c)
	aap, err := h.service.ConfirmRetailer(id, retailer.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Purchase confirmed", "data": aap})
}

func (h *AAPHandler) Approve(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	admin := currentUser(c)
	aap, err := h.service.Approve(id, admin.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Approved, funds disbursed", "data": aap})
}

func (h *AAPHandler) Deliver(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	agent := currentUser(c)
	aap, code, err := h.service.MarkDelivered(id, agent.ID)
	if err != nil {
		return fail(c, err)
	}

	// The code goes back to the agent, who reads it to the retailer in
	// person. It is never included in the AAP JSON itself.
	return c.JSON(fiber.Map{"message": "Marked delivered", "pickup_code": code, "data": aap})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (h *AAPHandler) Redeem(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	actor := currentUser(c)
	aap, err := h.service.RedeemPickupCode(id, actor.ID, req.Code)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Custody handoff complete", "data": aap})
}

func (h *AAPHandler) Complete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	admin := currentUser(c)
	aap, err := h.service.Complete(id, admin.ID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Settlement finalized", "data": aap})
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h *AAPHandler) Decline(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	var req declineRequest
	_ = c.BodyParser(&req) // reason is optional

	actor := currentUser(c)
	aap, err := h.service.Decline(id, actor.ID, req.Reason)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"message": "Purchase declined", "data": aap})
}

func (h *AAPHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid AAP ID"})
	}

	aap, err := h.service.GetByID(id)
	if err != nil {
		return fail(c, err)
	}

	// Agents and retailers only see their own purchases
	user := currentUser(c)
	if user.Role == model.RoleAgent && aap.AgentID != user.ID {
		return c.Status(404).JSON(fiber.Map{"error": "AAP not found"})
	}
	if user.Role == model.RoleRetailer && (aap.RetailerID == nil || *aap.RetailerID != user.ID) {
		return c.Status(404).JSON(fiber.Map{"error": "AAP not found"})
	}

	return c.JSON(aap)
}

func (h *AAPHandler) List(c *fiber.Ctx) error {
	user := currentUser(c)
	aaps, err := h.service.ListForActor(user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(aaps)
}

// Quote is the advisory preview. It runs the identical pricing function
// that LinkRetailer commits with; the stored values remain authoritative.
func (h *AAPHandler) Quote(c *fiber.Ctx) error {
	score, err := strconv.Atoi(c.Query("score"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid score"})
	}
	termDays, err := strconv.Atoi(c.Query("term_days"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid term_days"})
	}
	principal, err := decimal.NewFromString(c.Query("principal"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid principal"})
	}

	quote, err := h.service.PreviewQuote(score, termDays, principal)
	if err != nil {
		return fail(c, err)
	}

	// Rounding happens here, at presentation; stored values keep full precision
	return c.JSON(fiber.Map{
		"markup_percentage":   quote.Percentage.StringFixed(2),
		"markup_amount":       quote.Amount.StringFixed(2),
		"total_retailer_cost": quote.Total.StringFixed(2),
	})
}
