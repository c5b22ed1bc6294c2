package access

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/jis-backend/internal/auth"
	"github.com/aldoetobex/jis-backend/pkg/validation"
)

// PayRequest is the browsing-fee payment form.
type PayRequest struct {
	CaseID string `json:"case_id" form:"case_id" validate:"required,uuid"`
	CIN    string `json:"cin" form:"cin" validate:"required,cin"`
}

// PayResponse is the body of a successful payment.
type PayResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AlreadyPaid bool   `json:"already_paid"`
	Assigned    bool   `json:"assigned"`
	FeeCents    int    `json:"fee_cents"`
}

// HistoryResponse lists paid accesses.
type HistoryResponse struct {
	Items          []HistoryItem `json:"items"`
	TotalFeesCents int           `json:"total_fees_cents"`
}

type Handler struct{ g *Gate }

func NewHandler(g *Gate) *Handler { return &Handler{g: g} }

// @Summary      Pay browsing fee
// @Description  Lawyer pays the one-time fee to view a case record. Assigned lawyers are not charged; repeated calls are idempotent.
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        payload  body      PayRequest  true  "Case"
// @Success      200      {object}  PayResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      403      {object}  models.ErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Failure      500      {object}  models.ErrorResponse
// @Router       /access/pay [post]
func (h *Handler) Pay(c *fiber.Ctx) error {
	var in PayRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	res, err := h.g.Grant(c.UserContext(), auth.ActorFrom(c), uuid.MustParse(in.CaseID), in.CIN)
	if err != nil {
		return err
	}

	msg := "Payment processed successfully"
	switch {
	case res.Assigned:
		msg = "You are assigned to this case; no fee is due"
	case res.AlreadyPaid:
		msg = "Already paid for this case"
	}
	return c.JSON(PayResponse{
		Success:     res.Granted,
		Message:     msg,
		AlreadyPaid: res.AlreadyPaid,
		Assigned:    res.Assigned,
		FeeCents:    res.FeeCents,
	})
}

// @Summary      Browsing history
// @Description  Cases the lawyer paid to view, newest first, with the total spent
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  HistoryResponse
// @Router       /access/history [get]
func (h *Handler) History(c *fiber.Ctx) error {
	items, total, err := h.g.History(c.UserContext(), auth.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(HistoryResponse{Items: items, TotalFeesCents: total})
}
