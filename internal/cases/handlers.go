package cases

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/jis-backend/internal/auth"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
	"github.com/aldoetobex/jis-backend/pkg/validation"
)

const dateLayout = "2006-01-02"

// ===== DTOs =====

type CreateCaseRequest struct {
	CIN                    string `json:"cin" form:"cin" validate:"required,cin"`
	DefendantName          string `json:"defendant_name" form:"defendant_name" validate:"required,max=100"`
	DefendantAddress       string `json:"defendant_address" form:"defendant_address" validate:"required,max=1000"`
	CrimeType              string `json:"crime_type" form:"crime_type" validate:"required,max=50"`
	CrimeDate              string `json:"crime_date" form:"crime_date" validate:"required,datetime=2006-01-02"`
	CrimeLocation          string `json:"crime_location" form:"crime_location" validate:"required,max=1000"`
	ArrestingOfficer       string `json:"arresting_officer" form:"arresting_officer" validate:"required,max=100"`
	ArrestDate             string `json:"arrest_date" form:"arrest_date" validate:"required,datetime=2006-01-02"`
	ProsecutorName         string `json:"prosecutor_name" form:"prosecutor_name" validate:"required,max=100"`
	StartDate              string `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
	ExpectedCompletionDate string `json:"expected_completion_date" form:"expected_completion_date" validate:"omitempty,datetime=2006-01-02"`
	Description            string `json:"description" form:"description" validate:"max=5000"`
	SeverityLevel          string `json:"severity_level" form:"severity_level" validate:"omitempty,oneof=low medium high"`
	ComplexityLevel        string `json:"complexity_level" form:"complexity_level" validate:"omitempty,oneof=simple moderate complex"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" form:"status" validate:"required,oneof=closed reopened"`
}

type AssignLawyerRequest struct {
	LawyerID string `json:"lawyer_id" form:"lawyer_id" validate:"required,uuid"`
}

type AssignResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	LawyerID uuid.UUID `json:"lawyer_id"`
	Changed  bool      `json:"changed"`
}

type JudgmentRequest struct {
	JudgmentDate string `json:"judgment_date" form:"judgment_date" validate:"required,datetime=2006-01-02"`
	Summary      string `json:"summary" form:"summary" validate:"required,max=20000"`
	Status       string `json:"status" form:"status" validate:"omitempty,oneof=draft final appealed"`
}

// PaymentRequiredResponse is the 402 body for an unpaid record view.
type PaymentRequiredResponse struct {
	Error    bool      `json:"error" example:"true"`
	Code     string    `json:"code" example:"PAYMENT_REQUIRED"`
	Message  string    `json:"message"`
	CaseID   uuid.UUID `json:"case_id"`
	CIN      string    `json:"cin"`
	FeeCents int       `json:"fee_cents"`
}

type Handler struct{ r *Registry }

func NewHandler(r *Registry) *Handler { return &Handler{r: r} }

func parsePage(c *fiber.Ctx) (page, size int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	size, _ = strconv.Atoi(c.Query("pageSize", "10"))
	return normalizePage(page, size)
}

func respondPaymentRequired(c *fiber.Ctx, err error) error {
	var pr *PaymentRequiredError
	if !errors.As(err, &pr) {
		return err
	}
	return c.Status(fiber.StatusPaymentRequired).JSON(PaymentRequiredResponse{
		Error:    true,
		Code:     apperrors.ErrPaymentRequired.Code,
		Message:  apperrors.ErrPaymentRequired.Message,
		CaseID:   pr.Decision.CaseID,
		CIN:      pr.Decision.CIN,
		FeeCents: pr.Decision.FeeCents,
	})
}

// Create Case godoc
// @Summary      Register case
// @Description  Registrar registers a new pending case
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        payload  body  CreateCaseRequest  true  "Case payload"
// @Success      201  {object}  models.Case
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	nc := NewCase{
		CIN:              in.CIN,
		DefendantName:    in.DefendantName,
		DefendantAddress: strings.TrimSpace(in.DefendantAddress),
		CrimeType:        in.CrimeType,
		CrimeDate:        mustDate(in.CrimeDate),
		CrimeLocation:    strings.TrimSpace(in.CrimeLocation),
		ArrestingOfficer: strings.TrimSpace(in.ArrestingOfficer),
		ArrestDate:       mustDate(in.ArrestDate),
		ProsecutorName:   strings.TrimSpace(in.ProsecutorName),
		Description:      strings.TrimSpace(in.Description),
		SeverityLevel:    in.SeverityLevel,
		ComplexityLevel:  in.ComplexityLevel,
		StartDate:        mustDate(in.StartDate),
	}
	if in.ExpectedCompletionDate != "" {
		d := mustDate(in.ExpectedCompletionDate)
		nc.ExpectedCompletionDate = &d
	}

	cs, err := h.r.Create(c.UserContext(), auth.ActorFrom(c), nc)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cs)
}

// List Cases godoc
// @Summary      List cases
// @Description  Registrars see every case; judges and lawyers only cases they are assigned to
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Param        status    query string false "pending | closed | reopened"
// @Param        q         query string false "CIN, defendant or crime type"
// @Success      200  {object}  PageCases
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	page, size := parsePage(c)
	out, err := h.r.List(c.UserContext(), auth.ActorFrom(c), ListFilter{
		Status:   c.Query("status"),
		Query:    c.Query("q"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Search Cases godoc
// @Summary      Search cases (anonymized)
// @Description  Search the whole registry by CIN, defendant or crime type. Defendants are reduced to initials; has_access tells a lawyer whether the record is already open.
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        q         query string false "keyword"
// @Param        page      query int    false "page"
// @Param        pageSize  query int    false "pageSize"
// @Success      200  {object}  PageSearch
// @Failure      401  {object}  models.ErrorResponse
// @Router       /cases/search [get]
func (h *Handler) Search(c *fiber.Ctx) error {
	page, size := parsePage(c)
	out, err := h.r.Search(c.UserContext(), auth.ActorFrom(c), c.Query("q"), page, size)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// Update Status godoc
// @Summary      Change case status
// @Description  pending → closed, closed → reopened, reopened → closed
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "case id (uuid)"
// @Param        payload  body  UpdateStatusRequest  true  "New status"
// @Success      200  {object}  models.Case
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /cases/{id}/status [patch]
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}
	var in UpdateStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	cs, err := h.r.UpdateStatus(c.UserContext(), auth.ActorFrom(c), id, models.CaseStatus(in.Status))
	if err != nil {
		return err
	}
	return c.JSON(cs)
}

// Assign Lawyer godoc
// @Summary      Assign lawyer
// @Description  Registrar makes a lawyer the case's lawyer of record, replacing any previous one
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        id       path  string               true  "case id (uuid)"
// @Param        payload  body  AssignLawyerRequest  true  "Lawyer"
// @Success      200  {object}  AssignResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /cases/{id}/assignments [post]
func (h *Handler) AssignLawyer(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}
	var in AssignLawyerRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	lawyerID := uuid.MustParse(in.LawyerID)
	ch, err := h.r.AssignLawyer(c.UserContext(), auth.ActorFrom(c), id, lawyerID)
	if err != nil {
		return err
	}
	return c.JSON(AssignResponse{
		Success:  true,
		Message:  "Case assigned successfully!",
		LawyerID: lawyerID,
		Changed:  ch != nil,
	})
}

// Case Record godoc
// @Summary      Full case record
// @Description  Case with hearings, judgments and evidence. Lawyers who are neither assigned nor paid get 402 with the fee.
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        cin  path  string  true  "CIN"
// @Success      200  {object}  Record
// @Failure      402  {object}  PaymentRequiredResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/record/{cin} [get]
func (h *Handler) Record(c *fiber.Ctx) error {
	rec, err := h.r.Record(c.UserContext(), auth.ActorFrom(c), c.Params("cin"))
	if err != nil {
		return respondPaymentRequired(c, err)
	}
	return c.JSON(rec)
}

// Add Judgment godoc
// @Summary      Record judgment
// @Description  The case's presiding judge records a judgment
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        id       path  string           true  "case id (uuid)"
// @Param        payload  body  JudgmentRequest  true  "Judgment"
// @Success      201  {object}  models.Judgment
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /cases/{id}/judgments [post]
func (h *Handler) AddJudgment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}
	var in JudgmentRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	j, err := h.r.AddJudgment(c.UserContext(), auth.ActorFrom(c), id, mustDate(in.JudgmentDate), in.Summary, models.JudgmentStatus(in.Status))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(j)
}

// mustDate parses a YYYY-MM-DD value that already passed validation.
func mustDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, strings.TrimSpace(s))
	return t
}
