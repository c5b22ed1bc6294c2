package hearings

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/aldoetobex/jis-backend/internal/auth"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
	"github.com/aldoetobex/jis-backend/pkg/validation"
)

/* ================================ DTOs ================================= */

// ScheduleHearingRequest is the schedule form. Accepted as JSON or form body.
type ScheduleHearingRequest struct {
	CaseID             string `json:"case_id" form:"case_id" validate:"required,uuid"`
	HearingDate        string `json:"hearing_date" form:"hearing_date" validate:"required"`
	HearingType        string `json:"hearing_type" form:"hearing_type" validate:"required,hearingtype"`
	ProceedingsSummary string `json:"proceedings_summary" form:"proceedings_summary" validate:"max=5000"`
	LawyerID           string `json:"lawyer_id" form:"lawyer_id" validate:"required,uuid"`
	JudgeID            string `json:"judge_id" form:"judge_id" validate:"required,uuid"`
	ForceSchedule      string `json:"force_schedule" form:"force_schedule"` // checkbox: on | true | 1
}

// CheckConflictRequest is the body of the advisory conflict probe.
type CheckConflictRequest struct {
	JudgeID     string `json:"judge_id" form:"judge_id" validate:"omitempty,uuid"`
	LawyerID    string `json:"lawyer_id" form:"lawyer_id" validate:"omitempty,uuid"`
	HearingDate string `json:"hearing_date" form:"hearing_date" validate:"required"`
}

// RescheduleHearingRequest moves a hearing.
type RescheduleHearingRequest struct {
	HearingDate       string `json:"hearing_date" form:"hearing_date" validate:"required"`
	AdjournmentReason string `json:"adjournment_reason" form:"adjournment_reason" validate:"required,min=3,max=2000"`
	ForceSchedule     string `json:"force_schedule" form:"force_schedule"`
}

// ProceedingsRequest records what happened at a hearing.
type ProceedingsRequest struct {
	ProceedingsSummary string `json:"proceedings_summary" form:"proceedings_summary" validate:"required,max=5000"`
	Completed          bool   `json:"completed" form:"completed"`
}

// ScheduleResponse is returned when a hearing was booked.
type ScheduleResponse struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	HearingID  uuid.UUID `json:"hearing_id"`
	Status     Status    `json:"status"`
	IsConflict bool      `json:"is_conflict"`
}

// ConflictResponse is the 409 body of a blocked booking.
type ConflictResponse struct {
	Error    bool             `json:"error" example:"true"`
	Code     string           `json:"code" example:"SCHEDULING_CONFLICT"`
	Message  string           `json:"message"`
	Reasons  []ConflictReason `json:"reasons"`
	CanForce bool             `json:"can_force"`
}

/* ============================== Handler ================================= */

type Handler struct{ s *Scheduler }

func NewHandler(s *Scheduler) *Handler { return &Handler{s: s} }

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

func respondResult(c *fiber.Ctx, res *ScheduleResult, created bool) error {
	if res.Blocked() {
		return c.Status(fiber.StatusConflict).JSON(ConflictResponse{
			Error:    true,
			Code:     apperrors.ErrSchedulingConflict.Code,
			Message:  res.Message,
			Reasons:  res.Conflict.Reasons,
			CanForce: true,
		})
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(ScheduleResponse{
		Success:    true,
		Message:    res.Message,
		HearingID:  res.HearingID,
		Status:     res.Status,
		IsConflict: res.Status == StatusForced,
	})
}

/* ============================== Schedule ================================ */

// @Summary      Schedule hearing
// @Description  Registrar books a hearing and assigns its judge and lawyer. A double booking is refused with 409 unless force_schedule is set, in which case the hearing is stored and flagged as a conflict.
// @Tags         hearings
// @Security     BearerAuth
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        payload  body      ScheduleHearingRequest  true  "Hearing"
// @Success      201      {object}  ScheduleResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      403      {object}  models.ErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Failure      409      {object}  ConflictResponse
// @Router       /hearings [post]
func (h *Handler) Schedule(c *fiber.Ctx) error {
	var in ScheduleHearingRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	at, err := h.s.Hours().ParseSlot(in.HearingDate)
	if err != nil {
		return validation.Respond(c, validation.Field("hearing_date", err.Error()))
	}

	res, err := h.s.Schedule(c.UserContext(), auth.ActorFrom(c), ScheduleRequest{
		CaseID:   uuid.MustParse(in.CaseID),
		JudgeID:  uuid.MustParse(in.JudgeID),
		LawyerID: uuid.MustParse(in.LawyerID),
		At:       at,
		Type:     models.HearingType(in.HearingType),
		Summary:  strings.TrimSpace(in.ProceedingsSummary),
		Force:    truthy(in.ForceSchedule),
	})
	if err != nil {
		return err
	}
	return respondResult(c, res, true)
}

/* =========================== Check conflict ============================= */

// @Summary      Check scheduling conflict
// @Description  Advisory probe: is the judge or lawyer already booked at this exact time? Nothing is written.
// @Tags         hearings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      CheckConflictRequest  true  "Probe"
// @Success      200      {object}  ConflictResult
// @Failure      400      {object}  models.ValidationErrorResponse
// @Router       /hearings/check-conflict [post]
func (h *Handler) CheckConflict(c *fiber.Ctx) error {
	var in CheckConflictRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	if in.JudgeID == "" && in.LawyerID == "" {
		return validation.Respond(c, validation.Field("judge_id", "judge_id or lawyer_id is required"))
	}

	at, err := h.s.Hours().ParseSlot(in.HearingDate)
	if err != nil {
		return validation.Respond(c, validation.Field("hearing_date", err.Error()))
	}

	var judgeID, lawyerID uuid.UUID
	if in.JudgeID != "" {
		judgeID = uuid.MustParse(in.JudgeID)
	}
	if in.LawyerID != "" {
		lawyerID = uuid.MustParse(in.LawyerID)
	}

	res, err := h.s.CheckConflict(c.UserContext(), judgeID, lawyerID, at)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

/* ============================== Reschedule ============================== */

// @Summary      Reschedule hearing
// @Description  Move a hearing to a new time. The new slot is checked for conflicts like a new booking.
// @Tags         hearings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Hearing ID (UUID)"
// @Param        payload  body      RescheduleHearingRequest  true  "New slot"
// @Success      200      {object}  ScheduleResponse
// @Failure      400      {object}  models.ValidationErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Failure      409      {object}  ConflictResponse
// @Router       /hearings/{id}/reschedule [patch]
func (h *Handler) Reschedule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid hearing id")
	}

	var in RescheduleHearingRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	at, err := h.s.Hours().ParseSlot(in.HearingDate)
	if err != nil {
		return validation.Respond(c, validation.Field("hearing_date", err.Error()))
	}

	res, err := h.s.Reschedule(c.UserContext(), auth.ActorFrom(c), RescheduleRequest{
		HearingID:         id,
		At:                at,
		AdjournmentReason: strings.TrimSpace(in.AdjournmentReason),
		Force:             truthy(in.ForceSchedule),
	})
	if err != nil {
		return err
	}
	return respondResult(c, res, false)
}

/* ============================= Proceedings ============================== */

// @Summary      Record proceedings
// @Tags         hearings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Hearing ID (UUID)"
// @Param        payload  body      ProceedingsRequest  true  "Summary"
// @Success      200      {object}  models.Hearing
// @Failure      404      {object}  models.ErrorResponse
// @Router       /hearings/{id}/proceedings [patch]
func (h *Handler) RecordProceedings(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid hearing id")
	}
	var in ProceedingsRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.ErrBadRequest
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	hearing, err := h.s.RecordProceedings(c.UserContext(), auth.ActorFrom(c), id, strings.TrimSpace(in.ProceedingsSummary), in.Completed)
	if err != nil {
		return err
	}
	return c.JSON(hearing)
}

/* ================================ List ================================== */

// @Summary      List hearings
// @Description  Day view of hearings. Judges only see hearings they preside over.
// @Tags         hearings
// @Security     BearerAuth
// @Produce      json
// @Param        date     query     string  false  "Court-local day (YYYY-MM-DD)"
// @Param        case_id  query     string  false  "Case ID (UUID)"
// @Success      200      {array}   HearingView
// @Router       /hearings [get]
func (h *Handler) List(c *fiber.Ctx) error {
	f := HearingFilter{Date: c.Query("date")}
	if v := c.Query("case_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid case_id")
		}
		f.CaseID = id
	}

	out, err := h.s.ListHearings(c.UserContext(), auth.ActorFrom(c), f)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
