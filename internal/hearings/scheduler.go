// Package hearings schedules court hearings and detects double bookings of
// judges and lawyers.
package hearings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/jis-backend/internal/assignments"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/logger"
	"github.com/aldoetobex/jis-backend/internal/metrics"
	"github.com/aldoetobex/jis-backend/pkg/apperrors"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// Status is the outcome of a schedule or reschedule attempt.
type Status string

const (
	StatusScheduled       Status = "scheduled"
	StatusForced          Status = "scheduled_with_conflict"
	StatusConflictBlocked Status = "conflict_blocked"
)

const (
	msgScheduled   = "Hearing scheduled successfully!"
	msgRescheduled = "Hearing rescheduled successfully!"
	msgForcedNote  = " (Note: Scheduling conflict exists)"
	msgRace        = "slot was booked concurrently"
)

// errBlocked aborts the scheduling transaction without surfacing an error.
var errBlocked = errors.New("hearing blocked by conflict")

// ScheduleRequest is a request to book a hearing for a case.
type ScheduleRequest struct {
	CaseID   uuid.UUID
	JudgeID  uuid.UUID
	LawyerID uuid.UUID
	At       time.Time
	Type     models.HearingType
	Summary  string
	Force    bool
}

// RescheduleRequest moves an existing hearing to a new slot.
type RescheduleRequest struct {
	HearingID         uuid.UUID
	At                time.Time
	AdjournmentReason string
	Force             bool
}

// ScheduleResult reports what happened. A blocked attempt is a normal result,
// not an error; Conflict carries the reasons.
type ScheduleResult struct {
	Status    Status         `json:"status"`
	HearingID uuid.UUID      `json:"hearing_id,omitempty"`
	Message   string         `json:"message"`
	Conflict  ConflictResult `json:"conflict"`
}

// Blocked reports whether the attempt was refused because of a conflict.
func (r *ScheduleResult) Blocked() bool { return r.Status == StatusConflictBlocked }

// Options configures a Scheduler.
type Options struct {
	Hours   CourtHours
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Scheduler books hearings. Every booking runs the conflict check and the
// insert in one transaction.
type Scheduler struct {
	db      *gorm.DB
	audit   audit.Recorder
	hours   CourtHours
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(db *gorm.DB, rec audit.Recorder, opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{db: db, audit: rec, hours: opts.Hours, metrics: opts.Metrics, now: now}
}

// Hours returns the court-hours policy, for parsing request times.
func (s *Scheduler) Hours() CourtHours { return s.hours }

// CheckConflict reports whether judgeID or lawyerID already holds a
// non-conflict hearing at exactly at. It never writes.
func (s *Scheduler) CheckConflict(ctx context.Context, judgeID, lawyerID uuid.UUID, at time.Time) (ConflictResult, error) {
	res, err := findConflicts(ctx, s.db, judgeID, lawyerID, at, uuid.Nil)
	if err != nil {
		return ConflictResult{}, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	s.metrics.ObserveConflictCheck(res.Label())
	return res, nil
}

// Schedule books a hearing and makes the given judge and lawyer the case's
// active participants. On conflict without Force nothing is written.
func (s *Scheduler) Schedule(ctx context.Context, actor models.Actor, req ScheduleRequest) (*ScheduleResult, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}
	if err := validateSchedule(req); err != nil {
		return nil, err
	}
	slot := NormalizeSlot(req.At)
	if err := s.hours.Check(slot); err != nil {
		return nil, err
	}

	var (
		result  ScheduleResult
		hearing models.Hearing
		changes []assignments.Change
		now     = s.now().UTC()
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cs, err := lockCase(tx, req.CaseID)
		if err != nil {
			return err
		}
		if cs.Status == models.CaseClosed {
			return apperrors.ErrCaseClosed
		}
		if err := lockParticipants(tx, req.JudgeID, req.LawyerID); err != nil {
			return err
		}

		// Hand the case's open hearings to the requested participants first so
		// the check below sees them. A blocked attempt rolls this back.
		for _, p := range []struct {
			role models.Role
			id   uuid.UUID
		}{{models.RoleJudge, req.JudgeID}, {models.RoleLawyer, req.LawyerID}} {
			ch, err := assignments.Replace(ctx, tx, cs.ID, p.role, p.id, now)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrPersistence, err)
			}
			if ch != nil {
				changes = append(changes, *ch)
			}
		}

		conflict, err := findConflicts(ctx, tx, req.JudgeID, req.LawyerID, slot, uuid.Nil)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		result.Conflict = conflict
		if conflict.Conflict && !req.Force {
			result.Status = StatusConflictBlocked
			result.Message = conflict.Message
			return errBlocked
		}

		hearing = models.Hearing{
			CaseID:             cs.ID,
			JudgeID:            req.JudgeID,
			LawyerID:           req.LawyerID,
			ScheduledAt:        slot,
			HearingType:        req.Type,
			Status:             models.HearingScheduled,
			ProceedingsSummary: req.Summary,
			IsConflict:         conflict.Conflict,
		}
		if err := tx.Create(&hearing).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Status = StatusConflictBlocked
				result.Message = msgRace
				return errBlocked
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errBlocked):
		s.metrics.ObserveSchedule(metrics.OutcomeBlocked)
		return &result, nil
	case err != nil:
		s.metrics.ObserveSchedule(metrics.OutcomeError)
		return nil, asAppError(err)
	}

	result.HearingID = hearing.ID
	result.Message = msgScheduled
	result.Status = StatusScheduled
	outcome := metrics.OutcomeScheduled
	if hearing.IsConflict {
		result.Status = StatusForced
		result.Message += msgForcedNote
		outcome = metrics.OutcomeForced
	}
	s.metrics.ObserveSchedule(outcome)

	s.audit.Record(ctx, audit.ActorEntry(actor, models.AuditInsert, "hearings", hearing.ID.String(), nil, hearing))
	for _, ch := range changes {
		s.recordAssignment(ctx, actor, ch)
	}
	logger.Get().Infow("hearing scheduled",
		"hearing_id", hearing.ID,
		"case_id", hearing.CaseID,
		"scheduled_at", hearing.ScheduledAt,
		"is_conflict", hearing.IsConflict,
	)
	return &result, nil
}

// Reschedule moves a hearing to a new slot and re-runs the conflict check,
// ignoring the hearing itself.
func (s *Scheduler) Reschedule(ctx context.Context, actor models.Actor, req RescheduleRequest) (*ScheduleResult, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}
	if req.HearingID == uuid.Nil || req.At.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "hearing id and new hearing_date are required")
	}
	slot := NormalizeSlot(req.At)
	if err := s.hours.Check(slot); err != nil {
		return nil, err
	}

	var (
		result   ScheduleResult
		old, upd models.Hearing
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&old, "id = ?", req.HearingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrHearingNotFound
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		if old.Status == models.HearingCompleted {
			return apperrors.WithMessage(apperrors.ErrInvalidStatusTransition, "completed hearings cannot be rescheduled")
		}
		cs, err := lockCase(tx, old.CaseID)
		if err != nil {
			return err
		}
		if cs.Status == models.CaseClosed {
			return apperrors.ErrCaseClosed
		}

		conflict, err := findConflicts(ctx, tx, old.JudgeID, old.LawyerID, slot, old.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		result.Conflict = conflict
		if conflict.Conflict && !req.Force {
			result.Status = StatusConflictBlocked
			result.Message = conflict.Message
			return errBlocked
		}

		upd = old
		upd.ScheduledAt = slot
		upd.AdjournmentReason = req.AdjournmentReason
		upd.Status = models.HearingRescheduled
		upd.IsConflict = conflict.Conflict

		if err := tx.Model(&models.Hearing{}).Where("id = ?", old.ID).Updates(map[string]any{
			"scheduled_at":       upd.ScheduledAt,
			"adjournment_reason": upd.AdjournmentReason,
			"status":             upd.Status,
			"is_conflict":        upd.IsConflict,
			"updated_at":         s.now().UTC(),
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Status = StatusConflictBlocked
				result.Message = msgRace
				return errBlocked
			}
			return apperrors.Wrap(apperrors.ErrPersistence, err)
		}
		return nil
	})

	switch {
	case errors.Is(err, errBlocked):
		s.metrics.ObserveReschedule(metrics.OutcomeBlocked)
		return &result, nil
	case err != nil:
		s.metrics.ObserveReschedule(metrics.OutcomeError)
		return nil, asAppError(err)
	}

	result.HearingID = upd.ID
	result.Status = StatusScheduled
	result.Message = msgRescheduled
	outcome := metrics.OutcomeScheduled
	if upd.IsConflict {
		result.Status = StatusForced
		result.Message += msgForcedNote
		outcome = metrics.OutcomeForced
	}
	s.metrics.ObserveReschedule(outcome)

	s.audit.Record(ctx, audit.ActorEntry(actor, models.AuditUpdate, "hearings", upd.ID.String(),
		map[string]any{"scheduled_at": old.ScheduledAt, "status": old.Status, "is_conflict": old.IsConflict},
		map[string]any{"scheduled_at": upd.ScheduledAt, "status": upd.Status, "is_conflict": upd.IsConflict,
			"adjournment_reason": upd.AdjournmentReason},
	))
	return &result, nil
}

// RecordProceedings stores the proceedings summary of a hearing and, when
// completed is set, closes the hearing.
func (s *Scheduler) RecordProceedings(ctx context.Context, actor models.Actor, hearingID uuid.UUID, summary string, completed bool) (*models.Hearing, error) {
	if !actor.Is(models.RoleRegistrar) {
		return nil, apperrors.ErrForbidden
	}

	var h models.Hearing
	if err := s.db.WithContext(ctx).First(&h, "id = ?", hearingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrHearingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	oldSummary, oldStatus := h.ProceedingsSummary, h.Status
	updates := map[string]any{"proceedings_summary": summary, "updated_at": s.now().UTC()}
	h.ProceedingsSummary = summary
	if completed {
		updates["status"] = models.HearingCompleted
		h.Status = models.HearingCompleted
	}
	if err := s.db.WithContext(ctx).Model(&models.Hearing{}).Where("id = ?", h.ID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	s.audit.Record(ctx, audit.ActorEntry(actor, models.AuditUpdate, "hearings", h.ID.String(),
		map[string]any{"proceedings_summary": oldSummary, "status": oldStatus},
		map[string]any{"proceedings_summary": h.ProceedingsSummary, "status": h.Status},
	))
	return &h, nil
}

// HearingFilter narrows ListHearings. Date is a court-local YYYY-MM-DD.
type HearingFilter struct {
	Date   string
	CaseID uuid.UUID
}

// HearingView is a hearing joined with its case and participants.
type HearingView struct {
	ID                 uuid.UUID            `json:"id"`
	CaseID             uuid.UUID            `json:"case_id"`
	CIN                string               `json:"cin"`
	DefendantName      string               `json:"defendant_name"`
	JudgeID            uuid.UUID            `json:"judge_id"`
	JudgeName          string               `json:"judge_name"`
	LawyerID           uuid.UUID            `json:"lawyer_id"`
	LawyerName         string               `json:"lawyer_name"`
	ScheduledAt        time.Time            `json:"scheduled_at"`
	HearingType        models.HearingType   `json:"hearing_type"`
	Status             models.HearingStatus `json:"status"`
	ProceedingsSummary string               `json:"proceedings_summary"`
	AdjournmentReason  string               `json:"adjournment_reason"`
	IsConflict         bool                 `json:"is_conflict"`
}

// ListHearings returns hearings ordered by time. Judges see only hearings
// they preside over.
func (s *Scheduler) ListHearings(ctx context.Context, actor models.Actor, f HearingFilter) ([]HearingView, error) {
	if !actor.Is(models.RoleRegistrar) && !actor.Is(models.RoleJudge) {
		return nil, apperrors.ErrForbidden
	}

	q := s.db.WithContext(ctx).
		Table("hearings").
		Select(`hearings.id, hearings.case_id, cases.cin, cases.defendant_name,
          hearings.judge_id, judges.full_name AS judge_name,
          hearings.lawyer_id, lawyers.full_name AS lawyer_name,
          hearings.scheduled_at, hearings.hearing_type, hearings.status,
          hearings.proceedings_summary, hearings.adjournment_reason, hearings.is_conflict`).
		Joins("JOIN cases ON cases.id = hearings.case_id").
		Joins("LEFT JOIN users AS judges ON judges.id = hearings.judge_id").
		Joins("LEFT JOIN users AS lawyers ON lawyers.id = hearings.lawyer_id")

	if f.Date != "" {
		from, to, err := s.hours.DayBounds(f.Date)
		if err != nil {
			return nil, err
		}
		q = q.Where("hearings.scheduled_at >= ? AND hearings.scheduled_at < ?", from, to)
	}
	if f.CaseID != uuid.Nil {
		q = q.Where("hearings.case_id = ?", f.CaseID)
	}
	if actor.Is(models.RoleJudge) {
		q = q.Where("hearings.judge_id = ?", actor.UserID)
	}

	out := make([]HearingView, 0)
	if err := q.Order("hearings.scheduled_at ASC").Limit(500).Scan(&out).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return out, nil
}

/* =============================== helpers ================================ */

func validateSchedule(req ScheduleRequest) error {
	switch {
	case req.CaseID == uuid.Nil:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "case_id is required")
	case req.JudgeID == uuid.Nil:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "judge_id is required")
	case req.LawyerID == uuid.Nil:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "lawyer_id is required")
	case req.At.IsZero():
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "hearing_date is required")
	case !req.Type.Valid():
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "hearing_type must be preliminary, trial, appeal or other")
	}
	return nil
}

// lockCase loads the case row FOR UPDATE.
func lockCase(tx *gorm.DB, caseID uuid.UUID) (*models.Case, error) {
	var cs models.Case
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&cs, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCaseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err)
	}
	return &cs, nil
}

// lockParticipants locks both users in id order and checks their roles.
func lockParticipants(tx *gorm.DB, judgeID, lawyerID uuid.UUID) error {
	var users []models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", []uuid.UUID{judgeID, lawyerID}).
		Order("id").
		Find(&users).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err)
	}

	roles := make(map[uuid.UUID]models.Role, len(users))
	for _, u := range users {
		roles[u.ID] = u.Role
	}
	if roles[judgeID] != models.RoleJudge {
		return apperrors.WithMessage(apperrors.ErrInvalidHearingParty, "judge_id must refer to a judge")
	}
	if roles[lawyerID] != models.RoleLawyer {
		return apperrors.WithMessage(apperrors.ErrInvalidHearingParty, "lawyer_id must refer to a lawyer")
	}
	return nil
}

func (s *Scheduler) recordAssignment(ctx context.Context, actor models.Actor, ch assignments.Change) {
	for _, e := range assignments.AuditEntries(actor, ch) {
		s.audit.Record(ctx, e)
	}
}

// asAppError keeps AppErrors as they are and wraps anything else.
func asAppError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrPersistence, err)
}
