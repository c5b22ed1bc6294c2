// Package assignments maintains the active judge and lawyer of each case.
// CaseAssignment rows are the only record of who presides over or defends a
// case; at most one row per (case, role) is active. A case's open hearings
// always carry its active judge and lawyer.
package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// hearingColumns maps a role to the hearing column naming its holder.
var hearingColumns = map[models.Role]string{
	models.RoleJudge:  "judge_id",
	models.RoleLawyer: "lawyer_id",
}

// Change describes a replaced assignment, for auditing.
type Change struct {
	Previous *models.CaseAssignment
	Current  models.CaseAssignment
	Hearings []MovedHearing
}

// MovedHearing is an open hearing handed over to the new holder of a role.
// IsConflict is set when the new holder was already booked at that time.
type MovedHearing struct {
	ID          uuid.UUID
	From        uuid.UUID
	ScheduledAt time.Time
	IsConflict  bool
}

// Active returns the active assignment of role on caseID, or nil.
func Active(ctx context.Context, db *gorm.DB, caseID uuid.UUID, role models.Role) (*models.CaseAssignment, error) {
	var a models.CaseAssignment
	err := db.WithContext(ctx).
		Where("case_id = ? AND role = ? AND status = ?", caseID, role, models.AssignmentActive).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Holds reports whether userID is actively assigned to caseID in role.
func Holds(ctx context.Context, db *gorm.DB, caseID, userID uuid.UUID, role models.Role) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&models.CaseAssignment{}).
		Where("case_id = ? AND user_id = ? AND role = ? AND status = ?", caseID, userID, role, models.AssignmentActive).
		Count(&n).Error
	return n > 0, err
}

// Replace makes userID the active holder of role on caseID. The previous
// holder, if different, is marked removed and the case's hearings that are
// not completed move to userID. A moved hearing that lands on a slot userID
// already holds is kept and marked as a conflict. It returns nil when userID
// already holds the role. Call it inside the caller's transaction.
func Replace(ctx context.Context, tx *gorm.DB, caseID uuid.UUID, role models.Role, userID uuid.UUID, now time.Time) (*Change, error) {
	prev, err := Active(ctx, tx, caseID, role)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.UserID == userID {
		return nil, nil
	}

	if prev != nil {
		if err := tx.WithContext(ctx).
			Model(&models.CaseAssignment{}).
			Where("id = ?", prev.ID).
			Updates(map[string]any{
				"status":     models.AssignmentRemoved,
				"removed_at": now,
			}).Error; err != nil {
			return nil, err
		}
	}

	cur := models.CaseAssignment{
		CaseID:     caseID,
		UserID:     userID,
		Role:       role,
		Status:     models.AssignmentActive,
		AssignedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&cur).Error; err != nil {
		return nil, err
	}

	moved, err := carryHearings(ctx, tx, caseID, role, userID, now)
	if err != nil {
		return nil, err
	}
	return &Change{Previous: prev, Current: cur, Hearings: moved}, nil
}

func carryHearings(ctx context.Context, tx *gorm.DB, caseID uuid.UUID, role models.Role, userID uuid.UUID, now time.Time) ([]MovedHearing, error) {
	col, ok := hearingColumns[role]
	if !ok {
		return nil, nil
	}

	var open []models.Hearing
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("case_id = ? AND status <> ? AND "+col+" <> ?", caseID, models.HearingCompleted, userID).
		Order("scheduled_at ASC").
		Find(&open).Error; err != nil {
		return nil, err
	}

	moved := make([]MovedHearing, 0, len(open))
	for _, h := range open {
		conflict := h.IsConflict
		if !conflict {
			var n int64
			if err := tx.WithContext(ctx).
				Model(&models.Hearing{}).
				Where(col+" = ? AND scheduled_at = ? AND is_conflict = ? AND id <> ?", userID, h.ScheduledAt, false, h.ID).
				Count(&n).Error; err != nil {
				return nil, err
			}
			conflict = n > 0
		}

		if err := tx.WithContext(ctx).
			Model(&models.Hearing{}).
			Where("id = ?", h.ID).
			Updates(map[string]any{col: userID, "is_conflict": conflict, "updated_at": now}).Error; err != nil {
			return nil, err
		}

		from := h.JudgeID
		if role == models.RoleLawyer {
			from = h.LawyerID
		}
		moved = append(moved, MovedHearing{ID: h.ID, From: from, ScheduledAt: h.ScheduledAt, IsConflict: conflict})
	}
	return moved, nil
}

// AuditEntries lists the audit trail of a change: the removed assignment,
// the new one and every hearing that moved.
func AuditEntries(actor models.Actor, ch Change) []audit.Entry {
	entries := make([]audit.Entry, 0, 2+len(ch.Hearings))
	if ch.Previous != nil {
		entries = append(entries, audit.ActorEntry(actor, models.AuditUpdate, "case_assignments", ch.Previous.ID.String(),
			map[string]any{"user_id": ch.Previous.UserID, "status": models.AssignmentActive},
			map[string]any{"user_id": ch.Previous.UserID, "status": models.AssignmentRemoved},
		))
	}
	entries = append(entries, audit.ActorEntry(actor, models.AuditInsert, "case_assignments", ch.Current.ID.String(), nil, ch.Current))

	col := hearingColumns[ch.Current.Role]
	for _, h := range ch.Hearings {
		entries = append(entries, audit.ActorEntry(actor, models.AuditUpdate, "hearings", h.ID.String(),
			map[string]any{col: h.From},
			map[string]any{col: ch.Current.UserID, "is_conflict": h.IsConflict},
		))
	}
	return entries
}

// ForCases returns the active judge and lawyer ids keyed by case id.
func ForCases(ctx context.Context, db *gorm.DB, caseIDs []uuid.UUID) (map[uuid.UUID]map[models.Role]uuid.UUID, error) {
	out := make(map[uuid.UUID]map[models.Role]uuid.UUID, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}

	var rows []models.CaseAssignment
	if err := db.WithContext(ctx).
		Where("case_id IN ? AND status = ?", caseIDs, models.AssignmentActive).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		if out[r.CaseID] == nil {
			out[r.CaseID] = make(map[models.Role]uuid.UUID, 2)
		}
		out[r.CaseID][r.Role] = r.UserID
	}
	return out, nil
}
