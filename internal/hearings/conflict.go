package hearings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/pkg/models"
)

// NormalizeSlot maps a hearing time to its stored form: UTC, whole seconds.
// Two hearings conflict only when their normalized slots are equal.
func NormalizeSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// ConflictReason names one participant who is already booked.
type ConflictReason struct {
	Participant models.Role `json:"participant"` // judge | lawyer
	HearingID   uuid.UUID   `json:"hearing_id"`
	CIN         string      `json:"cin"`
	Defendant   string      `json:"defendant"`
	Message     string      `json:"message"`
}

// ConflictResult is the outcome of a conflict check. Reasons lists the judge
// first, then the lawyer.
type ConflictResult struct {
	Conflict bool             `json:"conflict"`
	Message  string           `json:"message"`
	Reasons  []ConflictReason `json:"reasons"`
}

// Label classifies the result for metrics: clear, judge, lawyer or both.
func (r ConflictResult) Label() string {
	switch len(r.Reasons) {
	case 0:
		return "clear"
	case 1:
		return string(r.Reasons[0].Participant)
	default:
		return "both"
	}
}

type slotHolder struct {
	HearingID     uuid.UUID
	CIN           string
	DefendantName string
}

// findConflicts looks up non-conflict hearings already holding judgeID or
// lawyerID at slot. exclude skips one hearing (the one being moved); pass
// uuid.Nil to check every hearing. It has no side effects.
func findConflicts(ctx context.Context, db *gorm.DB, judgeID, lawyerID uuid.UUID, slot time.Time, exclude uuid.UUID) (ConflictResult, error) {
	res := ConflictResult{Reasons: []ConflictReason{}}
	slot = NormalizeSlot(slot)

	checks := []struct {
		role   models.Role
		column string
		userID uuid.UUID
		label  string
	}{
		{models.RoleJudge, "hearings.judge_id", judgeID, "Judge"},
		{models.RoleLawyer, "hearings.lawyer_id", lawyerID, "Lawyer"},
	}

	for _, chk := range checks {
		if chk.userID == uuid.Nil {
			continue
		}
		q := db.WithContext(ctx).
			Table("hearings").
			Select("hearings.id AS hearing_id, cases.cin, cases.defendant_name").
			Joins("JOIN cases ON cases.id = hearings.case_id").
			Where(chk.column+" = ? AND hearings.scheduled_at = ? AND hearings.is_conflict = ?", chk.userID, slot, false)
		if exclude != uuid.Nil {
			q = q.Where("hearings.id <> ?", exclude)
		}

		var holders []slotHolder
		if err := q.Order("cases.cin ASC").Limit(1).Scan(&holders).Error; err != nil {
			return ConflictResult{}, err
		}
		if len(holders) == 0 {
			continue
		}

		h := holders[0]
		res.Reasons = append(res.Reasons, ConflictReason{
			Participant: chk.role,
			HearingID:   h.HearingID,
			CIN:         h.CIN,
			Defendant:   h.DefendantName,
			Message: fmt.Sprintf("%s is already scheduled for case %s (%s) at this time",
				chk.label, h.CIN, h.DefendantName),
		})
	}

	if len(res.Reasons) > 0 {
		res.Conflict = true
		msgs := make([]string, len(res.Reasons))
		for i, r := range res.Reasons {
			msgs[i] = r.Message
		}
		res.Message = strings.Join(msgs, "; ")
	}
	return res, nil
}
