package hearings

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/internal/assignments"
	"github.com/aldoetobex/jis-backend/internal/audit"
	"github.com/aldoetobex/jis-backend/internal/testutil"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

// Friday 1 March 2024, 10:00 UTC.
var slot = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	s         *Scheduler
	registrar models.Actor
	judge     models.User
	judge2    models.User
	lawyer    models.User
	lawyer2   models.User
	caseA     models.Case
	caseB     models.Case
	caseC     models.Case
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	reg := testutil.CreateUser(t, db, models.RoleRegistrar)
	return &fixture{
		db:        db,
		s:         NewScheduler(db, audit.NewRecorder(db, nil), Options{Hours: DefaultCourtHours()}),
		registrar: testutil.Actor(reg),
		judge:     testutil.CreateUser(t, db, models.RoleJudge),
		judge2:    testutil.CreateUser(t, db, models.RoleJudge),
		lawyer:    testutil.CreateUser(t, db, models.RoleLawyer),
		lawyer2:   testutil.CreateUser(t, db, models.RoleLawyer),
		caseA:     testutil.CreateCase(t, db, "CR-2024-001", "Alice Ward", models.CasePending),
		caseB:     testutil.CreateCase(t, db, "CR-2024-002", "Bob Stone", models.CasePending),
		caseC:     testutil.CreateCase(t, db, "CR-2024-003", "Carl Ng", models.CasePending),
	}
}

func (f *fixture) schedule(t *testing.T, cs models.Case, judge, lawyer models.User, at time.Time, force bool) *ScheduleResult {
	t.Helper()
	res, err := f.s.Schedule(context.Background(), f.registrar, ScheduleRequest{
		CaseID:   cs.ID,
		JudgeID:  judge.ID,
		LawyerID: lawyer.ID,
		At:       at,
		Type:     models.HearingPreliminary,
		Force:    force,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestSchedule_JudgeConflict(t *testing.T) {
	f := setup(t)

	first := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	require.Equal(t, StatusScheduled, first.Status)
	assert.Equal(t, "Hearing scheduled successfully!", first.Message)

	t.Run("blocked without force", func(t *testing.T) {
		res := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, false)

		assert.True(t, res.Blocked())
		assert.Equal(t, uuid.Nil, res.HearingID)
		assert.Contains(t, res.Message, f.caseA.CIN)
		assert.Contains(t, res.Message, "Alice Ward")
		require.Len(t, res.Conflict.Reasons, 1)
		assert.Equal(t, models.RoleJudge, res.Conflict.Reasons[0].Participant)

		// nothing persisted: no hearing and no assignment for case B
		assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.Hearing{}, ""))
		assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.CaseAssignment{}, "case_id = ?", f.caseB.ID))
	})

	t.Run("forced booking is flagged", func(t *testing.T) {
		res := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, true)

		assert.Equal(t, StatusForced, res.Status)
		assert.True(t, strings.HasSuffix(res.Message, "(Note: Scheduling conflict exists)"))

		var created models.Hearing
		require.NoError(t, f.db.First(&created, "id = ?", res.HearingID).Error)
		assert.True(t, created.IsConflict)

		var existing models.Hearing
		require.NoError(t, f.db.First(&existing, "id = ?", first.HearingID).Error)
		assert.False(t, existing.IsConflict)
		assert.True(t, existing.ScheduledAt.Equal(slot))
	})
}

func TestSchedule_DifferentMinuteIsNotAConflict(t *testing.T) {
	f := setup(t)

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	res := f.schedule(t, f.caseB, f.judge, f.lawyer, slot.Add(time.Minute), false)

	assert.Equal(t, StatusScheduled, res.Status)
	assert.EqualValues(t, 2, testutil.Count(t, f.db, &models.Hearing{}, "is_conflict = ?", false))
}

func TestSchedule_SubSecondTimesShareASlot(t *testing.T) {
	f := setup(t)

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot.Add(300*time.Millisecond), false)
	res := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, false)

	assert.True(t, res.Blocked())
}

func TestSchedule_SameInstantInAnotherZone(t *testing.T) {
	f := setup(t)
	plus2 := time.FixedZone("UTC+2", 2*60*60)

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	res := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot.In(plus2), false)

	assert.True(t, res.Blocked())
}

func TestSchedule_DualConflictReportsBoth(t *testing.T) {
	f := setup(t)

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	f.schedule(t, f.caseC, f.judge2, f.lawyer2, slot, false)

	res := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, false)
	require.True(t, res.Blocked())
	require.Len(t, res.Conflict.Reasons, 2)
	assert.Equal(t, models.RoleJudge, res.Conflict.Reasons[0].Participant)
	assert.Equal(t, f.caseA.CIN, res.Conflict.Reasons[0].CIN)
	assert.Equal(t, models.RoleLawyer, res.Conflict.Reasons[1].Participant)
	assert.Equal(t, f.caseC.CIN, res.Conflict.Reasons[1].CIN)
	assert.Equal(t, res.Conflict.Reasons[0].Message+"; "+res.Conflict.Reasons[1].Message, res.Message)
	assert.Equal(t, "both", res.Conflict.Label())
}

func TestSchedule_ForcedHearingDoesNotBlockLaterChecks(t *testing.T) {
	f := setup(t)

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, true)

	// Only the non-conflict hearing on case A is reported
	res, err := f.s.CheckConflict(context.Background(), f.judge.ID, uuid.Nil, slot)
	require.NoError(t, err)
	require.Len(t, res.Reasons, 1)
	assert.Equal(t, f.caseA.CIN, res.Reasons[0].CIN)
}

func TestSchedule_AssignsParticipants(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)

	j, err := assignments.Active(ctx, f.db, f.caseA.ID, models.RoleJudge)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, f.judge.ID, j.UserID)

	// A later hearing with another lawyer replaces the lawyer of record
	f.schedule(t, f.caseA, f.judge, f.lawyer2, slot.Add(time.Hour), false)
	l, err := assignments.Active(ctx, f.db, f.caseA.ID, models.RoleLawyer)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, f.lawyer2.ID, l.UserID)
	assert.EqualValues(t, 2, testutil.Count(t, f.db, &models.CaseAssignment{},
		"case_id = ? AND status = ?", f.caseA.ID, models.AssignmentActive))
}

func TestReassignment_ConflictsFollowTheCase(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		_, err := assignments.Replace(ctx, tx, f.caseA.ID, models.RoleLawyer, f.lawyer2.ID, time.Now().UTC())
		return err
	}))

	res, err := f.s.CheckConflict(ctx, f.judge2.ID, f.lawyer2.ID, slot)
	require.NoError(t, err)
	require.True(t, res.Conflict)
	assert.Equal(t, "Lawyer is already scheduled for case CR-2024-001 (Alice Ward) at this time", res.Message)

	res, err = f.s.CheckConflict(ctx, f.judge2.ID, f.lawyer.ID, slot)
	require.NoError(t, err)
	assert.False(t, res.Conflict)
}

func TestSchedule_NewParticipantTakesOverOpenHearings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	f.schedule(t, f.caseB, f.judge2, f.lawyer2, slot.Add(time.Hour), false)

	// lawyer2 is busy at 11:00, so the whole attempt rolls back
	res := f.schedule(t, f.caseA, f.judge, f.lawyer2, slot.Add(time.Hour), false)
	require.True(t, res.Blocked())
	var h models.Hearing
	require.NoError(t, f.db.First(&h, "id = ?", first.HearingID).Error)
	assert.Equal(t, f.lawyer.ID, h.LawyerID)
	l, err := assignments.Active(ctx, f.db, f.caseA.ID, models.RoleLawyer)
	require.NoError(t, err)
	assert.Equal(t, f.lawyer.ID, l.UserID)

	res = f.schedule(t, f.caseA, f.judge, f.lawyer2, slot.Add(2*time.Hour), false)
	require.Equal(t, StatusScheduled, res.Status)
	require.NoError(t, f.db.First(&h, "id = ?", first.HearingID).Error)
	assert.Equal(t, f.lawyer2.ID, h.LawyerID)
	assert.False(t, h.IsConflict)

	clear, err := f.s.CheckConflict(ctx, f.judge2.ID, f.lawyer.ID, slot)
	require.NoError(t, err)
	assert.False(t, clear.Conflict)

	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.AuditLog{},
		"table_name = ? AND action_type = ? AND record_id = ?", "hearings", models.AuditUpdate, first.HearingID.String()))
}

func TestSchedule_WritesAuditTrail(t *testing.T) {
	f := setup(t)

	res := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)

	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.AuditLog{},
		"table_name = ? AND record_id = ? AND action_type = ?", "hearings", res.HearingID.String(), models.AuditInsert))
	assert.EqualValues(t, 2, testutil.Count(t, f.db, &models.AuditLog{},
		"table_name = ?", "case_assignments"))

	// blocked attempts leave no trail
	f.schedule(t, f.caseB, f.judge, f.lawyer2, slot, false)
	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.AuditLog{}, "table_name = ?", "hearings"))
}

func TestSchedule_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	closed := testutil.CreateCase(t, f.db, "CR-2023-099", "Dora Fox", models.CaseClosed)

	base := ScheduleRequest{
		CaseID:   f.caseA.ID,
		JudgeID:  f.judge.ID,
		LawyerID: f.lawyer.ID,
		At:       slot,
		Type:     models.HearingTrial,
	}

	tests := []struct {
		name  string
		actor models.Actor
		edit  func(r *ScheduleRequest)
		code  string
	}{
		{"lawyer cannot schedule", testutil.Actor(f.lawyer), nil, "FORBIDDEN"},
		{"judge cannot schedule", testutil.Actor(f.judge), nil, "FORBIDDEN"},
		{"missing case", f.registrar, func(r *ScheduleRequest) { r.CaseID = uuid.Nil }, "INVALID_INPUT"},
		{"unknown case", f.registrar, func(r *ScheduleRequest) { r.CaseID = uuid.New() }, "CASE_NOT_FOUND"},
		{"closed case", f.registrar, func(r *ScheduleRequest) { r.CaseID = closed.ID }, "CASE_CLOSED"},
		{"bad hearing type", f.registrar, func(r *ScheduleRequest) { r.Type = "mention" }, "INVALID_INPUT"},
		{"lawyer as judge", f.registrar, func(r *ScheduleRequest) { r.JudgeID = f.lawyer2.ID }, "INVALID_PARTICIPANT"},
		{"judge as lawyer", f.registrar, func(r *ScheduleRequest) { r.LawyerID = f.judge2.ID }, "INVALID_PARTICIPANT"},
		{"saturday", f.registrar, func(r *ScheduleRequest) { r.At = slot.AddDate(0, 0, 1) }, "OUTSIDE_COURT_HOURS"},
		{"after hours", f.registrar, func(r *ScheduleRequest) { r.At = slot.Add(8 * time.Hour) }, "OUTSIDE_COURT_HOURS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			if tt.edit != nil {
				tt.edit(&req)
			}
			res, err := f.s.Schedule(ctx, tt.actor, req)
			assert.Nil(t, res)
			testutil.AssertAppError(t, err, tt.code)
		})
	}

	assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.Hearing{}, ""))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.CaseAssignment{}, ""))
}

func TestSchedule_ConcurrentBookingsOfOneSlot(t *testing.T) {
	f := setup(t)
	cases := []models.Case{f.caseA, f.caseB, f.caseC,
		testutil.CreateCase(t, f.db, "CR-2024-004", "Eve Hart", models.CasePending),
	}
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var wg sync.WaitGroup
	results := make([]*ScheduleResult, len(cases))
	errs := make([]error, len(cases))
	for i, cs := range cases {
		wg.Add(1)
		go func(i int, cs models.Case) {
			defer wg.Done()
			results[i], errs[i] = f.s.Schedule(context.Background(), f.registrar, ScheduleRequest{
				CaseID:   cs.ID,
				JudgeID:  f.judge.ID,
				LawyerID: f.lawyer.ID,
				At:       slot,
				Type:     models.HearingTrial,
			})
		}(i, cs)
	}
	wg.Wait()

	booked := 0
	for i := range cases {
		require.NoError(t, errs[i])
		if !results[i].Blocked() {
			booked++
		}
	}
	assert.Equal(t, 1, booked)
	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.Hearing{}, ""))
}

// slotThief returns a callback that, on the first write to hearings, books
// judge and lawyer at at on another case through the same connection. The
// write under test then runs after its conflict check already passed.
func slotThief(t *testing.T, cs models.Case, judge, lawyer models.User, at time.Time) func(*gorm.DB) {
	fired := false
	return func(db *gorm.DB) {
		if fired || db.Statement.Schema == nil || db.Statement.Schema.Table != "hearings" {
			return
		}
		fired = true
		err := db.Session(&gorm.Session{NewDB: true}).Create(&models.Hearing{
			CaseID: cs.ID, JudgeID: judge.ID, LawyerID: lawyer.ID, ScheduledAt: at,
			HearingType: models.HearingTrial, Status: models.HearingScheduled,
		}).Error
		assert.NoError(t, err)
	}
}

func TestSchedule_SlotTakenAfterCheckIsBlocked(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").
		Register("test:slot_thief", slotThief(t, f.caseC, f.judge, f.lawyer, slot)))

	res := f.schedule(t, f.caseA, f.judge, f.lawyer2, slot, false)

	assert.Equal(t, StatusConflictBlocked, res.Status)
	assert.Equal(t, msgRace, res.Message)
	assert.Equal(t, uuid.Nil, res.HearingID)
	// the whole transaction rolled back
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.Hearing{}, "case_id = ?", f.caseA.ID))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.CaseAssignment{}, ""))
	assert.EqualValues(t, 0, testutil.Count(t, f.db, &models.AuditLog{}, ""))
}

func TestReschedule_SlotTakenAfterCheckIsBlocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	b := f.schedule(t, f.caseB, f.judge2, f.lawyer2, slot.Add(time.Hour), false)
	audits := testutil.Count(t, f.db, &models.AuditLog{}, "")

	target := slot.Add(2 * time.Hour)
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").
		Register("test:slot_thief", slotThief(t, f.caseC, f.judge2, f.lawyer, target)))

	res, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{HearingID: b.HearingID, At: target, AdjournmentReason: "moved"})
	require.NoError(t, err)
	assert.Equal(t, StatusConflictBlocked, res.Status)
	assert.Equal(t, msgRace, res.Message)

	var h models.Hearing
	require.NoError(t, f.db.First(&h, "id = ?", b.HearingID).Error)
	assert.True(t, h.ScheduledAt.Equal(slot.Add(time.Hour)))
	assert.Equal(t, models.HearingScheduled, h.Status)
	assert.Empty(t, h.AdjournmentReason)
	assert.EqualValues(t, 2, testutil.Count(t, f.db, &models.Hearing{}, ""))
	assert.EqualValues(t, 4, testutil.Count(t, f.db, &models.CaseAssignment{}, ""))
	assert.Equal(t, audits, testutil.Count(t, f.db, &models.AuditLog{}, ""))
}

func TestUniqueSlotIndex(t *testing.T) {
	f := setup(t)
	res := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	require.False(t, res.Blocked())

	// A direct insert that skips the checker is stopped by the index
	err := f.db.Create(&models.Hearing{
		CaseID: f.caseB.ID, JudgeID: f.judge.ID, LawyerID: f.lawyer2.ID,
		ScheduledAt: slot, HearingType: models.HearingTrial, Status: models.HearingScheduled,
	}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Conflict-flagged rows are outside the index
	err = f.db.Create(&models.Hearing{
		CaseID: f.caseB.ID, JudgeID: f.judge.ID, LawyerID: f.lawyer2.ID,
		ScheduledAt: slot, HearingType: models.HearingTrial, Status: models.HearingScheduled,
		IsConflict: true,
	}).Error
	assert.NoError(t, err)
}

func TestCheckConflict_NoSideEffects(t *testing.T) {
	f := setup(t)
	f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	before := testutil.Count(t, f.db, &models.AuditLog{}, "")

	res, err := f.s.CheckConflict(context.Background(), f.judge2.ID, f.lawyer.ID, slot)
	require.NoError(t, err)
	assert.True(t, res.Conflict)
	assert.Equal(t, "lawyer", res.Label())
	assert.Equal(t, "Lawyer is already scheduled for case CR-2024-001 (Alice Ward) at this time", res.Message)

	res, err = f.s.CheckConflict(context.Background(), f.judge2.ID, f.lawyer2.ID, slot)
	require.NoError(t, err)
	assert.False(t, res.Conflict)
	assert.Empty(t, res.Message)
	assert.Empty(t, res.Reasons)

	assert.Equal(t, before, testutil.Count(t, f.db, &models.AuditLog{}, ""))
	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.Hearing{}, ""))
}

func TestReschedule(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)
	b := f.schedule(t, f.caseB, f.judge, f.lawyer2, slot.Add(time.Hour), false)

	t.Run("onto its own slot is not a conflict", func(t *testing.T) {
		res, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{
			HearingID: a.HearingID, At: slot, AdjournmentReason: "witness unavailable",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusScheduled, res.Status)
	})

	t.Run("onto a booked slot is blocked", func(t *testing.T) {
		res, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{
			HearingID: b.HearingID, At: slot, AdjournmentReason: "court congestion",
		})
		require.NoError(t, err)
		require.True(t, res.Blocked())
		assert.Contains(t, res.Message, f.caseA.CIN)

		var h models.Hearing
		require.NoError(t, f.db.First(&h, "id = ?", b.HearingID).Error)
		assert.True(t, h.ScheduledAt.Equal(slot.Add(time.Hour)))
		assert.Equal(t, models.HearingScheduled, h.Status)
	})

	t.Run("forced onto a booked slot is flagged", func(t *testing.T) {
		res, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{
			HearingID: b.HearingID, At: slot, AdjournmentReason: "court congestion", Force: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusForced, res.Status)

		var h models.Hearing
		require.NoError(t, f.db.First(&h, "id = ?", b.HearingID).Error)
		assert.True(t, h.IsConflict)
		assert.Equal(t, models.HearingRescheduled, h.Status)
		assert.Equal(t, "court congestion", h.AdjournmentReason)
	})

	t.Run("to a free slot clears the flag", func(t *testing.T) {
		res, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{
			HearingID: b.HearingID, At: slot.Add(2 * time.Hour), AdjournmentReason: "moved",
		})
		require.NoError(t, err)
		assert.Equal(t, StatusScheduled, res.Status)

		var h models.Hearing
		require.NoError(t, f.db.First(&h, "id = ?", b.HearingID).Error)
		assert.False(t, h.IsConflict)
	})

	t.Run("unknown hearing", func(t *testing.T) {
		_, err := f.s.Reschedule(ctx, f.registrar, RescheduleRequest{HearingID: uuid.New(), At: slot})
		testutil.AssertAppError(t, err, "HEARING_NOT_FOUND")
	})

	t.Run("registrar only", func(t *testing.T) {
		_, err := f.s.Reschedule(ctx, testutil.Actor(f.judge), RescheduleRequest{HearingID: a.HearingID, At: slot})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	assert.EqualValues(t, 1, testutil.Count(t, f.db, &models.AuditLog{},
		"table_name = ? AND action_type = ? AND record_id = ?", "hearings", models.AuditUpdate, a.HearingID.String()))
}

func TestRecordProceedings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	res := f.schedule(t, f.caseA, f.judge, f.lawyer, slot, false)

	h, err := f.s.RecordProceedings(ctx, f.registrar, res.HearingID, "Plea entered. Bail extended.", true)
	require.NoError(t, err)
	assert.Equal(t, models.HearingCompleted, h.Status)

	var stored models.Hearing
	require.NoError(t, f.db.First(&stored, "id = ?", res.HearingID).Error)
	assert.Equal(t, "Plea entered. Bail extended.", stored.ProceedingsSummary)

	// Completed hearings stay put
	_, err = f.s.Reschedule(ctx, f.registrar, RescheduleRequest{HearingID: res.HearingID, At: slot.Add(time.Hour)})
	testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

	_, err = f.s.RecordProceedings(ctx, testutil.Actor(f.lawyer), res.HearingID, "x", false)
	testutil.AssertAppError(t, err, "FORBIDDEN")
}

func TestListHearings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.schedule(t, f.caseA, f.judge, f.lawyer, slot.Add(time.Hour), false)
	f.schedule(t, f.caseB, f.judge2, f.lawyer2, slot, false)
	f.schedule(t, f.caseC, f.judge, f.lawyer, slot.AddDate(0, 0, 3), false) // Monday

	all, err := f.s.ListHearings(ctx, f.registrar, HearingFilter{Date: "2024-03-01"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.caseB.CIN, all[0].CIN)
	assert.Equal(t, f.caseA.CIN, all[1].CIN)
	assert.Equal(t, f.judge.FullName, all[1].JudgeName)

	mine, err := f.s.ListHearings(ctx, testutil.Actor(f.judge), HearingFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.s.ListHearings(ctx, testutil.Actor(f.lawyer), HearingFilter{})
	testutil.AssertAppError(t, err, "FORBIDDEN")

	_, err = f.s.ListHearings(ctx, f.registrar, HearingFilter{Date: "01/03/2024"})
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
