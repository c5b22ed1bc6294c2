package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aldoetobex/jis-backend/internal/testutil"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

func TestReplace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	cs := testutil.CreateCase(t, db, "CR-2024-010", "Ann Lee", models.CasePending)
	l1 := testutil.CreateUser(t, db, models.RoleLawyer)
	l2 := testutil.CreateUser(t, db, models.RoleLawyer)
	now := time.Now().UTC()

	t.Run("first assignment", func(t *testing.T) {
		ch, err := Replace(ctx, db, cs.ID, models.RoleLawyer, l1.ID, now)
		require.NoError(t, err)
		require.NotNil(t, ch)
		assert.Nil(t, ch.Previous)
		assert.Equal(t, l1.ID, ch.Current.UserID)
	})

	t.Run("same holder is a no-op", func(t *testing.T) {
		ch, err := Replace(ctx, db, cs.ID, models.RoleLawyer, l1.ID, now)
		require.NoError(t, err)
		assert.Nil(t, ch)
	})

	t.Run("new holder removes the previous one", func(t *testing.T) {
		ch, err := Replace(ctx, db, cs.ID, models.RoleLawyer, l2.ID, now)
		require.NoError(t, err)
		require.NotNil(t, ch)
		require.NotNil(t, ch.Previous)
		assert.Equal(t, l1.ID, ch.Previous.UserID)

		active, err := Active(ctx, db, cs.ID, models.RoleLawyer)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, l2.ID, active.UserID)

		assert.EqualValues(t, 1, testutil.Count(t, db, &models.CaseAssignment{},
			"case_id = ? AND role = ? AND status = ?", cs.ID, models.RoleLawyer, models.AssignmentActive))
		assert.EqualValues(t, 1, testutil.Count(t, db, &models.CaseAssignment{},
			"user_id = ? AND status = ?", l1.ID, models.AssignmentRemoved))
	})

	t.Run("holds", func(t *testing.T) {
		ok, err := Holds(ctx, db, cs.ID, l2.ID, models.RoleLawyer)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = Holds(ctx, db, cs.ID, l1.ID, models.RoleLawyer)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func createHearing(t *testing.T, db *gorm.DB, caseID, judgeID, lawyerID uuid.UUID, at time.Time, status models.HearingStatus) models.Hearing {
	t.Helper()
	h := models.Hearing{
		CaseID: caseID, JudgeID: judgeID, LawyerID: lawyerID, ScheduledAt: at,
		HearingType: models.HearingTrial, Status: status,
	}
	require.NoError(t, db.Create(&h).Error)
	return h
}

func TestReplace_CarriesOpenHearings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	a := testutil.CreateCase(t, db, "CR-2024-020", "Ann Lee", models.CasePending)
	b := testutil.CreateCase(t, db, "CR-2024-021", "Ben Park", models.CasePending)
	j1 := testutil.CreateUser(t, db, models.RoleJudge)
	j2 := testutil.CreateUser(t, db, models.RoleJudge)
	l1 := testutil.CreateUser(t, db, models.RoleLawyer)
	l2 := testutil.CreateUser(t, db, models.RoleLawyer)
	testutil.Assign(t, db, a.ID, l1.ID, models.RoleLawyer)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	open := createHearing(t, db, a.ID, j1.ID, l1.ID, at, models.HearingScheduled)
	clash := createHearing(t, db, a.ID, j1.ID, l1.ID, at.Add(time.Hour), models.HearingRescheduled)
	done := createHearing(t, db, a.ID, j1.ID, l1.ID, at.Add(-24*time.Hour), models.HearingCompleted)
	other := createHearing(t, db, b.ID, j2.ID, l2.ID, at.Add(time.Hour), models.HearingScheduled)

	ch, err := Replace(ctx, db, a.ID, models.RoleLawyer, l2.ID, time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, ch)
	require.Len(t, ch.Hearings, 2)
	assert.Equal(t, open.ID, ch.Hearings[0].ID)
	assert.Equal(t, l1.ID, ch.Hearings[0].From)
	assert.False(t, ch.Hearings[0].IsConflict)
	assert.Equal(t, clash.ID, ch.Hearings[1].ID)
	assert.True(t, ch.Hearings[1].IsConflict)

	reload := func(id uuid.UUID) models.Hearing {
		var h models.Hearing
		require.NoError(t, db.First(&h, "id = ?", id).Error)
		return h
	}
	assert.Equal(t, l2.ID, reload(open.ID).LawyerID)
	assert.Equal(t, j1.ID, reload(open.ID).JudgeID)

	// l2 was already booked on case B at that hour
	moved := reload(clash.ID)
	assert.Equal(t, l2.ID, moved.LawyerID)
	assert.True(t, moved.IsConflict)
	assert.False(t, reload(other.ID).IsConflict)

	// completed hearings keep the lawyer who appeared
	assert.Equal(t, l1.ID, reload(done.ID).LawyerID)

	entries := AuditEntries(models.Actor{UserID: uuid.New(), Role: models.RoleRegistrar}, *ch)
	require.Len(t, entries, 4)
	assert.Equal(t, "case_assignments", entries[0].Table)
	assert.Equal(t, models.AuditUpdate, entries[0].Action)
	assert.Equal(t, "case_assignments", entries[1].Table)
	assert.Equal(t, "hearings", entries[2].Table)
	assert.Equal(t, open.ID.String(), entries[2].RecordID)
}

func TestActiveIndexRejectsSecondActiveRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cs := testutil.CreateCase(t, db, "CR-2024-011", "Bo Chen", models.CasePending)
	j1 := testutil.CreateUser(t, db, models.RoleJudge)
	j2 := testutil.CreateUser(t, db, models.RoleJudge)

	testutil.Assign(t, db, cs.ID, j1.ID, models.RoleJudge)
	err := db.Create(&models.CaseAssignment{
		CaseID: cs.ID, UserID: j2.ID, Role: models.RoleJudge,
		Status: models.AssignmentActive, AssignedAt: time.Now().UTC(),
	}).Error
	assert.Error(t, err)
}

func TestForCases(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a := testutil.CreateCase(t, db, "CR-2024-012", "Cy Diaz", models.CasePending)
	b := testutil.CreateCase(t, db, "CR-2024-013", "Di Eve", models.CasePending)
	j := testutil.CreateUser(t, db, models.RoleJudge)
	l := testutil.CreateUser(t, db, models.RoleLawyer)
	testutil.Assign(t, db, a.ID, j.ID, models.RoleJudge)
	testutil.Assign(t, db, a.ID, l.ID, models.RoleLawyer)

	got, err := ForCases(context.Background(), db, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, j.ID, got[a.ID][models.RoleJudge])
	assert.Equal(t, l.ID, got[a.ID][models.RoleLawyer])
	assert.Empty(t, got[b.ID])
}
