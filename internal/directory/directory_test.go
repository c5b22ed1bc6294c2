package directory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/jis-backend/internal/testutil"
	"github.com/aldoetobex/jis-backend/pkg/models"
)

func TestByRole_CachesUntilInvalidated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	d := New(db, time.Minute)
	ctx := context.Background()

	j1 := testutil.CreateUser(t, db, models.RoleJudge)
	testutil.CreateUser(t, db, models.RoleLawyer)

	judges, err := d.ByRole(ctx, models.RoleJudge)
	require.NoError(t, err)
	require.Len(t, judges, 1)
	assert.Equal(t, j1.ID, judges[0].ID)

	// New judge is hidden by the cache
	testutil.CreateUser(t, db, models.RoleJudge)
	judges, err = d.ByRole(ctx, models.RoleJudge)
	require.NoError(t, err)
	assert.Len(t, judges, 1)

	d.Invalidate(models.RoleJudge)
	judges, err = d.ByRole(ctx, models.RoleJudge)
	require.NoError(t, err)
	assert.Len(t, judges, 2)
}

func TestByRole_UnknownRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	d := New(db, time.Minute)

	_, err := d.ByRole(context.Background(), models.Role("client"))
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
