package hearings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/jis-backend/internal/testutil"
)

func TestParseSlot(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	h := CourtHours{Location: jakarta, Opens: 8, Closes: 17, Enforce: true}
	want := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"2024-03-01T10:00",
		"2024-03-01 10:00",
		"2024-03-01T10:00:00",
		"2024-03-01T03:00:00Z",
		"2024-03-01T10:00:00+07:00",
		"2024-03-01T03:00:00.750Z",
	} {
		got, err := h.ParseSlot(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := h.ParseSlot("")
	testutil.AssertAppError(t, err, "INVALID_INPUT")
	_, err = h.ParseSlot("next friday")
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}

func TestCourtHoursCheck(t *testing.T) {
	h := DefaultCourtHours()

	assert.NoError(t, h.Check(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.NoError(t, h.Check(time.Date(2024, 3, 1, 16, 59, 0, 0, time.UTC)))
	assert.NoError(t, h.Check(time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC)))
	testutil.AssertAppError(t, h.Check(time.Date(2024, 3, 1, 7, 59, 0, 0, time.UTC)), "OUTSIDE_COURT_HOURS")
	testutil.AssertAppError(t, h.Check(time.Date(2024, 3, 1, 17, 0, 1, 0, time.UTC)), "OUTSIDE_COURT_HOURS")
	testutil.AssertAppError(t, h.Check(time.Date(2024, 3, 1, 17, 1, 0, 0, time.UTC)), "OUTSIDE_COURT_HOURS")
	testutil.AssertAppError(t, h.Check(time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)), "OUTSIDE_COURT_HOURS")

	h.Enforce = false
	assert.NoError(t, h.Check(time.Date(2024, 3, 3, 22, 0, 0, 0, time.UTC)))
}

func TestDayBounds(t *testing.T) {
	h := CourtHours{Location: time.FixedZone("WIB", 7*60*60)}

	from, to, err := h.DayBounds("2024-03-01")
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2024, 2, 29, 17, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24*time.Hour, to.Sub(from))
}
