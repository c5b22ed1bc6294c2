package hearings

import (
	"fmt"
	"strings"
	"time"

	"github.com/aldoetobex/jis-backend/pkg/apperrors"
)

// CourtHours restricts hearings to weekday sittings in the court's timezone.
// Sittings may start from Opens:00 up to and including Closes:00.
type CourtHours struct {
	Location *time.Location
	Opens    int
	Closes   int
	Enforce  bool
}

// DefaultCourtHours is Monday to Friday, 08:00 to 17:00 UTC, enforced.
func DefaultCourtHours() CourtHours {
	return CourtHours{Location: time.UTC, Opens: 8, Closes: 17, Enforce: true}
}

func (h CourtHours) loc() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// Check returns ErrOutsideCourtHours when enforcement is on and t falls on a
// weekend or outside the sitting window.
func (h CourtHours) Check(t time.Time) error {
	if !h.Enforce {
		return nil
	}
	local := t.In(h.loc())
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return apperrors.ErrOutsideCourtHours
	}
	mins := local.Hour()*60 + local.Minute()
	if local.Hour() < h.Opens || mins > h.Closes*60 || (mins == h.Closes*60 && local.Second() > 0) {
		return apperrors.WithMessage(apperrors.ErrOutsideCourtHours,
			fmt.Sprintf("Hearings must start between %02d:00 and %02d:00 on weekdays", h.Opens, h.Closes))
	}
	return nil
}

// ParseSlot parses a hearing time from a form or JSON body. RFC 3339 values
// keep their offset; zone-less values are read in the court timezone.
func (h CourtHours) ParseSlot(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "hearing_date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NormalizeSlot(t), nil
	}
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, h.loc()); err == nil {
			return NormalizeSlot(t), nil
		}
	}
	return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "hearing_date must look like 2024-03-01T10:00")
}

// DayBounds returns the UTC range covering the court-local calendar day d
// (YYYY-MM-DD).
func (h CourtHours) DayBounds(d string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(d), h.loc())
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}
