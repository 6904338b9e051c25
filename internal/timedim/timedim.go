package timedim

import (
	"fmt"
	"time"

	"github.com/Aleph-Project/Aleph/internal/models"
)

// Derive parses an ISO-8601 timestamp (a literal "Z" suffix or an
// explicit offset) and computes the calendar attributes of the time
// dimension. Attributes are derived in the timestamp's own offset.
func Derive(playedAt string) (models.TimeDimension, time.Time, error) {
	t, err := time.Parse(time.RFC3339, playedAt)
	if err != nil {
		return models.TimeDimension{}, time.Time{}, fmt.Errorf("parse played_at %q: %w", playedAt, err)
	}

	dow := isoWeekday(t)
	dim := models.TimeDimension{
		ID:        t.Year()*10000 + int(t.Month())*100 + t.Day(),
		Date:      time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Day:       t.Day(),
		Month:     int(t.Month()),
		Year:      t.Year(),
		DayOfWeek: dow,
		IsWeekend: dow >= 6,
		Quarter:   (int(t.Month())-1)/3 + 1,
	}

	return dim, t, nil
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering (Monday=1).
func isoWeekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return 7
}
