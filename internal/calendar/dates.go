package calendar

import (
	"time"

	"research-corev1/internal/model"
)

// LastFriday returns the most recent Friday strictly before date. It is
// plain calendar arithmetic and does not consult any trading calendar.
func LastFriday(date string) (time.Time, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	// Monday=0 .. Sunday=6
	wd := (int(d.Weekday()) + 6) % 7
	back := (wd+2)%7 + 1
	return d.AddDate(0, 0, -back), nil
}
