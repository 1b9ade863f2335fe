package delivery

import (
	"fmt"
	"time"

	"Mailcast/internal/models"
)

var finishLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// FinishInstant combines the newsletter's finish date and time into a
// single UTC instant.
func FinishInstant(nl *models.Newsletter) (time.Time, error) {
	raw := nl.FinishDate + " " + nl.FinishTime
	for _, layout := range finishLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: newsletter %d: %q", models.ErrMalformedFinish, nl.ID, raw)
}

// IsExpired reports whether now is strictly after the newsletter's finish
// instant. The instant itself is not expired.
func IsExpired(nl *models.Newsletter, now time.Time) (bool, error) {
	end, err := FinishInstant(nl)
	if err != nil {
		return false, err
	}
	return now.UTC().After(end), nil
}
