// Package schedule turns newsletter recurrence settings into stored
// schedule descriptors.
package schedule

import (
	"strconv"
	"time"

	"Mailcast/internal/models"
)

// maxMonthDay is the last day that exists in every month.
const maxMonthDay = 28

// Translate builds the descriptor for a newsletter firing at fireAt with the
// given frequency. Weekly and monthly rules are anchored on createdAt.
func Translate(fireAt models.TimeOfDay, freq models.Frequency, createdAt time.Time) models.Descriptor {
	d := models.Descriptor{
		Minute:      strconv.Itoa(fireAt.Minute),
		Hour:        strconv.Itoa(fireAt.Hour),
		DayOfWeek:   models.Wildcard,
		DayOfMonth:  models.Wildcard,
		MonthOfYear: models.Wildcard,
	}

	switch freq {
	case models.FrequencyWeekly:
		d.DayOfWeek = strconv.Itoa(int(createdAt.Weekday()))
	case models.FrequencyMonthly:
		d.DayOfMonth = strconv.Itoa(min(createdAt.Day(), maxMonthDay))
	}

	return d
}
