package service

import (
	"time"

	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseDateRange turns optional YYYY-MM-DD bounds into timestamps in the
// business timezone. The end bound is pushed to the last nanosecond of its
// day so a range is inclusive of the whole final date.
func parseDateRange(start, end string, loc *time.Location) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if start != "" {
		parsed, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid start date, expected YYYY-MM-DD")
		}
		from = &parsed
	}
	if end != "" {
		parsed, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid end date, expected YYYY-MM-DD")
		}
		eod := endOfDay(parsed)
		to = &eod
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	return from, to, nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
