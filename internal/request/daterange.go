package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/CodingTam/requesthtml/internal"
)

const (
	dateLayout = "2006-01-02"
	// maxRangeDays bounds a single start:end token.
	maxRangeDays = 366
)

// ExpandDates normalizes a comma separated list of YYYY-MM-DD dates and
// inclusive YYYY-MM-DD:YYYY-MM-DD ranges into a comma joined list of
// dates, in input order. Duplicates are kept.
func ExpandDates(input string) (string, error) {
	dates, err := ExpandDateList(input)
	if err != nil {
		return "", err
	}
	return strings.Join(dates, ","), nil
}

func ExpandDateList(input string) ([]string, error) {
	var out []string

	for _, raw := range strings.Split(input, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		startText, endText, isRange := strings.Cut(token, ":")
		if !isRange {
			d, err := parseDate(token)
			if err != nil {
				return nil, err
			}
			out = append(out, d.Format(dateLayout))
			continue
		}

		start, err := parseDate(startText)
		if err != nil {
			return nil, err
		}
		end, err := parseDate(endText)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, dateRangeError(fmt.Sprintf("Invalid date range %s: end date is before start date", token))
		}
		if end.Sub(start) > maxRangeDays*24*time.Hour {
			return nil, dateRangeError(fmt.Sprintf("Invalid date range %s: ranges are limited to %d days", token, maxRangeDays))
		}

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, d.Format(dateLayout))
		}
	}

	if len(out) == 0 {
		return nil, dateRangeError("At least one request date is required")
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, dateRangeError(fmt.Sprintf("Invalid date %q: expected YYYY-MM-DD", s))
	}
	return d, nil
}

func dateRangeError(message string) *internal.AppError {
	return internal.NewValidationFieldError("requestDates", message, internal.ErrCodeInvalidDateRange)
}
