package services

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted from clients
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value of the named field. A malformed value is a validation error.
func ParseDate(field, value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, ValidationError("%s must be a date in YYYY-MM-DD format", field)
	}
	return parsed, nil
}
