package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned for date tokens that do not match any
// of the accepted statement date shapes.
var ErrInvalidDateFormat = errors.New("invalid date format")

var monthsByAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var dateSepRe = regexp.MustCompile(`[-/]`)

// ParseTransactionDate parses the date formats seen across statement
// providers: DD-MM-YYYY, DD/MM/YYYY and DD-MMM-YY[YY] with a case
// insensitive three letter month. Two digit years are read as 2000+YY.
func ParseTransactionDate(token string) (time.Time, error) {
	parts := dateSepRe.Split(token, -1)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
	}

	var month time.Month
	if isDigits(parts[1]) {
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
		}
		month = time.Month(m)
	} else {
		abbr := strings.ToLower(parts[1])
		if len(abbr) > 3 {
			abbr = abbr[:3]
		}
		m, ok := monthsByAbbr[abbr]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
		}
		month = m
	}

	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
	}
	if len(parts[2]) == 2 {
		year = 2000 + year
	}

	if day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes impossible days (Feb 30 -> Mar 1); reject those.
	if d.Day() != day || d.Month() != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, token)
	}
	return d, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
