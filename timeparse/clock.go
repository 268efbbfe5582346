package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const MinutesPerDay = 1440

// ParseError reports clock text the parser could not accept.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as clock time: %s", e.Input, e.Reason)
}

var (
	reColon   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reBare    = regexp.MustCompile(`^(\d{3,4})$`)
	reMeridem = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)$`)
)

// ParseClockTime converts "HH:MM", bare "HHMM", or "H[:MM] am/pm" text to a
// minute of day. Hours above 23 or minutes above 59 are parse errors.
func ParseClockTime(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, &ParseError{Input: text, Reason: "empty"}
	}

	var hour, minute int
	switch {
	case reColon.MatchString(s):
		m := reColon.FindStringSubmatch(s)
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])

	case reBare.MatchString(s):
		m := reBare.FindStringSubmatch(s)
		n, _ := strconv.Atoi(m[1])
		hour, minute = n/100, n%100

	case reMeridem.MatchString(s):
		m := reMeridem.FindStringSubmatch(s)
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 {
			return 0, &ParseError{Input: text, Reason: "meridiem hour out of range"}
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}

	default:
		return 0, &ParseError{Input: text, Reason: "unrecognized format"}
	}

	if hour > 23 {
		return 0, &ParseError{Input: text, Reason: "hour out of range"}
	}
	if minute > 59 {
		return 0, &ParseError{Input: text, Reason: "minute out of range"}
	}
	return hour*60 + minute, nil
}

// FormatClockTime renders a minute of day as canonical "HH:MM". Values at or
// past 1440 wrap modulo 1440: an item that ends after midnight formats as an
// early-morning time. The wrap is deliberate policy, not an overflow guard.
func FormatClockTime(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
