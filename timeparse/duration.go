package timeparse

import (
	"regexp"
	"strconv"
	"strings"
)

// localeMatcher holds the hour/minute token patterns of one vocabulary.
// Matchers are tried in slice order; first vocabulary with any hit wins.
type localeMatcher struct {
	hours   *regexp.Regexp
	minutes *regexp.Regexp
}

var durationLocales = []localeMatcher{
	// English: "2 hours 30 min", "1hr", "45 minutes"
	{
		hours:   regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hours?|hrs?|h)\b`),
		minutes: regexp.MustCompile(`(\d+)\s*(?:minutes?|mins?|m)\b`),
	},
	// Spanish: "2 horas", "45 minutos" inputs from the generated plans
	{
		hours:   regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:horas?|h)\b`),
		minutes: regexp.MustCompile(`(\d+)\s*(?:minutos?|min)\b`),
	},
}

var reFirstInt = regexp.MustCompile(`\d+`)

// ParseDuration extracts a duration in minutes from free text. Locale token
// matchers are tried in a fixed priority order; when none hit, the first bare
// integer in the text is taken as minutes. Returns nil, not zero, when the
// text carries no recognizable duration: the caller owns the policy default.
func ParseDuration(text string) *int {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return nil
	}

	for _, loc := range durationLocales {
		total := 0.0
		matched := false
		if m := loc.hours.FindStringSubmatch(s); m != nil {
			h, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				total += h * 60
				matched = true
			}
		}
		if m := loc.minutes.FindStringSubmatch(s); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				total += float64(n)
				matched = true
			}
		}
		if matched {
			v := int(total)
			return &v
		}
	}

	if m := reFirstInt.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
	}
	return nil
}
