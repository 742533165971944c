// Package extract turns raw user text into typed candidate field values.
//
// Three passes exist: a deterministic keyword/pattern pass over the whole
// transcript, an exact chip parser over the latest message, and a best-effort
// semantic fallback that calls the generation capability when the
// deterministic pass is inconclusive.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/napfox-dev/napfox/internal/fields"
)

var (
	ageMonthsRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:\.5)?\s*(?:-|–)?\s*(?:month|mo)s?\b`)
	ageYearsRe  = regexp.MustCompile(`(?i)\b(\d)\s*(?:-|–)?\s*(?:year|yr)s?[ -]?old\b`)
	ageWeeksRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:-|–)?\s*(?:week|wk)s?[ -]?old\b`)

	wakeTimeRe = regexp.MustCompile(`(?i)\b(?:wakes?|woke|up|rises?)\s+(?:up\s+)?(?:at|around|about|by)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	bedTimeRe  = regexp.MustCompile(`(?i)\b(?:bed(?:time)?|down|asleep|lights out)\s+(?:is\s+)?(?:at|around|about|by)\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)

	napsCountRe  = regexp.MustCompile(`(?i)\b(one|two|three|four|\d)\s+naps?\b`)
	napLengthsRe = regexp.MustCompile(`(?i)naps?\s+(?:are|is|of|last(?:ing)?|about|around|only)?\s*(\d+\s*(?:-|–|to)?\s*\d*\s*(?:min(?:ute)?|hour|hr)s?)`)
)

var countWords = map[string]int{"one": 1, "two": 2, "three": 3, "four": 4}

// issuePatterns map free-text signals to canonical issue labels, checked in
// order; the first match wins.
var issuePatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)night\s*wak|wakes?\s+(?:a lot|constantly|all night)|up all night|wakes? at night`), fields.IssueNightWakings},
	{regexp.MustCompile(`(?i)short\s+naps?|naps?\s+(?:are\s+)?(?:too\s+)?short|cat\s*nap|only naps? (?:for )?\d+\s*min`), fields.IssueShortNaps},
	{regexp.MustCompile(`(?i)(?:wakes?|up)\s+(?:too\s+)?early|early\s+(?:morning\s+)?(?:wak|ris)`), fields.IssueEarlyRising},
	{regexp.MustCompile(`(?i)fight(?:s|ing)?\s+(?:bedtime|sleep)|resist\w*\s+bed|won'?t\s+go\s+(?:to\s+)?(?:bed|down)|bedtime\s+(?:battle|struggle)`), fields.IssueBedtimeResistance},
	{regexp.MustCompile(`(?i)(?:feeds?|nurs\w+|bottle)\s+to\s+(?:fall\s+)?(?:a)?sleep|falls?\s+asleep\s+(?:while\s+)?(?:feeding|nursing|on the bottle)`), fields.IssueFeedingToSleep},
}

// Deterministic extracts fields from the concatenation of all user turns.
// Each field is matched independently; the confidence score is a fixed
// function of how many fields were filled and how unambiguous the age
// match was.
func Deterministic(text string) fields.Extracted {
	var out fields.Extracted

	age, ageAmbiguous := extractAge(text)
	out.AgeMonths = age

	if m := wakeTimeRe.FindStringSubmatch(text); m != nil {
		if t, ok := normalizeClock(m[1], m[2], m[3], false); ok {
			out.WakeTime = fields.Str(t)
		}
	}
	if m := bedTimeRe.FindStringSubmatch(text); m != nil {
		if t, ok := normalizeClock(m[1], m[2], m[3], true); ok {
			out.Bedtime = fields.Str(t)
		}
	}
	if m := napsCountRe.FindStringSubmatch(text); m != nil {
		word := strings.ToLower(m[1])
		if n, ok := countWords[word]; ok {
			out.NapsCount = fields.Int(n)
		} else if n, err := strconv.Atoi(word); err == nil && n <= 6 {
			out.NapsCount = fields.Int(n)
		}
	}
	if m := napLengthsRe.FindStringSubmatch(text); m != nil {
		out.NapLengths = fields.Str(strings.TrimSpace(m[1]))
	}
	for _, p := range issuePatterns {
		if p.re.MatchString(text) {
			out.MainIssue = fields.Str(p.label)
			break
		}
	}

	out.Confidence = scoreConfidence(out, ageAmbiguous)
	return out
}

// extractAge looks for months, then years, then weeks. The match is
// ambiguous when several distinct month values appear in the same text.
func extractAge(text string) (*int, bool) {
	if matches := ageMonthsRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		first, _ := strconv.Atoi(matches[0][1])
		ambiguous := false
		for _, m := range matches[1:] {
			v, _ := strconv.Atoi(m[1])
			if v != first {
				ambiguous = true
				break
			}
		}
		if first >= 0 && first <= 60 {
			return fields.Int(first), ambiguous
		}
		return nil, true
	}

	if m := ageYearsRe.FindStringSubmatch(text); m != nil {
		years, _ := strconv.Atoi(m[1])
		months := years * 12
		if months <= 60 {
			return fields.Int(months), false
		}
		return nil, true
	}

	if m := ageWeeksRe.FindStringSubmatch(text); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return fields.Int(weeks / 4), false
	}

	return nil, false
}

// scoreConfidence derives the [0,1] certainty from which fields were filled.
// Age dominates since generation cannot proceed without it.
func scoreConfidence(f fields.Extracted, ageAmbiguous bool) float64 {
	score := 0.0
	if f.AgeMonths != nil {
		if ageAmbiguous {
			score += 0.25
		} else {
			score += 0.5
		}
	}
	if f.WakeTime != nil {
		score += 0.15
	}
	if f.Bedtime != nil {
		score += 0.1
	}
	if f.MainIssue != nil {
		score += 0.15
	}
	if f.NapsCount != nil || f.NapLengths != nil {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// normalizeClock converts a matched hour/minute/meridiem into "HH:MM".
// assumeEvening treats a bare 6-11 as PM (bedtimes are stated that way).
func normalizeClock(hourStr, minStr, meridiem string, assumeEvening bool) (string, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute := 0
	if minStr != "" {
		minute, err = strconv.Atoi(minStr)
		if err != nil || minute > 59 {
			return "", false
		}
	}

	switch strings.TrimRight(strings.ReplaceAll(strings.ToLower(meridiem), ".", ""), " ") {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if assumeEvening && hour >= 5 && hour <= 11 {
			hour += 12
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
