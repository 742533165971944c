// Package schedule parses the generated markdown's schedule section and
// checks it against the structural rules the product promises.
package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Issue is one violated structural rule. An empty issue list means the
// document is accepted.
type Issue struct {
	Message string `json:"message"`
}

// Entry is one parsed "Label: value" schedule row, in document order.
type Entry struct {
	Label string
	Value string

	// Minutes is the value parsed as minutes since midnight; -1 when the
	// value is not a recognizable clock time.
	Minutes int
}

const minScheduleRows = 3

var (
	scheduleHeadingRe = regexp.MustCompile(`(?im)^#{1,3}\s*.*schedule.*$`)
	topHeadingRe      = regexp.MustCompile(`(?m)^#{1,2}\s`)
	entryLineRe       = regexp.MustCompile(`(?m)^\s*(?:[-*]\s*)?\*{0,2}([A-Za-z][A-Za-z0-9 /'’&.-]*?)\*{0,2}\s*[:：]\s*(.+?)\s*$`)
	clockRe           = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm|AM|PM|a\.m\.|p\.m\.)?`)
)

// ExtractSection returns the text of the schedule section: everything from
// the schedule heading up to the next top-level heading, or "" when no
// schedule heading exists.
func ExtractSection(markdown string) string {
	loc := scheduleHeadingRe.FindStringIndex(markdown)
	if loc == nil {
		return ""
	}
	rest := markdown[loc[1]:]
	if next := topHeadingRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return rest
}

// ParseEntries extracts the labeled rows of a schedule section.
func ParseEntries(section string) []Entry {
	matches := entryLineRe.FindAllStringSubmatch(section, -1)
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, Entry{
			Label:   strings.TrimSpace(m[1]),
			Value:   strings.TrimSpace(m[2]),
			Minutes: parseClockMinutes(m[2]),
		})
	}
	return entries
}

// Validate checks the generated markdown's schedule section against every
// structural rule and returns all violations, not just the first, so a
// repair prompt can address them together.
func Validate(markdown string) []Issue {
	var issues []Issue

	section := ExtractSection(markdown)
	if section == "" {
		return []Issue{{Message: "schedule section is missing"}}
	}

	entries := ParseEntries(section)
	if len(entries) < minScheduleRows {
		issues = append(issues, Issue{Message: fmt.Sprintf("schedule has %d labeled rows, at least %d are required", len(entries), minScheduleRows)})
	}

	issues = append(issues, checkDuplicateLabels(entries)...)
	issues = append(issues, checkDuplicateTimes(entries)...)
	issues = append(issues, checkWakeRow(entries)...)
	issues = append(issues, checkChronology(entries)...)
	issues = append(issues, checkLightsOut(entries)...)

	return issues
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

func checkDuplicateLabels(entries []Entry) []Issue {
	var issues []Issue
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		key := normalizeLabel(e.Label)
		if seen[key] {
			issues = append(issues, Issue{Message: fmt.Sprintf("duplicate label %q", e.Label)})
			continue
		}
		seen[key] = true
	}
	return issues
}

func checkDuplicateTimes(entries []Entry) []Issue {
	var issues []Issue
	seen := make(map[int]string, len(entries))
	for _, e := range entries {
		if e.Minutes < 0 {
			continue
		}
		if prev, ok := seen[e.Minutes]; ok {
			issues = append(issues, Issue{Message: fmt.Sprintf("%q and %q share the same time %s", prev, e.Label, e.Value)})
			continue
		}
		seen[e.Minutes] = e.Label
	}
	return issues
}

func checkWakeRow(entries []Entry) []Issue {
	count := 0
	for _, e := range entries {
		if normalizeLabel(e.Label) == "wake" || strings.HasPrefix(normalizeLabel(e.Label), "wake ") {
			count++
		}
	}
	if count != 1 {
		return []Issue{{Message: fmt.Sprintf("expected exactly one Wake row, found %d", count)}}
	}
	return nil
}

// checkChronology requires parsed times to be strictly increasing in
// document order. Rows without a parseable time are skipped.
func checkChronology(entries []Entry) []Issue {
	var issues []Issue
	prev := -1
	prevLabel := ""
	for _, e := range entries {
		if e.Minutes < 0 {
			continue
		}
		if prev >= 0 && e.Minutes <= prev {
			issues = append(issues, Issue{Message: fmt.Sprintf("%q (%s) is not after %q", e.Label, e.Value, prevLabel)})
		}
		prev = e.Minutes
		prevLabel = e.Label
	}
	return issues
}

func checkLightsOut(entries []Entry) []Issue {
	lightsOut := -1
	latest := -1
	for _, e := range entries {
		key := normalizeLabel(e.Label)
		if key == "lights out" || key == "bedtime" {
			if e.Minutes >= 0 {
				lightsOut = e.Minutes
			} else {
				lightsOut = -2
			}
			continue
		}
		if e.Minutes > latest {
			latest = e.Minutes
		}
	}

	switch {
	case lightsOut == -1:
		return []Issue{{Message: "a Lights Out or Bedtime row is required"}}
	case lightsOut == -2:
		return []Issue{{Message: "the Lights Out row has no recognizable time"}}
	case lightsOut < latest:
		return []Issue{{Message: "Lights Out must be the latest time in the schedule"}}
	}
	return nil
}

// parseClockMinutes interprets a row value as minutes since midnight.
// Bare hours 1-6 without a meridiem are read as PM: schedules write
// afternoon times that way.
func parseClockMinutes(value string) int {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return -1
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return -1
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return -1
		}
	}

	switch strings.ReplaceAll(strings.ToLower(m[3]), ".", "") {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		if hour >= 1 && hour <= 6 {
			hour += 12
		}
	}

	return hour*60 + minute
}

// RuleSummary renders the violated rules for a repair prompt, one per line.
func RuleSummary(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = "- " + issue.Message
	}
	return strings.Join(lines, "\n")
}
