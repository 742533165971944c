package extract

import (
	"strings"

	"github.com/napfox-dev/napfox/internal/fields"
)

// Quick-reply vocabularies offered by the dialogue controller. The chip
// parser resolves these exactly; they are a closed set, not free text.
var (
	AgeChips   = []string{"0–3 months", "4–6 months", "7–9 months", "10–12 months", "Over a year"}
	WakeChips  = []string{"Before 6am", "6:00–6:30am", "6:30–7:00am", "7:00–7:30am", "After 7:30am"}
	IssueChips = []string{"Night wakings", "Short naps", "Early rising", "Fighting bedtime", "Feeds to fall asleep"}
)

// Each age bucket maps to a representative month value, each wake bucket to
// a representative clock time.
var ageChipValues = map[string]int{
	"0–3 months":   2,
	"4–6 months":   5,
	"7–9 months":   8,
	"10–12 months": 11,
	"over a year":  18,
}

var wakeChipValues = map[string]string{
	"before 6am":   "05:30",
	"6:00–6:30am":  "06:15",
	"6:30–7:00am":  "06:45",
	"7:00–7:30am":  "07:15",
	"after 7:30am": "07:45",
}

var issueChipValues = map[string]string{
	"night wakings":        fields.IssueNightWakings,
	"short naps":           fields.IssueShortNaps,
	"early rising":         fields.IssueEarlyRising,
	"fighting bedtime":     fields.IssueBedtimeResistance,
	"feeds to fall asleep": fields.IssueFeedingToSleep,
}

// ParseChipAnswer maps a quick-reply string to field values. Only the latest
// user message is ever passed here. Unrecognized text yields an empty result,
// with one deliberate exception: any nap mention falls through to the
// short-naps issue. That catch-all can misfire on unrelated nap talk and is
// kept on purpose.
func ParseChipAnswer(text string) fields.Extracted {
	var out fields.Extracted

	key := normalizeChip(text)

	if months, ok := ageChipValues[key]; ok {
		out.AgeMonths = fields.Int(months)
		out.Confidence = chipConfidence
		return out
	}
	if wake, ok := wakeChipValues[key]; ok {
		out.WakeTime = fields.Str(wake)
		out.Confidence = chipConfidence
		return out
	}
	if issue, ok := issueChipValues[key]; ok {
		out.MainIssue = fields.Str(issue)
		out.Confidence = chipConfidence
		return out
	}

	if strings.Contains(key, "nap") {
		out.MainIssue = fields.Str(fields.IssueShortNaps)
		out.Confidence = napCatchAllConfidence
	}
	return out
}

// An exact chip match is a closed-vocabulary resolution, so it carries high
// certainty; the nap catch-all is a guess and scores accordingly.
const (
	chipConfidence        = 0.9
	napCatchAllConfidence = 0.4
)

// normalizeChip canonicalizes dash variants and casing so a chip survives
// client-side re-encoding.
func normalizeChip(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, "-", "–")
	s = strings.ReplaceAll(s, "—", "–")
	return s
}
