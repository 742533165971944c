// Package fields defines the slot set the dialogue tries to resolve and the
// merge rules that combine values extracted on different turns.
package fields

// Canonical main-issue labels. The extractor and chip parser only ever
// produce values from this set.
const (
	IssueNightWakings      = "night_wakings"
	IssueShortNaps         = "short_naps"
	IssueEarlyRising       = "early_rising"
	IssueBedtimeResistance = "bedtime_resistance"
	IssueFeedingToSleep    = "feeding_to_sleep"
)

// Extracted holds the typed candidate values for one session.
// Nil pointer fields mean "not yet observed". Assumptions is an append-only
// provenance log: an entry is added whenever a field is defaulted rather
// than observed, and entries are never removed.
type Extracted struct {
	AgeMonths  *int    `json:"age_months"`
	WakeTime   *string `json:"wake_time"`
	Bedtime    *string `json:"bedtime"`
	NapsCount  *int    `json:"naps_count"`
	NapLengths *string `json:"nap_lengths"`
	MainIssue  *string `json:"main_issue"`

	// Confidence is the extractor's self-reported certainty in [0,1] that
	// AgeMonths and the surrounding fields are reliable. It is recomputed on
	// every extraction pass, never merged.
	Confidence float64 `json:"confidence_score"`

	Assumptions []string `json:"assumptions"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Str returns a pointer to v.
func Str(v string) *string { return &v }

// Merge combines a freshly extracted field set over a base set.
//
// Per field: a non-nil value in update overwrites base; a nil value in
// update never erases a known value in base. Assumption entries the base
// doesn't already hold are appended in order. Confidence takes update's
// value, the freshest measurement.
// AgeMonths is additionally sticky: once known in base it survives even a
// later pass that produced nil.
func Merge(base, update Extracted) Extracted {
	out := base

	if update.AgeMonths != nil {
		out.AgeMonths = update.AgeMonths
	}
	if update.WakeTime != nil {
		out.WakeTime = update.WakeTime
	}
	if update.Bedtime != nil {
		out.Bedtime = update.Bedtime
	}
	if update.NapsCount != nil {
		out.NapsCount = update.NapsCount
	}
	if update.NapLengths != nil {
		out.NapLengths = update.NapLengths
	}
	if update.MainIssue != nil {
		out.MainIssue = update.MainIssue
	}

	// Freshest measurement wins, but a completely empty update (no
	// observations, no score) is a no-op rather than a reset to zero.
	if !update.Empty() || update.Confidence != 0 || len(update.Assumptions) > 0 {
		out.Confidence = update.Confidence
	}

	if len(update.Assumptions) > 0 {
		seen := make(map[string]bool, len(base.Assumptions))
		for _, a := range base.Assumptions {
			seen[a] = true
		}
		merged := make([]string, 0, len(base.Assumptions)+len(update.Assumptions))
		merged = append(merged, base.Assumptions...)
		// Only genuinely new entries are appended, so merging a set into
		// itself changes nothing.
		for _, a := range update.Assumptions {
			if seen[a] {
				continue
			}
			seen[a] = true
			merged = append(merged, a)
		}
		out.Assumptions = merged
	}

	return out
}

// Assume records a defaulted field value with a provenance note.
func (e *Extracted) Assume(note string) {
	e.Assumptions = append(e.Assumptions, note)
}

// Empty reports whether no field has been observed yet.
func (e Extracted) Empty() bool {
	return e.AgeMonths == nil && e.WakeTime == nil && e.Bedtime == nil &&
		e.NapsCount == nil && e.NapLengths == nil && e.MainIssue == nil
}
