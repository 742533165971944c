package extract

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/napfox-dev/napfox/internal/fields"
	"github.com/napfox-dev/napfox/internal/llm"
)

// semanticThreshold gates the fallback: it only runs when age is still
// unknown and the deterministic pass scored below this.
const semanticThreshold = 0.3

// Semantic is the best-effort LLM fallback extractor.
type Semantic struct {
	completer llm.Completer
	timeout   time.Duration
}

// NewSemantic creates a semantic extractor. completer may be nil to disable
// the fallback entirely.
func NewSemantic(completer llm.Completer, timeout time.Duration) *Semantic {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Semantic{completer: completer, timeout: timeout}
}

// ShouldRun reports whether the fallback is worth invoking given the merged
// result of the deterministic pass and prior session fields.
func ShouldRun(current fields.Extracted) bool {
	return current.AgeMonths == nil && current.Confidence < semanticThreshold
}

// semanticResult is the constrained JSON shape the capability is asked for.
type semanticResult struct {
	AgeMonths *int    `json:"age_months"`
	WakeTime  *string `json:"wake_time"`
	Bedtime   *string `json:"bedtime"`
	NapsCount *int    `json:"naps_count"`
	MainIssue *string `json:"main_issue"`
}

const semanticPrompt = `Extract sleep-schedule details from the parent's message below.
Respond with ONLY a JSON object, no prose, using exactly these keys:
{"age_months": int or null, "wake_time": "HH:MM" or null, "bedtime": "HH:MM" or null, "naps_count": int or null, "main_issue": one of "night_wakings","short_naps","early_rising","bedtime_resistance","feeding_to_sleep" or null}

Message:
`

// Extract asks the capability for fields it can find in text. Errors and
// unparseable output return an empty result: the session continues with
// whatever the deterministic pass produced.
func (s *Semantic) Extract(ctx context.Context, text string) fields.Extracted {
	var out fields.Extracted
	if s.completer == nil {
		return out
	}

	raw, err := llm.CompleteWithTimeout(ctx, s.completer, semanticPrompt+text, s.timeout,
		llm.WithTemperature(0),
		llm.WithMaxTokens(200),
	)
	if err != nil {
		return out
	}

	var parsed semanticResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return out
	}

	if parsed.AgeMonths != nil && *parsed.AgeMonths >= 0 && *parsed.AgeMonths <= 60 {
		out.AgeMonths = parsed.AgeMonths
	}
	out.WakeTime = validClock(parsed.WakeTime)
	out.Bedtime = validClock(parsed.Bedtime)
	if parsed.NapsCount != nil && *parsed.NapsCount >= 0 && *parsed.NapsCount <= 6 {
		out.NapsCount = parsed.NapsCount
	}
	if parsed.MainIssue != nil {
		switch *parsed.MainIssue {
		case fields.IssueNightWakings, fields.IssueShortNaps, fields.IssueEarlyRising,
			fields.IssueBedtimeResistance, fields.IssueFeedingToSleep:
			out.MainIssue = parsed.MainIssue
		}
	}

	if out.AgeMonths != nil {
		out.Confidence = 0.5
	} else if !out.Empty() {
		out.Confidence = 0.2
	}
	return out
}

func validClock(v *string) *string {
	if v == nil {
		return nil
	}
	parts := strings.SplitN(*v, ":", 2)
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return nil
	}
	if t, ok := normalizeClock(parts[0], parts[1], "", false); ok {
		return fields.Str(t)
	}
	return nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
