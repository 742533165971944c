// Package guard decides whether incoming text is a genuine sleep-schedule
// request before any extraction or generation runs.
package guard

import (
	"context"
	"strings"
	"time"

	"github.com/napfox-dev/napfox/internal/llm"
)

// minContextLength is the message length above which a bare child-word
// mention is accepted as on-topic. Shorter messages need a sleep keyword.
const minContextLength = 60

// lowConfidenceThreshold triggers the one-shot semantic intent check.
const lowConfidenceThreshold = 0.15

// Disqualifiers take absolute precedence: any match rejects the message no
// matter what else it contains.
var disqualifiers = []string{
	"don't have a baby",
	"dont have a baby",
	"don't have a child",
	"dont have a child",
	"don't have kids",
	"dont have kids",
	"no kids",
	"never mind",
	"nevermind",
	"just testing",
	"just a test",
	"just kidding",
	"just joking",
	"ignore this",
	"forget it",
}

var sleepKeywords = []string{
	"sleep", "slept", "nap", "bedtime", "bed time", "wake", "woke", "waking",
	"night", "tired", "exhausted", "overtired", "drowsy", "feed", "feeding",
	"nurse", "nursing", "swaddle", "pacifier", "dummy", "binky", "soother",
	"crib", "cot", "bassinet", "schedule", "routine", "regression",
}

var childKeywords = []string{
	"baby", "babies", "toddler", "infant", "newborn", "child", "kid",
	"son", "daughter", "month old", "months old", "year old",
}

// HasDisqualifier reports whether text contains a disqualifying phrase.
func HasDisqualifier(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range disqualifiers {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsOnTopic reports whether text looks like an in-scope request.
// Disqualifiers reject unconditionally. Otherwise a sleep keyword is enough;
// a child keyword alone only counts when the message carries enough length
// to hold real context.
func IsOnTopic(text string) bool {
	if HasDisqualifier(text) {
		return false
	}

	lower := strings.ToLower(text)
	for _, kw := range sleepKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range childKeywords {
		if strings.Contains(lower, kw) && len(strings.TrimSpace(text)) > minContextLength {
			return true
		}
	}
	return false
}

// Guard combines the keyword screen with a one-shot semantic intent check.
type Guard struct {
	classifier llm.Completer
	timeout    time.Duration
}

// New creates a Guard. classifier may be nil, in which case only the keyword
// screen runs.
func New(classifier llm.Completer, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{classifier: classifier, timeout: timeout}
}

// Check screens the original first message of a session. The semantic check
// only runs on the first turn and only when the extractor reported very low
// confidence; it fails open so a capability outage never blocks a real user.
func (g *Guard) Check(ctx context.Context, firstMessage string, confidence float64, firstTurn bool) bool {
	if HasDisqualifier(firstMessage) {
		return false
	}
	if !IsOnTopic(firstMessage) {
		return false
	}

	if firstTurn && confidence < lowConfidenceThreshold && g.classifier != nil {
		return g.verifyIntent(ctx, firstMessage)
	}
	return true
}

// verifyIntent asks the classifier capability a single constrained yes/no
// question. Any error or unparseable answer counts as genuine.
func (g *Guard) verifyIntent(ctx context.Context, text string) bool {
	prompt := "Is the following message a genuine request for help with a baby or young child's sleep?\n" +
		"Answer with exactly one word, YES or NO.\n\nMessage: " + text

	answer, err := llm.CompleteWithTimeout(ctx, g.classifier, prompt, g.timeout,
		llm.WithTemperature(0),
		llm.WithMaxTokens(4),
	)
	if err != nil {
		// Fail open.
		return true
	}

	return !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(answer)), "NO")
}
