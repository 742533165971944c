// Package dialog implements the bounded slot-filling state machine. The
// controller decides, once per turn, whether to refuse, ask one more
// question, apply defaults, or hand off to generation.
package dialog

import (
	"fmt"

	"github.com/napfox-dev/napfox/internal/extract"
	"github.com/napfox-dev/napfox/internal/fields"
)

// State is the controller's position in the slot-filling dialogue.
type State string

const (
	StateAwaitingAge      State = "awaiting_age"
	StateAwaitingWakeTime State = "awaiting_wake_time"
	StateAwaitingIssue    State = "awaiting_issue"
	StateReady            State = "ready"
	StateRefused          State = "refused"
	StateFailed           State = "failed"
)

// Output modes.
const (
	ModeStandard = "standard"
	ModeSocial   = "social"
)

// Question budgets per slot. The issue slot is optional flavor, so it is
// asked at most once; the required slots share the full budget.
const (
	maxRequiredQuestions = 3
	maxIssueQuestions    = 1
)

const (
	questionAge   = "How old is your little one?"
	questionWake  = "What time does your child usually wake up for the day?"
	questionIssue = "What's the biggest sleep challenge right now?"

	// RedirectMessage is the fixed reply for off-topic or disqualified input.
	RedirectMessage = "I can only help with baby and toddler sleep schedules. Tell me about your child's sleep and I'll put together a plan."

	// AgeUnresolvedMessage is the terminal reply when the question budget is
	// spent and age is still unknown.
	AgeUnresolvedMessage = "I couldn't work out your child's age, and I can't build a schedule without it. Please tell me the age directly, e.g. \"7 months\"."

	socialDefaultAge  = 12
	defaultWakeTime   = "07:00"
)

// Decision is the controller's verdict for one turn.
type Decision struct {
	State          State
	Fields         fields.Extracted
	Question       string
	QuickReplies   []string
	QuestionsAsked int
	Message        string
}

// Next evaluates the transition rules in order. offTopic marks a first turn
// the topic guard rejected. The questionsAsked counter is the termination
// guarantee: every branch either advances it or lands in a terminal state.
func Next(f fields.Extracted, questionsAsked int, mode string, offTopic bool) Decision {
	if offTopic {
		return Decision{
			State:          StateRefused,
			Fields:         f,
			Message:        RedirectMessage,
			QuestionsAsked: 0,
		}
	}

	if mode == ModeSocial {
		return socialNext(f, questionsAsked)
	}

	if f.AgeMonths == nil && questionsAsked < maxRequiredQuestions {
		return Decision{
			State:          StateAwaitingAge,
			Fields:         f,
			Question:       questionAge,
			QuickReplies:   extract.AgeChips,
			QuestionsAsked: questionsAsked + 1,
		}
	}

	if f.WakeTime == nil && questionsAsked < maxRequiredQuestions {
		return Decision{
			State:          StateAwaitingWakeTime,
			Fields:         f,
			Question:       questionWake,
			QuickReplies:   extract.WakeChips,
			QuestionsAsked: questionsAsked + 1,
		}
	}

	if f.MainIssue == nil && questionsAsked < maxIssueQuestions {
		return Decision{
			State:          StateAwaitingIssue,
			Fields:         f,
			Question:       questionIssue,
			QuickReplies:   extract.IssueChips,
			QuestionsAsked: questionsAsked + 1,
		}
	}

	if f.AgeMonths == nil {
		return Decision{
			State:          StateFailed,
			Fields:         f,
			Message:        AgeUnresolvedMessage,
			QuestionsAsked: questionsAsked,
		}
	}

	return Decision{
		State:          StateReady,
		Fields:         applyDefaults(f),
		QuestionsAsked: questionsAsked,
	}
}

// socialNext skips all clarifying questions: unknown slots are silently
// defaulted so the single-turn mode always answers immediately.
func socialNext(f fields.Extracted, questionsAsked int) Decision {
	if f.AgeMonths == nil {
		f.AgeMonths = fields.Int(socialDefaultAge)
		f.Assume(fmt.Sprintf("age assumed %d months (not provided)", socialDefaultAge))
	}
	return Decision{
		State:          StateReady,
		Fields:         applyDefaults(f),
		QuestionsAsked: questionsAsked,
	}
}

// applyDefaults fills the still-missing optional slots, recording each
// default in the assumptions log.
func applyDefaults(f fields.Extracted) fields.Extracted {
	if f.WakeTime == nil {
		f.WakeTime = fields.Str(defaultWakeTime)
		f.Assume("wake time assumed " + defaultWakeTime + " (not provided)")
	}
	return f
}
