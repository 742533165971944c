package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napfox-dev/napfox/internal/extract"
	"github.com/napfox-dev/napfox/internal/fields"
)

func TestNextRefusesOffTopic(t *testing.T) {
	d := Next(fields.Extracted{}, 2, ModeStandard, true)
	assert.Equal(t, StateRefused, d.State)
	assert.Equal(t, RedirectMessage, d.Message)
	assert.Equal(t, 0, d.QuestionsAsked, "counter resets on refusal")
}

func TestNextAsksAgeFirst(t *testing.T) {
	d := Next(fields.Extracted{}, 0, ModeStandard, false)
	assert.Equal(t, StateAwaitingAge, d.State)
	assert.Equal(t, extract.AgeChips, d.QuickReplies)
	assert.Equal(t, 1, d.QuestionsAsked)
}

func TestNextAsksWakeTimeWhenAgeKnown(t *testing.T) {
	f := fields.Extracted{AgeMonths: fields.Int(8), Confidence: 0.5}
	d := Next(f, 0, ModeStandard, false)
	assert.Equal(t, StateAwaitingWakeTime, d.State)
	assert.Len(t, d.QuickReplies, 5)
	assert.Equal(t, extract.WakeChips, d.QuickReplies)
}

func TestNextIssueAskedAtMostOnce(t *testing.T) {
	f := fields.Extracted{
		AgeMonths: fields.Int(8),
		WakeTime:  fields.Str("06:45"),
	}

	// First opportunity: issue question goes out.
	d := Next(f, 0, ModeStandard, false)
	assert.Equal(t, StateAwaitingIssue, d.State)
	assert.Equal(t, 1, d.QuestionsAsked)

	// A non-answer later: the issue cap is spent, controller proceeds.
	d = Next(f, 1, ModeStandard, false)
	assert.Equal(t, StateReady, d.State)
}

func TestNextFailsWhenAgeNeverResolved(t *testing.T) {
	d := Next(fields.Extracted{}, 3, ModeStandard, false)
	assert.Equal(t, StateFailed, d.State)
	assert.Equal(t, AgeUnresolvedMessage, d.Message)
}

func TestNextReadyAppliesWakeDefault(t *testing.T) {
	f := fields.Extracted{
		AgeMonths: fields.Int(10),
		MainIssue: fields.Str(fields.IssueShortNaps),
	}
	d := Next(f, 3, ModeStandard, false)
	require.Equal(t, StateReady, d.State)
	require.NotNil(t, d.Fields.WakeTime)
	assert.Equal(t, "07:00", *d.Fields.WakeTime)
	assert.NotEmpty(t, d.Fields.Assumptions)
}

func TestSocialModeNeverAsks(t *testing.T) {
	d := Next(fields.Extracted{}, 0, ModeSocial, false)
	require.Equal(t, StateReady, d.State)
	require.NotNil(t, d.Fields.AgeMonths)
	assert.Equal(t, 12, *d.Fields.AgeMonths)
	require.NotNil(t, d.Fields.WakeTime)
	assert.Equal(t, "07:00", *d.Fields.WakeTime)
	assert.Len(t, d.Fields.Assumptions, 2)
}

// Termination: from any starting point, repeatedly feeding the controller a
// turn that resolves nothing reaches a terminal state within 4 steps.
func TestTerminationWithinFourTurns(t *testing.T) {
	f := fields.Extracted{}
	asked := 0
	for i := 0; i < 4; i++ {
		d := Next(f, asked, ModeStandard, false)
		if d.State == StateReady || d.State == StateRefused || d.State == StateFailed {
			return
		}
		require.Greater(t, d.QuestionsAsked, asked, "every question must advance the counter")
		asked = d.QuestionsAsked
	}
	d := Next(f, asked, ModeStandard, false)
	assert.Contains(t, []State{StateReady, StateRefused, StateFailed}, d.State)
}
