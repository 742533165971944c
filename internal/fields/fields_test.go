package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeEmptyUpdateIsIdentity(t *testing.T) {
	base := Extracted{
		AgeMonths:   Int(8),
		WakeTime:    Str("06:30"),
		MainIssue:   Str(IssueNightWakings),
		Confidence:  0.7,
		Assumptions: []string{"bedtime assumed 19:30"},
	}

	got := Merge(base, Extracted{})
	assert.Equal(t, base, got)
}

func TestMergeSelfIsIdempotent(t *testing.T) {
	f := Extracted{
		AgeMonths:   Int(8),
		WakeTime:    Str("06:30"),
		Confidence:  0.7,
		Assumptions: []string{"wake time assumed 07:00 (not provided)"},
	}

	got := Merge(f, f)
	assert.Equal(t, f, got)
	assert.Len(t, got.Assumptions, 1, "self-merge must not duplicate assumptions")
}

func TestMergeSkipsAssumptionsAlreadyHeld(t *testing.T) {
	base := Extracted{Assumptions: []string{"a", "b"}}
	update := Extracted{Assumptions: []string{"b", "c"}}

	got := Merge(base, update)
	assert.Equal(t, []string{"a", "b", "c"}, got.Assumptions)
}

func TestMergeNonNilDominance(t *testing.T) {
	base := Extracted{
		AgeMonths: Int(8),
		WakeTime:  Str("06:30"),
	}
	update := Extracted{
		AgeMonths:  Int(9),
		MainIssue:  Str(IssueShortNaps),
		Confidence: 0.9,
	}

	got := Merge(base, update)
	require.NotNil(t, got.AgeMonths)
	assert.Equal(t, 9, *got.AgeMonths)

	// nil in update must not erase base
	require.NotNil(t, got.WakeTime)
	assert.Equal(t, "06:30", *got.WakeTime)

	require.NotNil(t, got.MainIssue)
	assert.Equal(t, IssueShortNaps, *got.MainIssue)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestMergeNilNeverErasesAge(t *testing.T) {
	base := Extracted{AgeMonths: Int(8), Confidence: 0.8}
	update := Extracted{WakeTime: Str("07:00"), Confidence: 0.1}

	got := Merge(base, update)
	require.NotNil(t, got.AgeMonths)
	assert.Equal(t, 8, *got.AgeMonths)
	assert.Equal(t, 0.1, got.Confidence, "confidence is replaced, not merged")
}

func TestMergeAssumptionsConcatenateInOrder(t *testing.T) {
	base := Extracted{Assumptions: []string{"a", "b"}}
	update := Extracted{Assumptions: []string{"c"}, Confidence: 0.5}

	got := Merge(base, update)
	assert.Equal(t, []string{"a", "b", "c"}, got.Assumptions)

	// A second merge keeps every earlier entry.
	got2 := Merge(got, Extracted{Assumptions: []string{"d"}})
	assert.Equal(t, []string{"a", "b", "c", "d"}, got2.Assumptions)
}

func TestMergeDoesNotAliasAssumptions(t *testing.T) {
	base := Extracted{Assumptions: []string{"a"}}
	update := Extracted{Assumptions: []string{"b"}}

	got := Merge(base, update)
	got.Assumptions[0] = "mutated"
	assert.Equal(t, []string{"a"}, base.Assumptions)
}

func TestEmpty(t *testing.T) {
	assert.True(t, Extracted{}.Empty())
	assert.True(t, Extracted{Confidence: 0.4}.Empty())
	assert.False(t, Extracted{AgeMonths: Int(3)}.Empty())
	assert.False(t, Extracted{NapLengths: Str("30-45 min")}.Empty())
}
