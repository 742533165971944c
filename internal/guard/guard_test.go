package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/napfox-dev/napfox/internal/llm"
)

func TestHasDisqualifier(t *testing.T) {
	assert.True(t, HasDisqualifier("actually I don't have a baby"))
	assert.True(t, HasDisqualifier("never mind, forget I asked"))
	assert.True(t, HasDisqualifier("Just testing this thing"))
	assert.False(t, HasDisqualifier("my baby wakes every 2 hours"))
}

func TestDisqualifierBeatsSleepKeyword(t *testing.T) {
	// Sleep keyword present, but the disqualifier wins.
	assert.False(t, IsOnTopic("my baby won't sleep, just kidding"))
}

func TestIsOnTopicSleepKeyword(t *testing.T) {
	assert.True(t, IsOnTopic("8 month old wakes every 2 hours"))
	assert.True(t, IsOnTopic("nap transitions are killing us"))
	assert.True(t, IsOnTopic("bedtime is a battle"))
}

func TestIsOnTopicChildWordNeedsLength(t *testing.T) {
	// Bare child mention, short message: too weak a signal.
	assert.False(t, IsOnTopic("I have a toddler"))

	// Same signal with enough surrounding context is accepted.
	assert.True(t, IsOnTopic("I have a toddler and honestly our whole evening routine has fallen apart since daycare started"))
}

func TestIsOnTopicRejectsUnrelated(t *testing.T) {
	assert.False(t, IsOnTopic("write me a poem about the stock market"))
	assert.False(t, IsOnTopic("what's the weather like today"))
}

func TestCheckSemanticFailsOpen(t *testing.T) {
	g := New(&llm.MockCompleter{Err: errors.New("capability down")}, 0)

	// Passes keywords, very low confidence: the semantic check runs, errors,
	// and the user is still let through.
	ok := g.Check(context.Background(), "my baby something something sleep", 0.05, true)
	assert.True(t, ok)
}

func TestCheckSemanticNoRejects(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{"NO"}}
	g := New(mock, 0)

	ok := g.Check(context.Background(), "sleep sleep sleep gibberish", 0.05, true)
	assert.False(t, ok)
	assert.Equal(t, 1, mock.Calls())
}

func TestCheckSemanticSkippedAfterFirstTurn(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{"NO"}}
	g := New(mock, 0)

	ok := g.Check(context.Background(), "my baby won't sleep", 0.05, false)
	assert.True(t, ok)
	assert.Equal(t, 0, mock.Calls(), "classifier is first-turn only")
}

func TestCheckSemanticSkippedAtNormalConfidence(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{"NO"}}
	g := New(mock, 0)

	ok := g.Check(context.Background(), "my baby won't sleep at night", 0.6, true)
	assert.True(t, ok)
	assert.Equal(t, 0, mock.Calls())
}
