package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napfox-dev/napfox/internal/fields"
	"github.com/napfox-dev/napfox/internal/llm"
)

func TestShouldRun(t *testing.T) {
	assert.True(t, ShouldRun(fields.Extracted{Confidence: 0.1}))
	assert.False(t, ShouldRun(fields.Extracted{Confidence: 0.5}))
	assert.False(t, ShouldRun(fields.Extracted{AgeMonths: fields.Int(8), Confidence: 0.1}))
}

func TestSemanticExtractParsesJSON(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"age_months": 8, "wake_time": "6:30", "bedtime": null, "naps_count": 2, "main_issue": "short_naps"}`,
	}}
	s := NewSemantic(mock, time.Second)

	got := s.Extract(context.Background(), "freeform text")
	require.NotNil(t, got.AgeMonths)
	assert.Equal(t, 8, *got.AgeMonths)
	require.NotNil(t, got.WakeTime)
	assert.Equal(t, "06:30", *got.WakeTime)
	assert.Nil(t, got.Bedtime)
	require.NotNil(t, got.NapsCount)
	assert.Equal(t, 2, *got.NapsCount)
	require.NotNil(t, got.MainIssue)
	assert.Equal(t, fields.IssueShortNaps, *got.MainIssue)
	assert.Equal(t, 0.5, got.Confidence)
}

func TestSemanticExtractStripsCodeFences(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		"```json\n{\"age_months\": 14}\n```",
	}}
	s := NewSemantic(mock, time.Second)

	got := s.Extract(context.Background(), "text")
	require.NotNil(t, got.AgeMonths)
	assert.Equal(t, 14, *got.AgeMonths)
}

func TestSemanticExtractRejectsBadValues(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"age_months": 200, "wake_time": "nonsense", "naps_count": 40, "main_issue": "teething"}`,
	}}
	s := NewSemantic(mock, time.Second)

	got := s.Extract(context.Background(), "text")
	assert.Nil(t, got.AgeMonths)
	assert.Nil(t, got.WakeTime)
	assert.Nil(t, got.NapsCount)
	assert.Nil(t, got.MainIssue)
	assert.Zero(t, got.Confidence)
}

func TestSemanticExtractLowConfidenceWithoutAge(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{
		`{"wake_time": "07:00"}`,
	}}
	s := NewSemantic(mock, time.Second)

	got := s.Extract(context.Background(), "text")
	assert.Nil(t, got.AgeMonths)
	require.NotNil(t, got.WakeTime)
	assert.Equal(t, 0.2, got.Confidence)
}

func TestSemanticExtractFailOpen(t *testing.T) {
	mock := &llm.MockCompleter{Err: errors.New("capability down")}
	s := NewSemantic(mock, time.Second)

	got := s.Extract(context.Background(), "text")
	assert.True(t, got.Empty())
	assert.Zero(t, got.Confidence)
}

func TestSemanticExtractUnparseableOutput(t *testing.T) {
	mock := &llm.MockCompleter{Responses: []string{"Sure! The baby is 8 months old."}}
	s := NewSemantic(mock, time.Second)

	assert.True(t, s.Extract(context.Background(), "text").Empty())
}

func TestSemanticExtractNilCompleter(t *testing.T) {
	s := NewSemantic(nil, time.Second)
	assert.True(t, s.Extract(context.Background(), "text").Empty())
}
