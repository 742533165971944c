package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napfox-dev/napfox/internal/fields"
)

func TestDefaultParses(t *testing.T) {
	b := Default()
	require.NotNil(t, b)
}

func TestExcerptSelectsAgeBand(t *testing.T) {
	b := Default()

	assert.Contains(t, b.Excerpt(1, ""), "Newborns")
	assert.Contains(t, b.Excerpt(8, ""), "Two naps")
	assert.Contains(t, b.Excerpt(20, ""), "One midday nap")
}

func TestExcerptAppendsIssueNote(t *testing.T) {
	b := Default()

	out := b.Excerpt(8, fields.IssueNightWakings)
	assert.Contains(t, out, "Two naps")
	assert.Contains(t, out, "night wakings")
}

func TestExcerptUnknownIssueIgnored(t *testing.T) {
	b := Default()
	assert.Equal(t, b.Excerpt(8, ""), b.Excerpt(8, "not_a_real_issue"))
}

func TestExcerptOutOfBandAgeFallsBack(t *testing.T) {
	b := Default()
	assert.Contains(t, b.Excerpt(59, ""), "One midday nap")
}

func TestExcerptIsPure(t *testing.T) {
	b := Default()
	assert.Equal(t, b.Excerpt(8, fields.IssueShortNaps), b.Excerpt(8, fields.IssueShortNaps))
}
