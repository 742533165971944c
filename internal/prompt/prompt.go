// Package prompt renders the resolved field set into a generation request.
// Rendering is pure: fixed inputs always produce the same prompt text.
package prompt

import (
	"fmt"
	"strings"

	"github.com/napfox-dev/napfox/internal/fields"
)

// Inputs are the resolved values a prompt is built from.
type Inputs struct {
	Fields           fields.Extracted
	KnowledgeExcerpt string
	OriginalText     string
	Mode             string // "standard" or "social"
}

// Structural rules the generator must follow. The validator checks exactly
// these, and the repair prompt quotes them back on violation.
var structuralRules = []string{
	`Include a section that starts with the heading "## Schedule".`,
	`Inside it, write each schedule row on its own line as "- Label: time", e.g. "- Wake: 7:00 AM".`,
	`Use each label only once.`,
	`Use each time only once.`,
	`Include exactly one "Wake" row, as the first row.`,
	`List rows in strictly increasing time order.`,
	`End the schedule with a "Lights Out" row; it must be the latest time of the day.`,
	`Include at least 4 schedule rows.`,
}

// Build renders the generation prompt for the given inputs.
func Build(in Inputs) string {
	if in.Mode == "social" {
		return buildSocial(in)
	}
	return buildStandard(in)
}

func buildStandard(in Inputs) string {
	var b strings.Builder

	b.WriteString("You are a pediatric sleep consultant. Write a personalized daily sleep schedule in markdown.\n\n")
	b.WriteString("Child:\n")
	b.WriteString("- Age: " + ageLabel(in.Fields) + "\n")
	b.WriteString("- Wakes for the day at: " + clockLabel(in.Fields.WakeTime) + "\n")
	if in.Fields.Bedtime != nil {
		b.WriteString("- Current bedtime: " + clockLabel(in.Fields.Bedtime) + "\n")
	}
	if in.Fields.NapsCount != nil {
		b.WriteString(fmt.Sprintf("- Naps per day: %d\n", *in.Fields.NapsCount))
	}
	if in.Fields.NapLengths != nil {
		b.WriteString("- Nap lengths: " + *in.Fields.NapLengths + "\n")
	}
	b.WriteString("- Main concern: " + issueLabel(in.Fields.MainIssue) + "\n")

	if in.KnowledgeExcerpt != "" {
		b.WriteString("\nAge-appropriate guidance to ground the plan in:\n")
		b.WriteString(in.KnowledgeExcerpt)
		b.WriteString("\n")
	}

	if in.OriginalText != "" {
		b.WriteString("\nThe parent's own words:\n\"" + in.OriginalText + "\"\n")
	}

	b.WriteString("\nOutput format, follow exactly:\n")
	b.WriteString("1. A short empathetic intro paragraph (2-3 sentences).\n")
	b.WriteString("2. The schedule section, per the rules below.\n")
	b.WriteString(`3. A "## Tips" section with 3-4 practical tips for the main concern.` + "\n")
	b.WriteString("Keep the whole document under 450 words.\n")

	b.WriteString("\nSchedule rules:\n")
	for _, rule := range structuralRules {
		b.WriteString("- " + rule + "\n")
	}

	return b.String()
}

// buildSocial is the compact single-turn rendering: same schedule rules,
// shorter framing, tighter length ceiling.
func buildSocial(in Inputs) string {
	var b strings.Builder

	b.WriteString("Write a short, friendly daily sleep schedule in markdown for a ")
	b.WriteString(ageLabel(in.Fields))
	b.WriteString(" who wakes at ")
	b.WriteString(clockLabel(in.Fields.WakeTime))
	b.WriteString(". Main concern: ")
	b.WriteString(issueLabel(in.Fields.MainIssue))
	b.WriteString(".\n")

	if in.KnowledgeExcerpt != "" {
		b.WriteString("\nGround it in this guidance:\n")
		b.WriteString(in.KnowledgeExcerpt)
		b.WriteString("\n")
	}

	b.WriteString("\nKeep it under 200 words. One intro sentence, then the schedule. Rules:\n")
	for _, rule := range structuralRules {
		b.WriteString("- " + rule + "\n")
	}

	return b.String()
}

// BuildRepair renders the one-shot repair request: the violated rules
// verbatim plus the offending draft.
func BuildRepair(draft string, ruleSummary string) string {
	var b strings.Builder
	b.WriteString("The schedule below breaks these rules:\n")
	b.WriteString(ruleSummary)
	b.WriteString("\n\nRewrite the full document so every rule holds. Keep the tone and content, change only what the rules require. Schedule rules:\n")
	for _, rule := range structuralRules {
		b.WriteString("- " + rule + "\n")
	}
	b.WriteString("\nDocument to fix:\n\n")
	b.WriteString(draft)
	return b.String()
}

func ageLabel(f fields.Extracted) string {
	if f.AgeMonths == nil {
		return "young child"
	}
	months := *f.AgeMonths
	if months >= 24 && months%12 == 0 {
		return fmt.Sprintf("%d year old", months/12)
	}
	return fmt.Sprintf("%d month old", months)
}

func clockLabel(t *string) string {
	if t == nil {
		return "07:00"
	}
	return *t
}

var issueLabels = map[string]string{
	fields.IssueNightWakings:      "frequent night wakings",
	fields.IssueShortNaps:         "short naps",
	fields.IssueEarlyRising:       "waking too early in the morning",
	fields.IssueBedtimeResistance: "resisting bedtime",
	fields.IssueFeedingToSleep:    "relying on feeding to fall asleep",
}

func issueLabel(issue *string) string {
	if issue == nil {
		return "establishing a consistent routine"
	}
	if label, ok := issueLabels[*issue]; ok {
		return label
	}
	return *issue
}
