// Package pipeline orchestrates one conversation turn: guard, extraction,
// merge, dialogue control, then generate → validate → repair when the slot
// set is resolved.
package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/napfox-dev/napfox/internal/dialog"
	"github.com/napfox-dev/napfox/internal/extract"
	"github.com/napfox-dev/napfox/internal/fields"
	"github.com/napfox-dev/napfox/internal/guard"
	"github.com/napfox-dev/napfox/internal/knowledge"
	"github.com/napfox-dev/napfox/internal/llm"
	"github.com/napfox-dev/napfox/internal/observability"
	"github.com/napfox-dev/napfox/internal/prompt"
	"github.com/napfox-dev/napfox/internal/schedule"
	metrics "github.com/napfox-dev/napfox/pkg/observability"
)

// Turn statuses.
const (
	StatusNeedsInfo = "needs_info"
	StatusComplete  = "complete"
	StatusError     = "error"
)

// GenerationFailedMessage is the user-facing text for a generation outage.
const GenerationFailedMessage = "I couldn't put the schedule together just now. Please try again in a moment."

// Message is one transcript entry. The transcript is client-held and
// round-tripped each turn; the pipeline never stores it.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// TurnRequest carries everything needed to process one turn.
type TurnRequest struct {
	Messages       []Message        `json:"messages"`
	SessionID      string           `json:"sessionId,omitempty"`
	Fields         fields.Extracted `json:"extractedFields,omitempty"`
	QuestionsAsked int              `json:"questionsAsked,omitempty"`
	Mode           string           `json:"outputMode,omitempty"` // "standard" or "social"
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	Status           string           `json:"status"`
	SessionID        string           `json:"sessionId,omitempty"`
	Fields           fields.Extracted `json:"extractedFields"`
	FollowUpQuestion string           `json:"followUpQuestion,omitempty"`
	QuickReplies     []string         `json:"quickReplies,omitempty"`
	QuestionsAsked   int              `json:"questionsAsked"`
	ScheduleMarkdown string           `json:"scheduleMarkdown,omitempty"`
	IntroMessage     string           `json:"introMessage,omitempty"`
	Error            string           `json:"error,omitempty"`
}

// Config holds the pipeline's timeouts and generation sampling settings.
type Config struct {
	GenerateTimeout time.Duration // primary generation call
	FallbackTimeout time.Duration // fast-instance fallback call
	RepairTimeout   time.Duration // single repair attempt
	ExtractTimeout  time.Duration // semantic extraction fallback
	ClassifyTimeout time.Duration // one-shot topic classification

	// Temperature and MaxTokens apply to the generation and repair calls.
	// The classifier and extractor pin their own sampling.
	Temperature float64
	MaxTokens   int
}

func (c *Config) applyDefaults() {
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 30 * time.Second
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = 15 * time.Second
	}
	if c.RepairTimeout <= 0 {
		c.RepairTimeout = 12 * time.Second
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 8 * time.Second
	}
	if c.ClassifyTimeout <= 0 {
		c.ClassifyTimeout = 5 * time.Second
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.4
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1200
	}
}

// Pipeline processes turns. It is stateless across turns: all session state
// arrives in the request and leaves in the result, so one Pipeline serves
// any number of concurrent sessions.
type Pipeline struct {
	fast     llm.Completer
	quality  llm.Completer
	guard    *guard.Guard
	semantic *extract.Semantic
	kb       *knowledge.Base
	cfg      Config
}

// New creates a pipeline. fast handles social mode, fallbacks, repair, the
// topic classifier and the semantic extractor; quality handles standard-mode
// generation.
func New(fast, quality llm.Completer, kb *knowledge.Base, cfg Config) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{
		fast:     fast,
		quality:  quality,
		guard:    guard.New(fast, cfg.ClassifyTimeout),
		semantic: extract.NewSemantic(fast, cfg.ExtractTimeout),
		kb:       kb,
		cfg:      cfg,
	}
}

// Turn processes one conversation turn to completion.
func (p *Pipeline) Turn(ctx context.Context, req TurnRequest) TurnResult {
	start := time.Now()
	mode := req.Mode
	if mode == "" {
		mode = dialog.ModeStandard
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.turn", map[string]any{
		"mode":            mode,
		"messages":        len(req.Messages),
		"questions_asked": req.QuestionsAsked,
	})
	defer span.End()

	result := p.turn(ctx, req, mode)
	metrics.RecordTurn(result.Status, mode, time.Since(start))
	return result
}

func (p *Pipeline) turn(ctx context.Context, req TurnRequest, mode string) TurnResult {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	userMessages := collectUserMessages(req.Messages)
	if len(userMessages) == 0 {
		return TurnResult{
			Status:    StatusError,
			SessionID: sessionID,
			Error:     "the request contained no user message",
		}
	}

	firstMessage := userMessages[0]
	latestMessage := userMessages[len(userMessages)-1]
	allUserText := strings.Join(userMessages, "\n")
	firstTurn := len(userMessages) == 1

	// Deterministic extraction over the full transcript, folded over the
	// client-supplied prior fields.
	merged := fields.Merge(req.Fields, extract.Deterministic(allUserText))

	// The guard always re-checks the original first message so a string of
	// accepted chips can't smuggle an off-topic opener through.
	if !p.guard.Check(ctx, firstMessage, merged.Confidence, firstTurn) {
		d := dialog.Next(merged, req.QuestionsAsked, mode, true)
		return TurnResult{
			Status:           StatusNeedsInfo,
			SessionID:        sessionID,
			Fields:           req.Fields,
			FollowUpQuestion: d.Message,
			QuestionsAsked:   d.QuestionsAsked,
		}
	}

	// Semantic fallback, best effort.
	if extract.ShouldRun(merged) {
		merged = fields.Merge(merged, p.semantic.Extract(ctx, allUserText))
	}

	// Chips only ever arrive in the latest message.
	merged = fields.Merge(merged, extract.ParseChipAnswer(latestMessage))

	d := dialog.Next(merged, req.QuestionsAsked, mode, false)
	switch d.State {
	case dialog.StateAwaitingAge, dialog.StateAwaitingWakeTime, dialog.StateAwaitingIssue:
		return TurnResult{
			Status:           StatusNeedsInfo,
			SessionID:        sessionID,
			Fields:           d.Fields,
			FollowUpQuestion: d.Question,
			QuickReplies:     d.QuickReplies,
			QuestionsAsked:   d.QuestionsAsked,
		}

	case dialog.StateFailed:
		return TurnResult{
			Status:    StatusError,
			SessionID: sessionID,
			Fields:    d.Fields,
			Error:     d.Message,
		}
	}

	return p.generate(ctx, sessionID, d, firstMessage, mode)
}

// generate runs the generate → validate → repair tail of the pipeline.
func (p *Pipeline) generate(ctx context.Context, sessionID string, d dialog.Decision, originalText, mode string) TurnResult {
	resolved := d.Fields

	issue := ""
	if resolved.MainIssue != nil {
		issue = *resolved.MainIssue
	}
	excerpt := p.kb.Excerpt(*resolved.AgeMonths, issue)

	promptText := prompt.Build(prompt.Inputs{
		Fields:           resolved,
		KnowledgeExcerpt: excerpt,
		OriginalText:     originalText,
		Mode:             mode,
	})

	draft, usedFallback, err := p.complete(ctx, promptText, mode)
	if err != nil {
		log.Printf("generation failed for session %s: %v", sessionID, err)
		return TurnResult{
			Status:    StatusError,
			SessionID: sessionID,
			Fields:    resolved,
			Error:     GenerationFailedMessage,
		}
	}

	issues := schedule.Validate(draft)
	metrics.RecordValidationIssues(len(issues))

	// One bounded repair attempt, and only when the primary path produced
	// the draft: a fallback draft already cost the user enough latency.
	if len(issues) > 0 && !usedFallback {
		draft = p.repair(ctx, draft, issues)
	}

	return TurnResult{
		Status:           StatusComplete,
		SessionID:        sessionID,
		Fields:           resolved,
		ScheduleMarkdown: draft,
		IntroMessage:     introMessage(resolved),
	}
}

// complete calls the mode-appropriate primary instance, falling back to the
// fast instance only in standard mode.
func (p *Pipeline) complete(ctx context.Context, promptText, mode string) (string, bool, error) {
	if mode == dialog.ModeSocial {
		text, err := p.call(ctx, p.fast, "generate", promptText, p.cfg.GenerateTimeout)
		return text, false, err
	}

	text, err := p.call(ctx, p.quality, "generate", promptText, p.cfg.GenerateTimeout)
	if err == nil {
		return text, false, nil
	}
	log.Printf("primary generation failed, falling back to %s: %v", p.fast.Name(), err)

	text, err = p.call(ctx, p.fast, "generate_fallback", promptText, p.cfg.FallbackTimeout)
	if err != nil {
		return "", true, err
	}
	return text, true, nil
}

// repair issues one re-generation seeded with the violated rules. The
// repaired draft replaces the original only when it validates clean;
// otherwise the original is surfaced uncorrected rather than blocking the
// user on self-correction.
func (p *Pipeline) repair(ctx context.Context, draft string, issues []schedule.Issue) string {
	repairPrompt := prompt.BuildRepair(draft, schedule.RuleSummary(issues))

	repaired, err := p.call(ctx, p.fast, "repair", repairPrompt, p.cfg.RepairTimeout)
	if err != nil {
		metrics.RecordRepair("failed")
		return draft
	}

	if len(schedule.Validate(repaired)) > 0 {
		metrics.RecordRepair("rejected")
		return draft
	}

	metrics.RecordRepair("accepted")
	return repaired
}

func (p *Pipeline) call(ctx context.Context, c llm.Completer, purpose, promptText string, timeout time.Duration) (string, error) {
	start := time.Now()
	text, err := llm.CompleteWithTimeout(ctx, c, promptText, timeout,
		llm.WithTemperature(p.cfg.Temperature),
		llm.WithMaxTokens(p.cfg.MaxTokens),
	)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordCapabilityCall(c.Name(), purpose, status, time.Since(start))

	return text, err
}

func collectUserMessages(messages []Message) []string {
	var out []string
	for _, m := range messages {
		if m.Role == "user" && strings.TrimSpace(m.Content) != "" {
			out = append(out, m.Content)
		}
	}
	return out
}

// introMessage composes the short lead-in shown above the schedule,
// surfacing any defaulted values so the user can correct them.
func introMessage(f fields.Extracted) string {
	var b strings.Builder
	b.WriteString("Here's a sleep plan tailored to your little one.")
	if len(f.Assumptions) > 0 {
		b.WriteString(" A couple of things I assumed: ")
		b.WriteString(strings.Join(f.Assumptions, "; "))
		b.WriteString(".")
	}
	return b.String()
}
