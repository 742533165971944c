package security

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input hygiene limits for the turn endpoint. A transcript that blows past
// these is either a client bug or abuse, never a legitimate conversation.
const (
	DefaultMaxMessageLength = 4000
	DefaultMaxMessages      = 40
)

// InputValidator bounds the size and shape of inbound transcripts before
// they reach the pipeline.
type InputValidator struct {
	maxMessageLength int
	maxMessages      int
}

// NewInputValidator creates a validator with the given limits.
// Non-positive limits fall back to the defaults.
func NewInputValidator(maxMessageLength, maxMessages int) *InputValidator {
	if maxMessageLength <= 0 {
		maxMessageLength = DefaultMaxMessageLength
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &InputValidator{
		maxMessageLength: maxMessageLength,
		maxMessages:      maxMessages,
	}
}

// ValidateTranscript checks message count and each message's content.
func (v *InputValidator) ValidateTranscript(contents []string) error {
	if len(contents) > v.maxMessages {
		return fmt.Errorf("transcript has %d messages, limit is %d", len(contents), v.maxMessages)
	}
	for i, content := range contents {
		if err := v.ValidateMessage(content); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ValidateMessage checks a single message body.
func (v *InputValidator) ValidateMessage(content string) error {
	if len(content) > v.maxMessageLength {
		return fmt.Errorf("message length %d exceeds limit %d", len(content), v.maxMessageLength)
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("message contains invalid UTF-8")
	}
	if strings.ContainsRune(content, '\x00') {
		return fmt.Errorf("message contains null bytes")
	}
	return nil
}
