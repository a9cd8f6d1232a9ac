// Package qualify decides whether a listing is an actionable short sale.
package qualify

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/pkg/anthropic"
)

const systemPrompt = "You screen real-estate listing descriptions for active short sales. " +
	"Answer with a single word, YES or NO."

const userPrompt = "Return YES if the following listing text indicates the property is an " +
	"active short sale: it mentions 'short sale' (case-insensitive) and does NOT contain any " +
	"of: approved, negotiator, settlement fee, fee at closing. Otherwise return NO.\n\n"

// Filter classifies listing descriptions through Claude.
type Filter struct {
	ai       anthropic.Client
	model    string
	maxChars int
}

// New creates a qualification filter. maxChars bounds how much listing
// text is sent to the classifier.
func New(ai anthropic.Client, model string, maxChars int) *Filter {
	if maxChars <= 0 {
		maxChars = 3500
	}
	return &Filter{ai: ai, model: model, maxChars: maxChars}
}

// Qualifies reports whether the description passes the short-sale screen.
// Anything other than an unambiguous YES rejects, including classifier
// transport failures. A rejection is never retried within the batch.
func (f *Filter) Qualifies(ctx context.Context, listingID, description string) bool {
	text := strings.TrimSpace(description)
	if text == "" {
		return false
	}
	text = truncate(text, f.maxChars)

	resp, err := f.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     f.model,
		MaxTokens: 4,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: userPrompt + text}},
	})
	if err != nil {
		zap.L().Warn("classifier request failed, rejecting listing",
			zap.String("listing_id", listingID),
			zap.Error(err))
		return false
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.FirstText()))
	if answer == "" {
		zap.L().Warn("classifier returned empty response, rejecting listing",
			zap.String("listing_id", listingID))
		return false
	}

	return strings.HasPrefix(answer, "YES")
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
