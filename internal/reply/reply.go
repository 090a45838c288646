// Package reply generates short humorous replies to Instagram comments.
//
// Replies come from a language-model backend using a fixed desi-humor persona.
// When the backend is missing or fails, a canned reply is used instead, so
// Generate always returns something postable.
package reply

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/BTreeMap/CommentPipe/internal/genai"
	"github.com/BTreeMap/CommentPipe/internal/models"
	"github.com/BTreeMap/CommentPipe/internal/util"
)

// SystemPrompt is the persona sent as the system message.
const SystemPrompt = "You are a funny Pakistani/Indian Instagram comment bot that replies with humor and local slang."

const userPromptTemplate = `You are a Pakistani/Indian humor bot that replies to Instagram comments with witty, funny responses.

Rules for your response:
1. Keep it short (1-2 sentences max)
2. Use Pakistani/Indian slang and expressions naturally
3. Be friendly and humorous
4. Include relevant emojis
5. Sometimes use Urdu/Hindi words mixed with English
6. Be respectful and positive
7. Don't be offensive or inappropriate

Comment from @%s: "%s"

Generate a humorous reply:`

// cannedTemplates take the author handle as their only argument.
var cannedTemplates = []string{
	"@%s Arey bhai! Maza aa gaya! 😄",
	"Hahaha! %s ne dil jeet liya! 🤣",
	"@%s Comedy ka raja! 👑😂",
}

// Generator produces replies for comments.
type Generator struct {
	backend genai.Completer
	rng     *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source used for the mention coin flip and canned reply choice.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = r
	}
}

// NewGenerator creates a Generator. backend may be nil, in which case every reply is canned.
func NewGenerator(backend genai.Completer, opts ...Option) *Generator {
	g := &Generator{backend: backend}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = util.NewRand(0)
	}
	return g
}

// BuildUserPrompt returns the user prompt for a comment.
func BuildUserPrompt(commentText, author string) string {
	return fmt.Sprintf(userPromptTemplate, author, commentText)
}

// CannedReplies returns every canned reply for author.
func CannedReplies(author string) []string {
	out := make([]string, len(cannedTemplates))
	for i, tmpl := range cannedTemplates {
		out[i] = fmt.Sprintf(tmpl, author)
	}
	return out
}

// Generate returns a reply to commentText written by author. It never returns an empty string.
func (g *Generator) Generate(ctx context.Context, commentText, author string) string {
	text, err := g.generate(ctx, commentText, author)
	if err != nil {
		slog.Warn("Reply generation failed, using canned reply", "author", author, "error", err)
		return g.canned(author)
	}

	// Coin is drawn even when the reply already addresses the author so the
	// random sequence does not depend on model output.
	mention := g.rng.IntN(2) == 0
	if mention && !addresses(text, author) {
		text = "@" + author + " " + text
	}
	return text
}

func (g *Generator) generate(ctx context.Context, commentText, author string) (string, error) {
	if g.backend == nil {
		return "", fmt.Errorf("%w: no backend configured", models.ErrGeneration)
	}
	out, err := g.backend.Complete(ctx, SystemPrompt, BuildUserPrompt(commentText, author))
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrGeneration)
	}
	return out, nil
}

func (g *Generator) canned(author string) string {
	return fmt.Sprintf(cannedTemplates[g.rng.IntN(len(cannedTemplates))], author)
}

// addresses reports whether text already opens with an @mention of author.
func addresses(text, author string) bool {
	return strings.HasPrefix(strings.ToLower(text), "@"+strings.ToLower(author))
}
