// Package filter decides whether a comment should receive an automated reply.
package filter

import (
	"strings"
	"unicode/utf8"

	"github.com/BTreeMap/CommentPipe/internal/models"
	"github.com/BTreeMap/CommentPipe/internal/store"
)

// MinCommentLength is the minimum trimmed length, in characters, of a comment worth replying to.
const MinCommentLength = 3

// Reason values returned by Reason.
const (
	ReasonSelf     = "self"
	ReasonReplied  = "replied"
	ReasonTooShort = "too_short"
	ReasonSpam     = "spam"
)

// SpamKeywords are matched case-insensitively as substrings of the comment body.
var SpamKeywords = []string{"follow", "dm me", "check out", "link in bio", "visit my", "buy", "sale"}

// Eligible reports whether c should receive an automated reply.
func Eligible(c models.Comment, selfHandle string, replied *store.IDSet) bool {
	return Reason(c, selfHandle, replied) == ""
}

// Reason returns the first rule that makes c ineligible, or "" if c is eligible.
// Rules are checked in order: own comment, already replied, too short, spam.
// Handles compare case-insensitively.
func Reason(c models.Comment, selfHandle string, replied *store.IDSet) string {
	if selfHandle != "" && strings.EqualFold(c.Author, selfHandle) {
		return ReasonSelf
	}
	if replied.Has(c.ID) {
		return ReasonReplied
	}
	if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < MinCommentLength {
		return ReasonTooShort
	}
	if IsSpam(c.Text) {
		return ReasonSpam
	}
	return ""
}

// IsSpam reports whether text contains any of SpamKeywords.
func IsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range SpamKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
