// Package models defines the core data structures for CommentPipe.
//
// It includes the comment and target types shared by the Instagram client, the
// reply filter and the monitor, plus the error taxonomy used across modules.
package models

import (
	"errors"
	"time"
)

// MediaKind identifies which URL form a monitored target was given in.
type MediaKind string

const (
	// MediaKindPost is a regular feed post (https://www.instagram.com/p/CODE/).
	MediaKindPost MediaKind = "post"
	// MediaKindReel is a reel (https://www.instagram.com/reel/CODE/).
	MediaKindReel MediaKind = "reel"
)

// Error variables for the error taxonomy. Callers match them with errors.Is.
var (
	// ErrAuthentication covers invalid credentials and failed step-up verification. Fatal.
	ErrAuthentication = errors.New("authentication failed")
	// ErrTargetResolution covers malformed URLs and unresolvable short codes. Fatal.
	ErrTargetResolution = errors.New("target resolution failed")
	// ErrTransientService covers network, timeout and rate-limit failures while polling or posting.
	ErrTransientService = errors.New("transient service error")
	// ErrGeneration covers any failure of the text-generation backend.
	ErrGeneration = errors.New("generation service error")
)

// Comment is a comment fetched from the social-media service.
// It is treated as immutable once fetched.
type Comment struct {
	ID        string     `json:"id"`
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	CreatedAt *time.Time `json:"created_at,omitempty"` // best-effort, nil when the service omits it
}

// Target is the post or reel being monitored.
type Target struct {
	URL       string    `json:"url"`
	Shortcode string    `json:"shortcode"`
	Kind      MediaKind `json:"kind"`
	MediaID   string    `json:"media_id"`
}
