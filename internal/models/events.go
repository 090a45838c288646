package models

import "time"

// EventKind names something the monitor observed or did.
type EventKind string

const (
	EventMonitorStarted EventKind = "monitor_started"
	EventTargetResolved EventKind = "target_resolved"
	EventResolveFailed  EventKind = "resolve_failed"
	EventBaselineLoaded EventKind = "baseline_loaded"
	EventCheckStarted   EventKind = "check_started"
	EventFirstCheck     EventKind = "first_check"
	EventNewComment     EventKind = "new_comment"
	EventReplySkipped   EventKind = "reply_skipped"
	EventReplyGenerated EventKind = "reply_generated"
	EventReplyScheduled EventKind = "reply_scheduled"
	EventReplySent      EventKind = "reply_sent"
	EventReplyFailed    EventKind = "reply_failed"
	EventReplyAbandoned EventKind = "reply_abandoned"
	EventCycleSummary   EventKind = "cycle_summary"
	EventPollError      EventKind = "poll_error"
	EventMonitorStopped EventKind = "monitor_stopped"
)

// Event is a single progress notification from the monitor.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Time      time.Time
	Target    Target
	Comment   Comment
	Reply     string
	Reason    string        // why a reply was skipped
	Duration  time.Duration // poll interval, reply delay or cooldown
	Count     int           // comments in a baseline or new comments in a cycle
	Alternate bool          // the alternate resolution or posting path was used
	Err       error
}
