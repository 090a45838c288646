package monitor

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BTreeMap/CommentPipe/internal/filter"
	"github.com/BTreeMap/CommentPipe/internal/models"
)

// Reporter receives monitor events. Report is called on the monitor's goroutine.
type Reporter interface {
	Report(e models.Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(e models.Event)

// Report calls f(e).
func (f ReporterFunc) Report(e models.Event) {
	f(e)
}

// NopReporter discards events.
type NopReporter struct{}

// Report does nothing.
func (NopReporter) Report(models.Event) {}

const (
	wideRule   = "============================================================"
	narrowRule = "--------------------------------------------------"
)

// ConsoleReporter prints human-readable progress lines.
type ConsoleReporter struct {
	w         io.Writer
	autoReply bool
	interval  time.Duration
}

// NewConsoleReporter writes to w. autoReply controls whether skipped replies are mentioned.
func NewConsoleReporter(w io.Writer, autoReply bool) *ConsoleReporter {
	return &ConsoleReporter{w: w, autoReply: autoReply}
}

// Report prints the lines for e.
func (r *ConsoleReporter) Report(e models.Event) {
	switch e.Kind {
	case models.EventMonitorStarted:
		r.interval = e.Duration
		r.printf("🎯 Starting to monitor post: %s\n", e.Target.URL)
		r.printf("🔄 Check interval: %d seconds\n", int(e.Duration.Seconds()))
		r.printf("%s\n", wideRule)

	case models.EventTargetResolved:
		if e.Target.Kind == models.MediaKindReel {
			r.printf("🎬 Detected: Instagram Reel\n")
		} else {
			r.printf("📝 Detected: Regular Post\n")
		}
		if e.Alternate {
			r.printf("✅ Alternative method worked! Media ID: %s\n", e.Target.MediaID)
		} else {
			r.printf("✅ Media ID found: %s\n", e.Target.MediaID)
		}
		r.printf("📥 Loading existing comments...\n")

	case models.EventResolveFailed:
		if e.Target.Shortcode == "" {
			r.printf("❌ Invalid Instagram URL format\n")
			r.printf("✅ Supported formats:\n")
			r.printf("   - Posts: https://www.instagram.com/p/ABC123/\n")
			r.printf("   - Reels: https://www.instagram.com/reel/ABC123/\n")
			return
		}
		r.printf("❌ Error extracting post ID: %v\n", e.Err)
		r.printf("🔗 URL provided: %s\n", e.Target.URL)
		r.printf("📝 Post code extracted: %s\n", e.Target.Shortcode)

	case models.EventBaselineLoaded:
		if e.Err != nil {
			r.printf("❌ Error getting comments: %v\n", e.Err)
		}
		r.printf("✅ Found %d existing comments\n", e.Count)
		r.printf("👀 Now monitoring for ALL comments (including missed ones)...\n")
		r.printf("%s\n", wideRule)

	case models.EventCheckStarted:
		r.printf("🔍 Checking for comments... [%s]\n", e.Time.Format("15:04:05"))

	case models.EventFirstCheck:
		r.printf("🏁 First check - processing all comments...\n")

	case models.EventNewComment:
		c := e.Comment
		r.printf("\n🔥 NEW COMMENT DETECTED!\n")
		r.printf("👤 User: @%s\n", c.Author)
		r.printf("💬 Comment: %s\n", c.Text)
		if c.CreatedAt != nil {
			r.printf("⏰ Time: %s\n", c.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		} else {
			r.printf("⏰ Time: Just now\n")
		}
		r.printf("📍 Comment ID: %s\n", c.ID)
		if !r.autoReply {
			r.printf("%s\n", narrowRule)
		}

	case models.EventReplySkipped:
		r.printf("⏭️ Skipped auto-reply (%s)\n", skipText(e.Reason))
		r.printf("%s\n", narrowRule)

	case models.EventReplyGenerated:
		r.printf("💡 Generated reply: %s\n", e.Reply)

	case models.EventReplyScheduled:
		r.printf("⏳ Waiting %d seconds before replying...\n", int(e.Duration.Seconds()))

	case models.EventReplySent:
		if e.Alternate {
			r.printf("✅ Alternative method worked!\n")
		}
		r.printf("✅ Successfully replied: %s\n", e.Reply)
		r.printf("✅ Auto-reply sent successfully!\n")
		r.printf("%s\n", narrowRule)

	case models.EventReplyFailed:
		r.printf("❌ Failed to reply: %v\n", e.Err)
		r.printf("❌ Auto-reply failed!\n")
		r.printf("%s\n", narrowRule)

	case models.EventReplyAbandoned:
		r.printf("🛑 Reply to %s abandoned\n", e.Comment.ID)

	case models.EventCycleSummary:
		if e.Count > 0 {
			r.printf("✨ Found %d new comment(s)!\n", e.Count)
		} else {
			r.printf("😴 No new comments...\n")
		}
		r.printf("⏳ Waiting %d seconds before next check...\n", int(r.interval.Seconds()))

	case models.EventPollError:
		r.printf("❌ Error during monitoring: %v\n", e.Err)
		r.printf("⏳ Waiting %d seconds before retry...\n", int(e.Duration.Seconds()))

	case models.EventMonitorStopped:
		r.printf("\n🛑 Monitoring stopped by user\n")
	}
}

func (r *ConsoleReporter) printf(format string, args ...any) {
	fmt.Fprintf(r.w, format, args...)
}

func skipText(reason string) string {
	switch reason {
	case filter.ReasonSelf:
		return "own comment"
	case filter.ReasonReplied:
		return "already replied"
	case filter.ReasonTooShort:
		return "too short"
	case filter.ReasonSpam:
		return "spam"
	case ReasonNoGenerator:
		return "no reply generator"
	default:
		return strings.ReplaceAll(reason, "_", " ")
	}
}
