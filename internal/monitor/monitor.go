// Package monitor watches one Instagram post or reel for new comments and, when
// auto-reply is enabled, answers eligible ones.
//
// A Monitor resolves the target URL, loads the existing comments as a baseline and
// then polls on a fixed interval. Everything runs on the caller's goroutine; sleeps
// and the random source are injectable so tests never wait on real time.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/BTreeMap/CommentPipe/internal/filter"
	"github.com/BTreeMap/CommentPipe/internal/instagram"
	"github.com/BTreeMap/CommentPipe/internal/models"
	"github.com/BTreeMap/CommentPipe/internal/store"
	"github.com/BTreeMap/CommentPipe/internal/util"
)

// Timing defaults.
const (
	DefaultInterval      = 30 * time.Second
	DefaultCooldown      = 60 * time.Second
	DefaultReplyDelayMin = 10 * time.Second
	DefaultReplyDelayMax = 30 * time.Second
)

// ReasonNoGenerator marks comments skipped because auto-reply has no generator.
const ReasonNoGenerator = "no_generator"

// ErrAlreadyStarted is returned when Run is called on a monitor that has already run.
var ErrAlreadyStarted = errors.New("monitor already started")

// Service is the part of the Instagram client the monitor needs.
type Service interface {
	MediaIDFromShortcode(code string) (string, error)
	MediaInfoByShortcode(ctx context.Context, code string) (instagram.MediaInfo, error)
	MediaComments(ctx context.Context, mediaID string) ([]models.Comment, error)
	MediaComment(ctx context.Context, mediaID, text, replyToCommentID string) (string, error)
}

// ReplyGenerator writes the text of an automatic reply. It must not return an empty string.
type ReplyGenerator interface {
	Generate(ctx context.Context, commentText, author string) string
}

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Opts holds configuration options for the monitor.
type Opts struct {
	Interval      time.Duration
	Cooldown      time.Duration
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
	AutoReply     bool
	SelfHandle    string
	Generator     ReplyGenerator
	Reporter      Reporter
	Sleeper       Sleeper
	Rand          *rand.Rand
	Now           func() time.Time
}

// Option defines a configuration option for the monitor.
type Option func(*Opts)

// WithInterval sets the pause between poll cycles. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(o *Opts) {
		if d > 0 {
			o.Interval = d
		}
	}
}

// WithCooldown sets the pause after a failed poll cycle.
func WithCooldown(d time.Duration) Option {
	return func(o *Opts) {
		if d > 0 {
			o.Cooldown = d
		}
	}
}

// WithReplyDelay sets the bounds of the random wait before each reply is posted.
func WithReplyDelay(min, max time.Duration) Option {
	return func(o *Opts) {
		o.ReplyDelayMin = min
		o.ReplyDelayMax = max
	}
}

// WithAutoReply enables replying through gen. A nil gen leaves auto-reply on but
// every new comment is reported as skipped.
func WithAutoReply(gen ReplyGenerator) Option {
	return func(o *Opts) {
		o.AutoReply = true
		o.Generator = gen
	}
}

// WithSelfHandle sets the monitoring account's handle so its own comments are never answered.
func WithSelfHandle(handle string) Option {
	return func(o *Opts) {
		o.SelfHandle = handle
	}
}

// WithReporter sets the event sink.
func WithReporter(r Reporter) Option {
	return func(o *Opts) {
		o.Reporter = r
	}
}

// WithSleeper replaces the blocking sleep used for intervals, cooldowns and reply delays.
func WithSleeper(s Sleeper) Option {
	return func(o *Opts) {
		o.Sleeper = s
	}
}

// WithRand sets the random source for reply delays.
func WithRand(r *rand.Rand) Option {
	return func(o *Opts) {
		o.Rand = r
	}
}

// WithClock sets the time source stamped on events.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Monitor polls one target. It is single-use: create a new Monitor for each run.
type Monitor struct {
	svc  Service
	opts Opts

	mu    sync.RWMutex
	state models.MonitorState

	target          models.Target
	baseline        *store.IDSet
	baselinePending bool
	seen            *store.IDSet
	replied         *store.IDSet
}

// New creates a monitor backed by svc.
func New(svc Service, opts ...Option) *Monitor {
	cfg := Opts{
		Interval:      DefaultInterval,
		Cooldown:      DefaultCooldown,
		ReplyDelayMin: DefaultReplyDelayMin,
		ReplyDelayMax: DefaultReplyDelayMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = NopReporter{}
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = SleepContext
	}
	if cfg.Rand == nil {
		cfg.Rand = util.NewRand(0)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	slog.Debug("Monitor options set",
		"interval", cfg.Interval, "cooldown", cfg.Cooldown,
		"reply_delay_min", cfg.ReplyDelayMin, "reply_delay_max", cfg.ReplyDelayMax,
		"auto_reply", cfg.AutoReply, "generator_set", cfg.Generator != nil, "self_handle", cfg.SelfHandle)

	return &Monitor{
		svc:      svc,
		opts:     cfg,
		state:    models.StateIdle,
		baseline: store.NewIDSet(),
		seen:     store.NewIDSet(),
		replied:  store.NewIDSet(),
	}
}

// State returns the monitor's current lifecycle state. Safe to call from any goroutine.
func (m *Monitor) State() models.MonitorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Monitor) setState(s models.MonitorState) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()
	slog.Debug("Monitor state changed", "from", prev, "to", s)
}

// Target returns the resolved target. It is zero until resolution succeeds.
func (m *Monitor) Target() models.Target {
	return m.target
}

// SeenCount returns how many comment ids have been marked seen.
func (m *Monitor) SeenCount() int {
	return m.seen.Len()
}

// Replied reports whether an automatic reply to commentID was posted in this run.
func (m *Monitor) Replied(commentID string) bool {
	return m.replied.Has(commentID)
}

// Run monitors the post or reel at rawURL until ctx is done.
//
// A URL that cannot be resolved fails with models.ErrTargetResolution and leaves
// the monitor FAILED. Errors while polling are reported and retried after the
// cooldown; they never end the run. Cancellation ends the run with a nil error.
func (m *Monitor) Run(ctx context.Context, rawURL string) error {
	m.mu.Lock()
	if m.state != models.StateIdle {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.state = models.StateResolvingTarget
	m.mu.Unlock()

	m.report(models.Event{Kind: models.EventMonitorStarted, Target: models.Target{URL: rawURL}, Duration: m.opts.Interval})

	target, alternate, err := m.resolve(ctx, rawURL)
	if err != nil {
		slog.Error("Monitor failed to resolve target", "url", rawURL, "error", err)
		m.report(models.Event{Kind: models.EventResolveFailed, Target: target, Err: err})
		m.setState(models.StateFailed)
		return err
	}
	m.target = target
	slog.Info("Monitor target resolved", "shortcode", target.Shortcode, "kind", target.Kind, "media_id", target.MediaID, "alternate", alternate)
	m.report(models.Event{Kind: models.EventTargetResolved, Target: target, Alternate: alternate})

	m.setState(models.StateInitialLoad)
	m.loadBaseline(ctx)

	m.setState(models.StatePolling)
	for ctx.Err() == nil {
		if err := m.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("Monitor poll cycle failed", "media_id", m.target.MediaID, "error", err, "cooldown", m.opts.Cooldown)
			m.report(models.Event{Kind: models.EventPollError, Err: err, Duration: m.opts.Cooldown})
			if m.opts.Sleeper(ctx, m.opts.Cooldown) != nil {
				break
			}
			continue
		}
		if m.opts.Sleeper(ctx, m.opts.Interval) != nil {
			break
		}
	}

	m.setState(models.StateStopped)
	slog.Info("Monitor stopped", "media_id", m.target.MediaID, "seen", m.seen.Len(), "replied", m.replied.Len())
	m.report(models.Event{Kind: models.EventMonitorStopped})
	return nil
}

// loadBaseline records the comments present before polling starts. They are only
// marked seen on the first poll cycle so comments arriving in between still count
// as new. A failed fetch leaves the baseline empty.
func (m *Monitor) loadBaseline(ctx context.Context) {
	comments, err := m.svc.MediaComments(ctx, m.target.MediaID)
	if err != nil {
		slog.Warn("Monitor initial load failed, starting with empty baseline", "media_id", m.target.MediaID, "error", err)
		comments = nil
	}
	for _, c := range comments {
		m.baseline.Add(c.ID)
	}
	m.baselinePending = true
	slog.Info("Monitor baseline loaded", "media_id", m.target.MediaID, "count", m.baseline.Len())
	m.report(models.Event{Kind: models.EventBaselineLoaded, Count: m.baseline.Len(), Err: err})
}

// pollOnce runs one fetch, diff and reply cycle. A returned error means the cycle
// was cut short; it wraps models.ErrTransientService unless ctx was cancelled.
func (m *Monitor) pollOnce(ctx context.Context) error {
	m.report(models.Event{Kind: models.EventCheckStarted})

	comments, err := m.svc.MediaComments(ctx, m.target.MediaID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: fetching comments: %w", models.ErrTransientService, err)
	}

	if m.baselinePending {
		m.baselinePending = false
		marked := 0
		for _, c := range comments {
			if m.baseline.Has(c.ID) && m.seen.Add(c.ID) {
				marked++
			}
		}
		slog.Debug("Monitor first check marked baseline comments seen", "media_id", m.target.MediaID, "marked", marked)
		m.report(models.Event{Kind: models.EventFirstCheck, Count: marked})
	}

	found := 0
	for _, c := range comments {
		if !m.seen.Add(c.ID) {
			continue
		}
		found++
		slog.Info("New comment", "media_id", m.target.MediaID, "comment_id", c.ID, "author", c.Author)
		m.report(models.Event{Kind: models.EventNewComment, Comment: c})

		if err := m.handleComment(ctx, c); err != nil {
			return err
		}
	}

	m.report(models.Event{Kind: models.EventCycleSummary, Count: found})
	return nil
}

// handleComment replies to a new comment when auto-reply allows it. It only fails
// when ctx is cancelled mid-reply.
func (m *Monitor) handleComment(ctx context.Context, c models.Comment) error {
	if !m.opts.AutoReply {
		return nil
	}
	reason := filter.Reason(c, m.opts.SelfHandle, m.replied)
	if m.opts.Generator == nil && reason == "" {
		reason = ReasonNoGenerator
	}
	if reason != "" {
		slog.Debug("Skipping auto-reply", "comment_id", c.ID, "reason", reason)
		m.report(models.Event{Kind: models.EventReplySkipped, Comment: c, Reason: reason})
		return nil
	}

	text := m.opts.Generator.Generate(ctx, c.Text, c.Author)
	m.report(models.Event{Kind: models.EventReplyGenerated, Comment: c, Reply: text})
	return m.postReply(ctx, c, text)
}

// postReply waits a human-looking delay, then posts text as a threaded reply,
// falling back once to a top-level comment.
func (m *Monitor) postReply(ctx context.Context, c models.Comment, text string) error {
	delay := util.UniformSeconds(m.opts.Rand, m.opts.ReplyDelayMin, m.opts.ReplyDelayMax)
	m.report(models.Event{Kind: models.EventReplyScheduled, Comment: c, Duration: delay})
	if err := m.opts.Sleeper(ctx, delay); err != nil {
		slog.Info("Reply abandoned", "comment_id", c.ID, "error", err)
		m.report(models.Event{Kind: models.EventReplyAbandoned, Comment: c, Err: err})
		return err
	}

	mediaID := m.target.MediaID
	replyID, err := m.svc.MediaComment(ctx, mediaID, text, c.ID)
	alternate := false
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("Threaded reply failed, trying top-level comment", "media_id", mediaID, "comment_id", c.ID, "error", err)
		var altErr error
		replyID, altErr = m.svc.MediaComment(ctx, mediaID, "@"+text, "")
		if altErr != nil {
			failure := fmt.Errorf("%w: posting reply: %w", models.ErrTransientService, errors.Join(err, altErr))
			slog.Error("Reply failed", "media_id", mediaID, "comment_id", c.ID, "error", failure)
			m.report(models.Event{Kind: models.EventReplyFailed, Comment: c, Reply: text, Err: failure})
			return nil
		}
		alternate = true
	}

	m.replied.Add(c.ID)
	slog.Info("Reply posted", "media_id", mediaID, "comment_id", c.ID, "reply_id", replyID, "alternate", alternate)
	m.report(models.Event{Kind: models.EventReplySent, Comment: c, Reply: text, Alternate: alternate})
	return nil
}

func (m *Monitor) report(e models.Event) {
	e.Time = m.opts.Now()
	m.opts.Reporter.Report(e)
}
