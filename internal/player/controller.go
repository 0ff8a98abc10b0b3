package player

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gizzletv/client/internal/logging"
	"github.com/gizzletv/client/internal/timer"
)

const (
	// ControlsHideDelay is how long controls stay visible after the last
	// pointer activity while playing.
	ControlsHideDelay = 3 * time.Second
	// SkipSeconds is the arrow-key seek step.
	SkipSeconds = 10.0
)

// Options configures a Controller. Callbacks are optional and invoked without
// the controller's lock held. OnChange calls are serialized and never deliver
// a snapshot older than one already delivered, so OnChange must not call a
// controller method that changes state.
type Options struct {
	Clock  clockwork.Clock
	Logger *slog.Logger

	OnChange  func(Session)
	OnClose   func()
	OnFailure func(error)

	// MetadataTimeout bounds the wait for duration metadata after Open. Zero
	// waits indefinitely.
	MetadataTimeout time.Duration
}

// Controller owns one playback session at a time and translates commands and
// backend signals into state transitions. Methods never return errors:
// backend failures are logged and leave the state unchanged.
type Controller struct {
	backend Backend
	logger  *slog.Logger
	opts    Options

	mu              sync.Mutex
	open            bool
	source          Source
	position        float64
	duration        float64
	volume          float64
	lastVolume      float64
	muted           bool
	playing         bool
	loading         bool
	buffering       bool
	ended           bool
	controlsVisible bool
	fullscreen      bool
	span            *logging.Span

	hide     *timer.Handle
	metadata *timer.Handle

	commits   uint64
	publishMu sync.Mutex
	published uint64
}

var _ Events = (*Controller)(nil)

// NewController returns a closed controller driving backend.
func NewController(backend Backend, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		backend:    backend,
		logger:     opts.Logger,
		opts:       opts,
		volume:     1,
		lastVolume: 1,
		hide:       timer.New(opts.Clock),
		metadata:   timer.New(opts.Clock),
	}
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// State returns the current playback state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Open resets the controller into Loading for src, whatever its prior state.
func (c *Controller) Open(src Source) {
	c.mu.Lock()
	c.hide.Stop()
	c.metadata.Stop()
	if c.open && c.playing {
		if err := c.backend.Pause(); err != nil {
			c.logger.Debug("pause previous source", "error", err)
		}
	}
	c.span.End()

	_, span := logging.StartSpan(logging.WithLogger(context.Background(), c.opts.Logger), "playback")
	c.span = span
	c.logger = span.Logger()

	c.open = true
	c.source = src
	c.position = 0
	c.duration = 0
	c.playing = false
	c.buffering = false
	c.ended = false
	c.loading = true
	c.controlsVisible = true

	c.logger.Info("opening media", "source", src.URI, "title", src.Title)
	if err := c.backend.Load(src.URI, c); err != nil {
		c.logger.Warn("media load failed", "source", src.URI, "error", err)
	}
	if c.opts.MetadataTimeout > 0 {
		c.metadata.Reset(c.opts.MetadataTimeout, c.metadataExpired)
	}
	c.commitLocked()
}

// TogglePlay flips between playing and paused. It does nothing while closed
// or loading.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	if !c.open || c.loading {
		c.mu.Unlock()
		return
	}
	if c.playing {
		c.pauseLocked()
	} else {
		c.playLocked()
	}
	c.commitLocked()
}

// Seek moves to fraction of the duration, clamped to [0, 1]. Without a known
// duration it does nothing.
func (c *Controller) Seek(fraction float64) {
	c.mu.Lock()
	if !c.open || c.duration <= 0 || math.IsNaN(fraction) {
		c.mu.Unlock()
		return
	}
	c.seekLocked(clamp(fraction, 0, 1) * c.duration)
	c.commitLocked()
}

// Skip seeks relative to the current position, clamped to [0, duration].
func (c *Controller) Skip(deltaSeconds float64) {
	c.mu.Lock()
	if !c.open || c.duration <= 0 || math.IsNaN(deltaSeconds) {
		c.mu.Unlock()
		return
	}
	c.seekLocked(c.position + deltaSeconds)
	c.commitLocked()
}

// SetVolume clamps v to [0, 1]; a volume of zero mutes.
func (c *Controller) SetVolume(v float64) {
	if math.IsNaN(v) {
		return
	}
	c.mu.Lock()
	v = clamp(v, 0, 1)
	c.volume = v
	c.muted = v == 0
	if v > 0 {
		c.lastVolume = v
	}
	if err := c.backend.SetVolume(v); err != nil {
		c.logger.Debug("set volume", "error", err)
	}
	if err := c.backend.SetMuted(c.muted); err != nil {
		c.logger.Debug("set muted", "error", err)
	}
	c.commitLocked()
}

// ToggleMute mutes, or unmutes restoring the last audible volume.
func (c *Controller) ToggleMute() {
	c.mu.Lock()
	if c.muted {
		c.muted = false
		if c.volume == 0 {
			c.volume = c.lastVolume
			if err := c.backend.SetVolume(c.volume); err != nil {
				c.logger.Debug("restore volume", "error", err)
			}
		}
	} else {
		c.muted = true
	}
	if err := c.backend.SetMuted(c.muted); err != nil {
		c.logger.Debug("set muted", "error", err)
	}
	c.commitLocked()
}

// ToggleFullscreen requests the opposite presentation. The session reflects
// what the backend reports, so a refused request changes nothing.
func (c *Controller) ToggleFullscreen() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	if err := c.backend.SetFullscreen(!c.fullscreen); err != nil {
		c.logger.Debug("fullscreen request refused", "enable", !c.fullscreen, "error", err)
		c.mu.Unlock()
		return
	}
	c.fullscreen = c.backend.Fullscreen()
	c.commitLocked()
}

// Activity records pointer movement over the player: controls are shown and
// the hide countdown restarts from zero.
func (c *Controller) Activity() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.controlsVisible = true
	c.scheduleHideLocked()
	c.commitLocked()
}

// HandleKey applies a keyboard binding. It reports whether the key was
// consumed, in which case the caller should suppress its default action.
// While closed every key is ignored.
func (c *Controller) HandleKey(key Key) bool {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		return false
	}

	switch key {
	case KeySpace:
		c.TogglePlay()
	case KeyLeft:
		c.Skip(-SkipSeconds)
	case KeyRight:
		c.Skip(SkipSeconds)
	case KeyM:
		c.ToggleMute()
	case KeyF:
		c.ToggleFullscreen()
	case KeyEscape:
		c.Close()
	default:
		return false
	}
	return true
}

// Close releases the session and notifies OnClose. Closing a closed
// controller does nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.hide.Stop()
	c.metadata.Stop()

	if c.fullscreen {
		if err := c.backend.SetFullscreen(false); err != nil {
			c.logger.Debug("exit fullscreen", "error", err)
		}
		c.fullscreen = c.backend.Fullscreen()
	}
	if err := c.backend.Close(); err != nil {
		c.logger.Warn("close media backend", "error", err)
	}

	c.open = false
	c.source = Source{}
	c.position = 0
	c.duration = 0
	c.playing = false
	c.loading = false
	c.buffering = false
	c.ended = false
	c.controlsVisible = false
	c.logger.Info("player closed")
	c.span.End()
	c.span = nil
	c.logger = c.opts.Logger
	c.commitLocked()

	if c.opts.OnClose != nil {
		c.opts.OnClose()
	}
}

// MetadataLoaded implements Events.
func (c *Controller) MetadataLoaded(duration float64) {
	c.mu.Lock()
	if !c.open || math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		c.mu.Unlock()
		return
	}
	c.duration = duration
	c.position = clamp(c.position, 0, duration)
	if c.loading {
		c.loading = false
		c.metadata.Stop()
		c.logger.Info("media ready", "duration", duration)
	}
	c.commitLocked()
}

// TimeUpdate implements Events. The position is read back from the backend:
// the reported value may have been captured before a seek that has since
// been applied.
func (c *Controller) TimeUpdate(position float64) {
	c.mu.Lock()
	if !c.open || c.loading || math.IsNaN(position) {
		c.mu.Unlock()
		return
	}
	current := c.backend.CurrentTime()
	if math.IsNaN(current) {
		c.mu.Unlock()
		return
	}
	if current != position {
		c.logger.Debug("superseded time update", "reported", position, "current", current)
	}
	c.position = clamp(current, 0, c.duration)
	if c.playing && c.position >= c.duration {
		c.endLocked()
	}
	c.commitLocked()
}

// Waiting implements Events.
func (c *Controller) Waiting() {
	c.mu.Lock()
	if !c.open || c.loading || c.ended || c.buffering {
		c.mu.Unlock()
		return
	}
	c.buffering = true
	c.commitLocked()
}

// CanPlay implements Events.
func (c *Controller) CanPlay() {
	c.mu.Lock()
	if !c.open || !c.buffering {
		c.mu.Unlock()
		return
	}
	c.buffering = false
	c.commitLocked()
}

// Ended implements Events. An end that a seek back has already superseded
// is dropped, and playback resumes if it was still wanted.
func (c *Controller) Ended() {
	c.mu.Lock()
	if !c.open || c.loading || c.ended {
		c.mu.Unlock()
		return
	}
	if current := c.backend.CurrentTime(); current < c.duration {
		c.logger.Debug("superseded end of media", "current", current, "duration", c.duration)
		if c.playing {
			if err := c.backend.Play(); err != nil {
				c.logger.Debug("resume after superseded end", "error", err)
			}
		}
		c.mu.Unlock()
		return
	}
	c.endLocked()
	c.commitLocked()
}

func (c *Controller) playLocked() {
	if c.ended {
		if err := c.backend.Seek(0); err != nil {
			c.logger.Debug("rewind before replay", "error", err)
		} else {
			c.position = 0
		}
		c.ended = false
	}
	if err := c.backend.Play(); err != nil {
		c.logger.Debug("playback start refused", "error", err)
		return
	}
	c.playing = true
	c.scheduleHideLocked()
}

func (c *Controller) pauseLocked() {
	if err := c.backend.Pause(); err != nil {
		c.logger.Debug("pause", "error", err)
	}
	c.playing = false
	c.controlsVisible = true
	c.hide.Stop()
}

func (c *Controller) seekLocked(target float64) {
	target = clamp(target, 0, c.duration)
	if err := c.backend.Seek(target); err != nil {
		c.logger.Debug("seek", "target", target, "error", err)
		return
	}
	c.position = target
	if c.ended && target < c.duration {
		c.ended = false
	}
}

func (c *Controller) endLocked() {
	c.playing = false
	c.buffering = false
	c.ended = true
	c.position = c.duration
	c.controlsVisible = true
	c.hide.Stop()
}

func (c *Controller) scheduleHideLocked() {
	c.hide.Reset(ControlsHideDelay, c.hideControls)
}

func (c *Controller) hideControls(token uint64) {
	c.mu.Lock()
	if !c.open || !c.hide.Current(token) || !c.playing || !c.controlsVisible {
		c.mu.Unlock()
		return
	}
	c.controlsVisible = false
	c.commitLocked()
}

func (c *Controller) metadataExpired(token uint64) {
	c.mu.Lock()
	if !c.open || !c.loading || !c.metadata.Current(token) {
		c.mu.Unlock()
		return
	}
	c.logger.Warn("media metadata did not arrive", "source", c.source.URI, "timeout", c.opts.MetadataTimeout)
	c.mu.Unlock()

	if c.opts.OnFailure != nil {
		c.opts.OnFailure(ErrMetadataUnavailable)
	}
}

// commitLocked releases the lock and publishes the new snapshot unless a
// later commit has been published first.
func (c *Controller) commitLocked() {
	c.commits++
	seq := c.commits
	s := c.snapshotLocked()
	c.mu.Unlock()

	if c.opts.OnChange == nil {
		return
	}
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if seq <= c.published {
		return
	}
	c.published = seq
	c.opts.OnChange(s)
}

func (c *Controller) stateLocked() State {
	switch {
	case !c.open:
		return StateClosed
	case c.loading:
		return StateLoading
	case c.buffering:
		return StateBuffering
	case c.ended:
		return StateEnded
	case c.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (c *Controller) snapshotLocked() Session {
	return Session{
		SourceURI:       c.source.URI,
		PosterURI:       c.source.PosterURI,
		Title:           c.source.Title,
		Description:     c.source.Description,
		Position:        c.position,
		Duration:        c.duration,
		Volume:          c.volume,
		Muted:           c.muted,
		Playing:         c.playing,
		Loading:         c.loading,
		Buffering:       c.buffering,
		ControlsVisible: c.controlsVisible,
		Fullscreen:      c.fullscreen,
		State:           c.stateLocked(),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
