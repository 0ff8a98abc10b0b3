package media

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gizzletv/client/internal/player"
)

// DefaultTickInterval is how often a playing HeadlessBackend reports its
// position.
const DefaultTickInterval = 250 * time.Millisecond

// HeadlessBackend is a player.Backend without a renderer. It learns the
// duration from a Provider and advances the position with the clock, which
// is enough to drive a controller from a terminal. Events are delivered from
// the backend's own goroutines.
type HeadlessBackend struct {
	provider Provider
	clock    clockwork.Clock
	tick     time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	gen      uint64
	events   player.Events
	cancel   context.CancelFunc
	stopTick chan struct{}
	duration float64
	position float64
	playing  bool
	volume   float64
	muted    bool
}

var _ player.Backend = (*HeadlessBackend)(nil)

// BackendOptions configures a HeadlessBackend.
type BackendOptions struct {
	Clock        clockwork.Clock
	TickInterval time.Duration
	Logger       *slog.Logger
}

// NewHeadlessBackend returns a backend probing sources through provider.
func NewHeadlessBackend(provider Provider, opts BackendOptions) *HeadlessBackend {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &HeadlessBackend{
		provider: provider,
		clock:    opts.Clock,
		tick:     opts.TickInterval,
		logger:   opts.Logger,
		volume:   1,
	}
}

// Load discards the current source and probes the new one asynchronously.
func (b *HeadlessBackend) Load(source string, events player.Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetLocked()
	b.events = events
	if source == "" {
		return ErrNoSource
	}
	if b.provider == nil {
		return ErrProviderUnavailable
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.probe(ctx, b.gen, source)
	return nil
}

func (b *HeadlessBackend) probe(ctx context.Context, gen uint64, source string) {
	meta, err := b.provider.Probe(ctx, source)
	if err != nil {
		if ctx.Err() == nil {
			b.logger.Warn("probe media", "source", source, "error", err)
		}
		return
	}

	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.duration = meta.Duration
	events := b.events
	b.mu.Unlock()

	b.logger.Debug("media probed", "source", source, "duration", meta.Duration, "width", meta.Width, "height", meta.Height)
	if events != nil {
		events.MetadataLoaded(meta.Duration)
	}
}

// Play starts advancing the position.
func (b *HeadlessBackend) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.duration <= 0 {
		return ErrNotLoaded
	}
	if b.playing {
		return nil
	}
	if b.position >= b.duration {
		b.position = 0
	}
	b.playing = true
	stop := make(chan struct{})
	b.stopTick = stop
	go b.run(b.gen, stop, b.clock.NewTicker(b.tick), b.clock.Now())
	return nil
}

func (b *HeadlessBackend) run(gen uint64, stop chan struct{}, ticker clockwork.Ticker, last time.Time) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
		}

		now := b.clock.Now()
		b.mu.Lock()
		if gen != b.gen || !b.playing || b.stopTick != stop {
			b.mu.Unlock()
			return
		}
		b.position = math.Min(b.duration, b.position+now.Sub(last).Seconds())
		last = now
		position := b.position
		ended := position >= b.duration
		if ended {
			b.stopLocked()
		}
		events := b.events
		b.mu.Unlock()

		if events == nil {
			continue
		}
		events.TimeUpdate(position)
		if ended {
			events.Ended()
			return
		}
	}
}

// Pause stops advancing the position.
func (b *HeadlessBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	return nil
}

// Seek moves the position, clamped to the duration.
func (b *HeadlessBackend) Seek(seconds float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.duration <= 0 {
		return ErrNotLoaded
	}
	b.position = math.Max(0, math.Min(b.duration, seconds))
	return nil
}

// SetVolume records the volume; there is no audio output.
func (b *HeadlessBackend) SetVolume(volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = volume
	return nil
}

// SetMuted records the mute flag.
func (b *HeadlessBackend) SetMuted(muted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.muted = muted
	return nil
}

// SetFullscreen refuses to enter fullscreen; leaving it always succeeds.
func (b *HeadlessBackend) SetFullscreen(enabled bool) error {
	if enabled {
		return ErrFullscreenUnsupported
	}
	return nil
}

// Fullscreen always reports false.
func (b *HeadlessBackend) Fullscreen() bool { return false }

// CurrentTime returns the position in seconds.
func (b *HeadlessBackend) CurrentTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position
}

// Duration returns the probed duration, or 0 before metadata arrives.
func (b *HeadlessBackend) Duration() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duration
}

// Close stops playback and abandons any pending probe.
func (b *HeadlessBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	b.events = nil
	return nil
}

func (b *HeadlessBackend) resetLocked() {
	b.gen++
	b.stopLocked()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.duration = 0
	b.position = 0
}

func (b *HeadlessBackend) stopLocked() {
	b.playing = false
	if b.stopTick != nil {
		close(b.stopTick)
		b.stopTick = nil
	}
}
