// Package player implements a view-independent controller for a single
// media playback session.
package player

import "errors"

// ErrMetadataUnavailable is reported when a bounded metadata wait expires.
var ErrMetadataUnavailable = errors.New("media metadata unavailable")

// State is the externally visible playback state.
type State string

const (
	StateClosed    State = "closed"
	StateLoading   State = "loading"
	StatePaused    State = "paused"
	StatePlaying   State = "playing"
	StateBuffering State = "buffering"
	StateEnded     State = "ended"
)

// Source describes the media item a session is opened with.
type Source struct {
	URI         string
	PosterURI   string
	Title       string
	Description string
}

// Session is a snapshot of an open (or closed) playback session.
type Session struct {
	SourceURI       string
	PosterURI       string
	Title           string
	Description     string
	Position        float64
	Duration        float64
	Volume          float64
	Muted           bool
	Playing         bool
	Loading         bool
	Buffering       bool
	ControlsVisible bool
	Fullscreen      bool
	State           State
}

// Backend is the capability surface of a media element. The controller calls
// it while holding its own lock, so implementations must deliver Events from
// their own goroutines and never from inside a Backend method.
type Backend interface {
	Load(source string, events Events) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(volume float64) error
	SetMuted(muted bool) error
	SetFullscreen(enabled bool) error
	Fullscreen() bool
	CurrentTime() float64
	Duration() float64
	Close() error
}

// Events are the asynchronous signals a Backend reports.
type Events interface {
	MetadataLoaded(duration float64)
	TimeUpdate(position float64)
	// Waiting reports a buffer underflow during playback.
	Waiting()
	// CanPlay reports that playable data is available again.
	CanPlay()
	Ended()
}
