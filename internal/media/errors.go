package media

import "errors"

var (
	// ErrProviderUnavailable indicates the metadata provider is not configured.
	ErrProviderUnavailable = errors.New("media metadata provider unavailable")
	// ErrNoDuration indicates the probed media reports no usable duration.
	ErrNoDuration = errors.New("media has no duration")
	// ErrNoSource indicates Load was called with an empty source.
	ErrNoSource = errors.New("media source is empty")
	// ErrNotLoaded indicates a playback command arrived before metadata.
	ErrNotLoaded = errors.New("media not loaded")
	// ErrFullscreenUnsupported indicates the backend cannot present fullscreen.
	ErrFullscreenUnsupported = errors.New("fullscreen not supported")
	// ErrPrefetcherClosed indicates Enqueue was called after Shutdown.
	ErrPrefetcherClosed = errors.New("metadata prefetcher closed")
)
