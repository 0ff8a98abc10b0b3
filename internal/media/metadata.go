package media

import "context"

// Metadata captures the stream properties a player needs before playback.
type Metadata struct {
	// Duration is in seconds.
	Duration float64
	Width    int
	Height   int
	HasVideo bool
	HasAudio bool
}

// Provider returns metadata for the supplied media URI.
type Provider interface {
	Probe(ctx context.Context, uri string) (Metadata, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, uri string) (Metadata, error)

// Probe implements Provider.
func (f ProviderFunc) Probe(ctx context.Context, uri string) (Metadata, error) {
	return f(ctx, uri)
}
