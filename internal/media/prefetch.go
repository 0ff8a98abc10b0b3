package media

import (
	"context"
	"log/slog"
	"sync"
)

// PrefetchResult is the outcome of probing one URI.
type PrefetchResult struct {
	URI      string
	Metadata Metadata
	Err      error
}

// PrefetcherConfig controls the concurrency characteristics of the prefetcher.
type PrefetcherConfig struct {
	QueueSize int
	Workers   int
}

// Prefetcher probes queued URIs on a bounded worker pool, warming whatever
// cache sits behind its Provider.
type Prefetcher struct {
	provider Provider
	onResult func(PrefetchResult)
	logger   *slog.Logger

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPrefetcher starts the worker pool. onResult may be nil and is called
// from worker goroutines.
func NewPrefetcher(provider Provider, cfg PrefetcherConfig, onResult func(PrefetchResult), logger *slog.Logger) *Prefetcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Prefetcher{
		provider: provider,
		onResult: onResult,
		logger:   logger,
		jobs:     make(chan string, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// Enqueue schedules a probe of uri, blocking while the queue is full.
func (p *Prefetcher) Enqueue(ctx context.Context, uri string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPrefetcherClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPrefetcherClosed
	case p.jobs <- uri:
		return nil
	}
}

// Shutdown stops accepting work and waits for queued probes to finish. When
// ctx expires first, in-flight probes are cancelled.
func (p *Prefetcher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	case <-done:
		p.cancel()
		return nil
	}
}

func (p *Prefetcher) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case uri, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handle(uri)
		}
	}
}

func (p *Prefetcher) handle(uri string) {
	result := PrefetchResult{URI: uri}
	if p.provider == nil {
		result.Err = ErrProviderUnavailable
	} else {
		result.Metadata, result.Err = p.provider.Probe(p.ctx, uri)
	}
	if result.Err != nil {
		p.logger.Warn("metadata prefetch failed", "uri", uri, "error", result.Err)
	}
	if p.onResult != nil {
		p.onResult(result)
	}
}
