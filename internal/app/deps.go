package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/gizzletv/client/internal/config"
	"github.com/gizzletv/client/internal/content"
	"github.com/gizzletv/client/internal/media"
	"github.com/gizzletv/client/internal/middleware"
	"github.com/gizzletv/client/internal/storage"
	"github.com/gizzletv/client/internal/upload"
)

// dependencies are the concrete collaborators shared by the commands.
type dependencies struct {
	cfg     config.Config
	logger  *slog.Logger
	clock   clockwork.Clock
	content *content.Client
	uploads upload.Transport
	prober  media.Provider
}

// buildDependencies wires together concrete implementations used by the commands.
func buildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger) (*dependencies, error) {
	clock := clockwork.NewRealClock()
	limiter := middleware.NewHostRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 0).WithClock(clock)
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: middleware.Chain(http.DefaultTransport,
			middleware.RequestLogger(logger),
			middleware.RateLimit(limiter),
		),
	}
	client := content.NewClient(cfg.APIURL, httpClient, logger)

	var transport upload.Transport = client
	if cfg.UploadTransport == config.TransportS3 {
		s3, err := storage.NewS3Transport(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("configure object store: %w", err)
		}
		transport = s3
	}

	ffprobe := media.NewFFProbeProvider(cfg.FFProbePath, cfg.FFProbeTimeout)

	return &dependencies{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		content: client,
		uploads: transport,
		prober:  media.NewCachingProvider(ffprobe, cfg.MetadataCacheTTL).WithClock(clock),
	}, nil
}
