package media

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRunner executes external commands and returns stdout bytes.
type CommandRunner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFProbeProvider reads stream metadata using the ffprobe CLI tool.
type FFProbeProvider struct {
	Binary  string
	Args    []string
	Run     CommandRunner
	Timeout time.Duration
}

// NewFFProbeProvider constructs a Provider that shells out to ffprobe.
func NewFFProbeProvider(binary string, timeout time.Duration) *FFProbeProvider {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbeProvider{
		Binary:  binary,
		Args:    []string{"-v", "error", "-show_entries", "format=duration:stream=width,height,codec_type", "-of", "json"},
		Run:     defaultCommandRunner,
		Timeout: timeout,
	}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe executes ffprobe for uri and parses the JSON response.
func (p *FFProbeProvider) Probe(ctx context.Context, uri string) (Metadata, error) {
	if p == nil {
		return Metadata{}, ErrProviderUnavailable
	}
	run := p.Run
	if run == nil {
		run = defaultCommandRunner
	}

	execCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	args := append([]string{}, p.Args...)
	args = append(args, uri)

	out, err := run(execCtx, p.Binary, args...)
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s: %w", uri, err)
	}

	var payload ffprobeOutput
	if err := json.Unmarshal(out, &payload); err != nil {
		return Metadata{}, fmt.Errorf("parse ffprobe response: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil || math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return Metadata{}, fmt.Errorf("%w: %q", ErrNoDuration, payload.Format.Duration)
	}

	meta := Metadata{Duration: duration}
	for _, stream := range payload.Streams {
		switch stream.CodecType {
		case "video":
			if !meta.HasVideo {
				meta.Width, meta.Height = stream.Width, stream.Height
			}
			meta.HasVideo = true
		case "audio":
			meta.HasAudio = true
		}
	}
	return meta, nil
}

func defaultCommandRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	return cmd.Output()
}
