package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gizzletv/client/internal/media"
	"github.com/gizzletv/client/internal/player"
)

var errUnknownCommand = errors.New("unknown player command")

func newPlayCommand(load dependencyLoader) *cobra.Command {
	var source player.Source

	cmd := &cobra.Command{
		Use:   "play FILENAME",
		Short: "Play a stored video, driven by commands on stdin",
		Long: `Play a stored video. Read one command per line:
  space      play or pause
  left/right skip 10 seconds
  m          toggle mute
  f          toggle fullscreen
  seek F     jump to fraction F of the duration
  volume V   set volume between 0 and 1
  move       pointer activity
  esc, q     close the player`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := load(cmd.Context())
			if err != nil {
				return err
			}
			source.URI = resolveSource(deps, args[0])
			return runPlay(cmd.Context(), deps, cmd.InOrStdin(), cmd.OutOrStdout(), source)
		},
	}

	cmd.Flags().StringVar(&source.Title, "title", "", "title shown with the player")
	cmd.Flags().StringVar(&source.Description, "description", "", "description shown with the player")
	cmd.Flags().StringVar(&source.PosterURI, "poster", "", "poster image location")
	return cmd
}

// resolveSource accepts a stored filename, a URL or a local path.
func resolveSource(deps *dependencies, name string) string {
	if strings.Contains(name, "://") {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return deps.content.FileURL(name)
}

func runPlay(ctx context.Context, deps *dependencies, in io.Reader, out io.Writer, source player.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := make(chan player.Session, 1)
	backend := media.NewHeadlessBackend(deps.prober, media.BackendOptions{Clock: deps.clock, Logger: deps.logger})
	controller := player.NewController(backend, player.Options{
		Clock:           deps.clock,
		Logger:          deps.logger,
		MetadataTimeout: deps.cfg.MetadataTimeout,
		OnChange: func(s player.Session) {
			// keep only the latest snapshot
			select {
			case <-changes:
			default:
			}
			select {
			case changes <- s:
			default:
			}
		},
		OnClose: cancel,
		OnFailure: func(err error) {
			fmt.Fprintf(out, "cannot play %s: %v\n", source.URI, err)
		},
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	controller.Open(source)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer controller.Close()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				if err := applyCommand(controller, line); err != nil {
					fmt.Fprintln(out, err)
				}
			}
		}
	})
	g.Go(func() error {
		var last string
		for {
			select {
			case <-gctx.Done():
				return nil
			case s := <-changes:
				if line := renderSession(s); line != last {
					fmt.Fprintln(out, line)
					last = line
				}
			}
		}
	})

	err := g.Wait()
	fmt.Fprintln(out, renderSession(controller.Session()))
	return err
}

// applyCommand interprets one line of player input.
func applyCommand(c *player.Controller, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		if line != "" {
			c.HandleKey(player.KeySpace)
		}
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "seek":
		v, err := commandArg(fields)
		if err != nil {
			return err
		}
		c.Seek(v)
	case "volume", "vol":
		v, err := commandArg(fields)
		if err != nil {
			return err
		}
		c.SetVolume(v)
	case "move":
		c.Activity()
	case "q", "quit":
		c.Close()
	default:
		key, ok := player.ParseKey(fields[0])
		if !ok {
			return fmt.Errorf("%w: %q", errUnknownCommand, fields[0])
		}
		c.Activity()
		c.HandleKey(key)
	}
	return nil
}

func commandArg(fields []string) (float64, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("%s expects one number", fields[0])
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fields[0], err)
	}
	return v, nil
}

func renderSession(s player.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", s.State)
	if s.State == player.StateClosed {
		return b.String()
	}
	if s.Title != "" {
		fmt.Fprintf(&b, " %s", s.Title)
	}
	if s.State != player.StateLoading {
		fmt.Fprintf(&b, " %s / %s", player.FormatClock(s.Position), player.FormatClock(s.Duration))
	}
	if s.Muted {
		b.WriteString(" muted")
	} else {
		fmt.Fprintf(&b, " vol %d%%", int(s.Volume*100+0.5))
	}
	if s.Fullscreen {
		b.WriteString(" fullscreen")
	}
	if !s.ControlsVisible {
		b.WriteString(" (controls hidden)")
	}
	return b.String()
}
