package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/internal/config"
	"github.com/vango-dev/remoteui/internal/errors"
	"github.com/vango-dev/remoteui/pkg/client"
	"github.com/vango-dev/remoteui/pkg/frame"
)

type viewFlags struct {
	url    string
	name   string
	width  int
	height int
	frames int
	click  string
	debug  bool
}

func viewCmd(g *globalFlags) *cobra.Command {
	f := &viewFlags{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Connect a headless viewer and log received frames",
		Long: `View connects to a host, sends its viewport and logs every frame it
reconstructs. It is meant for smoke tests and protocol debugging.

Examples:
  remoteui view
  remoteui view --url ws://host:8080/ws --frames 10
  remoteui view --click 40,90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			f.apply(cfg)
			click, err := parsePoint(f.click)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runView(ctx, cfg, logger, f.frames, click, f.debug || cfg.DebugReferences)
		},
	}

	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Host websocket URL (default from config)")
	cmd.Flags().StringVar(&f.name, "name", "", "Viewer name sent in the handshake")
	cmd.Flags().IntVar(&f.width, "width", 0, "Viewport width in points")
	cmd.Flags().IntVar(&f.height, "height", 0, "Viewport height in points")
	cmd.Flags().IntVarP(&f.frames, "frames", "n", 0, "Exit after this many frames, 0 to run until interrupted")
	cmd.Flags().StringVar(&f.click, "click", "", "Click at x,y after the first frame")
	cmd.Flags().BoolVar(&f.debug, "debug-references", false, "Draw only freshly sent shapes")
	return cmd
}

func (f *viewFlags) apply(cfg *config.Config) {
	if f.url != "" {
		cfg.Viewer.URL = f.url
	}
	if f.name != "" {
		cfg.Viewer.Name = f.name
	}
	if f.width > 0 {
		cfg.Viewer.Width = f.width
	}
	if f.height > 0 {
		cfg.Viewer.Height = f.height
	}
}

// parsePoint parses "x,y". An empty string yields nil.
func parsePoint(s string) (*frame.Pos2, error) {
	if s == "" {
		return nil, nil
	}
	var p frame.Pos2
	if _, err := fmt.Sscanf(s, "%g,%g", &p.X, &p.Y); err != nil {
		return nil, errors.New("R120").
			WithDetail(fmt.Sprintf("--click %q is not x,y", s)).
			WithSuggestion("Use --click 40,90")
	}
	return &p, nil
}

func runView(ctx context.Context, cfg *config.Config, logger *zap.Logger, limit int, click *frame.Pos2, debug bool) error {
	w, h := viewport(cfg.Viewer)
	c, err := client.Dial(ctx, cfg.Viewer.URL,
		client.WithLogger(logger),
		client.WithName(cfg.Viewer.Name),
		client.WithViewport(w, h),
		client.WithDebugMode(debug),
	)
	if err != nil {
		var he *client.HandshakeError
		if stderrors.As(err, &he) {
			return errors.New("R140").WithDetail(he.Status.String()).Wrap(err)
		}
		return errors.New("R141").WithDetail(cfg.Viewer.URL).Wrap(err)
	}
	defer c.Close()

	success("Connected as %s", c.SessionID())

	screen := frame.Rect{Max: frame.Pos2{X: float32(w), Y: float32(h)}}
	for n := 1; limit == 0 || n <= limit; n++ {
		f, err := c.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("R141").Wrap(err)
		}

		logger.Info("frame",
			zap.Int("n", n),
			zap.Int("shapes", f.Len()),
			zap.String("cursor", f.Platform.Cursor.String()),
			zap.String("copied_text", f.Platform.CopiedText),
		)

		if n == 1 && click != nil {
			if err := c.SendInput(clickInput(screen, *click)); err != nil {
				return errors.New("R141").Wrap(err)
			}
		}
	}
	return nil
}

// viewport returns the configured viewport, or 0x0 to let the host wait
// for the first input.
func viewport(v config.ViewerConfig) (uint16, uint16) {
	clamp := func(n int) uint16 {
		return uint16(min(max(n, 0), 1<<16-1))
	}
	return clamp(v.Width), clamp(v.Height)
}

func clickInput(screen frame.Rect, p frame.Pos2) *frame.Input {
	in := &frame.Input{
		PixelsPerPoint: 1,
		HasFocus:       true,
		Events: []frame.Event{
			{Kind: frame.EventPointerMoved, Pos: p},
			{Kind: frame.EventPointerButton, Pos: p, Button: frame.ButtonPrimary, Pressed: true},
			{Kind: frame.EventPointerButton, Pos: p, Button: frame.ButtonPrimary, Pressed: false},
		},
	}
	if screen.Width() > 0 {
		in.ScreenRect = &screen
	}
	return in
}
