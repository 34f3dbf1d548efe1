// Command remoteui serves a demo application to remote viewers, runs a
// headless viewer, and inspects session recordings.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vango-dev/remoteui/internal/config"
	"github.com/vango-dev/remoteui/internal/errors"
	"github.com/vango-dev/remoteui/internal/logging"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "remoteui",
		Short: "Stream an immediate-mode UI to remote viewers",
		Long: `remoteui runs an immediate-mode application on a host and streams
its drawing output to viewers over WebSocket as delta-encoded updates.

Configuration is read from remoteui.yaml (see --config); flags override
file values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to remoteui.yaml (default: nearest in working directory tree)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: json, console")
	pf.BoolVar(&g.debug, "debug", false, "Debug logging with console output")

	root.AddCommand(
		serveCmd(g),
		viewCmd(g),
		inspectCmd(g),
		versionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger.
func (g *globalFlags) load() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, nil, err
	}

	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if g.debug {
		cfg.Log.Level = "debug"
		cfg.Log.Format = logging.FormatConsole
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, errors.New("R120").Wrap(err).
			WithSuggestion("Use --log-level info and --log-format json")
	}
	return cfg, logger, nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
