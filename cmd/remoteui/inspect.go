package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/remoteui/internal/errors"
	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/layout"
	"github.com/vango-dev/remoteui/pkg/recorder"
)

func inspectCmd(g *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "inspect <recording.rui>",
		Short: "Replay a session recording and summarize its updates",
		Long: `Inspect decodes a recording written by serve --record and prints
one line per update together with totals.

Examples:
  remoteui inspect recordings/3f2a9c.rui
  remoteui inspect -v recordings/3f2a9c.rui`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.New("R161").WithDetail(args[0]).Wrap(err)
			}
			defer f.Close()

			l, err := layout.Default()
			if err != nil {
				return err
			}
			sum, err := inspect(f, delta.NewDecoder(l), cmd.OutOrStdout(), verbose)
			if err != nil {
				return errors.New("R161").WithDetail(args[0]).Wrap(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d updates (%d full, %d partial), %d references, %d inline items\n",
				sum.Updates, sum.Full, sum.Partial, sum.References, sum.Inline)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print one line per update")
	return cmd
}

// summary totals a replayed recording.
type summary struct {
	Updates    int
	Full       int
	Partial    int
	References int
	Inline     int
}

func inspect(r io.Reader, dec *delta.Decoder, out io.Writer, verbose bool) (summary, error) {
	var sum summary
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if verbose {
		fmt.Fprintln(tw, "#\tKIND\tREFS\tINLINE\tSHAPES")
	}

	err := recorder.Replay(r, dec, func(n int, u *delta.Update, f *frame.Frame) error {
		refs, inline := u.Counts()
		sum.Updates++
		sum.References += refs
		sum.Inline += inline
		if u.Kind == delta.KindFull {
			sum.Full++
		} else {
			sum.Partial++
		}
		if verbose {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", n, u.Kind, refs, inline, f.Len())
		}
		return nil
	})
	if ferr := tw.Flush(); err == nil {
		err = ferr
	}
	return sum, err
}
