package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// errProbeFailed makes `mirror ping` exit non-zero; details are in the output.
var errProbeFailed = errors.New("mirror probe failed")

// NewMirrorCommand creates the mirror command group.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Inspect and test the spreadsheet mirror",
	}
	cmd.AddCommand(newMirrorStatusCommand(rootOpts))
	cmd.AddCommand(newMirrorPingCommand(rootOpts))
	return cmd
}

func newMirrorStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Resolve the mirror and print its status as JSON; never writes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, rootOpts)
			if err != nil {
				return err
			}
			log, err := newLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m, err := newMirror(opts, log)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m.Status(commandContext(cmd)))
		},
	}
}

func newMirrorPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ping",
		Short:         "Append a sentinel PING row to the mirror",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, rootOpts)
			if err != nil {
				return err
			}
			log, err := newLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			m, err := newMirror(opts, log)
			if err != nil {
				return err
			}
			res := m.Probe(commandContext(cmd))
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.OK {
				return errProbeFailed
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
