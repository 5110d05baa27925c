package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hejijunhao/scalr/internal/config"
	"github.com/hejijunhao/scalr/internal/output"
	"github.com/hejijunhao/scalr/internal/output/async"
	"github.com/hejijunhao/scalr/internal/output/file"
	"github.com/hejijunhao/scalr/internal/output/multi"
	"github.com/hejijunhao/scalr/internal/output/stdout"
	"github.com/hejijunhao/scalr/internal/output/webhook"
	"github.com/hejijunhao/scalr/internal/sink"
	"github.com/hejijunhao/scalr/pkg/scalr"
)

const maxReportFileSize = 10 << 20

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List callable actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range scalr.Actions() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// callResult is what `scalr call` prints.
type callResult struct {
	Action        string              `json:"action"`
	TransactionID string              `json:"transaction_id,omitempty"`
	Items         []map[string]string `json:"items,omitempty"`
}

func newCallCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "call <action> [args...]",
		Short: "Invoke an action with positional arguments and print the result as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(cmd)
			if err != nil {
				return err
			}
			callArgs := make([]any, 0, len(args)-1)
			for _, a := range args[1:] {
				callArgs = append(callArgs, a)
			}

			resp, err := cl.Call(cmd.Context(), args[0], callArgs...)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if c.cfg.Output.Pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(callResult{
				Action:        string(resp.Action()),
				TransactionID: resp.TransactionID(),
				Items:         resp.Items(),
			})
		},
	}
}

func newFailuresCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "failures <farm-id> <server-id>...",
		Short: "Collect a farm's logs and report classified script failures per server",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(cmd)
			if err != nil {
				return err
			}

			reg, err := cl.Collect(cmd.Context(), args[0], args[1:]...)
			if err != nil {
				return err
			}
			printLaunchStatus(cmd.ErrOrStderr(), reg)

			out, err := newOutput(c.cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			verbosity := output.ParseVerbosity(c.cfg.Output.Verbosity)

			failures := cl.Diagnose(reg)
			werr := cl.Deliver(cmd.Context(), failures, out, verbosity)
			if err := out.Close(); werr == nil {
				werr = err
			}
			slog.Info("failures reported", "farm", args[0], "servers", len(args)-1, "failures", len(failures))
			return werr
		},
	}
}

// printLaunchStatus writes one line per server describing its
// configuration-and-launch script run.
func printLaunchStatus(w io.Writer, reg *scalr.Registry) {
	for _, s := range reg.Sinks() {
		launch, ok := s.ConfigAndLaunchScript()
		switch {
		case !ok:
			fmt.Fprintf(w, "%s: %s not found (%d entries)\n", s.ID(), sink.ConfigAndLaunchScriptName, s.Len())
		case launch.Failure():
			fmt.Fprintf(w, "%s: %s failed with exit code %d\n", s.ID(), sink.ConfigAndLaunchScriptName, launch.ExitCode())
		default:
			fmt.Fprintf(w, "%s: %s succeeded\n", s.ID(), sink.ConfigAndLaunchScriptName)
		}
	}
}

// newOutput builds the destination named by cfg.Format. A file or webhook
// configured alongside a different format receives the reports as well.
func newOutput(cfg config.OutputConfig, w io.Writer) (output.Output, error) {
	var outs []output.Output
	add := func(name string) error {
		switch name {
		case "stdout":
			outs = append(outs, stdout.NewWriter(w, cfg.Pretty))
		case "file":
			f, err := file.New(cfg.File, file.WithMaxSize(maxReportFileSize))
			if err != nil {
				return err
			}
			outs = append(outs, f)
		case "webhook":
			outs = append(outs, async.New(webhook.New(cfg.Webhook)))
		default:
			return fmt.Errorf("unknown output %q", name)
		}
		return nil
	}

	names := []string{cfg.Format}
	if cfg.File != "" && cfg.Format != "file" {
		names = append(names, "file")
	}
	if cfg.Webhook != "" && cfg.Format != "webhook" {
		names = append(names, "webhook")
	}
	for _, name := range names {
		if err := add(name); err != nil {
			multi.New(outs...).Close()
			return nil, err
		}
	}

	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
