package cli

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procguard/internal/cliutil"
	"github.com/Paintersrp/procguard/internal/config"
	"github.com/Paintersrp/procguard/internal/metrics"
)

func newCheckCmd(ctx *context) *cobra.Command {
	var (
		jsonOutput  bool
		showMetrics bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check [command...]",
		Short: "Launch manifest commands and report which ones failed to start",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest()
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = manifest.Names()
			}
			for _, name := range names {
				if _, ok := manifest.Commands[name]; !ok {
					return fmt.Errorf("unknown command %q in %s", name, manifest.Source)
				}
			}

			out := cmd.OutOrStdout()
			var enc *json.Encoder
			if jsonOutput {
				enc = json.NewEncoder(out)
			}

			var output io.Writer = io.Discard
			if *ctx.verbose {
				output = cmd.ErrOrStderr()
			}

			failed := 0
			for _, name := range names {
				record := ctx.checkCommand(cmd.Context(), manifest, name, output, timeout)
				if record.Failed() {
					failed++
				}
				if enc != nil {
					cliutil.EncodeLaunchRecord(enc, cmd.ErrOrStderr(), record)
				} else {
					fmt.Fprintln(out, cliutil.FormatLaunchRecord(record))
				}
			}

			if showMetrics {
				if err := metrics.WriteText(out); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			if failed > 0 {
				err := fmt.Errorf("%d of %d commands failed to launch", failed, len(names))
				fmt.Fprintf(cmd.ErrOrStderr(), "procguard: %v\n", err)
				return &exitCodeError{code: 1, err: err}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit one JSON record per command")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print launch metrics in Prometheus text format")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum time to wait for each command to exit")

	return cmd
}

func (c *context) checkCommand(parent stdcontext.Context, manifest *config.Manifest, name string, output io.Writer, timeout time.Duration) cliutil.LaunchRecord {
	logger := c.log().With("command", name)

	spec, _ := manifest.Spec(name)
	spec.Stdout = output
	spec.Stderr = output

	rt, err := c.getRegistry().Lookup(spec.Runtime)
	if err != nil {
		return cliutil.NewLaunchRecord(name, spec.Runtime, "", 0, err, nil)
	}

	ctx, cancel := stdcontext.WithTimeout(parent, timeout)
	defer cancel()

	logger.Debug("launching", "runtime", spec.Runtime, "env", cliutil.RedactEnv(spec.Env))
	started := time.Now()
	inst, err := rt.Launch(ctx, spec)
	metrics.ObserveLaunch(spec.Runtime, time.Since(started), err)
	if err != nil {
		logger.Warn("launch failed", "runtime", spec.Runtime, "error", cliutil.RedactSecrets(err.Error()))
		return cliutil.NewLaunchRecord(name, spec.Runtime, "", 0, err, nil)
	}

	code, err := inst.Wait(ctx)
	if err != nil {
		logger.Warn("wait failed", "id", inst.ID(), "error", cliutil.RedactSecrets(err.Error()))
	} else {
		logger.Debug("exited", "id", inst.ID(), "exitCode", code)
	}
	return cliutil.NewLaunchRecord(name, spec.Runtime, inst.ID(), code, nil, err)
}
