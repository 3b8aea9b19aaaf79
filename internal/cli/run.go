package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procguard/internal/cliutil"
	"github.com/Paintersrp/procguard/internal/config"
	"github.com/Paintersrp/procguard/internal/launch"
	"github.com/Paintersrp/procguard/internal/metrics"
	"github.com/Paintersrp/procguard/internal/shell"
)

func newRunCmd(ctx *context) *cobra.Command {
	var (
		dir string
		env []string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- name [args...]",
		Short: "Run a command and exit with its status",
		Long: "Run a command in the current environment, wait for it and exit with its status.\n" +
			"Commands that cannot be started exit with 126 (not executable) or 127 (any other launch failure).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseEnvFlags(env)
			if err != nil {
				return err
			}

			sh := shell.FromEnvironment()
			sh.Stdin = cmd.InOrStdin()
			sh.Stdout = cmd.OutOrStdout()
			sh.Stderr = cmd.ErrOrStderr()
			if dir != "" {
				sh.Dir = dir
			}
			for key, value := range overrides {
				sh.Env[key] = value
			}

			logger := ctx.log()
			name, rest := args[0], args[1:]
			logger.Debug("running command",
				"command", shell.CommandString(name, rest),
				"dir", sh.Dir,
				"env", cliutil.RedactEnv(overrides),
			)

			started := time.Now()
			proc, err := sh.RunAsync(cmd.Context(), name, rest...)
			metrics.ObserveLaunch(config.RuntimeProcess, time.Since(started), err)
			if err == nil {
				err = proc.Finish()
			}
			if err == nil {
				return nil
			}

			var exitErr *shell.ExitError
			if lerr, ok := launch.AsError(err); ok {
				logger.Warn("launch failed",
					"path", lerr.Path,
					"op", lerr.Op,
					"reason", lerr.Reason,
					"code", lerr.Code(),
				)
			} else if !errors.As(err, &exitErr) {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "procguard: %s\n", cliutil.RedactSecrets(err.Error()))
			return &exitCodeError{code: shell.ExitCode(err), err: err}
		},
	}

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory for the command")
	cmd.Flags().StringArrayVar(&env, "env", nil, "Set an environment variable (KEY=VALUE), may be repeated")

	return cmd
}

func parseEnvFlags(values []string) (map[string]string, error) {
	env := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := strings.Cut(value, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env value %q (want KEY=VALUE)", value)
		}
		env[key] = val
	}
	return env, nil
}
