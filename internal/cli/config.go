package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with command manifests",
	}
	cmd.AddCommand(newConfigLintCmd(ctx))
	return cmd
}

func newConfigLintCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate a command manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return &exitCodeError{code: 1, err: err}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", manifest.Source)
			return nil
		},
	}
	return cmd
}
