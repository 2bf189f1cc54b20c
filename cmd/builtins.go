package cmd

import (
	"fmt"

	"github.com/josephlewis42/cshell/core"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the commands that run inside the shell
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, v := range core.BuiltinNames() {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
