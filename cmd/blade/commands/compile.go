package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	blade "github.com/leaf-app/go-blade"
)

func newCompileCmd() *cobra.Command {
	var production bool

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Print the compiled form of a template file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read template: %w", err)
			}
			out := blade.NewCompiler(production).Compile(string(raw), args[0])
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&production, "production", false, "Strip {{-- comments --}} instead of marking them")

	return cmd
}
