// Package commands implements the blade command line.
package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	var (
		verbosity int
		envFiles  []string
	)
	logger := zerolog.Nop()

	rootCmd := &cobra.Command{
		Use:   "blade",
		Short: "Compile and render Blade templates",
		Long: `blade compiles Blade templates (@extends, @section, @yield, @include,
@foreach, {{ }} ...) and renders them with JSON or YAML data.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(cmd.ErrOrStderr(), verbosity)
			logger.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "Environment files to load (default .env)")

	loggerFn := func() zerolog.Logger { return logger }
	rootCmd.AddCommand(newRenderCmd(loggerFn, &envFiles))
	rootCmd.AddCommand(newCompileCmd())

	return rootCmd
}

// newLogger builds a console logger for the given verbosity.
func newLogger(w io.Writer, verbosity int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch verbosity {
	case 0:
	case 1:
		level = zerolog.InfoLevel
	case 2:
		level = zerolog.DebugLevel
	default:
		level = zerolog.TraceLevel
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(consoleWriter).Level(level).With().Timestamp().Logger()
}
