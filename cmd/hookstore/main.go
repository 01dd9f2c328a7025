package main

import (
	stderrors "errors"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"

	"github.com/vango-dev/hookstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logLevel is shared by the console handler and config hot reload.
var logLevel = new(slog.LevelVar)

// forceDebug is set by --debug; configured levels never override it.
var forceDebug bool

func main() {
	// A missing .env is fine.
	godotenv.Load()

	var (
		debug   bool
		noColor bool
	)

	rootCmd := &cobra.Command{
		Use:   "hookstore",
		Short: "Observable value stores and dependency-gated effects",
		Long: `hookstore serves named counters backed by observable value stores.

Every counter notifies its subscribers synchronously on change,
streams updates over WebSocket, and persists through an effect
that only runs when the value actually changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
			initLogger(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		serveCmd(),
		demoCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var he *errors.Error
		if stderrors.As(err, &he) {
			err = he
		}
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(debug, noColor bool) {
	forceDebug = debug
	if debug {
		logLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level:   logLevel,
		NoColor: noColor,
	})))
}

// applyLogLevel sets a configured level and reports whether it took effect.
func applyLogLevel(level slog.Level) bool {
	if forceDebug {
		return false
	}
	logLevel.Set(level)
	return true
}
