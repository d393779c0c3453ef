package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/heyztb/go-mcauth/internal/config"
	"github.com/heyztb/go-mcauth/internal/logging"
	"github.com/heyztb/go-mcauth/internal/transport"
	"github.com/spf13/cobra"
)

var (
	envFile    string
	jsonOutput bool
	noColor    bool
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
	client *transport.Client
)

var rootCmd = &cobra.Command{
	Use:   "mcauth",
	Short: "Log in to Minecraft accounts and inspect profiles",
	Long:  "mcauth signs in with a legacy or Microsoft account, verifies profile textures and resolves player names. Configuration is read from MCAUTH_* environment variables and an optional .env file.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}

		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		loaded, err := config.Load(files...)
		if err != nil {
			return err
		}
		cfg = loaded

		level, err := cfg.Level()
		if err != nil {
			return err
		}
		// Keep command output readable unless debug logs were asked for.
		if cfg.LogLevel == "" {
			level = slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
		}
		logger = logging.NewLoggerWithLevel(cfg.Environment, level, os.Stderr)
		slog.SetDefault(logger)

		client = transport.NewClient(cfg.Proxy, cfg.Timeout)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// Execute runs the root command. An interrupt cancels the context handed to
// subcommands, which stops device code polling and callback waits.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("error: ")+err.Error())
		return err
	}
	return nil
}
