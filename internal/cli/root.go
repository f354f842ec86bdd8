// Package cli provides the command-line interface for the quote tracker.
package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quote-tracker/internal/config"
	"quote-tracker/internal/logging"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// App holds the application dependencies, populated before any subcommand runs.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{Logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "quote-tracker",
		Short: "Poll quote pages and report price movements",
		Long: `Quote Tracker polls a finance quote page for each configured symbol,
extracts the company name and price, and prints whether the price went
up, down or stayed the same since the previous poll.

Codes are SYMBOL:EXCHANGE pairs such as BBCA:IDX or AAPL:NASDAQ.
Settings come from defaults, an optional --config file, QT_* environment
variables and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (TOML, YAML or JSON)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("env-file", "", "load QT_* variables from a dotenv file first")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this rotated file")

	rootCmd.AddCommand(newTrackCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}

// load resolves configuration and the logger for cmd.
func (app *App) load(cmd *cobra.Command) error {
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		// Variables already set in the environment win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	app.Config = cfg

	app.Logger = logging.NewLoggerWithConfig(cfg.Log)
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		app.Logger = app.Logger.Level(zerolog.DebugLevel)
	}
	app.Logger.Debug().Str("command", cmd.Name()).Str("config", path).Msg("Configuration loaded")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Quote Tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View, validate and scaffold the tracker configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a commented config template",
		Args:  cobra.ExactArgs(1),
		// The file being written need not load yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], force); err != nil {
				return err
			}
			NewOutput(cmd).Success("Wrote %s", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	output.Bold("Poll")
	output.Printf("  Codes:            %s\n", cfg.Poll.Codes)
	output.Printf("  Interval:         %s\n", cfg.PollInterval())
	output.Printf("  Mode:             %s\n", cfg.Mode())
	output.Printf("  Wait for tick:    %t\n", cfg.Poll.WaitForTick)
	output.Printf("  Max concurrency:  %d\n", cfg.Poll.MaxConcurrency)
	output.Println()

	output.Bold("Fetch")
	output.Printf("  Base URL:         %s\n", cfg.Fetch.BaseURL)
	output.Printf("  User agent:       %s\n", cfg.Fetch.UserAgent)
	output.Printf("  Timeout:          %s\n", cfg.RequestTimeout())
	output.Printf("  Retries:          %d\n", cfg.Fetch.Retries)
	output.Println()

	output.Bold("Extract")
	output.Printf("  Name selector:    %s\n", cfg.Extract.NameSelector)
	output.Printf("  Price selector:   %s\n", cfg.Extract.PriceSelector)
	output.Println()

	output.Bold("Store")
	output.Printf("  Backend:          %s\n", cfg.Store.Backend)
	output.Println()

	output.Bold("Log")
	output.Printf("  Level:            %s\n", cfg.Log.Level)
	if cfg.Log.File {
		output.Printf("  File:             %s\n", cfg.Log.FilePath)
	} else {
		output.Dim("  File:             disabled")
	}
	return nil
}
