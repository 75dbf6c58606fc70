package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/tui"
)

var (
	logLevel    string
	logFile     string
	logConsole  bool
	profileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ourday",
	Short: "OurDay - Shared daily board for two",
	Long: `OurDay is a two-person daily task board: up to five tasks per
person per day, days close at midnight, and both boards stay in sync
through one shared server.

Run 'ourday' without arguments to launch the interactive board.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		cfg, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			cfg = config.DefaultConfig()
		}

		// Override with CLI flags if provided
		configChanged := false
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
			configChanged = true
		}
		if cmd.Flags().Changed("log-file") {
			cfg.LogFile = logFile
			configChanged = true
		}
		if cmd.Flags().Changed("log-console") {
			cfg.LogConsole = logConsole
			configChanged = true
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}

		logConfig := logger.Config{
			Level:    logger.ParseLevel(cfg.LogLevel),
			FilePath: cfg.LogFile,
			Console:  cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("OurDay started", logger.F("command", cmd.Name()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			logger.Error("Failed to open local state", logger.F("error", err))
			return err
		}
		defer s.close()

		logger.Info("Launching board")
		m := tui.NewModel(tui.Params{
			Config:  s.cfg,
			DB:      s.db,
			Ledger:  s.ledger,
			Profile: s.profile(),
		})
		p := tea.NewProgram(m, tea.WithAltScreen())

		if _, err := p.Run(); err != nil {
			logger.Error("Board error", logger.F("error", err))
			return fmt.Errorf("failed to run board: %w", err)
		}

		logger.Info("Board exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("OurDay exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Act as this identity (me or partner)")

	// Add subcommands
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(reactCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dispatchCmd)
}
