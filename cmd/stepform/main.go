package main

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/mark3labs/stepform/internal/config"
	"github.com/mark3labs/stepform/internal/logger"
	"github.com/mark3labs/stepform/internal/tui/theme"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "█▀▀ ▀█▀ █▀▀ █▀█ █▀▀ █▀█ █▀█ █▀▄▀█"
	logoText2 = "▄▄█  █  ██▄ █▀▀ █▀  █▄█ █▀▄ █ ▀ █"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var globalFlags struct {
	dataDir   string
	logLevel  string
	logFile   string
	theme     string
	noPersist bool
}

// cfg is loaded once per invocation in PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "stepform",
	Short:             "Multi-step forms in the terminal, over MCP and on the command line",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// renderLogo creates the logo with gradient colors
func renderLogo() string {
	t := theme.NewCatppuccinMocha()
	line1 := theme.ApplyGradient(logoText1, t.Primary, t.Secondary)
	line2 := theme.ApplyGradient(logoText2, t.Primary, t.Secondary)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

stepform turns a YAML form definition into a guided, validated multi-step
form. Each step is checked before you can leave it, the whole form is
checked again on submit, and every draft and submission is recorded in an
embedded NATS JetStream log so forms can be resumed and compared.`

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.dataDir, "data-dir", "", "Data directory for NATS storage (default from config: .stepform)")
	pf.StringVar(&globalFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&globalFlags.logFile, "log-file", "", "Write logs to this file instead of stderr")
	pf.StringVar(&globalFlags.theme, "theme", "", "TUI theme: "+strings.Join(theme.Names(), ", "))
	pf.BoolVar(&globalFlags.noPersist, "no-persist", false, "Do not record form events")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(setupCmd)
}

// loadConfig resolves configuration with CLI flags taking precedence and
// applies the logging and theme settings.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(loaded)
	if err := loaded.Validate(); err != nil {
		return err
	}

	if err := logger.Configure(loaded.LogLevel, loaded.LogFile); err != nil {
		return err
	}
	if err := theme.SetCurrent(loaded.Theme); err != nil {
		return err
	}
	logger.Debug("Config: data_dir=%s persist=%v theme=%s", loaded.DataDir, loaded.Persist, loaded.Theme)
	cfg = loaded
	return nil
}

func applyFlags(c *config.Config) {
	if globalFlags.dataDir != "" {
		c.DataDir = globalFlags.dataDir
	}
	if globalFlags.logLevel != "" {
		c.LogLevel = globalFlags.logLevel
	}
	if globalFlags.logFile != "" {
		c.LogFile = globalFlags.logFile
	}
	if globalFlags.theme != "" {
		c.Theme = globalFlags.theme
	}
	if globalFlags.noPersist {
		c.Persist = false
	}
}
