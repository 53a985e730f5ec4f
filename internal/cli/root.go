// Package cli implements the context-agent commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/config"
	"github.com/easeaico/context-agent/internal/logging"
)

var (
	configPath string
	logLevel   string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "context-agent",
	Short: "Chat with a local model using saved memories and fetched pages",
	Long: "context-agent augments each question with your saved engineering notes and the text of any URL\n" +
		"it mentions before sending it to a language model. It can also create branches, commit files\n" +
		"and open pull requests on the source-hosting site when asked explicitly.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $AGENT_CONFIG)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $LOG_LEVEL or info)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *zap.Logger {
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		exitErr("logger", err)
	}
	return logger
}

// piped reports whether f carries redirected input. A file that cannot be
// inspected counts as no input.
func piped(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
