package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"dlchat/internal/cli"
	"dlchat/internal/config"
	"dlchat/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the sign-in flow failed.
	ExitCodeAuthFailed = 3
)

var (
	configPathFlag string
	debugFlag      bool
)

// rootCmd is the entry point when the application is called without
// subcommands.
var rootCmd = &cobra.Command{
	Use:   "dlchat",
	Short: "Chat with a Copilot Studio agent over Direct Line",
	Long: `dlchat signs you in to Microsoft Entra ID and drives conversations
with a Copilot Studio agent over the Direct Line channel, from the
terminal or from a local web page.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main to
// inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a semantic exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dlchat version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types onto exit codes for scripting.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loadConfigAndInitLogging loads the configuration and wires up logging.
// Every command calls this first.
func loadConfigAndInitLogging() (config.Config, error) {
	path := configPathFlag
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, err
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if debugFlag {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config-path", "",
		"Configuration directory (default: ~/.config/dlchat)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"Enable debug logging")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
