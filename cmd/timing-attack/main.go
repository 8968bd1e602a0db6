// Command timing-attack demonstrates password recovery through an
// early-exit comparison timing leak.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/senadmustafi/Timing-attack/internal/config"
	"github.com/senadmustafi/Timing-attack/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "timing-attack",
	Short: "Recover a password from an early-exit comparison by timing alone",
	Long: `timing-attack infers the length of an account's password and then recovers it
character by character, using only how long the target takes to reject guesses.

It ships its own deliberately vulnerable target so the attack can be run end to
end on one machine, in process or over loopback HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging and per-step output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "timing-attack.yaml", "Configuration file")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(attackCmd)
	rootCmd.AddCommand(lengthCmd)
	rootCmd.AddCommand(storeCmd)
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
