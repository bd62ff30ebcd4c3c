package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "webble",
	Short: "Bluetooth Low Energy central tool on SimpleBLE",
	Long: `Bluetooth Low Energy (BLE) command-line tool built on SimpleBLE:

- List adapters and switch between them
- Scan for nearby devices, filtered by name, manufacturer data or a Lua predicate
- Inspect GATT services, characteristics, and descriptors
- Read from and write to characteristics and descriptors
- Stream characteristic notifications

The SimpleBLE-C shared library is located through --library, the
library_path config key or the WEBBLE_SIMPLEBLE_PATH environment variable.`,
	Version: formatVersion(version),
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		stop()
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("webble {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(adaptersCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(subscribeCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/webble/config.yaml)")
	rootCmd.PersistentFlags().String("library", "", "Path to the SimpleBLE-C shared library")
	rootCmd.PersistentFlags().Int("adapter", 0, "Adapter index to use (see 'webble adapters')")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
