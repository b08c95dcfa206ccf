// Command zipcrack recovers the password protecting a legacy
// ZipCrypto-encrypted ZIP archive, via dictionary attack, brute force, or
// the Biham-Kocher known-plaintext attack.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zipcrack/internal/crackerr"
	"zipcrack/internal/logging"
)

var (
	logLevel string
	logDir   string
)

func main() {
	root := &cobra.Command{
		Use:           "zipcrack",
		Short:         "Recover a password protecting a ZipCrypto-encrypted ZIP archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(logLevel, logDir)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory to also write JSON logs to (disabled if empty)")

	root.AddCommand(newBruteforceCmd(), newDictionaryCmd(), newPlaintextCmd(), newInfoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a session's error taxonomy to the process exit status: 1
// for an exhausted search space, nonzero for every other kind of failure.
func exitCode(err error) int {
	if crackerr.Of(err) == crackerr.NotFound {
		return 1
	}
	return 2
}
