// Package cli wires the try-on screen to a command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/spf13/cobra"
)

// Persistent flags. Empty values fall back to configuration.
var (
	apiFlag      string
	storeFlag    string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "fitly",
	Short: "Virtual garment try-on client",
	Long: `Fitly sends a person photo and a garment photo to the try-on backend and
saves the composited result.

Images can be local files, http(s) image URLs, product page URLs (the garment
image is found on the page), s3://bucket/key objects or data URIs.

Examples:
  fitly login --email me@example.com
  fitly run me.jpg https://www.amazon.in/dp/B0C1234567 --out result.png
  fitly run me.jpg s3://wardrobe/shirts/linen.png --quality high --auto
  fitly plans`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logLevelFlag != "" {
			utils.InitLogger(logLevelFlag)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Backend base URL (default from API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Token store: memory, file or mongo (default from TOKEN_STORE)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (default from LOG_LEVEL)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, plansCmd, healthCmd, runCmd)
}

// Execute runs the command line until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
