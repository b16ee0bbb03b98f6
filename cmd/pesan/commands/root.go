package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	credentialFile string
	envFile        string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pesan",
	Short: "Voice ordering assistant",
	Long: `pesan - order food by talking to an AI assistant.

The assistant reads the menu, keeps your cart and places the order, all
through a live audio conversation with Gemini.

Examples:
  # Store your Gemini API key
  pesan key set YOUR_API_KEY

  # Order from this machine
  pesan talk

  # Run the kiosk server for browsers
  pesan serve

  # Look for something on the menu
  pesan menu chicken
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&credentialFile, "config", "", "credential file (default is ~/.pesan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(talkCmd)
	rootCmd.AddCommand(menuCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(ordersCmd)
}

// newLogger builds the production logger, or a development one with --verbose
func newLogger(development bool) (*zap.Logger, error) {
	if development || verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
