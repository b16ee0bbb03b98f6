package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/pesan/adapters/credential"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <api-key>",
	Short: "Store the API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credential.NewFileStore(credentialFile)
		if err != nil {
			return err
		}
		key := strings.TrimSpace(args[0])
		if key == "" {
			return fmt.Errorf("API key cannot be empty")
		}
		if err := store.Save(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key saved to %s\n", store.Path())
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored API key, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := credential.NewFileStore(credentialFile)
		if err != nil {
			return err
		}
		key, err := store.Load()
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No API key stored. Run 'pesan key set <api-key>'.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), maskKey(key))
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyShowCmd)
}

// maskKey keeps the last four characters
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
