package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/adapters/catalog"
	"github.com/satriahrh/pesan/adapters/device"
)

var (
	menuCatalog string
	menuJSON    bool
)

var menuCmd = &cobra.Command{
	Use:   "menu [query]",
	Short: "Print the menu",
	Long: `Print the catalog. With a query only the products whose name or
description contains it are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.NewFileSource(menuCatalog, zap.NewNop()).Load(cmd.Context())
		if err != nil {
			return err
		}

		categories := cat.Categories
		if len(args) == 1 {
			categories = cat.Search(strings.TrimSpace(args[0]))
			if len(categories) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing on the menu matches %q\n", args[0])
				return nil
			}
		}

		if menuJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(categories)
		}
		fmt.Fprint(cmd.OutOrStdout(), device.FormatMenu(categories))
		return nil
	},
}

func init() {
	menuCmd.Flags().StringVar(&menuCatalog, "catalog", "", "catalog file, JSON or YAML (default: built-in menu)")
	menuCmd.Flags().BoolVar(&menuJSON, "json", false, "output as JSON (for piping)")
}
