package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/internal/config"
)

var (
	ordersLimit int
	ordersJSON  bool
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List stored orders",
	Long: `List the most recent orders from MongoDB. Orders are only persisted
when MONGODB_URI is set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is not set; orders are not persisted")
		}

		logger, err := newLogger(false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		orders, closeOrders, err := openOrders(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeOrders()

		list, err := orders.List(cmd.Context(), ordersLimit)
		if err != nil {
			return err
		}

		if ordersJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatOrders(list))
		return nil
	},
}

func init() {
	ordersCmd.Flags().IntVarP(&ordersLimit, "limit", "n", 20, "number of orders to show")
	ordersCmd.Flags().BoolVar(&ordersJSON, "json", false, "output as JSON (for piping)")
}

func formatOrders(orders []*entities.Order) string {
	if len(orders) == 0 {
		return "No orders yet\n"
	}
	var b strings.Builder
	for _, o := range orders {
		fmt.Fprintf(&b, "%s  %s  %-9s  $%s  %s\n",
			o.CreatedAt.Format("2006-01-02 15:04"),
			o.ID,
			o.Status,
			entities.FormatPrice(o.Total),
			strings.Join(o.ItemNames(), ", "))
	}
	return b.String()
}
