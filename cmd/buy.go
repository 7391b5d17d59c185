package cmd

import (
	"context"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/spf13/cobra"
)

var buyCmd = &cobra.Command{
	Use:   "buy [product-id]",
	Short: "Put a product in the cart and continue to checkout",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuy,
}

var shareCmd = &cobra.Command{
	Use:   "share [product-id]",
	Short: "Copy the product link to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCard(cmd, args[0], func(ctx context.Context, _ *session, card *cardsync.Controller) error {
			return card.Share(ctx)
		})
	},
}

func init() {
	buyCmd.Flags().Bool("open", false, "Open the cart page in a browser")
	rootCmd.AddCommand(buyCmd)
	rootCmd.AddCommand(shareCmd)
}

func runBuy(cmd *cobra.Command, args []string) error {
	open, _ := cmd.Flags().GetBool("open")
	return withCard(cmd, args[0], func(ctx context.Context, s *session, card *cardsync.Controller) error {
		if !open {
			card.SetNavigator(nil)
		}
		return card.BuyNow(ctx)
	})
}
