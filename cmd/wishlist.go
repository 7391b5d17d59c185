package cmd

import (
	"context"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/spf13/cobra"
)

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Manage wishlist membership",
}

var wishlistStatusCmd = &cobra.Command{
	Use:   "status [product-id]",
	Short: "Show whether a product is in the wishlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCard(cmd, args[0], func(_ context.Context, _ *session, card *cardsync.Controller) error {
			if card.State().Wishlisted {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is in your wishlist.\n", card.Product().Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not in your wishlist.\n", card.Product().Name)
			}
			return nil
		})
	},
}

func init() {
	wishlistCmd.AddCommand(wishlistStatusCmd)
	wishlistCmd.AddCommand(cardCommand("toggle [product-id]", "Add the product to the wishlist, or remove it", (*cardsync.Controller).ToggleWishlist))
	rootCmd.AddCommand(wishlistCmd)
}
