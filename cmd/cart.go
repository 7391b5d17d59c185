package cmd

import (
	"context"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/lukman83/mhe-storefront/internal/storefront"
	"github.com/spf13/cobra"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage cart items",
}

var cartStatusCmd = &cobra.Command{
	Use:   "status [product-id]",
	Short: "Show the whole cart, or the cart state of one product",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCartStatus,
}

func init() {
	cartStatusCmd.Flags().String("format", "table", "Output format: json, table")
	cartCmd.AddCommand(cartStatusCmd)

	cartCmd.AddCommand(cardCommand("add [product-id]", "Add a product to the cart", (*cardsync.Controller).AddToCart))
	cartCmd.AddCommand(cardCommand("inc [product-id]", "Increase the quantity by one", (*cardsync.Controller).Increase))
	cartCmd.AddCommand(cardCommand("dec [product-id]", "Decrease the quantity by one", (*cardsync.Controller).Decrease))
	cartCmd.AddCommand(cardCommand("remove [product-id]", "Remove a product from the cart", (*cardsync.Controller).Remove))
	rootCmd.AddCommand(cartCmd)
}

// cardCommand builds a subcommand that runs one controller operation.
func cardCommand(use, short string, op func(*cardsync.Controller, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCard(cmd, args[0], func(ctx context.Context, _ *session, card *cardsync.Controller) error {
				return op(card, ctx)
			})
		},
	}
}

func runCartStatus(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if len(args) == 1 {
		return withCard(cmd, args[0], func(_ context.Context, _ *session, card *cardsync.Controller) error {
			if format == "json" {
				return printJSON(cmd.OutOrStdout(), card.State())
			}
			st := card.State()
			if !st.InCart {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is not in your cart.\n", card.Product().Name)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: quantity %d (cart item %d)\n", card.Product().Name, st.Quantity, st.CartItemID)
			return nil
		})
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var lines []storefront.CartLine
	err = s.loading(cmd.Context(), "Loading cart...", func(ctx context.Context) error {
		var err error
		lines, err = s.svc.Cart(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("cart status failed: %w", err)
	}
	if format == "json" {
		return printJSON(cmd.OutOrStdout(), lines)
	}
	printCart(cmd.OutOrStdout(), lines, s.svc.Config().Currency)
	return nil
}
