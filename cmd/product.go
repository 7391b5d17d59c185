package cmd

import (
	"context"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/spf13/cobra"
)

var productCmd = &cobra.Command{
	Use:   "product [id]",
	Short: "Show a product with its cart and wishlist status",
	Args:  cobra.ExactArgs(1),
	RunE:  runProduct,
}

func init() {
	productCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(productCmd)
}

func runProduct(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	return withCard(cmd, args[0], func(ctx context.Context, s *session, card *cardsync.Controller) error {
		if format == "json" {
			return printJSON(cmd.OutOrStdout(), struct {
				Product    any            `json:"product"`
				State      cardsync.State `json:"state"`
				URL        string         `json:"url"`
				CanCompare bool           `json:"can_compare"`
			}{card.Product(), card.State(), card.ProductURL(), card.CanCompare(ctx)})
		}
		printProduct(cmd.OutOrStdout(), card.Product(), card.State(), s.svc.Config().Currency, card.ProductURL())
		return nil
	})
}

// withCard loads the product named by arg, refreshes its card state and
// runs fn. Errors returned by fn were already shown as notifications.
func withCard(cmd *cobra.Command, arg string, fn func(ctx context.Context, s *session, card *cardsync.Controller) error) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	s.term.Hint = func(label string) string {
		if label == "Remove" {
			return fmt.Sprintf("Run `mhestore cart remove %d` to remove it", id)
		}
		return ""
	}

	ctx := cmd.Context()
	var card *cardsync.Controller
	err = s.loading(ctx, fmt.Sprintf("Loading product %d...", id), func(ctx context.Context) error {
		var err error
		card, err = s.svc.Card(ctx, id, s.term)
		return err
	})
	if err != nil {
		return err
	}
	return done(fn(ctx, s, card))
}
