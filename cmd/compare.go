package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/lukman83/mhe-storefront/internal/compare"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/ui"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare up to four products of the same category",
}

var compareRemoveCmd = &cobra.Command{
	Use:   "remove [product-id]",
	Short: "Remove a product from the comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompareRemove,
}

var compareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the compared products",
	Args:  cobra.NoArgs,
	RunE:  runCompareList,
}

var compareClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the comparison",
	Args:  cobra.NoArgs,
	RunE:  runCompareClear,
}

var compareTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Show the side-by-side comparison table",
	Args:  cobra.NoArgs,
	RunE:  runCompareTable,
}

var compareSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search products to add to the comparison",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompareSearch,
}

func init() {
	compareCmd.AddCommand(cardCommand("add [product-id]", "Add a product to the comparison", (*cardsync.Controller).Compare))
	compareCmd.AddCommand(compareRemoveCmd)
	compareCmd.AddCommand(compareListCmd)
	compareCmd.AddCommand(compareClearCmd)

	compareTableCmd.Flags().String("format", "table", "Output format: json, table")
	compareCmd.AddCommand(compareTableCmd)

	compareSearchCmd.Flags().Int("add", 0, "Add the Nth result to the comparison")
	compareCmd.AddCommand(compareSearchCmd)

	rootCmd.AddCommand(compareCmd)
}

// localSession is a session for commands that only touch local state.
func localSession(cmd *cobra.Command) (*session, error) {
	svc, err := buildService(nil, false)
	if err != nil {
		return nil, err
	}
	return &session{svc: svc, term: ui.NewTerminal(cmd.OutOrStdout()), spin: ui.NewSpinner(cmd.ErrOrStderr())}, nil
}

func runCompareRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := localSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	n := s.svc.Notifier(s.term)
	err = s.svc.Compare.Remove(cmd.Context(), id)
	switch {
	case errors.Is(err, compare.ErrNotPresent):
		n.Notify(notify.Toast{Level: notify.Info, Message: fmt.Sprintf("Product %d is not in your comparison", id)})
		return nil
	case err != nil:
		n.Notify(notify.Toast{Level: notify.Error, Message: "Could not update the comparison"})
		return done(err)
	}
	n.Notify(notify.Toast{Level: notify.Success, Message: "Removed from comparison"})
	return nil
}

func runCompareList(cmd *cobra.Command, args []string) error {
	s, err := localSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.svc.Compare.Entries(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No products to compare.")
		return nil
	}
	fmt.Fprintf(w, "Comparing %d of %d (%s)\n", len(entries), s.svc.Compare.Max(), entries[0].CategoryName)
	for i, e := range entries {
		fmt.Fprintf(w, " %d. %s  (product %d)  %s\n", i+1, e.Title, e.ID, compare.FormatPrice(e))
	}
	return nil
}

func runCompareClear(cmd *cobra.Command, args []string) error {
	s, err := localSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	n := s.svc.Notifier(s.term)
	if err := s.svc.Compare.Clear(cmd.Context()); err != nil {
		n.Notify(notify.Toast{Level: notify.Error, Message: "Could not clear the comparison"})
		return done(err)
	}
	n.Notify(notify.Toast{Level: notify.Success, Message: "Comparison cleared"})
	return nil
}

func runCompareTable(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	s, err := localSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.svc.Compare.Entries(cmd.Context())
	if err != nil {
		return err
	}
	table := compare.BuildTable(entries, s.svc.Compare.Max())
	if format == "json" {
		return printJSON(cmd.OutOrStdout(), table)
	}
	printCompareTable(cmd.OutOrStdout(), table)
	return nil
}

func runCompareSearch(cmd *cobra.Command, args []string) error {
	addN, _ := cmd.Flags().GetInt("add")
	s, err := localSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var results []models.Product
	err = s.loading(cmd.Context(), "Searching...", func(ctx context.Context) error {
		var err error
		results, err = s.svc.Searcher.Search(ctx, args[0])
		return err
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	w := cmd.OutOrStdout()
	if results == nil && addN == 0 {
		fmt.Fprintf(w, "Type at least %d characters to search.\n", compare.MinQueryLength)
		return nil
	}
	if addN == 0 {
		if len(results) == 0 {
			fmt.Fprintln(w, "No matching products.")
		}
		cur := s.svc.Config().Currency
		for i, p := range results {
			fmt.Fprintf(w, " %d. %s  (product %d)  %s\n", i+1, p.Name, p.ID, compare.FormatPrice(compare.Snapshot(p, cur)))
		}
		return nil
	}

	if addN < 1 || addN > len(results) {
		return fmt.Errorf("--add %d: search returned %d results", addN, len(results))
	}
	p := results[addN-1]
	err = s.svc.Searcher.Add(cmd.Context(), p)
	s.svc.Notifier(s.term).Notify(compare.AddToast(p.Name, s.svc.Compare.Max(), err))
	if err != nil && !errors.Is(err, compare.ErrAlreadyPresent) {
		return done(err)
	}
	return nil
}
