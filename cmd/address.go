package cmd

import (
	"context"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/addressbook"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Manage delivery addresses (up to 5)",
}

var addressListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved addresses; * marks the selected one",
	Args:  cobra.NoArgs,
	RunE:  runAddressList,
}

var addressAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a new address",
	Args:  cobra.NoArgs,
	RunE:  runAddressAdd,
}

var addressEditCmd = &cobra.Command{
	Use:   "edit [address-id]",
	Short: "Change an address; omitted flags keep their value",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddressEdit,
}

var addressDeleteCmd = &cobra.Command{
	Use:   "delete [address-id]",
	Short: "Delete an address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAddressBook(cmd, func(ctx context.Context, m *addressbook.Manager) error {
			return m.Delete(ctx, args[0])
		})
	},
}

var addressSelectCmd = &cobra.Command{
	Use:   "select [address-id]",
	Short: "Choose the delivery address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAddressBook(cmd, func(ctx context.Context, m *addressbook.Manager) error {
			return m.Select(ctx, args[0])
		})
	},
}

func init() {
	addressListCmd.Flags().String("format", "table", "Output format: json, table")
	addressCmd.AddCommand(addressListCmd)

	addAddressFlags(addressAddCmd.Flags())
	addressCmd.AddCommand(addressAddCmd)

	addAddressFlags(addressEditCmd.Flags())
	addressCmd.AddCommand(addressEditCmd)

	addressCmd.AddCommand(addressDeleteCmd)
	addressCmd.AddCommand(addressSelectCmd)
	rootCmd.AddCommand(addressCmd)
}

func addAddressFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "Label for the address, e.g. Pune plant")
	fs.String("phone", "", "10-digit contact number")
	fs.String("address", "", "Full address line")
	fs.String("city", "", "City")
	fs.String("state", "", "State")
	fs.String("pincode", "", "6-digit pincode")
	fs.String("type", "Home", "Home, Office or Other")
}

// addressFromFlags overlays the flags the user set onto base.
func addressFromFlags(fs *pflag.FlagSet, base models.Address) models.Address {
	set := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	set("name", &base.Name)
	set("phone", &base.Phone)
	set("address", &base.Address)
	set("city", &base.City)
	set("state", &base.State)
	set("pincode", &base.Pincode)
	if fs.Changed("type") || base.Type == "" {
		v, _ := fs.GetString("type")
		base.Type = models.ParseAddressType(v)
	}
	return base
}

func withAddressBook(cmd *cobra.Command, fn func(ctx context.Context, m *addressbook.Manager) error) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var m *addressbook.Manager
	err = s.loading(cmd.Context(), "Loading addresses...", func(ctx context.Context) error {
		var err error
		if m, err = s.svc.AddressBook(ctx, s.term); err != nil {
			return err
		}
		return m.Load(ctx)
	})
	if err != nil {
		return fmt.Errorf("load addresses: %w", err)
	}
	return done(fn(cmd.Context(), m))
}

func runAddressList(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	return withAddressBook(cmd, func(_ context.Context, m *addressbook.Manager) error {
		sel, _ := m.Selected()
		if format == "json" {
			return printJSON(cmd.OutOrStdout(), struct {
				Addresses []models.Address `json:"addresses"`
				Selected  string           `json:"selected,omitempty"`
			}{m.Addresses(), sel.ID})
		}
		printAddresses(cmd.OutOrStdout(), m.Addresses(), sel.ID)
		return nil
	})
}

func runAddressAdd(cmd *cobra.Command, args []string) error {
	return withAddressBook(cmd, func(ctx context.Context, m *addressbook.Manager) error {
		a, err := m.Create(ctx, addressFromFlags(cmd.Flags(), models.Address{}))
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Saved as %s\n", a.ID)
		}
		return err
	})
}

func runAddressEdit(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withAddressBook(cmd, func(ctx context.Context, m *addressbook.Manager) error {
		var current models.Address
		for _, a := range m.Addresses() {
			if a.ID == id {
				current = a
			}
		}
		return m.Update(ctx, id, addressFromFlags(cmd.Flags(), current))
	})
}
