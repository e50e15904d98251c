package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/internal/cart/storage"
	"github.com/phenomboxing/storefront/pkg/money"
)

type options struct {
	dir     string
	session string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspect and edit persisted carts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.dir, "dir", ".phenom/carts", "cart snapshot directory")
	root.PersistentFlags().StringVarP(&opts.session, "session", "s", "", "cart session id")
	_ = root.MarkPersistentFlagRequired("session")

	root.AddCommand(
		newShowCmd(opts),
		newAddCmd(opts),
		newSetCmd(opts),
		newRemoveCmd(opts),
		newClearCmd(opts),
	)
	return root
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, func(store *cart.Store) error {
				return printCart(cmd.OutOrStdout(), store)
			})
		},
	}
}

func newAddCmd(opts *options) *cobra.Command {
	var (
		name     string
		price    string
		variant  string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitPrice, err := money.Parse(price)
			if err != nil {
				return fmt.Errorf("invalid --price: %w", err)
			}
			product := cart.Product{ID: args[0], Name: name, Category: category, UnitPrice: unitPrice}
			return withStore(cmd.Context(), opts, func(store *cart.Store) error {
				store.Add(product, variant)
				return printCart(cmd.OutOrStdout(), store)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&price, "price", "", "unit price, e.g. 45000.00")
	cmd.Flags().StringVar(&variant, "variant", "", "size or other variant")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newSetCmd(opts *options) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a line; zero removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %w", err)
			}
			return withStore(cmd.Context(), opts, func(store *cart.Store) error {
				if !store.SetQuantity(cart.NewKey(args[0], variant), quantity) {
					fmt.Fprintln(cmd.ErrOrStderr(), "no such line, cart unchanged")
				}
				return printCart(cmd.OutOrStdout(), store)
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "size or other variant")
	return cmd
}

func newRemoveCmd(opts *options) *cobra.Command {
	var variant string
	cmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *cart.Store) error {
				store.Remove(cart.NewKey(args[0], variant))
				return printCart(cmd.OutOrStdout(), store)
			})
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "size or other variant")
	return cmd
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), opts, func(store *cart.Store) error {
				store.Clear()
				return printCart(cmd.OutOrStdout(), store)
			})
		},
	}
}

// withStore opens the session's cart, runs fn and waits for the snapshot to
// reach disk before returning.
func withStore(ctx context.Context, opts *options, fn func(*cart.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cart.ValidateSessionID(opts.session); err != nil {
		return err
	}

	registry := cart.NewRegistry(storage.FileFactory(opts.dir), cart.RegistryOptions{})
	defer registry.Close(ctx)

	store, err := registry.Get(ctx, opts.session)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return store.Flush(ctx)
}

func printCart(out io.Writer, store *cart.Store) error {
	snap := store.Snapshot()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session %s (version %d)\n", store.SessionID(), snap.Version)
	fmt.Fprintln(tw, "LINE\tNAME\tQTY\tUNIT\tTOTAL")
	total := money.Sum()
	count := 0
	for _, item := range snap.Items {
		line := item.LineTotal()
		total = total.Add(line)
		count += item.Quantity
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", item.Key, item.Name, item.Quantity, money.Format(item.UnitPrice), money.Format(line))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", count, money.Format(total))
	return tw.Flush()
}
