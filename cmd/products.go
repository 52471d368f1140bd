package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/krisalay/swrcache/resource"
)

type pageFlags struct {
	limit int
	skip  int
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", resource.DefaultLimit, "page size")
	cmd.Flags().IntVar(&p.skip, "skip", 0, "records to skip")
}

type waiter[S any] interface {
	Wait(ctx context.Context) (S, error)
	Close()
}

// settled waits for the view's fetch and closes it.
func settled[S any](ctx context.Context, v waiter[S]) (S, error) {
	defer v.Close()
	return v.Wait(ctx)
}

// listErr reports a fetch error only when there is nothing to show.
func listErr[T any](st resource.ListState[T]) error {
	if st.Err != nil && len(st.Items) == 0 {
		return failOn(st.Err)
	}
	if st.Err != nil {
		fmt.Fprintf(os.Stderr, "showing cached data: %v\n", st.Err)
	}
	return nil
}

func itemErr[T any](st resource.ItemState[T], id string) error {
	if st.Err != nil {
		return failOn(st.Err)
	}
	if st.Item == nil {
		return fmt.Errorf("no record for id %q", id)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"p"},
		Short:   "List, search and edit products",
	}

	var page pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Show one page of products",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			st, err := settled(ctx, a.client.Products.List(ctx, page.limit, page.skip, nil))
			if err != nil {
				return err
			}
			if err := listErr(st); err != nil {
				return err
			}
			printProducts(os.Stdout, st)
			return nil
		}),
	}
	page.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			st, err := settled(ctx, a.client.Products.ByID(ctx, args[0], nil))
			if err != nil {
				return err
			}
			if err := itemErr(st, args[0]); err != nil {
				return err
			}
			return printJSON(st.Item)
		}),
	}

	var searchLimit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search products by text",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			st, err := settled(ctx, a.client.Products.Search(ctx, args[0], searchLimit, nil))
			if err != nil {
				return err
			}
			if err := listErr(st); err != nil {
				return err
			}
			printProducts(os.Stdout, st)
			return nil
		}),
	}
	search.Flags().IntVar(&searchLimit, "limit", resource.DefaultLimit, "maximum results")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			st, err := settled(ctx, a.client.Products.Categories(ctx, nil))
			if err != nil {
				return err
			}
			if st.Err != nil {
				return failOn(st.Err)
			}
			rows := make([][]string, 0, len(st.Items))
			for _, c := range st.Items {
				rows = append(rows, []string{c.Slug, c.Name})
			}
			table(os.Stdout, []string{"SLUG", "NAME"}, rows)
			return nil
		}),
	}

	var in resource.ProductInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a product and show the refreshed first page",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			p, err := a.client.Products.Add(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("added product %d %q\n", p.ID, p.Title)
			return refreshProducts(ctx, a)
		}),
	}
	productFlags(add, &in)

	var upd resource.ProductInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a product",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.client.Products.Update(ctx, id, upd)
			if err != nil {
				return err
			}
			fmt.Printf("updated product %d %q\n", p.ID, p.Title)
			a.writes.OnWrite(ctx, resource.ItemKey(resource.ProductsResource, args[0]))
			return refreshProducts(ctx, a)
		}),
	}
	productFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.client.Products.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("deleted product %d %q\n", p.ID, p.Title)
			a.writes.OnWrite(ctx, resource.ItemKey(resource.ProductsResource, args[0]))
			return refreshProducts(ctx, a)
		}),
	}

	cmd.AddCommand(list, get, search, categories, add, update, del)
	return cmd
}

func productFlags(cmd *cobra.Command, in *resource.ProductInput) {
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "product title")
	f.StringVar(&in.Description, "description", "", "product description")
	f.Float64Var(&in.Price, "price", 0, "unit price")
	f.StringVar(&in.Category, "category", "", "category slug")
	f.IntVar(&in.Stock, "stock", 1, "units in stock")
	f.Float64Var(&in.Rating, "rating", 0, "rating from 0 to 5")
}

// refreshProducts revalidates the first page after a write and prints it.
func refreshProducts(ctx context.Context, a *app) error {
	view := a.client.Products.List(ctx, resource.DefaultLimit, 0, nil)
	defer view.Close()
	if _, err := view.Wait(ctx); err != nil {
		return err
	}

	a.writes.OnWrite(ctx, view.Key())
	if err := a.settle(ctx); err != nil {
		return err
	}
	st, err := view.Wait(ctx)
	if err != nil {
		return err
	}
	if err := listErr(st); err != nil {
		return err
	}
	printProducts(os.Stdout, st)
	return nil
}
