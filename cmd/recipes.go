package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/krisalay/swrcache/resource"
)

func recipesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recipes",
		Aliases: []string{"r"},
		Short:   "Browse recipes",
	}

	var page pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Show one page of recipes",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			st, err := settled(ctx, a.client.Recipes.List(ctx, page.limit, page.skip, nil))
			if err != nil {
				return err
			}
			if err := listErr(st); err != nil {
				return err
			}
			printRecipes(os.Stdout, st)
			return nil
		}),
	}
	page.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one recipe",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			st, err := settled(ctx, a.client.Recipes.ByID(ctx, args[0], nil))
			if err != nil {
				return err
			}
			if err := itemErr(st, args[0]); err != nil {
				return err
			}
			return printJSON(st.Item)
		}),
	}

	var limit int
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search recipes by name, cuisine or tag",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			st, err := settled(ctx, a.client.Recipes.Search(ctx, args[0], limit, nil))
			if err != nil {
				return err
			}
			if err := listErr(st); err != nil {
				return err
			}
			printRecipes(os.Stdout, st)
			return nil
		}),
	}
	search.Flags().IntVar(&limit, "limit", resource.DefaultLimit, "maximum results")

	cmd.AddCommand(list, get, search)
	return cmd
}
