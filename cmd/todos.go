package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krisalay/swrcache/resource"
)

func todosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todos",
		Aliases: []string{"t"},
		Short:   "List and edit todos",
	}

	var page pageFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "Show one page of todos",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
			st, err := settled(ctx, a.client.Todos.List(ctx, page.limit, page.skip, nil))
			if err != nil {
				return err
			}
			if err := listErr(st); err != nil {
				return err
			}
			printTodos(os.Stdout, st)
			return nil
		}),
	}
	page.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			st, err := settled(ctx, a.client.Todos.ByID(ctx, args[0], nil))
			if err != nil {
				return err
			}
			if err := itemErr(st, args[0]); err != nil {
				return err
			}
			return printJSON(st.Item)
		}),
	}

	var in resource.TodoInput
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a todo and show the refreshed first page",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			in.Todo = args[0]
			t, err := a.client.Todos.Add(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("added todo %d %q\n", t.ID, t.Todo)
			return refreshTodos(ctx, a)
		}),
	}
	add.Flags().BoolVar(&in.Completed, "done", false, "create it completed")
	add.Flags().IntVar(&in.UserID, "user", 1, "owner user id")

	var (
		text string
		done bool
		user int
	)
	var update *cobra.Command
	update = &cobra.Command{
		Use:   "update <id>",
		Short: "Change a todo's text, state or owner",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			// Only flags given on the command line are sent.
			var upd resource.TodoUpdate
			if update.Flags().Changed("text") {
				upd.Todo = &text
			}
			if update.Flags().Changed("done") {
				upd.Completed = &done
			}
			if update.Flags().Changed("user") {
				upd.UserID = &user
			}

			t, err := a.client.Todos.Update(ctx, id, upd)
			if err != nil {
				return err
			}
			fmt.Printf("updated todo %d %q\n", t.ID, t.Todo)
			a.writes.OnWrite(ctx, resource.ItemKey(resource.TodosResource, args[0]))
			return refreshTodos(ctx, a)
		}),
	}
	update.Flags().StringVar(&text, "text", "", "new text")
	update.Flags().BoolVar(&done, "done", false, "mark completed (--done=false to reopen)")
	update.Flags().IntVar(&user, "user", 0, "new owner user id")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := a.client.Todos.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("deleted todo %d %q\n", t.ID, t.Todo)
			a.writes.OnWrite(ctx, resource.ItemKey(resource.TodosResource, args[0]))
			return refreshTodos(ctx, a)
		}),
	}

	cmd.AddCommand(list, get, add, update, del)
	return cmd
}

// refreshTodos revalidates the first page after a write and prints it.
func refreshTodos(ctx context.Context, a *app) error {
	view := a.client.Todos.List(ctx, resource.DefaultLimit, 0, nil)
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
	printTodos(os.Stdout, st)
	return nil
}
