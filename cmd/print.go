package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/krisalay/swrcache/resource"
	"github.com/krisalay/swrcache/types"
)

func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}

func footer[T any](w io.Writer, st resource.ListState[T]) {
	if st.Total == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	from := st.Skip + 1
	to := st.Skip + len(st.Items)
	fmt.Fprintf(w, "%s-%s of %s\n", humanize.Comma(int64(from)), humanize.Comma(int64(to)), humanize.Comma(int64(st.Total)))
	if st.Shape == resource.ShapeMismatch {
		fmt.Fprintln(w, "warning: response did not have the expected shape")
	}
}

func printProducts(w io.Writer, st resource.ListState[resource.Product]) {
	rows := make([][]string, 0, len(st.Items))
	for _, p := range st.Items {
		rows = append(rows, []string{
			fmt.Sprint(p.ID),
			p.Title,
			p.Category,
			"$" + humanize.CommafWithDigits(p.Price, 2),
			humanize.Comma(int64(p.Stock)),
			fmt.Sprintf("%.1f", p.Rating),
		})
	}
	table(w, []string{"ID", "TITLE", "CATEGORY", "PRICE", "STOCK", "RATING"}, rows)
	footer(w, st)
}

func printRecipes(w io.Writer, st resource.ListState[resource.Recipe]) {
	rows := make([][]string, 0, len(st.Items))
	for _, r := range st.Items {
		rows = append(rows, []string{
			fmt.Sprint(r.ID),
			r.Name,
			r.Cuisine,
			r.Difficulty,
			fmt.Sprintf("%d min", r.PrepTimeMinutes+r.CookTimeMinutes),
			humanize.Comma(int64(r.CaloriesPerServing)) + " kcal",
		})
	}
	table(w, []string{"ID", "NAME", "CUISINE", "DIFFICULTY", "TIME", "CALORIES"}, rows)
	footer(w, st)
}

func printTodos(w io.Writer, st resource.ListState[resource.Todo]) {
	rows := make([][]string, 0, len(st.Items))
	for _, t := range st.Items {
		done := " "
		if t.Completed {
			done = "x"
		}
		rows = append(rows, []string{fmt.Sprint(t.ID), "[" + done + "]", t.Todo, fmt.Sprint(t.UserID)})
	}
	table(w, []string{"ID", "DONE", "TODO", "USER"}, rows)
	footer(w, st)
}

func printStats(w io.Writer, s types.StatsSnapshot, entries int) {
	table(w, []string{"METRIC", "VALUE"}, [][]string{
		{"hits", humanize.Comma(s.Hits)},
		{"misses", humanize.Comma(s.Misses)},
		{"deduplicated", humanize.Comma(s.Dedups)},
		{"network fetches", humanize.Comma(s.Fetches)},
		{"fetch errors", humanize.Comma(s.Errors)},
		{"refresh-ahead", humanize.Comma(s.Refreshes)},
		{"evictions", humanize.Comma(s.Evictions)},
		{"entries", humanize.Comma(int64(entries))},
		{"hit rate", fmt.Sprintf("%.1f%%", s.HitRate()*100)},
	})
}
