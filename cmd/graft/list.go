package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"graft/internal/lowering"
)

var listSumLengths []int

func init() {
	listCmd.Flags().IntSliceVar(&listSumLengths, "sum-lengths", []int{1, 2, 4}, "vararg lengths to specialize the sum template for")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog templates and their signatures",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorMode(cmd); err != nil {
			return err
		}
		catalog, err := lowering.NewCatalog()
		if err != nil {
			return err
		}
		keys, err := catalog.Keys(listSumLengths)
		if err != nil {
			return err
		}

		type row struct{ key, sig string }
		rows := make([]row, 0, len(keys))
		for _, key := range keys {
			t, err := catalog.Cache().GetOrBuild(key)
			if err != nil {
				return err
			}
			rows = append(rows, row{key: t.Name, sig: t.Signature()})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

		out := cmd.OutOrStdout()
		for _, r := range rows {
			fmt.Fprintf(out, "%-48s %s\n", r.key, r.sig)
		}
		if !quietFlag(cmd) {
			fmt.Fprintf(out, "%d template(s)\n", len(rows))
		}
		return nil
	},
}
