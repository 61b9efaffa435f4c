package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"graft/internal/graph"
	"graft/internal/lowering"
)

var dumpSumLen int

func init() {
	dumpCmd.Flags().IntVar(&dumpSumLen, "sum-len", 2, "vararg length for the sum template")
}

var dumpCmd = &cobra.Command{
	Use:   "dump [template...]",
	Short: "Print specialized template graphs",
	Long:  `Dump builds the named catalog templates (all of them by default) and prints their graphs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorMode(cmd); err != nil {
			return err
		}
		catalog, err := lowering.NewCatalog()
		if err != nil {
			return err
		}
		keys, err := catalog.Keys([]int{dumpSumLen})
		if err != nil {
			return err
		}

		wanted := func(name string) bool { return true }
		if len(args) > 0 {
			set := make(map[string]bool, len(args))
			for _, a := range args {
				set[a] = true
			}
			wanted = func(name string) bool {
				for a := range set {
					if strings.Contains(name, a) {
						return true
					}
				}
				return false
			}
		}

		header := color.New(color.FgGreen, color.Bold)
		out := cmd.OutOrStdout()
		matched := false
		for _, key := range keys {
			if !wanted(key.String()) {
				continue
			}
			matched = true
			t, err := catalog.Cache().GetOrBuild(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s  %s\n", header.Sprint(t.Name), t.Signature())
			if err := graph.Dump(out, t.Graph); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		if !matched {
			return fmt.Errorf("no catalog template matches %v", args)
		}
		return nil
	},
}
