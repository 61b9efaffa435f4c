package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"graft/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the on-disk template cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		dc, err := driver.OpenDiskCache("graft")
		if err != nil {
			return err
		}
		if err := dc.DropAll(); err != nil {
			return err
		}
		if !quietFlag(cmd) {
			fmt.Fprintln(cmd.OutOrStdout(), "template cache dropped")
		}
		return nil
	},
}
