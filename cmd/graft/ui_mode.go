package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// applyColorMode resolves the --color flag against the terminal.
func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("unsupported --color mode %q (must be auto, on, or off)", mode)
	}
	return nil
}

func quietFlag(cmd *cobra.Command) bool {
	quiet, _ := cmd.Flags().GetBool("quiet")
	return quiet
}

func timingsFlag(cmd *cobra.Command) bool {
	timings, _ := cmd.Flags().GetBool("timings")
	return timings
}

func jobsFlag(cmd *cobra.Command) int {
	jobs, _ := cmd.Flags().GetInt("jobs")
	return jobs
}
