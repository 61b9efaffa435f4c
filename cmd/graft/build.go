package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"graft/internal/diag"
	"graft/internal/driver"
	"graft/internal/lowering"
	"graft/internal/observ"
	"graft/internal/snippet"
)

var (
	buildNoDiskCache bool
	buildDir         string
)

func init() {
	buildCmd.Flags().BoolVar(&buildNoDiskCache, "no-disk-cache", false, "skip the on-disk template cache")
	buildCmd.Flags().StringVarP(&buildDir, "dir", "C", ".", "directory to look up graft.toml from")
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Specialize every catalog template",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyColorMode(cmd); err != nil {
			return err
		}
		manifest, err := loadBuildManifest(buildDir)
		if err != nil {
			return err
		}
		jobs := jobsFlag(cmd)
		if jobs == 0 {
			jobs = manifest.Config.Build.Jobs
		}

		catalog, err := lowering.NewCatalogWith(snippet.Options{
			MaxInlineRounds: manifest.Config.Engine.MaxInlineRounds,
		})
		if err != nil {
			return err
		}
		keys, err := catalog.Keys(manifest.Config.Build.SumLengths)
		if err != nil {
			return err
		}

		var dc *driver.DiskCache
		if !buildNoDiskCache {
			if dir := manifest.cacheDir(); dir != "" {
				dc, err = driver.OpenDiskCacheAt(dir)
			} else {
				dc, err = driver.OpenDiskCache("graft")
			}
			if err != nil {
				return err
			}
			warmed := driver.WarmFromDisk(dc, catalog.Cache(), keys)
			if warmed > 0 && !quietFlag(cmd) {
				fmt.Fprintf(cmd.OutOrStdout(), "warmed %d template(s) from disk\n", warmed)
			}
		}

		results, err := driver.SpecializeAll(cmd.Context(), catalog.Cache(), keys, jobs)
		if err != nil {
			return err
		}
		bag := driver.CollectDiagnostics(results)

		// A failed persist degrades the next run to a cold start; the
		// templates themselves are fine.
		if dc != nil {
			if err := driver.PersistAll(dc, results); err != nil {
				persist := diag.NewBag(1)
				persist.Add(diag.Diagnostic{
					Severity: diag.SevWarning,
					Code:     diag.IOSnapshotError,
					Message:  fmt.Sprintf("persisting templates: %v", err),
				})
				bag.Merge(persist)
			}
		}
		printDiagnostics(cmd.OutOrStdout(), bag)
		if !quietFlag(cmd) {
			built := 0
			for _, r := range results {
				if r.Template != nil {
					built++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %d of %d template(s)\n", built, len(results))
		}
		if timingsFlag(cmd) {
			printTimings(cmd.OutOrStdout(), driver.MergeTimings(results))
		}
		if bag.HasErrors() {
			os.Exit(1)
		}
		return nil
	},
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	codeColor  = color.New(color.FgCyan)
)

func printDiagnostics(out io.Writer, bag *diag.Bag) {
	for _, d := range bag.Items() {
		sev := warnColor
		if d.Severity >= diag.SevError {
			sev = errorColor
		}
		loc := d.Template
		if d.Param != "" {
			loc += "." + d.Param
		}
		fmt.Fprintf(out, "%s %s %s: %s\n",
			sev.Sprint(d.Severity.String()), codeColor.Sprint(d.Code.String()), loc, d.Message)
		for _, note := range d.Notes {
			fmt.Fprintf(out, "  note: %s\n", note.Msg)
		}
	}
}

func printTimings(out io.Writer, report observ.Report) {
	fmt.Fprint(out, "timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(out, "  %-24s %7.2f ms\n", p.Name, p.DurationMS)
	}
	fmt.Fprintf(out, "  %-24s %7.2f ms\n", "total", report.TotalMS)
}
