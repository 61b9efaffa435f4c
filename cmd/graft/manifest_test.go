package main

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "graft.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadBuildManifestDefaults(t *testing.T) {
	m, err := loadBuildManifest(t.TempDir())
	if err != nil {
		t.Fatalf("loadBuildManifest: %v", err)
	}
	if m.Path != "" {
		t.Fatalf("missing manifest resolved to %q", m.Path)
	}
	if !slices.Equal(m.Config.Build.SumLengths, defaultSumLengths) {
		t.Fatalf("sum lengths = %v, want defaults %v", m.Config.Build.SumLengths, defaultSumLengths)
	}
	if m.Config.Build.Jobs != 0 {
		t.Fatalf("jobs = %d, want unset", m.Config.Build.Jobs)
	}
}

func TestLoadBuildManifestParsesFields(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[package]
name = "demo"

[build]
jobs = 3
sum_lengths = [2, 8]
cache_dir = "out/cache"

[engine]
max_inline_rounds = 4
`)

	m, err := loadBuildManifest(dir)
	if err != nil {
		t.Fatalf("loadBuildManifest: %v", err)
	}
	if m.Path != path {
		t.Fatalf("path = %q, want %q", m.Path, path)
	}
	if m.Root != dir {
		t.Fatalf("root = %q, want %q", m.Root, dir)
	}
	if m.Config.Package.Name != "demo" {
		t.Fatalf("package name = %q, want demo", m.Config.Package.Name)
	}
	if m.Config.Build.Jobs != 3 {
		t.Fatalf("jobs = %d, want 3", m.Config.Build.Jobs)
	}
	if !slices.Equal(m.Config.Build.SumLengths, []int{2, 8}) {
		t.Fatalf("sum lengths = %v, want [2 8]", m.Config.Build.SumLengths)
	}
	if m.Config.Engine.MaxInlineRounds != 4 {
		t.Fatalf("max inline rounds = %d, want 4", m.Config.Engine.MaxInlineRounds)
	}
	if got, want := m.cacheDir(), filepath.Join(dir, "out", "cache"); got != want {
		t.Fatalf("cache dir = %q, want %q", got, want)
	}
}

func TestManifestCacheDir(t *testing.T) {
	m := &buildManifest{Root: "/proj"}
	if got := m.cacheDir(); got != "" {
		t.Fatalf("unset cache dir = %q, want empty", got)
	}
	m.Config.Build.CacheDir = "/abs/cache"
	if got := m.cacheDir(); got != "/abs/cache" {
		t.Fatalf("absolute cache dir = %q", got)
	}
	m.Config.Build.CacheDir = "rel"
	if got := m.cacheDir(); got != filepath.Join("/proj", "rel") {
		t.Fatalf("relative cache dir = %q", got)
	}
}

func TestLoadBuildManifestKeepsDefaultLengthsWhenUndefined(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[build]
jobs = 2
`)

	m, err := loadBuildManifest(dir)
	if err != nil {
		t.Fatalf("loadBuildManifest: %v", err)
	}
	if !slices.Equal(m.Config.Build.SumLengths, defaultSumLengths) {
		t.Fatalf("sum lengths = %v, want defaults %v", m.Config.Build.SumLengths, defaultSumLengths)
	}
	if m.Config.Build.Jobs != 2 {
		t.Fatalf("jobs = %d, want 2", m.Config.Build.Jobs)
	}
}

func TestLoadBuildManifestRejectsNegativeLengths(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[build]
sum_lengths = [2, -1]
`)
	if _, err := loadBuildManifest(dir); err == nil {
		t.Fatalf("negative sum length accepted")
	}
}

func TestLoadBuildManifestRejectsNegativeInlineRounds(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[engine]
max_inline_rounds = -1
`)
	if _, err := loadBuildManifest(dir); err == nil {
		t.Fatalf("negative inline round cap accepted")
	}
}

func TestLoadBuildManifestRejectsBadToml(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[build\n")
	if _, err := loadBuildManifest(dir); err == nil {
		t.Fatalf("malformed manifest accepted")
	}
}

func TestFindGraftTomlWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, "[package]\nname = \"demo\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	found, ok, err := findGraftToml(nested)
	if err != nil {
		t.Fatalf("findGraftToml: %v", err)
	}
	if !ok || found != path {
		t.Fatalf("found = %q ok=%v, want %q", found, ok, path)
	}
}
