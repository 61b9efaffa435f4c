package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type buildManifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Package packageConfig `toml:"package"`
	Build   buildConfig   `toml:"build"`
	Engine  engineConfig  `toml:"engine"`
}

type packageConfig struct {
	Name string `toml:"name"`
}

type buildConfig struct {
	Jobs       int    `toml:"jobs"`
	SumLengths []int  `toml:"sum_lengths"`
	CacheDir   string `toml:"cache_dir"`
}

type engineConfig struct {
	MaxInlineRounds int `toml:"max_inline_rounds"`
}

// defaultSumLengths are specialized when no manifest pins them down.
var defaultSumLengths = []int{1, 2, 4}

func findGraftToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "graft.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadBuildManifest reads the nearest graft.toml. A missing manifest is not
// an error; defaults apply.
func loadBuildManifest(startDir string) (*buildManifest, error) {
	path, ok, err := findGraftToml(startDir)
	if err != nil {
		return nil, err
	}
	manifest := &buildManifest{
		Config: manifestConfig{Build: buildConfig{SumLengths: defaultSumLengths}},
	}
	if !ok {
		return manifest, nil
	}
	meta, err := toml.DecodeFile(path, &manifest.Config)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("build", "sum_lengths") {
		manifest.Config.Build.SumLengths = defaultSumLengths
	}
	for _, n := range manifest.Config.Build.SumLengths {
		if n < 0 {
			return nil, fmt.Errorf("%s: [build].sum_lengths entry %d is negative", path, n)
		}
	}
	if manifest.Config.Engine.MaxInlineRounds < 0 {
		return nil, fmt.Errorf("%s: [engine].max_inline_rounds is negative", path)
	}
	manifest.Path = path
	manifest.Root = filepath.Dir(path)
	return manifest, nil
}

// cacheDir resolves [build].cache_dir against the manifest root. Empty means
// the standard per-user cache location.
func (m *buildManifest) cacheDir() string {
	dir := m.Config.Build.CacheDir
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.Root, dir)
}
