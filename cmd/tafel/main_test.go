package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/tafel/internal/config"
	"github.com/verte-zerg/tafel/internal/stats"
)

func findCmd(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	cmd, _, err := root.Find([]string{name})
	if err != nil {
		t.Fatalf("find %s: %v", name, err)
	}
	return cmd
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template should decode: %v", err)
	}
	if cfg.Practice.Tables != nil || cfg.Storage.Backend != nil {
		t.Fatalf("template values should all be commented out")
	}
}

func TestResolveSettingsAppliesFileConfig(t *testing.T) {
	root := newRootCmd()
	test := findCmd(t, root, "test")
	if err := test.Flags().Set("questions", "12"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := test.Flags().Set("tables", "6,7"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	fileTables := []int{2, 3}
	fileQuestions := 40
	fileSpeed := "Cheetah"
	fileMetric := "coins"
	cfg := config.FileConfig{
		Practice: config.PracticeConfig{Tables: &fileTables},
		Test:     config.TestConfig{Tables: &fileTables, Questions: &fileQuestions, Speed: &fileSpeed},
		Progress: config.ProgressConfig{Metric: &fileMetric},
	}
	settings, err := resolveSettings(test, cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if settings.Questions != 12 {
		t.Fatalf("flag should win over file, got %d", settings.Questions)
	}
	if len(settings.TestTables) != 2 || settings.TestTables[0] != 6 {
		t.Fatalf("test tables flag should win, got %v", settings.TestTables)
	}
	if len(settings.PracticeTables) != 2 || settings.PracticeTables[0] != 2 {
		t.Fatalf("practice tables should come from file, got %v", settings.PracticeTables)
	}
	if settings.Speed != "cheetah" {
		t.Fatalf("speed should come from file, got %q", settings.Speed)
	}
	if settings.Metric != stats.MetricCoins {
		t.Fatalf("metric should come from file, got %q", settings.Metric)
	}
}

func TestResolveSettingsRejectsBadValues(t *testing.T) {
	root := newRootCmd()
	test := findCmd(t, root, "test")
	if err := test.Flags().Set("speed", "rocket"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := resolveSettings(test, config.FileConfig{}); err == nil {
		t.Fatalf("expected unknown speed error")
	}

	root = newRootCmd()
	progress := findCmd(t, root, "progress")
	if err := progress.Flags().Set("metric", "streak"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := resolveSettings(progress, config.FileConfig{}); err == nil {
		t.Fatalf("expected unknown metric error")
	}
}

func TestSelectorWeightsFromConfig(t *testing.T) {
	boost := 3.0
	recent := 5
	maxFactor := 12
	w := selectorWeights(config.FileConfig{
		Practice: config.PracticeConfig{RecentSize: &recent},
		Selector: config.SelectorConfig{SlowBoost: &boost, MaxFactor: &maxFactor},
	})
	if w.SlowBoost != 3 || w.RecentSize != 5 || w.MaxFactor != 12 {
		t.Fatalf("unexpected weights: %+v", w)
	}
	if w.Base != 0 {
		t.Fatalf("unset values should stay zero for defaults, got %v", w.Base)
	}
}
