package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mvalverde/eanscan/internal/config"
	"github.com/mvalverde/eanscan/internal/fetch"
	"github.com/mvalverde/eanscan/internal/model"
)

// TestNewSearchCmd tests the search command creation.
func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	if cmd.Use != "search <ean>..." {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	// Verify flags exist with their short options
	flagsWithShort := map[string]string{
		"timeout":     "t",
		"retries":     "r",
		"concurrency": "n",
		"proxy":       "p",
		"lang":        "l",
		"config":      "c",
		"json":        "j",
		"markdown":    "m",
		"output":      "o",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	// Long-only flags
	for _, flag := range []string{"max-results", "max-snapshots", "sources", "timeout-total", "csv"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to exist", flag)
		}
	}
}

// TestBuildConfig tests config construction from command flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults match config package", func(t *testing.T) {
		t.Parallel()

		cmd := NewSearchCmd()
		cfg, err := buildConfig(cmd, []string{"4006381333931"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("expected timeout %v, got %v", config.DefaultTimeout, cfg.Timeout)
		}
		if cfg.Retries != config.DefaultRetries {
			t.Errorf("expected retries %d, got %d", config.DefaultRetries, cfg.Retries)
		}
		if cfg.Concurrency != config.DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", config.DefaultConcurrency, cfg.Concurrency)
		}
		if cfg.Language != config.DefaultLanguage {
			t.Errorf("expected language %q, got %q", config.DefaultLanguage, cfg.Language)
		}
		if len(cfg.EANs) != 1 || cfg.EANs[0] != "4006381333931" {
			t.Errorf("unexpected identifiers: %v", cfg.EANs)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be enabled")
		}
		if cfg.DBDir == "" {
			t.Error("expected DBDir to be set")
		}
	})

	t.Run("flags override defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewSearchCmd()
		for flag, value := range map[string]string{
			"timeout":       "5s",
			"retries":       "2",
			"concurrency":   "3",
			"lang":          "en",
			"max-results":   "4",
			"max-snapshots": "6",
			"timeout-total": "90s",
			"json":          "true",
		} {
			if err := cmd.Flags().Set(flag, value); err != nil {
				t.Fatalf("failed to set flag %q: %v", flag, err)
			}
		}
		if err := cmd.Flags().Set("proxy", "socks5://127.0.0.1:9050"); err != nil {
			t.Fatalf("failed to set proxy flag: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"96385074"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
		}
		if cfg.Retries != 2 {
			t.Errorf("expected retries 2, got %d", cfg.Retries)
		}
		if cfg.Concurrency != 3 {
			t.Errorf("expected concurrency 3, got %d", cfg.Concurrency)
		}
		if cfg.Language != "en" {
			t.Errorf("expected language en, got %q", cfg.Language)
		}
		if cfg.MaxResults != 4 || cfg.MaxSnapshots != 6 {
			t.Errorf("unexpected limits: results %d, snapshots %d", cfg.MaxResults, cfg.MaxSnapshots)
		}
		if cfg.GlobalTimeout != 90*time.Second {
			t.Errorf("expected global timeout 90s, got %v", cfg.GlobalTimeout)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON report to be enabled")
		}
		if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "socks5://127.0.0.1:9050" {
			t.Errorf("unexpected proxies: %v", cfg.Proxies)
		}
	})

	t.Run("loads explicit config file", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		content := "userAgents:\n  - \"TestAgent/1.0\"\nproxies:\n  - \"http://10.0.0.1:8080\"\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := NewSearchCmd()
		if err := cmd.Flags().Set("config", configPath); err != nil {
			t.Fatalf("failed to set config flag: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"4006381333931"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.UserAgents) != 1 || cfg.UserAgents[0] != "TestAgent/1.0" {
			t.Errorf("expected user agents from file, got %v", cfg.UserAgents)
		}
		if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "http://10.0.0.1:8080" {
			t.Errorf("expected proxies from file, got %v", cfg.Proxies)
		}
	})

	t.Run("CLI proxies win over file proxies", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("proxies:\n  - \"http://file-proxy:8080\"\n"), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := NewSearchCmd()
		if err := cmd.Flags().Set("config", configPath); err != nil {
			t.Fatalf("failed to set config flag: %v", err)
		}
		if err := cmd.Flags().Set("proxy", "socks5://cli-proxy:9050"); err != nil {
			t.Fatalf("failed to set proxy flag: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"4006381333931"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "socks5://cli-proxy:9050" {
			t.Errorf("expected CLI proxy to win, got %v", cfg.Proxies)
		}
	})

	t.Run("fails for missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewSearchCmd()
		if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
			t.Fatalf("failed to set config flag: %v", err)
		}

		if _, err := buildConfig(cmd, []string{"4006381333931"}); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("conflicting report formats fail validation", func(t *testing.T) {
		t.Parallel()

		cmd := NewSearchCmd()
		for _, flag := range []string{"json", "markdown"} {
			if err := cmd.Flags().Set(flag, "true"); err != nil {
				t.Fatalf("failed to set flag %q: %v", flag, err)
			}
		}

		cfg, err := buildConfig(cmd, []string{"4006381333931"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected validation error for conflicting formats")
		}
	})
}

// TestParseEANs tests identifier validation before any network activity.
func TestParseEANs(t *testing.T) {
	t.Parallel()

	t.Run("accepts valid identifiers of all formats", func(t *testing.T) {
		t.Parallel()

		eans, err := parseEANs([]string{"4006381333931", "96385074", "04006381333931"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(eans) != 3 {
			t.Fatalf("expected 3 identifiers, got %d", len(eans))
		}
		if eans[0].Format() != model.EANFormat13 {
			t.Errorf("expected EAN-13, got %v", eans[0].Format())
		}
		if eans[1].Format() != model.EANFormat8 {
			t.Errorf("expected EAN-8, got %v", eans[1].Format())
		}
		if eans[2].Format() != model.EANFormat14 {
			t.Errorf("expected EAN-14, got %v", eans[2].Format())
		}
	})

	t.Run("rejects bad checksum before any scan", func(t *testing.T) {
		t.Parallel()

		_, err := parseEANs([]string{"4006381333931", "4006381333932"})
		if err == nil {
			t.Fatal("expected error for invalid checksum")
		}
		if !strings.Contains(err.Error(), "4006381333932") {
			t.Errorf("expected offending identifier in error, got %v", err)
		}
	})

	t.Run("rejects non-digit input", func(t *testing.T) {
		t.Parallel()

		if _, err := parseEANs([]string{"not-an-ean"}); err == nil {
			t.Error("expected error for non-digit identifier")
		}
	})
}

// TestBuildSources tests source registry filtering.
func TestBuildSources(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client, err := fetch.NewClient()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Run("all sources by default", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		sources := buildSources(cfg, client, nil, logger)
		if len(sources) != 4 {
			t.Errorf("expected 4 sources, got %d", len(sources))
		}
	})

	t.Run("restricts to named sources", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Sources = []string{"google", "openfoodfacts"}
		sources := buildSources(cfg, client, nil, logger)
		if len(sources) != 2 {
			t.Fatalf("expected 2 sources, got %d", len(sources))
		}
		for _, s := range sources {
			name := s.Name().String()
			if name != "google" && name != "openfoodfacts" {
				t.Errorf("unexpected source %q", name)
			}
		}
	})

	t.Run("config file tunes a named source", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.FileConfig = &config.File{
			Sources: map[string]config.SourceConfig{
				"google": {
					MaxResults: 3,
					Headers:    map[string]string{"Accept-Language": "es-ES"},
				},
			},
		}

		perSource := fileSourceOptions(cfg)
		if perSource == nil {
			t.Fatal("expected per-source options for a loaded config file")
		}
		if got := len(perSource(model.SourceGoogle)); got != 2 {
			t.Errorf("expected 2 options for google (max results and headers), got %d", got)
		}
		if got := len(perSource(model.SourceAmazon)); got != 0 {
			t.Errorf("expected no options for amazon, got %d", got)
		}

		if got := len(buildSources(cfg, client, nil, logger)); got != 4 {
			t.Errorf("expected 4 sources, got %d", got)
		}
	})

	t.Run("no config file means no per-source options", func(t *testing.T) {
		t.Parallel()

		if fileSourceOptions(config.NewConfig()) != nil {
			t.Error("expected nil per-source options without a config file")
		}
	})

	t.Run("config file can disable a source", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.FileConfig = &config.File{
			Sources: map[string]config.SourceConfig{
				"amazon": {Disabled: true},
			},
		}
		sources := buildSources(cfg, client, nil, logger)
		if len(sources) != 3 {
			t.Fatalf("expected 3 sources, got %d", len(sources))
		}
		for _, s := range sources {
			if s.Name() == model.SourceAmazon {
				t.Error("expected amazon to be disabled")
			}
		}
	})
}

// TestOutputReport tests report output destination and format selection.
func TestOutputReport(t *testing.T) {
	t.Parallel()

	newReport := func() *model.ScanReport {
		report := model.NewScanReport(model.MustParseEAN("4006381333931"))
		report.Results.Add(model.Finding{
			Source:         model.SourceGoogle,
			URL:            "https://example.com/page",
			Classification: model.ClassificationHistorical,
			Rule:           "discontinued-es",
		})
		return report
	}

	t.Run("writes simple report to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ReportFile = filepath.Join(t.TempDir(), "out", "report.txt")

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		if !bytes.Contains(content, []byte("EANSCAN REPORT")) {
			t.Error("expected simple report header in file")
		}
	})

	t.Run("writes JSON report to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "report.json")

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		if !bytes.Contains(content, []byte(`"ean": "4006381333931"`)) {
			t.Error("expected JSON report content in file")
		}
	})

	t.Run("writes CSV report to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.CSVReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "report.csv")

		if err := outputReport(cfg, newReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report file: %v", err)
		}
		if !bytes.HasPrefix(content, []byte("ean,")) {
			t.Error("expected CSV header in file")
		}
	})
}
