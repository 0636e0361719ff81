// ABOUTME: Tests for CLI helper functions and command execution.
// ABOUTME: Runs commands end to end against temporary XDG directories.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/fitlog/internal/models"
	"github.com/harperreed/fitlog/internal/storage"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string no truncation", "wrist", 10, "wrist"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "a very long variant name", 10, "a very ..."},
		{"truncate at boundary", "abcdefghij", 6, "abc..."},
		{"empty string", "", 10, ""},
		{"very short maxLen", "hello", 3, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		length int
		want   string
	}{
		{"needs padding", "hi", 5, "hi   "},
		{"exact length", "hello", 5, "hello"},
		{"longer than length", "heart_rate", 5, "heart_rate"},
		{"empty string", "", 5, "     "},
		{"zero length", "hello", 0, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := padRight(tt.input, tt.length)
			if got != tt.want {
				t.Errorf("padRight(%q, %d) = %q, want %q", tt.input, tt.length, got, tt.want)
			}
		})
	}
}

func TestParseDayFlag(t *testing.T) {
	d, err := parseDayFlag("start", "")
	if err != nil || d != nil {
		t.Errorf("empty value = %v, %v; want nil, nil", d, err)
	}

	d, err = parseDayFlag("start", "2024-08-29")
	if err != nil {
		t.Fatalf("parseDayFlag failed: %v", err)
	}
	if *d != models.MustParseDay("2024-08-29") {
		t.Errorf("parseDayFlag = %s", d)
	}

	if _, err := parseDayFlag("end", "29/08/2024"); err == nil || !strings.Contains(err.Error(), "--end") {
		t.Errorf("expected error naming --end, got %v", err)
	}
}

func TestFormatOptional(t *testing.T) {
	if got := formatOptional(nil, "%.1f"); got != "-" {
		t.Errorf("formatOptional(nil) = %q", got)
	}
	v := 7.25
	if got := formatOptional(&v, "%.1f"); got != "7.2" && got != "7.3" {
		t.Errorf("formatOptional(7.25) = %q", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	defer func() { stdin = os.Stdin }()

	for _, tt := range tests {
		stdin = strings.NewReader(tt.input)
		if got := confirm("Continue?"); got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestRootCmdFlags(t *testing.T) {
	if rootCmd.Use != "fitlog" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "fitlog")
	}
	for _, name := range []string{"config", "backend", "data-dir", "verbose"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected persistent flag --%s", name)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"ingest", "analyze", "merge", "update", "show", "summary",
		"export", "import", "serve", "mcp", "migrate", "sync", "config", "install-skill",
	}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Errorf("expected %s command to be registered", name)
		}
	}
}

func TestUpdateCmdFlags(t *testing.T) {
	for _, name := range []string{"dry-run", "recent-only", "fill-gaps", "yes"} {
		if updateCmd.Flags().Lookup(name) == nil {
			t.Errorf("expected update flag --%s", name)
		}
	}
}

func TestExportCmdValidArgs(t *testing.T) {
	want := map[string]bool{"json": true, "yaml": true, "markdown": true}
	if len(exportCmd.ValidArgs) != len(want) {
		t.Fatalf("ValidArgs = %v", exportCmd.ValidArgs)
	}
	for _, a := range exportCmd.ValidArgs {
		if !want[a] {
			t.Errorf("unexpected valid arg %q", a)
		}
	}
}

func TestSyncCmdSubcommands(t *testing.T) {
	want := map[string]bool{"link": false, "unlink": false, "status": false, "repair": false, "reset": false, "wipe": false}
	for _, cmd := range syncCmd.Commands() {
		want[cmd.Name()] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected sync %s subcommand", name)
		}
	}
}

// setupTestCLI points every XDG directory at a temp dir and resets global flags.
// It returns the data directory commands will use.
func setupTestCLI(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))

	configPath, backendFlag, dataDirFlag, verbose = "", "", "", false
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { _ = closeStore() })

	return filepath.Join(tmp, "data", "fitlog")
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func seedDay(t *testing.T, dir string, metric models.MetricType, day string, values ...float64) {
	t.Helper()
	s, err := storage.NewCSVStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	d := models.MustParseDay(day)
	table := models.NewDayTable(metric, d)
	for i, v := range values {
		table.Rows = append(table.Rows, models.Record{Timestamp: d.Time().Add(time.Duration(i) * time.Hour), HasTime: true, Value: v})
	}
	if err := s.Write(metric, d, table); err != nil {
		t.Fatalf("seed %s %s: %v", metric, day, err)
	}
}

func TestIngestAndAnalyze(t *testing.T) {
	dataDir := setupTestCLI(t)
	analyzeTypes, analyzeExportGaps, analyzeFormat = nil, "", ""

	archive := t.TempDir()
	export := filepath.Join(archive, "Global Export Data")
	if err := os.MkdirAll(export, 0755); err != nil {
		t.Fatal(err)
	}
	heart := `[
		{"dateTime":"08/29/24 08:00:00","value":{"bpm":61,"confidence":3}},
		{"dateTime":"09/01/24 08:00:00","value":{"bpm":64,"confidence":3}}
	]`
	if err := os.WriteFile(filepath.Join(export, "heart_rate-2024-08-29.json"), []byte(heart), 0644); err != nil {
		t.Fatal(err)
	}

	if err := run(t, "ingest", archive); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	s, err := storage.NewCSVStore(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	days, err := s.ListDays(models.MetricHeartRate)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 {
		t.Fatalf("ingested %d heart rate days, want 2", len(days))
	}

	gapsFile := filepath.Join(t.TempDir(), "gaps.csv")
	if err := run(t, "analyze", "--export-gaps", gapsFile); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	data, err := os.ReadFile(gapsFile)
	if err != nil {
		t.Fatalf("gaps file not written: %v", err)
	}
	if !strings.Contains(string(data), "heart_rate,2024-08-30,2024-08-31,2") {
		t.Errorf("gaps report missing the heart rate gap:\n%s", data)
	}
	analyzeExportGaps = ""
}

func TestIngestMissingPath(t *testing.T) {
	setupTestCLI(t)
	if err := run(t, "ingest"); err == nil {
		t.Error("expected error without a path or archive_dir")
	}
}

func TestExportImport(t *testing.T) {
	dataDir := setupTestCLI(t)
	exportTypes, exportStart, exportEnd = nil, "", ""
	seedDay(t, dataDir, models.MetricSteps, "2024-08-29", 100, 250)
	seedDay(t, dataDir, models.MetricSteps, "2024-08-30", 40)

	backup := filepath.Join(t.TempDir(), "backup.json")
	if err := run(t, "export", "json", "-o", backup, "--start", "2024-08-30"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	exportOutput, exportStart = "", ""

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := run(t, "import", backup, "--data-dir", restoreDir); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	dataDirFlag = ""

	s, err := storage.NewCSVStore(restoreDir)
	if err != nil {
		t.Fatal(err)
	}
	days, err := s.ListDays(models.MetricSteps)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0] != models.MustParseDay("2024-08-30") {
		t.Errorf("restored days = %v, want only 2024-08-30", days)
	}
}

func TestExportInvalidStart(t *testing.T) {
	setupTestCLI(t)
	exportStart = ""
	if err := run(t, "export", "json", "--start", "yesterday"); err == nil {
		t.Error("expected error for invalid --start")
	}
	exportStart = ""
}

func TestUpdateDryRunNeedsNoCredentials(t *testing.T) {
	dataDir := setupTestCLI(t)
	updateDryRun, updateRecentOnly, updateFillGaps, updateYes = false, false, false, false
	seedDay(t, dataDir, models.MetricHeartRate, models.Today().AddDays(-3).String(), 60)

	if err := run(t, "update", "--dry-run"); err != nil {
		t.Fatalf("update --dry-run failed: %v", err)
	}
	updateDryRun = false
}

func TestUpdateRequiresCredentials(t *testing.T) {
	setupTestCLI(t)
	updateDryRun, updateRecentOnly, updateFillGaps, updateYes = false, false, false, false

	if err := run(t, "update", "--yes"); err == nil {
		t.Error("expected error without client_id and token file")
	}
	updateYes = false
}

func TestShowAndSummary(t *testing.T) {
	dataDir := setupTestCLI(t)
	showStart, showEnd, showBucket = "", "", "daily"
	seedDay(t, dataDir, models.MetricSteps, "2024-08-29", 100, 250)

	if err := run(t, "show", "steps", "2024-08-29"); err != nil {
		t.Errorf("show day failed: %v", err)
	}
	if err := run(t, "show", "steps", "--bucket", "weekly"); err != nil {
		t.Errorf("show series failed: %v", err)
	}
	showBucket = "daily"
	if err := run(t, "show", "bogus"); err == nil {
		t.Error("expected error for unknown metric")
	}
	if err := run(t, "summary", "--start", "2024-08-29", "--end", "2024-08-29"); err != nil {
		t.Errorf("summary failed: %v", err)
	}
	summaryStart, summaryEnd = "", ""
}

func TestMigrateToSQLite(t *testing.T) {
	dataDir := setupTestCLI(t)
	migrateTo, migrateToDir, migrateForce, migrateDryRun = "", "", false, false
	seedDay(t, dataDir, models.MetricSleepScore, "2024-08-29", 81)

	dst := filepath.Join(t.TempDir(), "sqlite")
	if err := run(t, "migrate", "--to", "sqlite", "--to-dir", dst); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	db, err := storage.Open(filepath.Join(dst, "fitlog.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	table, err := db.Read(models.MetricSleepScore, models.MustParseDay("2024-08-29"))
	if err != nil {
		t.Fatalf("migrated day missing: %v", err)
	}
	if table.Len() != 1 || table.Rows[0].Value != 81 {
		t.Errorf("migrated rows = %+v", table.Rows)
	}

	if err := run(t, "migrate", "--to", "sqlite", "--to-dir", dst); err == nil {
		t.Error("expected error migrating into a store that has data")
	}
	migrateTo, migrateToDir = "", ""
}

func TestConfigInit(t *testing.T) {
	setupTestCLI(t)
	configInitForce = false
	path := filepath.Join(t.TempDir(), "config.json")

	if err := run(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if err := run(t, "config", "init", "--config", path); err == nil {
		t.Error("expected error when config exists")
	}
	if err := run(t, "config", "show", "--config", path); err != nil {
		t.Errorf("config show failed: %v", err)
	}
	configPath = ""
}

func TestInstallSkill(t *testing.T) {
	home := t.TempDir()
	skillSkipConfirm = true
	defer func() { skillSkipConfirm = false }()

	if err := installSkill(home); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	content, err := os.ReadFile(filepath.Join(home, ".claude", "skills", "fitlog", "SKILL.md"))
	if err != nil {
		t.Fatalf("skill file not written: %v", err)
	}
	if !strings.Contains(string(content), "name: fitlog") {
		t.Error("skill file missing frontmatter name")
	}
}

func TestInstallSkillDeclined(t *testing.T) {
	home := t.TempDir()
	stdin = strings.NewReader("n\n")
	defer func() { stdin = os.Stdin }()

	if err := installSkill(home); err != nil {
		t.Fatalf("installSkill failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".claude", "skills", "fitlog", "SKILL.md")); !os.IsNotExist(err) {
		t.Error("declined install should not write the skill file")
	}
}
