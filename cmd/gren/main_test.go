package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/grenverk/internal/app"
	"github.com/hylla/grenverk/internal/config"
	"github.com/hylla/grenverk/internal/domain"
	"github.com/hylla/grenverk/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("GREN_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram represents fake program data used by this package.
type fakeProgram struct {
	runErr error
}

// Run runs the requested command flow.
func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// writeImportFixture writes a valid snapshot file and returns its path.
func writeImportFixture(t *testing.T, dir string) string {
	t.Helper()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	snap := app.Snapshot{
		Version:    app.SnapshotVersion,
		ExportedAt: now,
		Root: app.SnapshotTask{
			ID:    "n-root",
			Label: "Release",
			Subtasks: []app.SnapshotTask{
				{ID: "n-plan", Label: "plan"},
				{ID: "n-ship", Label: "ship"},
			},
		},
		States: map[string]domain.NodeState{
			"n-plan": domain.StateCompleted,
		},
	}
	content, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		t.Fatalf("MarshalIndent() error = %v", err)
	}
	inPath := filepath.Join(dir, "in.json")
	if err := os.WriteFile(inPath, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return inPath
}

// TestRunVersion verifies behavior for the covered scenario.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--version"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), "gren") {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies behavior for the covered scenario.
func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })

	programFactory = func(_ tea.Model) program {
		return fakeProgram{}
	}

	dbPath := filepath.Join(t.TempDir(), "gren.db")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

// TestRunPropagatesProgramError verifies behavior for the covered scenario.
func TestRunPropagatesProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program {
		return fakeProgram{runErr: fmt.Errorf("terminal gone")}
	}

	dbPath := filepath.Join(t.TempDir(), "gren.db")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "terminal gone") {
		t.Fatalf("expected program error propagated, got %v", err)
	}
}

// TestRunInvalidFlag verifies behavior for the covered scenario.
func TestRunInvalidFlag(t *testing.T) {
	err := run(context.Background(), []string{"--unknown-flag"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected flag parse error")
	}
}

// TestRunUnknownCommand verifies behavior for the covered scenario.
func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"unknown-command"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

// TestRunExportBeforeFirstSaveFails verifies behavior for the covered scenario.
func TestRunExportBeforeFirstSaveFails(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--out", filepath.Join(tmp, "out.json")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "snapshot") {
		t.Fatalf("expected missing snapshot error on empty database, got %v", err)
	}
}

// TestRunImportExportRoundTrip verifies behavior for the covered scenario.
func TestRunImportExportRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	inPath := writeImportFixture(t, tmp)

	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", inPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	outPath := filepath.Join(tmp, "out.json")
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--out", outPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	content, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var snap app.Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if snap.Version != app.SnapshotVersion {
		t.Fatalf("unexpected snapshot version %q", snap.Version)
	}
	if snap.Root.Label != "Release" || len(snap.Root.Subtasks) != 2 {
		t.Fatalf("unexpected exported root %#v", snap.Root)
	}
	if got := snap.States["n-plan"]; got != domain.StateCompleted {
		t.Fatalf("expected completed state to survive round trip, got %q", got)
	}
}

// TestRunExportToStdoutAndImportErrors verifies behavior for the covered scenario.
func TestRunExportToStdoutAndImportErrors(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	inPath := writeImportFixture(t, tmp)

	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", inPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "export", "--out", "-"}, &out, io.Discard); err != nil {
		t.Fatalf("run(export stdout) error = %v", err)
	}
	if !strings.Contains(out.String(), "\"version\"") {
		t.Fatalf("expected snapshot json on stdout, got %q", out.String())
	}

	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected import error for missing --in")
	}

	badIn := filepath.Join(tmp, "bad.json")
	if err := os.WriteFile(badIn, []byte("{"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", badIn}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected import decode error")
	}
}

// TestRunImportRejectsInvalidStates verifies behavior for the covered scenario.
func TestRunImportRejectsInvalidStates(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")

	content := []byte(`{"version":"grenverk.snapshot.v1","root":{"id":"n-root","label":"Tasks"},"states":{"n-ghost":"completed"}}`)
	inPath := filepath.Join(tmp, "orphan-state.json")
	if err := os.WriteFile(inPath, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", inPath}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "unknown task id") {
		t.Fatalf("expected orphan state rejection, got %v", err)
	}
}

// TestRunListCommand verifies behavior for the covered scenario.
func TestRunListCommand(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")

	var out strings.Builder
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "list"}, &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	if !strings.Contains(out.String(), "no snapshots stored") {
		t.Fatalf("expected empty listing notice, got %q", out.String())
	}

	inPath := writeImportFixture(t, tmp)
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "import", "--in", inPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	out.Reset()
	if err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "list"}, &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	if !strings.Contains(out.String(), "default") || !strings.Contains(out.String(), "bytes") {
		t.Fatalf("expected stored document listed, got %q", out.String())
	}
}

// TestRunConfigAndDBEnvOverrides verifies behavior for the covered scenario.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "env.db")
	cfgPath := filepath.Join(tmp, "env.toml")
	cfgContent := "[database]\npath = \"/tmp/ignore-me.db\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("GREN_CONFIG", cfgPath)
	t.Setenv("GREN_DB_PATH", dbPath)

	inPath := writeImportFixture(t, tmp)
	err := run(context.Background(), []string{"import", "--in", inPath}, io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("run(import with env paths) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db created at env path, stat error %v", err)
	}
}

// TestRunPushWithoutEndpointFails verifies behavior for the covered scenario.
func TestRunPushWithoutEndpointFails(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "missing.toml")
	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath, "push"}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "sync.endpoint") {
		t.Fatalf("expected missing endpoint error, got %v", err)
	}
}

// TestApplySyncEnvOverridesConfig verifies behavior for the covered scenario.
func TestApplySyncEnvOverridesConfig(t *testing.T) {
	t.Setenv("GREN_SYNC_ENDPOINT", "https://sync.example.com/presign")
	t.Setenv("GREN_SYNC_PASSWORD", "hunter2")
	t.Setenv("GREN_SYNC_KEY", "team/tasks.json")

	cfg := config.Default("/tmp/gren.db")
	cfg.Sync.Endpoint = "https://stale.example.com"
	applySyncEnv(&cfg)

	if cfg.Sync.Endpoint != "https://sync.example.com/presign" {
		t.Fatalf("expected endpoint override, got %q", cfg.Sync.Endpoint)
	}
	if cfg.Sync.Password != "hunter2" || cfg.Sync.Key != "team/tasks.json" {
		t.Fatalf("expected password and key overrides, got %#v", cfg.Sync)
	}
}

// TestRunPathsCommand verifies behavior for the covered scenario.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	err := run(context.Background(), []string{"--app", "grenx", "--dev", "paths"}, &out, io.Discard)
	if err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "app: grenx") {
		t.Fatalf("expected app name in paths output, got %q", output)
	}
	if !strings.Contains(output, "dev_mode: true") {
		t.Fatalf("expected dev mode in paths output, got %q", output)
	}
}

// TestParseBoolEnv verifies behavior for the covered scenario.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("GREN_BOOL_TEST", "true")
	got, ok := parseBoolEnv("GREN_BOOL_TEST")
	if !ok || !got {
		t.Fatalf("expected true bool env parse, got value=%t ok=%t", got, ok)
	}

	t.Setenv("GREN_BOOL_TEST", "not-bool")
	_, ok = parseBoolEnv("GREN_BOOL_TEST")
	if ok {
		t.Fatal("expected invalid bool env to return ok=false")
	}
}

// TestToCanvasConfigMapsFields verifies behavior for the covered scenario.
func TestToCanvasConfigMapsFields(t *testing.T) {
	cv := config.Default("/tmp/gren.db").Canvas
	cv.NodeWidth = 30
	cv.TweenMillis = 420

	got := toCanvasConfig(cv)
	want := tui.CanvasConfig{
		NodeWidth:        30,
		NodeHeight:       cv.NodeHeight,
		VerticalSpacing:  cv.VerticalSpacing,
		GapMin:           cv.GapMin,
		GapMax:           cv.GapMax,
		ZoomMin:          cv.ZoomMin,
		ZoomMax:          cv.ZoomMax,
		WheelSensitivity: cv.WheelSensitivity,
		PanSpeed:         cv.PanSpeed,
		TweenMillis:      420,
	}
	if got != want {
		t.Fatalf("toCanvasConfig() = %#v, want %#v", got, want)
	}
}

// TestRunDevModeCreatesWorkspaceLogFile verifies behavior for the covered scenario.
func TestRunDevModeCreatesWorkspaceLogFile(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)

	dbPath := filepath.Join(workspace, "gren.db")
	cfgPath := filepath.Join(workspace, "config.toml")
	if err := run(context.Background(), []string{"--dev", "--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	logDir := filepath.Join(workspace, ".grenverk", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	foundLog := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".log") {
			foundLog = true
			break
		}
	}
	if !foundLog {
		t.Fatalf("expected at least one .log file in %s, got %v", logDir, entries)
	}
}

// TestRunTUIModeWritesRuntimeLogsToFileOnly verifies TUI runtime logs stay out of stderr and persist to the dev log file.
func TestRunTUIModeWritesRuntimeLogsToFileOnly(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program { return fakeProgram{} }

	workspace := t.TempDir()
	t.Chdir(workspace)

	dbPath := filepath.Join(workspace, "gren.db")
	cfgPath := filepath.Join(workspace, "config.toml")
	var stderr bytes.Buffer
	if err := run(context.Background(), []string{"--dev", "--db", dbPath, "--config", cfgPath}, io.Discard, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if got := strings.TrimSpace(stderr.String()); got != "" {
		t.Fatalf("expected no runtime stderr output in TUI mode, got %q", got)
	}

	logDir := filepath.Join(workspace, ".grenverk", "log")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}

	var logPath string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		logPath = filepath.Join(logDir, entry.Name())
		break
	}
	if logPath == "" {
		t.Fatalf("expected a .log file in %s", logDir)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	logOutput := string(content)
	if !strings.Contains(logOutput, "starting tui program loop") {
		t.Fatalf("expected runtime log file to include TUI lifecycle entries, got %q", logOutput)
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies workspace-root resolution behavior.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "gren")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	got := workspaceRootFrom(nested)
	if filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePathResolvesAgainstWorkspaceRoot verifies relative log dirs anchor at workspace root.
func TestDevLogFilePathResolvesAgainstWorkspaceRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "gren")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(nested); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(prev)
	})
	got, err := devLogFilePath(".grenverk/log", "gren", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	wantPrefix := filepath.Join(root, ".grenverk", "log")
	normalize := func(p string) string {
		return strings.TrimPrefix(filepath.Clean(p), "/private")
	}
	if !strings.HasPrefix(normalize(got), normalize(wantPrefix)) {
		t.Fatalf("expected log path under %q, got %q", wantPrefix, got)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies behavior for the covered scenario.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "gren.db")
	cfgPath := filepath.Join(tmp, "gren.toml")
	cfgContent := "[logging]\nlevel = \"verbose\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgContent), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := run(context.Background(), []string{"--db", dbPath, "--config", cfgPath}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected invalid logging level error")
	}
	if !strings.Contains(err.Error(), "parse logging level") {
		t.Fatalf("expected logging level validation error, got %v", err)
	}
}

// TestSanitizeLogFileStem verifies app-name normalization for log files.
func TestSanitizeLogFileStem(t *testing.T) {
	cases := map[string]string{
		"gren":        "gren",
		"gren tools":  "gren-tools",
		"a/b\\c:d":    "a-b-c-d",
		"":            "grenverk",
		"  ":          "grenverk",
		"///":         "grenverk",
		"-leading--":  "leading",
	}
	for input, want := range cases {
		if got := sanitizeLogFileStem(input); got != want {
			t.Fatalf("sanitizeLogFileStem(%q) = %q, want %q", input, got, want)
		}
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console output can be suppressed while other sinks remain active.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	cfg := config.Default("/tmp/gren.db").Logging

	logger, err := newRuntimeLogger(&console, "gren", false, cfg, func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Info("after")

	out := console.String()
	if !strings.Contains(out, "before") {
		t.Fatalf("expected console log to include 'before', got %q", out)
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit 'during', got %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Fatalf("expected console log to include 'after', got %q", out)
	}
}
