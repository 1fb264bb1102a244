package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/grenverk/internal/adapters/storage/sqlite"
	grensync "github.com/hylla/grenverk/internal/adapters/sync"
	"github.com/hylla/grenverk/internal/app"
	"github.com/hylla/grenverk/internal/config"
	"github.com/hylla/grenverk/internal/platform"
	"github.com/hylla/grenverk/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// main handles main.
func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run runs the requested command flow.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("gren", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		dbPath     string
		appName    string
		devMode    bool
		showVer    bool
	)
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("GREN_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("GREN_APP_NAME")); envApp != "" {
		appName = envApp
	} else {
		appName = "grenverk"
	}
	fs.StringVar(&configPath, "config", "", "path to config TOML")
	fs.StringVar(&dbPath, "db", "", "path to sqlite database")
	fs.StringVar(&appName, "app", appName, "application name for config/data path resolution")
	fs.BoolVar(&devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	fs.BoolVar(&showVer, "version", false, "show version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVer {
		_, _ = fmt.Fprintf(stdout, "gren %s\n", version)
		return nil
	}

	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: appName,
		DevMode: devMode,
	})
	if err != nil {
		return err
	}

	command := firstArg(fs.Args())
	switch command {
	case "paths":
		_, _ = fmt.Fprintf(stdout, "app: %s\n", appName)
		_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", devMode)
		_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
		_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
		_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
		return nil
	case "", "export", "import", "list", "push", "pull":
		// Continue.
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	dbOverridden := strings.TrimSpace(dbPath) != ""
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("GREN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("GREN_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	defaultCfg := config.Default(dbPath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	applySyncEnv(&cfg)

	logger, err := newRuntimeLogger(stderr, appName, devMode, cfg.Logging, time.Now)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "" {
		// Keep TUI rendering clean: runtime logs stay in the dev-file sink while the canvas is active.
		logger.SetConsoleEnabled(false)
	}
	defer func() {
		if closeErr := logger.Close(); closeErr != nil && logger.shouldLogToSink(logger.consoleSink) {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()

	logger.Info("startup configuration resolved", "app", appName, "dev_mode", devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	logger.Info("opening sqlite repository", "db_path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", cfg.Database.Path, "err", closeErr)
		}
	}()
	logger.Info("sqlite repository ready", "db_path", cfg.Database.Path, "migrations", "ensured")

	svc := app.NewService(repo, nil, app.ServiceConfig{
		DocumentName: cfg.Database.Document,
		RootLabel:    cfg.Canvas.RootLabel,
	})
	logger.Debug("application service initialized", "document", cfg.Database.Document)

	switch command {
	case "":
		logger.Info("command flow start", "command", "tui")
	case "export":
		logger.Info("command flow start", "command", "export")
		if err := runExport(ctx, svc, fs.Args()[1:], stdout); err != nil {
			logger.Error("command flow failed", "command", "export", "err", err)
			return fmt.Errorf("run export command: %w", err)
		}
		logger.Info("command flow complete", "command", "export")
		return nil
	case "import":
		logger.Info("command flow start", "command", "import")
		if err := runImport(ctx, svc, fs.Args()[1:]); err != nil {
			logger.Error("command flow failed", "command", "import", "err", err)
			return fmt.Errorf("run import command: %w", err)
		}
		logger.Info("command flow complete", "command", "import")
		return nil
	case "list":
		logger.Info("command flow start", "command", "list")
		if err := runList(ctx, svc, stdout); err != nil {
			logger.Error("command flow failed", "command", "list", "err", err)
			return fmt.Errorf("run list command: %w", err)
		}
		logger.Info("command flow complete", "command", "list")
		return nil
	case "push":
		logger.Info("command flow start", "command", "push")
		if err := runPush(ctx, svc, cfg.Sync); err != nil {
			logger.Error("command flow failed", "command", "push", "err", err)
			return fmt.Errorf("run push command: %w", err)
		}
		logger.Info("command flow complete", "command", "push")
		return nil
	case "pull":
		logger.Info("command flow start", "command", "pull")
		if err := runPull(ctx, svc, cfg.Sync); err != nil {
			logger.Error("command flow failed", "command", "pull", "err", err)
			return fmt.Errorf("run pull command: %w", err)
		}
		logger.Info("command flow complete", "command", "pull")
		return nil
	}

	m := tui.NewModel(svc, tui.WithCanvasConfig(toCanvasConfig(cfg.Canvas)))
	logger.Info("starting tui program loop")
	_, err = programFactory(m).Run()
	if err != nil {
		logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	logger.Info("command flow complete", "command", "tui")
	return nil
}

// runExport runs the requested command flow.
func runExport(ctx context.Context, svc *app.Service, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gren export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var outPath string
	fs.StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse export flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected export arguments: %v", fs.Args())
	}

	payload, err := svc.RawSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if outPath == "-" {
		if _, err := stdout.Write(payload); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport runs the requested command flow.
func runImport(ctx context.Context, svc *app.Service, args []string) error {
	fs := flag.NewFlagSet("gren import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var inPath string
	fs.StringVar(&inPath, "in", "", "input snapshot JSON file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse import flags: %w", err)
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected import arguments: %v", fs.Args())
	}
	if inPath == "" {
		return fmt.Errorf("--in is required")
	}

	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	if _, err := svc.ImportSnapshot(ctx, content); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	return nil
}

// runList prints the stored snapshot documents.
func runList(ctx context.Context, svc *app.Service, stdout io.Writer) error {
	infos, err := svc.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		_, _ = fmt.Fprintln(stdout, "no snapshots stored")
		return nil
	}
	for _, info := range infos {
		_, _ = fmt.Fprintf(stdout, "%s\t%s\t%d bytes\n", info.Name, info.UpdatedAt.Format(time.RFC3339), info.Size)
	}
	return nil
}

// runPush uploads the working document to the configured sync endpoint.
func runPush(ctx context.Context, svc *app.Service, syncCfg config.Sync) error {
	client, err := syncClient(syncCfg)
	if err != nil {
		return err
	}
	payload, err := svc.RawSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if err := client.Push(ctx, payload); err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	return nil
}

// runPull downloads the remote document and imports it as the working
// tree.
func runPull(ctx context.Context, svc *app.Service, syncCfg config.Sync) error {
	client, err := syncClient(syncCfg)
	if err != nil {
		return err
	}
	payload, err := client.Pull(ctx)
	if err != nil {
		return fmt.Errorf("pull snapshot: %w", err)
	}
	if _, err := svc.ImportSnapshot(ctx, payload); err != nil {
		return fmt.Errorf("import pulled snapshot: %w", err)
	}
	return nil
}

// syncClient builds the presign client from config.
func syncClient(syncCfg config.Sync) (*grensync.Client, error) {
	if strings.TrimSpace(syncCfg.Endpoint) == "" {
		return nil, fmt.Errorf("sync.endpoint is not configured (set it in the config TOML or GREN_SYNC_ENDPOINT)")
	}
	return grensync.NewClient(grensync.Config{
		Endpoint: syncCfg.Endpoint,
		Password: syncCfg.Password,
		Key:      syncCfg.Key,
	})
}

// applySyncEnv lets environment variables override sync settings so
// the password never has to live in the config file.
func applySyncEnv(cfg *config.Config) {
	if v := strings.TrimSpace(os.Getenv("GREN_SYNC_ENDPOINT")); v != "" {
		cfg.Sync.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("GREN_SYNC_PASSWORD")); v != "" {
		cfg.Sync.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("GREN_SYNC_KEY")); v != "" {
		cfg.Sync.Key = v
	}
}

// toCanvasConfig maps persisted canvas tuning into model options.
func toCanvasConfig(cv config.Canvas) tui.CanvasConfig {
	return tui.CanvasConfig{
		NodeWidth:        cv.NodeWidth,
		NodeHeight:       cv.NodeHeight,
		VerticalSpacing:  cv.VerticalSpacing,
		GapMin:           cv.GapMin,
		GapMax:           cv.GapMax,
		ZoomMin:          cv.ZoomMin,
		ZoomMax:          cv.ZoomMax,
		WheelSensitivity: cv.WheelSensitivity,
		PanSpeed:         cv.PanSpeed,
		TweenMillis:      cv.TweenMillis,
	}
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// runtimeLogger fans log events to a styled console sink and an optional dev-file sink.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
	devLog         string
}

// newRuntimeLogger configures runtime log sinks from CLI/config state.
func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.Logging, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}

	if now == nil {
		now = time.Now
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleLogger := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})

	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleLogger},
		consoleSink:    consoleLogger,
		consoleEnabled: true,
	}
	if !devMode || !cfg.DevFile.Enabled {
		return logger, nil
	}

	devLogPath, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(devLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	logFile, err := os.OpenFile(devLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}

	// Keep file output parseable and unstyled while preserving styled console logs.
	fileLogger := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileLogger)
	logger.closeFile = logFile.Close
	logger.devLog = devLogPath
	return logger, nil
}

// DevLogPath returns the active dev log file path.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

// Close closes the optional dev-file sink.
func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	if l == nil {
		return
	}
	l.consoleEnabled = enabled
}

// shouldLogToSink reports whether one sink should receive runtime output.
func (l *runtimeLogger) shouldLogToSink(sink *charmLog.Logger) bool {
	if l == nil {
		return false
	}
	if sink == nil {
		return false
	}
	if sink == l.consoleSink && !l.consoleEnabled {
		return false
	}
	return true
}

// Debug logs a debug event to all configured sinks.
func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Debug(msg, keyvals...)
	}
}

// Info logs an informational event to all configured sinks.
func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Info(msg, keyvals...)
	}
}

// Warn logs a warning event to all configured sinks.
func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Warn(msg, keyvals...)
	}
}

// Error logs an error event to all configured sinks.
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if !l.shouldLogToSink(sink) {
			continue
		}
		sink.Error(msg, keyvals...)
	}
}

// devLogFilePath resolves a workspace-local dev log file path for the current run day.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".grenverk/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileStem := sanitizeLogFileStem(appName)
	fileName := fmt.Sprintf("%s-%s.log", fileStem, now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom resolves the nearest ancestor workspace marker for stable local log placement.
func workspaceRootFrom(start string) string {
	start = filepath.Clean(strings.TrimSpace(start))
	if start == "" {
		return "."
	}
	dir := start
	for {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

// hasWorkspaceMarker reports whether a directory looks like a project workspace root.
func hasWorkspaceMarker(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	return false
}

// sanitizeLogFileStem normalizes app names into safe file-name segments.
func sanitizeLogFileStem(appName string) string {
	stem := strings.TrimSpace(appName)
	if stem == "" {
		return "grenverk"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem = strings.Trim(replacer.Replace(stem), "-")
	if stem == "" {
		return "grenverk"
	}
	return stem
}
