package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if expected := filepath.Join(realTmpDir, defaultLogDirName); realGot != expected {
		t.Fatalf("unexpected log dir: got=%s expected=%s", realGot, expected)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "monitor.log"})
	log.Info("monitor_opened")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "monitor.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "monitor_opened") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevelOverride(t *testing.T) {
	if lvl := resolveLevel(false, "warn"); lvl.Level() != zap.WarnLevel {
		t.Fatalf("expected warn level, got %s", lvl.Level())
	}
	if lvl := resolveLevel(true, "bogus"); lvl.Level() != zap.DebugLevel {
		t.Fatalf("expected debug fallback, got %s", lvl.Level())
	}
	if lvl := resolveLevel(false, ""); lvl.Level() != zap.InfoLevel {
		t.Fatalf("expected info level, got %s", lvl.Level())
	}
}

func TestNewReleaseConsoleTeeStillWritesFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "tee.log", Console: true})
	log.Info("hub_dispatch")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "tee.log"))
	if err != nil {
		t.Fatalf("read tee log failed: %v", err)
	}
	if !strings.Contains(string(content), "hub_dispatch") {
		t.Fatalf("expected file sink to receive entry, got=%s", string(content))
	}
}

func TestNamedLoggerUsesComponent(t *testing.T) {
	if Named("monitor").Desugar().Name() != "monitor" {
		t.Fatalf("unexpected logger name")
	}
}
