package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/temirov/marginal/internal/utils"
)

type configTestCase struct {
	name             string
	globalContent    string
	localContent     string
	explicitPath     string
	explicitContent  string
	expectFormat     string
	expectViewMode   string
	expectHardWraps  *bool
	expectUnsafeHTML *bool
	expectAddress    string
	expectTimeout    time.Duration
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func assertBoolPointer(t *testing.T, label string, got *bool, expected *bool) {
	t.Helper()
	if expected == nil {
		if got != nil {
			t.Fatalf("expected no %s override, got %v", label, *got)
		}
		return
	}
	if got == nil || *got != *expected {
		t.Fatalf("unexpected %s value", label)
	}
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:             "local_overrides_global",
			globalContent:    "tree:\n  format: raw\neditor:\n  view_mode: code\n  render:\n    hard_wraps: true\nserve:\n  address: 127.0.0.1:7000\n",
			localContent:     "tree:\n  format: json\neditor:\n  render:\n    unsafe_html: true\nserve:\n  shutdown_timeout: 2s\n",
			expectFormat:     "json",
			expectViewMode:   "code",
			expectHardWraps:  boolPointer(true),
			expectUnsafeHTML: boolPointer(true),
			expectAddress:    "127.0.0.1:7000",
			expectTimeout:    2 * time.Second,
		},
		{
			name:            "explicit_path_replaces_local",
			globalContent:   "tree:\n  format: json\n",
			localContent:    "tree:\n  format: json\n",
			explicitPath:    "custom.yaml",
			explicitContent: "tree:\n  format: raw\n",
			expectFormat:    "raw",
		},
		{
			name:           "global_only",
			globalContent:  "editor:\n  view_mode: rendered\n",
			expectViewMode: "rendered",
		},
		{
			name: "no_files",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.ConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.ConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte(testCase.explicitContent), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}

			if loadedConfig.Tree.Format != testCase.expectFormat {
				t.Fatalf("expected format %q, got %q", testCase.expectFormat, loadedConfig.Tree.Format)
			}
			if loadedConfig.Editor.ViewMode != testCase.expectViewMode {
				t.Fatalf("expected view mode %q, got %q", testCase.expectViewMode, loadedConfig.Editor.ViewMode)
			}
			assertBoolPointer(t, "hard_wraps", loadedConfig.Editor.Render.HardWraps, testCase.expectHardWraps)
			assertBoolPointer(t, "unsafe_html", loadedConfig.Editor.Render.UnsafeHTML, testCase.expectUnsafeHTML)
			if loadedConfig.Serve.Address != testCase.expectAddress {
				t.Fatalf("expected address %q, got %q", testCase.expectAddress, loadedConfig.Serve.Address)
			}
			if loadedConfig.Serve.ShutdownTimeout != testCase.expectTimeout {
				t.Fatalf("expected timeout %v, got %v", testCase.expectTimeout, loadedConfig.Serve.ShutdownTimeout)
			}
		})
	}
}

func TestLoadApplicationConfigurationRejectsDirectory(t *testing.T) {
	workingDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))
	if err := os.MkdirAll(filepath.Join(workingDir, utils.ConfigFileName), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir}); err == nil {
		t.Fatalf("expected error when configuration path is a directory")
	}
}

func TestLoadApplicationConfigurationFromFilesystem(t *testing.T) {
	homeDirectory := "/home/editor"
	t.Setenv("HOME", homeDirectory)
	t.Setenv("USERPROFILE", homeDirectory)
	workingDirectory := "/project"

	filesystem := afero.NewMemMapFs()
	globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
	localPath := filepath.Join(workingDirectory, utils.ConfigFileName)
	seedFiles := map[string]string{
		globalPath: "tree:\n  format: raw\neditor:\n  view_mode: code\n",
		localPath:  "editor:\n  view_mode: rendered\n",
	}
	for path, content := range seedFiles {
		if err := afero.WriteFile(filesystem, path, []byte(content), 0o600); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}

	loaded, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDirectory, Filesystem: filesystem})
	if err != nil {
		t.Fatalf("LoadApplicationConfiguration error: %v", err)
	}
	if loaded.Tree.Format != "raw" || loaded.Editor.ViewMode != "rendered" {
		t.Fatalf("unexpected configuration %+v", loaded)
	}

	if _, statErr := os.Stat(localPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected no configuration on the operating system filesystem, stat error: %v", statErr)
	}
}

func TestBoolOrDefault(t *testing.T) {
	if !BoolOrDefault(nil, true) {
		t.Fatalf("expected fallback for nil")
	}
	if BoolOrDefault(boolPointer(false), true) {
		t.Fatalf("expected explicit false to win")
	}
}
