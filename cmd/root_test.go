// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/jdfalk/media-acquirer/internal/config"
)

func TestEnsureDatabaseDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "db", "acquirer.db")
	if err := ensureDatabaseDir(dbPath); err != nil {
		t.Fatalf("ensureDatabaseDir failed: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Fatalf("expected database directory to exist: %v", err)
	}
	if err := ensureDatabaseDir("local.db"); err != nil {
		t.Fatalf("relative file in cwd should need no directory: %v", err)
	}
}

func TestInitConfigReadsFileAndEnv(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	body := "blacklist:\n  max_retries: 7\nbackends:\n  - kind: transmission\n    host: nas\n    port: 9091\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origCfgFile := cfgFile
	origConfig := config.AppConfig
	t.Cleanup(func() {
		cfgFile = origCfgFile
		config.AppConfig = origConfig
		viper.Reset()
	})

	viper.Reset()
	t.Setenv("MEDIA_ACQUIRER_LOG_LEVEL", "debug")
	cfgFile = configPath
	initConfig()
	if err := config.InitConfig(); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if got := config.AppConfig.Blacklist.MaxRetries; got != 7 {
		t.Errorf("MaxRetries: got %d, want 7", got)
	}
	if got := config.AppConfig.LogLevel; got != "debug" {
		t.Errorf("LogLevel from env: got %q, want debug", got)
	}
	if len(config.AppConfig.Backends) != 1 || config.AppConfig.Backends[0].Name != "transmission" {
		t.Errorf("expected one backend named after its kind, got %+v", config.AppConfig.Backends)
	}
}

func TestCommandTree(t *testing.T) {
	want := [][]string{
		{"serve"}, {"classify"}, {"rank"}, {"acquire"}, {"poll"},
		{"blacklist", "list"}, {"blacklist", "remove"}, {"blacklist", "sweep"},
		{"backend", "list"}, {"backend", "test"}, {"backend", "jobs"},
		{"profiles", "import"}, {"profiles", "list"},
		{"diagnostics", "query"},
	}
	for _, path := range want {
		found, _, err := rootCmd.Find(path)
		if err != nil || found.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}

func TestExecuteHelp(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)

	if err := Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}
