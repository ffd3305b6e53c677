package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dir", "", "")
	flags.Int("port", 0, "")
	if err := flags.Parse(args); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}
	return flags
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	cwd, _ := os.Getwd()
	if cfg.WorkDir != cwd {
		t.Errorf("Expected work dir %s, got %s", cwd, cfg.WorkDir)
	}
	if cfg.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Port)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Unexpected addr %s", cfg.Addr())
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORK_DIR", "")
	os.Unsetenv("WORK_DIR")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Expected default port, got %d", cfg.Port)
	}
	if cfg.Host != DefaultHost {
		t.Errorf("Expected default host, got %s", cfg.Host)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORK_DIR", dir)
	t.Setenv("PORT", "8123")

	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkDir != dir {
		t.Errorf("Expected work dir %s, got %s", dir, cfg.WorkDir)
	}
	if cfg.Port != 8123 {
		t.Errorf("Expected port 8123, got %d", cfg.Port)
	}
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	envDir := t.TempDir()
	flagDir := t.TempDir()
	t.Setenv("WORK_DIR", envDir)
	t.Setenv("PORT", "8123")

	cfg, err := Load(newFlags(t, "--dir", flagDir, "--port", "9000"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WorkDir != flagDir {
		t.Errorf("Expected work dir %s, got %s", flagDir, cfg.WorkDir)
	}
	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("HOST", "")
	os.Unsetenv("HOST")

	content := "port: 4100\nhost: 127.0.0.1\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(newFlags(t, "--dir", dir))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 4100 {
		t.Errorf("Expected port 4100, got %d", cfg.Port)
	}
	if cfg.Addr() != "127.0.0.1:4100" {
		t.Errorf("Unexpected addr %s", cfg.Addr())
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "70000")

	if _, err := Load(newFlags(t, "--dir", t.TempDir())); err == nil {
		t.Fatal("Expected error for out of range port")
	}
}

func TestResolveWorkDir(t *testing.T) {
	t.Run("existing directory", func(t *testing.T) {
		cfg := &Config{WorkDir: t.TempDir()}
		if err := cfg.ResolveWorkDir(false); err != nil {
			t.Fatalf("ResolveWorkDir failed: %v", err)
		}
		if !filepath.IsAbs(cfg.WorkDir) {
			t.Errorf("Expected absolute path, got %s", cfg.WorkDir)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		cfg := &Config{WorkDir: filepath.Join(t.TempDir(), "missing")}
		err := cfg.ResolveWorkDir(false)
		if err == nil || !strings.Contains(err.Error(), "does not exist") {
			t.Errorf("Expected does not exist error, got %v", err)
		}
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
		cfg := &Config{WorkDir: path}
		err := cfg.ResolveWorkDir(false)
		if err == nil || !strings.Contains(err.Error(), "not a directory") {
			t.Errorf("Expected not a directory error, got %v", err)
		}
	})

	t.Run("create missing directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hosted", "workspace")
		cfg := &Config{WorkDir: path}
		if err := cfg.ResolveWorkDir(true); err != nil {
			t.Fatalf("ResolveWorkDir failed: %v", err)
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			t.Errorf("Expected directory to be created: %v", err)
		}
	})
}
