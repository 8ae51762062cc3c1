package internal

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/repoconfig"
	"github.com/drctl/drctl/internal/testutil"
	pkgconfig "github.com/drctl/drctl/pkg/config"
)

func TestConfig_DefaultsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelWarn {
		t.Errorf("default level = %v", cfg.App.LogLevel)
	}
}

func TestApplicationConfig_EmptyFormatDefaultsText(t *testing.T) {
	c := ApplicationConfig{LogFormat: " "}
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.LogFormat != LogFormatText {
		t.Errorf("format = %q", c.LogFormat)
	}
}

func TestApplicationConfig_InvalidFormat(t *testing.T) {
	c := ApplicationConfig{LogFormat: "xml"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestIndexConfig_NegativeDebounce(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Index.Debounce = -1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "debounce") {
		t.Errorf("expected debounce error, got %v", err)
	}
}

func TestSettingsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "settings.yaml")
	t.Setenv("DRCTL_TEST_FORMAT", "json")
	content := "app:\n  log_level: debug\n  log_format: ${DRCTL_TEST_FORMAT}\nindex:\n  debounce: 1s\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(p, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.LogFormat != LogFormatJSON {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Index.Debounce.String() != "1s" {
		t.Errorf("debounce = %s", cfg.Index.Debounce)
	}
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("INFO")
	if err != nil || l != slog.LevelInfo {
		t.Errorf("ParseLogLevel(INFO) = %v, %v", l, err)
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error")
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, ApplicationConfig{LogLevel: slog.LevelInfo, LogFormat: LogFormatJSON}).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("not json: %q", buf.String())
	}
}

func TestNotices_Once(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotices(&buf)
	if !n.Legacy("new", "create") {
		t.Error("first notice not printed")
	}
	if n.Legacy("new", "create") {
		t.Error("second notice printed")
	}
	if got := strings.Count(buf.String(), "deprecated"); got != 1 {
		t.Errorf("printed %d times", got)
	}
}

type initGit struct {
	testutil.FakeGit
	dirs []string
}

func (g *initGit) Init(_ context.Context, dir string) error {
	g.dirs = append(g.dirs, dir)
	return os.Mkdir(filepath.Join(dir, ".git"), 0o755)
}

func TestInitRepo_RegistersLocalConfig(t *testing.T) {
	cwd := t.TempDir()
	var out bytes.Buffer
	app, err := New(WithOutput(&out, &out))
	if err != nil {
		t.Fatal(err)
	}

	configPath, err := app.InitRepo(context.Background(), InitOptions{Path: "records", Cwd: cwd, MakeDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	if configPath != filepath.Join(cwd, ".drctl.yaml") {
		t.Errorf("config path = %s", configPath)
	}
	layer, err := repoconfig.ReadLayer(configPath, repoconfig.ScopeLocal)
	if err != nil {
		t.Fatal(err)
	}
	if len(layer.Repos) != 1 || layer.Repos[0].Name != "records" || layer.Repos[0].Root != filepath.Join(cwd, "records") {
		t.Errorf("repos = %+v", layer.Repos)
	}
	if layer.DefaultRepo != "records" {
		t.Errorf("defaultRepo = %q", layer.DefaultRepo)
	}
}

func TestInitRepo_Git(t *testing.T) {
	cwd := t.TempDir()
	git := &initGit{}
	var out bytes.Buffer
	app, err := New(WithOutput(&out, &out), WithGit(git))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.InitRepo(context.Background(), InitOptions{Cwd: cwd, Git: true}); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cwd, "decisions")
	if len(git.dirs) != 1 || git.dirs[0] != want {
		t.Errorf("git init dirs = %v", git.dirs)
	}

	for _, k := range []string{repoconfig.EnvRepo, repoconfig.EnvConfig, repoconfig.EnvGit} {
		t.Setenv(k, "")
	}
	rc, err := app.Resolve(repo.Options{Cwd: cwd, Home: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if rc.Root != want || !rc.GitEnabled() {
		t.Errorf("resolved %s git=%v", rc.Root, rc.GitEnabled())
	}
}
