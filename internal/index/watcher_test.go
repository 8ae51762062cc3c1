package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatch(t *testing.T, rc *repo.Context, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, rc, 50*time.Millisecond, quietLogger(), cb) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func save(t *testing.T, rc *repo.Context, domain, id string) {
	t.Helper()
	d := models.Decision{ID: id, Domain: domain, Status: models.StatusDraft, Version: "1.0"}
	if _, err := store.Save(rc, &d, nil); err != nil {
		t.Fatal(err)
	}
}

func TestWatch_RegeneratesOnNewRecord(t *testing.T) {
	rc := &repo.Context{Root: t.TempDir()}
	var runs atomic.Int32
	startWatch(t, rc, func(int) { runs.Add(1) })

	save(t, rc, "app", "DR--20240315--app--watched")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		data, err := os.ReadFile(filepath.Join(rc.Root, FileName))
		return err == nil && strings.Contains(string(data), "DR--20240315--app--watched")
	}, "index not regenerated for new record")
	if runs.Load() == 0 {
		t.Error("callback not called")
	}
}

func TestWatch_IndexWriteDoesNotLoop(t *testing.T) {
	rc := &repo.Context{Root: t.TempDir()}
	var runs atomic.Int32
	startWatch(t, rc, func(int) { runs.Add(1) })

	save(t, rc, "app", "DR--20240315--app--once")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return runs.Load() >= 1
	}, "no regeneration")

	settled := runs.Load()
	time.Sleep(400 * time.Millisecond)
	if got := runs.Load(); got != settled {
		t.Errorf("index write retriggered regeneration: %d -> %d", settled, got)
	}
}

func TestWatch_IgnoresTemplates(t *testing.T) {
	rc := &repo.Context{Root: t.TempDir()}
	if err := os.MkdirAll(filepath.Join(rc.Root, store.TemplatesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	var runs atomic.Int32
	startWatch(t, rc, func(int) { runs.Add(1) })

	_ = os.WriteFile(filepath.Join(rc.Root, store.TemplatesDir, "adr.md"), []byte("# t"), 0o644)
	time.Sleep(400 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("template change regenerated the index %d times", runs.Load())
	}
}
