package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeSession records lifecycle calls so teardown can be asserted.
type fakeSession struct {
	navigateErr   error
	settleErr     error
	screenshotErr error
	shot          []byte

	navigated  bool
	dismissed  bool
	screenshot bool
	closed     bool
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigated = true
	return f.navigateErr
}

func (f *fakeSession) Settle(ctx context.Context) error { return f.settleErr }

func (f *fakeSession) DismissConsent(ctx context.Context) { f.dismissed = true }

func (f *fakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	f.screenshot = true
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	return f.shot, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func newTestCapturer(t *testing.T, sess *fakeSession) *Capturer {
	t.Helper()
	c := New(DefaultConfig(t.TempDir()), zap.NewNop())
	c.newSession = func(ctx context.Context, cfg Config) (session, error) {
		return sess, nil
	}
	return c
}

func TestCapturePage_WritesScreenshot(t *testing.T) {
	sess := &fakeSession{shot: []byte("png-bytes")}
	c := newTestCapturer(t, sess)

	path, err := c.CapturePage(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("CapturePage error: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("path = %q, want .png file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("screenshot content = %q", data)
	}
	if !sess.dismissed {
		t.Error("consent dismissal was not attempted")
	}
	if !sess.closed {
		t.Error("session not closed after success")
	}
}

func TestCapturePage_TeardownOnNavigationFailure(t *testing.T) {
	sess := &fakeSession{navigateErr: errors.New("net::ERR_TIMED_OUT")}
	c := newTestCapturer(t, sess)

	_, err := c.CapturePage(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("CapturePage should propagate navigation failure")
	}
	if !sess.closed {
		t.Error("session must be closed even when navigation fails")
	}
	if sess.screenshot {
		t.Error("screenshot should not run after navigation failure")
	}
}

func TestCapturePage_TeardownOnScreenshotFailure(t *testing.T) {
	sess := &fakeSession{screenshotErr: errors.New("target crashed")}
	c := newTestCapturer(t, sess)

	_, err := c.CapturePage(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("CapturePage should propagate screenshot failure")
	}
	if !sess.closed {
		t.Error("session must be closed even when screenshot fails")
	}
}

func TestPrune_KeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	c := New(DefaultConfig(dir), zap.NewNop())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		path := filepath.Join(dir, fmt.Sprintf("verse-%02d.png", i))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		mod := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Prune(10); err != nil {
		t.Fatalf("Prune error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 10 {
		t.Fatalf("after prune %d files remain, want 10", len(entries))
	}
	// The survivors must be the 10 newest: verse-05 .. verse-14.
	for _, e := range entries {
		var n int
		if _, err := fmt.Sscanf(e.Name(), "verse-%02d.png", &n); err != nil {
			t.Fatalf("unexpected file %q", e.Name())
		}
		if n < 5 {
			t.Errorf("old screenshot %q should have been pruned", e.Name())
		}
	}
}

func TestPrune_IgnoresNonScreenshots(t *testing.T) {
	dir := t.TempDir()
	c := New(DefaultConfig(dir), zap.NewNop())

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 12; i++ {
		path := filepath.Join(dir, fmt.Sprintf("verse-%02d.png", i))
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Prune(10); err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("non-png file should survive prune: %v", err)
	}
}

func TestPrune_MissingDirIsNoop(t *testing.T) {
	c := New(DefaultConfig(filepath.Join(t.TempDir(), "nope")), zap.NewNop())
	if err := c.Prune(10); err != nil {
		t.Fatalf("Prune on missing dir should be a no-op, got %v", err)
	}
}
