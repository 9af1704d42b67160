// Package capture renders the verse-of-the-day page in a headless browser
// and saves a viewport screenshot for the vision extractor.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds capture settings.
type Config struct {
	Dir            string
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	PageTimeout    time.Duration
	SettleDelay    time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1200,
		ViewportHeight: 800,
		PageTimeout:    30 * time.Second,
		SettleDelay:    3 * time.Second,
	}
}

// session is one isolated rendering context. It exists per CapturePage
// call and is never shared between runs.
type session interface {
	Navigate(ctx context.Context, url string) error
	Settle(ctx context.Context) error
	DismissConsent(ctx context.Context)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Capturer produces page screenshots.
type Capturer struct {
	cfg        Config
	log        *zap.Logger
	newSession func(ctx context.Context, cfg Config) (session, error)
}

// New creates a Capturer backed by a headless Chrome launched per call.
func New(cfg Config, log *zap.Logger) *Capturer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Capturer{cfg: cfg, log: log, newSession: newRodSession}
}

// CapturePage renders url and writes a viewport screenshot to the scratch
// directory, returning the file path. The browser is torn down on every
// path, including navigation failures.
func (c *Capturer) CapturePage(ctx context.Context, url string) (string, error) {
	sess, err := c.newSession(ctx, c.cfg)
	if err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.log.Warn("browser teardown", zap.Error(cerr))
		}
	}()

	if err := sess.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := sess.Settle(ctx); err != nil {
		return "", fmt.Errorf("settle %s: %w", url, err)
	}

	// Cookie banners cover the verse on first visit. Missing banner is fine.
	sess.DismissConsent(ctx)

	data, err := sess.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", url, err)
	}

	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}
	name := fmt.Sprintf("verse-%s-%s.png", time.Now().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(c.cfg.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}

	c.log.Debug("screenshot captured", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// Prune keeps only the `keep` most recently modified screenshots in the
// scratch directory. Individual delete failures do not abort the sweep;
// another process may be pruning concurrently.
func (c *Capturer) Prune(keep int) error {
	entries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read screenshot dir: %w", err)
	}

	type shot struct {
		path string
		mod  time.Time
	}
	var shots []shot
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".png" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		shots = append(shots, shot{path: filepath.Join(c.cfg.Dir, e.Name()), mod: info.ModTime()})
	}

	if len(shots) <= keep {
		return nil
	}

	sort.Slice(shots, func(i, j int) bool { return shots[i].mod.After(shots[j].mod) })

	for _, s := range shots[keep:] {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			c.log.Warn("prune screenshot", zap.String("path", s.path), zap.Error(err))
		}
	}
	return nil
}
