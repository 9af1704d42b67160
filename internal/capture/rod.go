package capture

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// rodSession drives one freshly launched headless Chrome via go-rod.
type rodSession struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func newRodSession(ctx context.Context, cfg Config) (session, error) {
	l := launcher.New().Headless(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: cfg.UserAgent,
	}); err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, err
	}

	return &rodSession{cfg: cfg, launcher: l, browser: browser, page: page}, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.cfg.PageTimeout)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Settle waits for network traffic to go quiet, then a fixed delay for
// client-side rendering to finish.
func (s *rodSession) Settle(ctx context.Context) error {
	wait := s.page.Context(ctx).Timeout(10 * time.Second).
		WaitRequestIdle(time.Second, nil, nil, nil)
	wait()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.SettleDelay):
		return nil
	}
}

// DismissConsent clicks a cookie-consent button when one is present.
// Not finding one is the common case and not an error.
func (s *rodSession) DismissConsent(ctx context.Context) {
	page := s.page.Context(ctx).Timeout(2 * time.Second)
	el, err := page.ElementR("button", "(?i)aceitar|accept|concordo|agree|entendi")
	if err != nil {
		return
	}
	_ = el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	// Viewport only; the verse widget is above the fold.
	return s.page.Context(ctx).Screenshot(false, nil)
}

func (s *rodSession) Close() error {
	if s.page != nil {
		_ = s.page.Close()
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return err
}
