package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"browsergate/logger"
)

// playwrightHandle bundles a launched browser with a single default
// context/page, the unit the pool hands out as a driver.Handle.
type playwrightHandle struct {
	browser playwright.Browser
	context playwright.BrowserContext
	mu      sync.Mutex
	pages   map[string]playwright.Page
}

// PlaywrightDriver launches real browser processes via Playwright.
// Launch options are optimized for headless automation, carried over
// from the teacher's PlaywrightPoolManager.createBrowserInstance.
type PlaywrightDriver struct {
	pw       *playwright.Playwright
	chromium playwright.BrowserType
	firefox  playwright.BrowserType
	webkit   playwright.BrowserType
}

// NewPlaywrightDriver starts the Playwright driver process.
func NewPlaywrightDriver() (*PlaywrightDriver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &PlaywrightDriver{
		pw:       pw,
		chromium: pw.Chromium,
		firefox:  pw.Firefox,
		webkit:   pw.WebKit,
	}, nil
}

// Stop shuts the Playwright driver process down. Call once, after every
// instance launched through it has been closed.
func (d *PlaywrightDriver) Stop() error {
	if d.pw == nil {
		return nil
	}
	return d.pw.Stop()
}

func (d *PlaywrightDriver) Launch(ctx context.Context, opts LaunchOptions) (Handle, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: append([]string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-gpu",
		}, opts.Args...),
	}

	var browser playwright.Browser
	var err error
	browserType := opts.BrowserType
	switch browserType {
	case "firefox":
		browser, err = d.firefox.Launch(launchOpts)
	case "webkit", "safari":
		browser, err = d.webkit.Launch(launchOpts)
	default:
		browserType = "chromium"
		browser, err = d.chromium.Launch(launchOpts)
	}
	if err != nil {
		logLaunchFailure(browserType, err)
		return nil, fmt.Errorf("launch %s: %w", browserType, err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("new context: %w", err)
	}

	return &playwrightHandle{browser: browser, context: bctx, pages: make(map[string]playwright.Page)}, nil
}

func (d *PlaywrightDriver) Close(ctx context.Context, h Handle) error {
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return fmt.Errorf("invalid handle")
	}
	ph.mu.Lock()
	defer ph.mu.Unlock()
	if ph.context != nil {
		ph.context.Close()
	}
	if ph.browser != nil {
		return ph.browser.Close()
	}
	return nil
}

func (d *PlaywrightDriver) IsConnected(ctx context.Context, h Handle) bool {
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return false
	}
	return ph.browser.IsConnected()
}

func (d *PlaywrightDriver) Version(ctx context.Context, h Handle) (string, error) {
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return "", fmt.Errorf("invalid handle")
	}
	return ph.browser.Version(), nil
}

func (d *PlaywrightDriver) Pages(ctx context.Context, h Handle) ([]PageHandle, error) {
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return nil, fmt.Errorf("invalid handle")
	}
	ph.mu.Lock()
	defer ph.mu.Unlock()
	out := make([]PageHandle, 0, len(ph.pages))
	for id := range ph.pages {
		out = append(out, id)
	}
	return out, nil
}

func (d *PlaywrightDriver) NewPage(ctx context.Context, h Handle) (PageHandle, error) {
	ph, ok := h.(*playwrightHandle)
	if !ok {
		return nil, fmt.Errorf("invalid handle")
	}
	page, err := ph.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(30000)
	page.SetDefaultNavigationTimeout(30000)

	id := fmt.Sprintf("page-%p", page)
	ph.mu.Lock()
	ph.pages[id] = page
	ph.mu.Unlock()
	return pwPageHandle{id: id, owner: ph}, nil
}

func (d *PlaywrightDriver) ClosePage(ctx context.Context, p PageHandle) error {
	ph, ok := p.(pwPageHandle)
	if !ok {
		return fmt.Errorf("invalid page handle")
	}
	ph.owner.mu.Lock()
	page, ok := ph.owner.pages[ph.id]
	delete(ph.owner.pages, ph.id)
	ph.owner.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown page")
	}
	return page.Close()
}

func (d *PlaywrightDriver) PID(h Handle) *int { return nil }

// pwPageHandle is the concrete PageHandle returned by PlaywrightDriver.
type pwPageHandle struct {
	id    string
	owner *playwrightHandle
}

func (d *PlaywrightDriver) page(p PageHandle) (playwright.Page, error) {
	ph, ok := p.(pwPageHandle)
	if !ok {
		return nil, fmt.Errorf("invalid page handle")
	}
	ph.owner.mu.Lock()
	page, ok := ph.owner.pages[ph.id]
	ph.owner.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown page")
	}
	return page, nil
}

func (d *PlaywrightDriver) Goto(ctx context.Context, p PageHandle, url string) error {
	page, err := d.page(p)
	if err != nil {
		return err
	}
	_, err = page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle})
	return err
}

func (d *PlaywrightDriver) Evaluate(ctx context.Context, p PageHandle, script string) (any, error) {
	page, err := d.page(p)
	if err != nil {
		return nil, err
	}
	return page.Evaluate(script)
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context, p PageHandle, fullPage bool) ([]byte, error) {
	page, err := d.page(p)
	if err != nil {
		return nil, err
	}
	return page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(fullPage)})
}

var _ Driver = (*PlaywrightDriver)(nil)
var _ PageDriver = (*PlaywrightDriver)(nil)

func logLaunchFailure(browserType string, err error) {
	logger.Error("failed to launch browser", zap.String("type", browserType), zap.Error(err))
}
