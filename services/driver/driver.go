// Package driver abstracts the underlying browser-automation engine
// (spec §4.7 Lifecycle Driver). The pool never talks to a browser
// process directly; it calls Driver, which may be backed by Playwright,
// a Docker-isolated Selenium grid, or a test double.
package driver

import "context"

// Handle is an opaque reference to a launched browser process. Concrete
// drivers embed whatever they need (a playwright.Browser, a container id)
// behind this interface{}.
type Handle any

// PageHandle is an opaque reference to an open page/tab.
type PageHandle any

// LaunchOptions carries driver-specific launch parameters (spec's
// "launchOptions" config key is opaque to the pool and passed straight
// through to whichever Driver is configured).
type LaunchOptions struct {
	BrowserType string // chromium, firefox, webkit
	Headless    bool
	Args        []string
	Extra       map[string]any
}

// Driver is the contract the Pool Manager and Lifecycle Driver component
// consume. Every method is bounded by the passed context; drivers must
// not block past ctx's deadline.
type Driver interface {
	Launch(ctx context.Context, opts LaunchOptions) (Handle, error)
	Close(ctx context.Context, h Handle) error
	IsConnected(ctx context.Context, h Handle) bool
	Version(ctx context.Context, h Handle) (string, error)
	Pages(ctx context.Context, h Handle) ([]PageHandle, error)
	NewPage(ctx context.Context, h Handle) (PageHandle, error)
	ClosePage(ctx context.Context, p PageHandle) error
	PID(h Handle) *int
}

// PageDriver is implemented by drivers whose page handles support the
// navigation/evaluation/capture command surface (commands package).
// Not every Driver needs to implement it — e.g. a driver used only to
// prove out the pool's acquisition logic in tests may leave commands
// unsupported.
type PageDriver interface {
	Goto(ctx context.Context, p PageHandle, url string) error
	Evaluate(ctx context.Context, p PageHandle, script string) (any, error)
	Screenshot(ctx context.Context, p PageHandle, fullPage bool) ([]byte, error)
}
