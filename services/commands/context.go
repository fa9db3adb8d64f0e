// Package commands implements the navigate/evaluate/interact/capture
// surface a client exercises once it has acquired a browser and created
// a page (spec's Non-goals exclude the automation protocol itself; this
// package is the thin, explicitly out-of-core layer SPEC_FULL.md adds on
// top of the Pool Manager to make that acquired context actually useful).
package commands

import (
	"context"
	"fmt"

	capturemodel "browsergate/models/capture"
	"browsergate/services/capture"
	"browsergate/services/driver"
	"browsergate/errors"
)

// Context binds a page to the session that owns it. Every method
// re-checks ownership the same way the Pool Manager's Release/CreatePage
// do, so a stolen or replayed context id can never be driven by another
// session.
type Context struct {
	BrowserID string
	SessionID string
	PageID    string

	page   driver.PageHandle
	drv    driver.PageDriver
	upload *capture.Uploader
	rec    *capture.Recorder

	inlineScreenshotLimit int
}

// Options configures a Context's capture behavior.
type Options struct {
	Upload                *capture.Uploader // nil disables S3 offload; screenshots stay inline
	Recorder              *capture.Recorder
	InlineScreenshotLimit int // bytes; 0 uses a 256KiB default
}

// New builds a Context for an already-created page.
func New(browserID, sessionID, pageID string, page driver.PageHandle, drv driver.PageDriver, opts Options) *Context {
	limit := opts.InlineScreenshotLimit
	if limit == 0 {
		limit = 256 * 1024
	}
	return &Context{
		BrowserID:             browserID,
		SessionID:             sessionID,
		PageID:                pageID,
		page:                  page,
		drv:                   drv,
		upload:                opts.Upload,
		rec:                   opts.Recorder,
		inlineScreenshotLimit: limit,
	}
}

func (c *Context) authorize(callerSessionID string) error {
	if callerSessionID != c.SessionID {
		return errors.UnauthorizedSession(fmt.Sprintf("session %s does not own page %s", callerSessionID, c.PageID))
	}
	return nil
}

// Navigate loads url in the page.
func (c *Context) Navigate(ctx context.Context, callerSessionID, url string) error {
	if err := c.authorize(callerSessionID); err != nil {
		return err
	}
	return c.drv.Goto(ctx, c.page, url)
}

// Evaluate runs script in the page and returns its result.
func (c *Context) Evaluate(ctx context.Context, callerSessionID, script string) (any, error) {
	if err := c.authorize(callerSessionID); err != nil {
		return nil, err
	}
	return c.drv.Evaluate(ctx, c.page, script)
}

// Screenshot captures the page, offloading to S3 above the inline limit
// when an Uploader is configured.
func (c *Context) Screenshot(ctx context.Context, callerSessionID string, fullPage bool) (capturemodel.Screenshot, error) {
	if err := c.authorize(callerSessionID); err != nil {
		return capturemodel.Screenshot{}, err
	}

	data, err := c.drv.Screenshot(ctx, c.page, fullPage)
	if err != nil {
		return capturemodel.Screenshot{}, fmt.Errorf("screenshot: %w", err)
	}

	shot := capturemodel.Screenshot{Format: capturemodel.FormatPNG, Bytes: len(data)}
	if c.upload == nil || len(data) <= c.inlineScreenshotLimit {
		shot.Inline = data
		return shot, nil
	}

	key, err := c.upload.PutScreenshot(ctx, c.SessionID, capturemodel.FormatPNG, data)
	if err != nil {
		return capturemodel.Screenshot{}, err
	}
	shot.StorageKey = key
	return shot, nil
}

// StartRecording begins recording the page's display.
func (c *Context) StartRecording(ctx context.Context, callerSessionID, displayTarget string) (capturemodel.Recording, error) {
	if err := c.authorize(callerSessionID); err != nil {
		return capturemodel.Recording{}, err
	}
	if c.rec == nil {
		return capturemodel.Recording{}, errors.Internal("recording not configured", nil)
	}
	return c.rec.Start(ctx, c.SessionID, c.BrowserID, displayTarget)
}

// StopRecording ends a recording started on this context.
func (c *Context) StopRecording(callerSessionID, recordingID string) (capturemodel.Recording, error) {
	if err := c.authorize(callerSessionID); err != nil {
		return capturemodel.Recording{}, err
	}
	if c.rec == nil {
		return capturemodel.Recording{}, errors.Internal("recording not configured", nil)
	}
	return c.rec.Stop(recordingID)
}
