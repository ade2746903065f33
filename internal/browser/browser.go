// Package browser defines the page-driving capability the walker depends on,
// with a headless Chrome driver and a plain HTTP driver for server-rendered pages.
package browser

import (
	"context"
	"fmt"
	"time"

	apperrors "sjsage522/newsworker/pkg/errors"
)

const (
	// DriverChrome drives a headless Chrome through the DevTools protocol
	DriverChrome = "chrome"
	// DriverStatic fetches pages over HTTP and queries them without running scripts
	DriverStatic = "static"
)

// Browser is a single page session. Locators are CSS selectors.
// Calls block; waits fail with a timeout ScrapeError once their bound is exceeded.
type Browser interface {
	// Open navigates to url
	Open(ctx context.Context, url string) error

	// WaitVisible blocks until the first element matching locator is visible
	WaitVisible(ctx context.Context, locator string, timeout time.Duration) error

	// Click clicks the first element matching locator
	Click(ctx context.Context, locator string) error

	// InputText replaces the value of the matched input with text
	InputText(ctx context.Context, locator, text string) error

	// GetText returns the trimmed text content of the matched element
	GetText(ctx context.Context, locator string) (string, error)

	// GetAttribute returns attr of the matched element; src and href are absolute
	GetAttribute(ctx context.Context, locator, attr string) (string, error)

	// IsVisible reports without waiting whether a matching element is visible
	IsVisible(ctx context.Context, locator string) (bool, error)

	// GoBack returns to the previous page in history
	GoBack(ctx context.Context) error

	// Close releases the session
	Close() error
}

// Options selects and configures a driver
type Options struct {
	Driver        string
	Headless      bool
	ChromePath    string
	UserAgent     string
	ActionTimeout time.Duration
}

// New creates the browser selected by opts.Driver
func New(ctx context.Context, opts Options) (Browser, error) {
	switch opts.Driver {
	case DriverChrome, "":
		return NewChromeBrowser(ctx, opts)
	case DriverStatic:
		return NewStaticBrowser(nil), nil
	default:
		return nil, apperrors.NewConfiguration(fmt.Sprintf("unknown browser driver %q", opts.Driver), nil)
	}
}
