package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// jQuery's notion of visibility: the element takes up layout space
const visibleScript = `(() => {
	const el = document.querySelector(%s);
	return !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
})()`

// ChromeBrowser implements Browser with chromedp
type ChromeBrowser struct {
	ctx           context.Context
	cancel        context.CancelFunc
	actionTimeout time.Duration
	log           *logger.Logger
}

// NewChromeBrowser launches Chrome and opens a blank tab
func NewChromeBrowser(parent context.Context, opts Options) (*ChromeBrowser, error) {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.UserAgent(userAgent),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, apperrors.NewNavigation("chrome", "failed to start browser", err)
	}

	actionTimeout := opts.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = 200 * time.Second
	}

	return &ChromeBrowser{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
		actionTimeout: actionTimeout,
		log:           logger.ForBrowser(DriverChrome),
	}, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx
func (b *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(b.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

func (b *ChromeBrowser) wrap(ctx context.Context, locator, message string, timeout time.Duration, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.NewTimeout(DriverChrome, locator, timeout, err)
	}
	return apperrors.NewNavigation(DriverChrome, message, err)
}

// Open navigates the tab to url
func (b *ChromeBrowser) Open(ctx context.Context, url string) error {
	b.log.Debug().Str("url", url).Msg("Opening page")
	if err := b.run(ctx, b.actionTimeout, chromedp.Navigate(url)); err != nil {
		return b.wrap(ctx, url, "failed to open "+url, b.actionTimeout, err)
	}
	return nil
}

// WaitVisible waits up to timeout for locator to become visible
func (b *ChromeBrowser) WaitVisible(ctx context.Context, locator string, timeout time.Duration) error {
	if err := b.run(ctx, timeout, chromedp.WaitVisible(locator, chromedp.ByQuery)); err != nil {
		return b.wrap(ctx, locator, "wait for "+locator+" failed", timeout, err)
	}
	return nil
}

// Click clicks locator once it is visible
func (b *ChromeBrowser) Click(ctx context.Context, locator string) error {
	if err := b.run(ctx, b.actionTimeout, chromedp.Click(locator, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return b.wrap(ctx, locator, "click on "+locator+" failed", b.actionTimeout, err)
	}
	return nil
}

// InputText clears locator and types text into it
func (b *ChromeBrowser) InputText(ctx context.Context, locator, text string) error {
	err := b.run(ctx, b.actionTimeout,
		chromedp.Clear(locator, chromedp.ByQuery),
		chromedp.SendKeys(locator, text, chromedp.ByQuery),
	)
	if err != nil {
		return b.wrap(ctx, locator, "input into "+locator+" failed", b.actionTimeout, err)
	}
	return nil
}

// GetText returns the text content of locator
func (b *ChromeBrowser) GetText(ctx context.Context, locator string) (string, error) {
	var text string
	if err := b.run(ctx, b.actionTimeout, chromedp.Text(locator, &text, chromedp.ByQuery)); err != nil {
		return "", b.wrap(ctx, locator, "reading text of "+locator+" failed", b.actionTimeout, err)
	}
	return strings.TrimSpace(text), nil
}

// GetAttribute returns attr of locator, resolving src and href against the page URL
func (b *ChromeBrowser) GetAttribute(ctx context.Context, locator, attr string) (string, error) {
	var (
		value    string
		ok       bool
		location string
	)
	err := b.run(ctx, b.actionTimeout,
		chromedp.AttributeValue(locator, attr, &value, &ok, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return "", b.wrap(ctx, locator, "reading "+attr+" of "+locator+" failed", b.actionTimeout, err)
	}
	if !ok {
		return "", apperrors.NewNavigation(DriverChrome, fmt.Sprintf("%s has no %s attribute", locator, attr), nil)
	}
	return resolveAttr(location, attr, strings.TrimSpace(value)), nil
}

// IsVisible checks locator without waiting for it to appear
func (b *ChromeBrowser) IsVisible(ctx context.Context, locator string) (bool, error) {
	var nodes []*cdp.Node
	if err := b.run(ctx, b.actionTimeout, chromedp.Nodes(locator, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return false, b.wrap(ctx, locator, "querying "+locator+" failed", b.actionTimeout, err)
	}
	if len(nodes) == 0 {
		return false, nil
	}

	quoted, err := json.Marshal(locator)
	if err != nil {
		return false, apperrors.NewNavigation(DriverChrome, "invalid locator", err)
	}
	var visible bool
	if err := b.run(ctx, b.actionTimeout, chromedp.Evaluate(fmt.Sprintf(visibleScript, quoted), &visible)); err != nil {
		return false, b.wrap(ctx, locator, "visibility check of "+locator+" failed", b.actionTimeout, err)
	}
	return visible, nil
}

// GoBack navigates one step back in history
func (b *ChromeBrowser) GoBack(ctx context.Context) error {
	if err := b.run(ctx, b.actionTimeout, chromedp.NavigateBack()); err != nil {
		return b.wrap(ctx, "history", "navigating back failed", b.actionTimeout, err)
	}
	return nil
}

// Close shuts the tab and the browser process
func (b *ChromeBrowser) Close() error {
	b.cancel()
	return nil
}

// resolveAttr makes src and href values absolute the way the DOM properties are
func resolveAttr(base, attr, value string) string {
	if attr != "src" && attr != "href" {
		return value
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return value
	}
	ref, err := url.Parse(value)
	if err != nil {
		return value
	}
	return baseURL.ResolveReference(ref).String()
}
