package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// FetchFunc returns the UTF-8 body of a page
type FetchFunc func(url string) (io.Reader, error)

type staticPage struct {
	url *url.URL
	doc *goquery.Document
}

// StaticBrowser implements Browser over plain HTTP and goquery.
// Pages never change after loading, so waits resolve immediately: an element is
// visible when it exists outside any [hidden] subtree.
// Links navigate, submit buttons submit their GET form, other clicks do nothing.
type StaticBrowser struct {
	fetch   FetchFunc
	history []*staticPage
	log     *logger.Logger
}

// NewStaticBrowser creates a static browser; a nil fetch uses helpers.FetchWithRandomHeaders
func NewStaticBrowser(fetch FetchFunc) *StaticBrowser {
	if fetch == nil {
		fetch = helpers.FetchWithRandomHeaders
	}
	return &StaticBrowser{
		fetch: fetch,
		log:   logger.ForBrowser(DriverStatic),
	}
}

func (b *StaticBrowser) current() (*staticPage, error) {
	if len(b.history) == 0 {
		return nil, apperrors.NewNavigation(DriverStatic, "no page is open", nil)
	}
	return b.history[len(b.history)-1], nil
}

func (b *StaticBrowser) navigate(ctx context.Context, target *url.URL) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewNavigation(DriverStatic, "navigation cancelled", err)
	}

	b.log.Debug().Str("url", target.String()).Msg("Fetching page")
	body, err := b.fetch(target.String())
	if err != nil {
		return apperrors.NewNavigation(DriverStatic, "failed to fetch "+target.String(), err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return apperrors.NewNavigation(DriverStatic, "failed to parse "+target.String(), err)
	}

	b.history = append(b.history, &staticPage{url: target, doc: doc})
	return nil
}

// find returns the first visible match of locator on the current page
func (b *StaticBrowser) find(locator string) (*staticPage, *goquery.Selection, error) {
	page, err := b.current()
	if err != nil {
		return nil, nil, err
	}
	sel := page.doc.Find(locator).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest("[hidden]").Length() == 0
	}).First()
	return page, sel, nil
}

func (b *StaticBrowser) mustFind(locator string) (*staticPage, *goquery.Selection, error) {
	page, sel, err := b.find(locator)
	if err != nil {
		return nil, nil, err
	}
	if sel.Length() == 0 {
		return nil, nil, apperrors.NewNavigation(DriverStatic, fmt.Sprintf("no element matches %q", locator), nil)
	}
	return page, sel, nil
}

// Open fetches rawURL and makes it the current page
func (b *StaticBrowser) Open(ctx context.Context, rawURL string) error {
	target, err := url.Parse(rawURL)
	if err != nil {
		return apperrors.NewNavigation(DriverStatic, "invalid url "+rawURL, err)
	}
	return b.navigate(ctx, target)
}

// WaitVisible succeeds iff locator is visible on the current page
func (b *StaticBrowser) WaitVisible(ctx context.Context, locator string, timeout time.Duration) error {
	_, sel, err := b.find(locator)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return apperrors.NewTimeout(DriverStatic, locator, timeout, nil)
	}
	return nil
}

// Click follows links and submits forms
func (b *StaticBrowser) Click(ctx context.Context, locator string) error {
	page, sel, err := b.mustFind(locator)
	if err != nil {
		return err
	}

	switch goquery.NodeName(sel) {
	case "a":
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return nil
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return apperrors.NewNavigation(DriverStatic, "invalid link "+href, err)
		}
		return b.navigate(ctx, page.url.ResolveReference(ref))
	case "button", "input":
		if !isSubmitter(sel) {
			return nil
		}
		form := sel.Closest("form")
		if form.Length() == 0 {
			return nil
		}
		return b.submit(ctx, page, form, sel)
	default:
		return nil
	}
}

func isSubmitter(sel *goquery.Selection) bool {
	kind := strings.ToLower(sel.AttrOr("type", ""))
	if goquery.NodeName(sel) == "button" {
		return kind == "" || kind == "submit"
	}
	return kind == "submit" || kind == "image"
}

func (b *StaticBrowser) submit(ctx context.Context, page *staticPage, form, submitter *goquery.Selection) error {
	if method, _ := form.Attr("method"); method != "" && !strings.EqualFold(method, "get") {
		return apperrors.NewNavigation(DriverStatic, "only GET forms can be submitted", nil)
	}

	action := page.url
	if raw, ok := form.Attr("action"); ok && strings.TrimSpace(raw) != "" {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil {
			return apperrors.NewNavigation(DriverStatic, "invalid form action "+raw, err)
		}
		action = page.url.ResolveReference(ref)
	}

	values := url.Values{}
	form.Find("input[name], textarea[name], select[name]").Each(func(_ int, s *goquery.Selection) {
		if kind := strings.ToLower(s.AttrOr("type", "")); kind == "submit" || kind == "button" || kind == "image" {
			return
		}
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		values.Add(name, value)
	})
	if name, ok := submitter.Attr("name"); ok {
		value, _ := submitter.Attr("value")
		values.Add(name, value)
	}

	target := *action
	target.RawQuery = values.Encode()
	return b.navigate(ctx, &target)
}

// InputText sets the value attribute of the matched input
func (b *StaticBrowser) InputText(ctx context.Context, locator, text string) error {
	_, sel, err := b.mustFind(locator)
	if err != nil {
		return err
	}
	sel.SetAttr("value", text)
	return nil
}

// GetText returns the trimmed text of the matched element
func (b *StaticBrowser) GetText(ctx context.Context, locator string) (string, error) {
	_, sel, err := b.mustFind(locator)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.Text()), nil
}

// GetAttribute returns attr of the matched element
func (b *StaticBrowser) GetAttribute(ctx context.Context, locator, attr string) (string, error) {
	page, sel, err := b.mustFind(locator)
	if err != nil {
		return "", err
	}
	value, ok := sel.Attr(attr)
	if !ok {
		return "", apperrors.NewNavigation(DriverStatic, fmt.Sprintf("%s has no %s attribute", locator, attr), nil)
	}
	return resolveAttr(page.url.String(), attr, strings.TrimSpace(value)), nil
}

// IsVisible reports whether locator is visible on the current page
func (b *StaticBrowser) IsVisible(ctx context.Context, locator string) (bool, error) {
	_, sel, err := b.find(locator)
	if err != nil {
		return false, err
	}
	return sel.Length() > 0, nil
}

// GoBack returns to the previously loaded page as it was left
func (b *StaticBrowser) GoBack(ctx context.Context) error {
	if len(b.history) < 2 {
		return apperrors.NewNavigation(DriverStatic, "no previous page", nil)
	}
	b.history = b.history[:len(b.history)-1]
	return nil
}

// Close drops the page history
func (b *StaticBrowser) Close() error {
	b.history = nil
	return nil
}
