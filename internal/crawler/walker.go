package crawler

import (
	"context"
	"fmt"
	"time"

	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/internal/browser"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/internal/report"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"
)

// Downloader saves an article image and returns the file name to record
type Downloader interface {
	Download(ctx context.Context, imageURL, filename string) string
}

// WalkerOptions bounds each wait of a walk
type WalkerOptions struct {
	SearchTimeout   time.Duration
	ItemTimeout     time.Duration
	LoadMoreTimeout time.Duration
	DetailTimeout   time.Duration
	ResultsPerPage  int
}

// PageWalker drives one browser session through the search results of a site,
// visiting every result's detail page in order and recording qualifying articles.
type PageWalker struct {
	browser    browser.Browser
	selectors  Selectors
	opts       WalkerOptions
	downloader Downloader
	records    *report.Accumulator
	errLog     helpers.LoggerInterface
	log        *logger.Logger
}

// NewPageWalker creates a walker appending to records
func NewPageWalker(
	b browser.Browser,
	selectors Selectors,
	opts WalkerOptions,
	downloader Downloader,
	records *report.Accumulator,
	errLog helpers.LoggerInterface,
) *PageWalker {
	if opts.ResultsPerPage <= 0 {
		opts.ResultsPerPage = 10
	}
	return &PageWalker{
		browser:    b,
		selectors:  selectors,
		opts:       opts,
		downloader: downloader,
		records:    records,
		errLog:     errLog,
		log:        logger.ForWalker(),
	}
}

// OpenSite opens the home page and waits for it to settle.
// The wait is best-effort: a slow home page only gets a warning.
func (w *PageWalker) OpenSite(ctx context.Context, url string) error {
	if err := w.browser.Open(ctx, url); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	if err := w.browser.WaitVisible(ctx, w.selectors.HomeReady, w.opts.SearchTimeout); err != nil {
		w.log.Warn().Err(err).Str("url", url).Msg("Home page not ready, continuing")
	}
	return nil
}

// Search submits phrase and returns the number of matching articles
func (w *PageWalker) Search(ctx context.Context, phrase string) (int, error) {
	sel := w.selectors

	if err := w.browser.Click(ctx, sel.SearchOpen); err != nil {
		return 0, fmt.Errorf("opening search: %w", err)
	}
	if err := w.browser.WaitVisible(ctx, sel.SearchForm, w.opts.SearchTimeout); err != nil {
		return 0, fmt.Errorf("waiting for search form: %w", err)
	}
	if err := w.browser.InputText(ctx, sel.SearchInput, phrase); err != nil {
		return 0, fmt.Errorf("typing search phrase: %w", err)
	}
	if err := w.browser.Click(ctx, sel.SearchSubmit); err != nil {
		return 0, fmt.Errorf("submitting search: %w", err)
	}
	if err := w.browser.WaitVisible(ctx, sel.ResultsReady, w.opts.SearchTimeout); err != nil {
		return 0, fmt.Errorf("waiting for results: %w", err)
	}

	text, err := w.browser.GetText(ctx, sel.ResultsCount)
	if err != nil {
		return 0, fmt.Errorf("reading result count: %w", err)
	}
	total, ok := helpers.ParseCount(text)
	if !ok {
		return 0, apperrors.NewParsing("walker", fmt.Sprintf("result count %q is not a number", text), nil)
	}

	w.log.Info().Str("phrase", phrase).Int("results", total).Msg("Search submitted")
	return total, nil
}

// DismissInterstitial closes the one-time popup when it is showing.
// Nothing here can fail the walk.
func (w *PageWalker) DismissInterstitial(ctx context.Context) {
	visible, err := w.browser.IsVisible(ctx, w.selectors.Interstitial)
	if err != nil {
		w.log.Debug().Err(err).Msg("Interstitial check failed")
		return
	}
	if !visible {
		return
	}
	if err := w.browser.Click(ctx, w.selectors.Interstitial); err != nil {
		w.log.Debug().Err(err).Msg("Interstitial could not be closed")
		return
	}
	w.log.Debug().Msg("Interstitial dismissed")
}

// Expansions returns how many "load more" clicks render the result at position
func (w *PageWalker) Expansions(position int) int {
	if position <= 0 {
		return 0
	}
	return (position - 1) / w.opts.ResultsPerPage
}

// Walk visits results 1..total in order. The first failing step ends the walk;
// records appended before it are kept and the error is returned.
func (w *PageWalker) Walk(ctx context.Context, phrase string, total int, window news.MonthWindow) error {
	w.log.Info().
		Int("results", total).
		Strs("months", window.Names()).
		Msg("Walking results")

	for position := 1; position <= total; position++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("walk cancelled at position %d: %w", position, err)
		}
		if err := w.visit(ctx, phrase, position, window); err != nil {
			w.errLog.LogError("walker", err)
			return fmt.Errorf("position %d: %w", position, err)
		}
	}

	w.log.Info().Int("records", w.records.Len()).Msg("Walk finished")
	return nil
}

func (w *PageWalker) expand(ctx context.Context, position int) error {
	for i := 0; i < w.Expansions(position); i++ {
		if err := w.browser.WaitVisible(ctx, w.selectors.LoadMore, w.opts.LoadMoreTimeout); err != nil {
			return fmt.Errorf("waiting for load more: %w", err)
		}
		if err := w.browser.Click(ctx, w.selectors.LoadMore); err != nil {
			return fmt.Errorf("clicking load more: %w", err)
		}
	}
	return nil
}

func (w *PageWalker) readVisible(ctx context.Context, locator string, timeout time.Duration) (string, error) {
	if err := w.browser.WaitVisible(ctx, locator, timeout); err != nil {
		return "", err
	}
	return w.browser.GetText(ctx, locator)
}

func (w *PageWalker) visit(ctx context.Context, phrase string, position int, window news.MonthWindow) error {
	sel := w.selectors

	if err := w.expand(ctx, position); err != nil {
		return err
	}

	title, err := w.readVisible(ctx, sel.At(sel.ItemTitle, position), w.opts.ItemTimeout)
	if err != nil {
		return fmt.Errorf("reading title: %w", err)
	}
	description, err := w.readVisible(ctx, sel.At(sel.ItemExcerpt, position), w.opts.ItemTimeout)
	if err != nil {
		return fmt.Errorf("reading description: %w", err)
	}

	link := sel.At(sel.ItemLink, position)
	if err := w.browser.WaitVisible(ctx, link, w.opts.ItemTimeout); err != nil {
		return fmt.Errorf("waiting for article link: %w", err)
	}
	if err := w.browser.Click(ctx, link); err != nil {
		return fmt.Errorf("opening article: %w", err)
	}

	dateText, err := w.readVisible(ctx, sel.DetailDate, w.opts.DetailTimeout)
	if err != nil {
		return fmt.Errorf("reading publish date: %w", err)
	}

	entry := w.log.WithField("position", position)

	// Articles without a lead image still qualify; the downloader records the sentinel
	imageURL, err := w.browser.GetAttribute(ctx, sel.DetailImage, "src")
	if err != nil {
		entry.Debug().Err(err).Msg("No lead image")
		imageURL = ""
	}

	published, ok := news.ParsePublishedDate(dateText)
	switch {
	case !ok:
		entry.Debug().Err(apperrors.NewDateParse("walker", fmt.Sprintf("no publish date in %q", dateText))).Msg("Skipping article")
	case !window.Contains(published.Month()):
		entry.Debug().Str("month", published.Month().String()).Msg("Skipping article outside month window")
	default:
		text := title + " " + description
		filename := w.downloader.Download(ctx, imageURL, ImageFileName(phrase, position))
		w.records.Append(report.Record{
			Title:         title,
			Date:          published,
			Description:   description,
			Filename:      filename,
			PhraseCount:   news.CountPhraseOccurrences(phrase, text),
			ContainsMoney: news.ContainsMoney(text),
		})
		entry.Info().Str("title", title).Str("file", filename).Msg("Article recorded")
	}

	if err := w.browser.GoBack(ctx); err != nil {
		return fmt.Errorf("returning to results: %w", err)
	}
	return nil
}
