package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"sjsage522/newsworker/config"
	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/internal/browser"
	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/news"
	"sjsage522/newsworker/internal/report"
	"sjsage522/newsworker/logger"
	"sjsage522/newsworker/services/publisher"

	"github.com/google/uuid"
)

// PublishKey is the key every article message is published under
const PublishKey = "article"

// BrowserFactory starts the browser session for one run
type BrowserFactory func(ctx context.Context) (browser.Browser, error)

// Result summarizes a finished run
type Result struct {
	RunID      string
	Total      int
	Records    int
	ReportPath string
	// WalkErr is the failure that ended the walk early, if any
	WalkErr error
}

// Worker runs one search, walks its results and exports the report
type Worker struct {
	cfg        config.Config
	selectors  crawler.Selectors
	newBrowser BrowserFactory
	downloader crawler.Downloader
	writer     report.TableWriter
	publisher  publisher.Publisher
	logger     helpers.LoggerInterface
	now        func() time.Time
}

// NewWorker creates a new worker
func NewWorker(
	cfg config.Config,
	selectors crawler.Selectors,
	newBrowser BrowserFactory,
	downloader crawler.Downloader,
	writer report.TableWriter,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
) *Worker {
	if pub == nil {
		pub = publisher.NoopPublisher{}
	}
	return &Worker{
		cfg:        cfg,
		selectors:  selectors,
		newBrowser: newBrowser,
		downloader: downloader,
		writer:     writer,
		publisher:  pub,
		logger:     logger,
		now:        time.Now,
	}
}

// ReportPath returns where the report for phrase is written
func ReportPath(outputDir, phrase string) string {
	return filepath.Join(outputDir, helpers.SanitizeFileName(phrase)+"_news.xlsx")
}

// Run performs the whole scrape. A failure while walking ends the walk, is
// logged, and still exports whatever was recorded; only a browser that cannot
// start or a report that cannot be written is returned as an error.
func (w *Worker) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:      uuid.NewString(),
		ReportPath: ReportPath(w.cfg.OutputDir, w.cfg.SearchPhrase),
	}
	log := logger.ForWorker().WithField("run_id", result.RunID)

	start := time.Now()
	log.Info().
		Str("phrase", w.cfg.SearchPhrase).
		Str("category", w.cfg.NewsCategory).
		Int("months", w.cfg.NumberOfMonths).
		Msg("Starting run")

	b, err := w.newBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close browser")
		}
	}()

	records := report.NewAccumulator()
	walker := crawler.NewPageWalker(b, w.selectors, crawler.WalkerOptions{
		SearchTimeout:   w.cfg.SearchTimeout,
		ItemTimeout:     w.cfg.ItemTimeout,
		LoadMoreTimeout: w.cfg.LoadMoreTimeout,
		DetailTimeout:   w.cfg.DetailTimeout,
		ResultsPerPage:  w.cfg.ResultsPerPage,
	}, w.downloader, records, w.logger)

	// walk failures are already logged where they happen
	result.Total, result.WalkErr = w.walk(ctx, walker)

	if err := records.Export(w.writer, result.ReportPath); err != nil {
		w.logger.LogError("worker", err)
		return result, fmt.Errorf("exporting report: %w", err)
	}
	result.Records = records.Len()

	w.publish(log, result.RunID, records.Records())

	if w.cfg.Environment != "production" {
		w.logger.LogInfo("Run %s finished in %s", result.RunID, time.Since(start))
	}
	log.Info().
		Int("results", result.Total).
		Int("records", result.Records).
		Bool("complete", result.WalkErr == nil).
		Str("report", result.ReportPath).
		Msg("Run finished")
	return result, nil
}

func (w *Worker) walk(ctx context.Context, walker *crawler.PageWalker) (int, error) {
	if err := walker.OpenSite(ctx, w.cfg.SiteURL); err != nil {
		w.logger.LogError("worker", err)
		return 0, err
	}
	total, err := walker.Search(ctx, w.cfg.SearchPhrase)
	if err != nil {
		w.logger.LogError("worker", err)
		return 0, err
	}
	walker.DismissInterstitial(ctx)

	window := news.ComputeWindow(w.now(), w.cfg.NumberOfMonths)
	return total, walker.Walk(ctx, w.cfg.SearchPhrase, total, window)
}

type articleMessage struct {
	RunID        string `json:"run_id"`
	SearchPhrase string `json:"search_phrase"`
	Category     string `json:"category"`
	report.Record
}

// publish sends every exported record; failures are logged and skipped
func (w *Worker) publish(log *logger.Logger, runID string, records []report.Record) {
	published := 0
	for _, r := range records {
		data, err := json.Marshal(articleMessage{
			RunID:        runID,
			SearchPhrase: w.cfg.SearchPhrase,
			Category:     w.cfg.NewsCategory,
			Record:       r,
		})
		if err != nil {
			w.logger.LogError("worker", err)
			continue
		}
		if err := w.publisher.Publish(PublishKey, data); err != nil {
			w.logger.LogError("publisher", err)
			continue
		}
		published++
	}
	if published > 0 {
		log.Debug().Int("published", published).Msg("Records published")
	}
}
