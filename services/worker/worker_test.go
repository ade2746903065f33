package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sjsage522/newsworker/config"
	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/internal/browser"
	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/report"
	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/publisher"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	keys     []string
	err      error
}

// Ensure MockPublisher implements publisher.Publisher
var _ publisher.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)

	m.keys = append(m.keys, key)
	m.messages = append(m.messages, messageCopy)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// MockLogger implements the helpers.LoggerInterface for testing
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

// Ensure MockLogger implements helpers.LoggerInterface
var _ helpers.LoggerInterface = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{
		errors: make([]string, 0),
		infos:  make([]string, 0),
	}
}

func (m *MockLogger) LogError(component string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, component+": "+err.Error())
}

func (m *MockLogger) LogInfo(format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, fmt.Sprintf(format, args...))
}

type siteArticle struct {
	title   string
	excerpt string
	date    string // empty renders a detail page without a publish date
	image   string
}

var testSelectors = crawler.Selectors{
	HomeReady:    "header",
	SearchOpen:   "button.open-search",
	SearchForm:   "form#search",
	SearchInput:  "form#search > input",
	SearchSubmit: "form#search > button",
	ResultsReady: "div.results",
	ResultsCount: "span.count",
	Interstitial: "button.close",
	LoadMore:     "button.more",
	ItemTitle:    "li[data-pos='%d'] h2",
	ItemExcerpt:  "li[data-pos='%d'] p",
	ItemLink:     "li[data-pos='%d'] a",
	DetailDate:   "p.published",
	DetailImage:  "figure img",
}

// newNewsSite serves a server-rendered news site listing articles for any query
func newNewsSite(t *testing.T, count string, articles []siteArticle) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<header>City News</header>
			<button type="button" class="open-search">Search</button>
			<form id="search" action="/search">
				<input name="q" type="text">
				<button type="submit">Go</button>
			</form>
		</body></html>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		var items strings.Builder
		for i, a := range articles {
			fmt.Fprintf(&items, `<li data-pos="%d"><h2>%s</h2><p>%s</p><a href="/news/%d">Read</a></li>`,
				i+1, a.title, a.excerpt, i+1)
		}
		fmt.Fprintf(w, `<html><body>
			<div class="results"><span class="count">%s</span></div>
			<ul>%s</ul>
			<button type="button" class="more">Load More</button>
		</body></html>`, count, items.String())
	})
	mux.HandleFunc("/news/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		if _, err := fmt.Sscanf(r.URL.Path, "/news/%d", &n); err != nil || n < 1 || n > len(articles) {
			http.NotFound(w, r)
			return
		}
		a := articles[n-1]
		date := ""
		if a.date != "" {
			date = `<p class="published">` + a.date + `</p>`
		}
		fmt.Fprintf(w, `<html><body><article><h1>%s</h1>%s<figure><img src="%s"></figure></article></body></html>`,
			a.title, date, a.image)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg:" + r.URL.Path))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(siteURL, outputDir string) config.Config {
	return config.Config{
		SearchPhrase:    "fare",
		NewsCategory:    "transit",
		NumberOfMonths:  1,
		SiteURL:         siteURL,
		BrowserDriver:   browser.DriverStatic,
		ResultsPerPage:  10,
		SearchTimeout:   time.Second,
		ItemTimeout:     time.Second,
		LoadMoreTimeout: time.Second,
		DetailTimeout:   time.Second,
		ActionTimeout:   time.Second,
		ImageTimeout:    5 * time.Second,
		OutputDir:       outputDir,
		Environment:     "test",
	}
}

func staticFactory(ctx context.Context) (browser.Browser, error) {
	return browser.NewStaticBrowser(nil), nil
}

func newTestWorker(cfg config.Config, pub publisher.Publisher, log *MockLogger) *Worker {
	downloader := crawler.NewImageDownloader(cfg.OutputDir, nil, time.Hour, cfg.ImageTimeout, log)
	w := NewWorker(cfg, testSelectors, staticFactory, downloader, report.NewXLSXWriter(), pub, log)
	w.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.Local) }
	return w
}

func readReport(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	return rows
}

func TestWorkerRunExportsQualifyingArticles(t *testing.T) {
	articles := []siteArticle{
		{title: "Fare hike approved", excerpt: "Riders pay $2.90 per fare", date: "Published Mar 1, 2024", image: "/img/1.jpg"},
		{title: "Old fare story", excerpt: "From January", date: "Published Jan 12, 2024", image: "/img/2.jpg"},
		{title: "Board vote", excerpt: "Members meet again", date: "Published Feb 10, 2024", image: "/img/missing.jpg"},
	}
	server := newNewsSite(t, "3", articles)
	outputDir := t.TempDir()
	mockLogger := NewMockLogger()
	mockPublisher := &MockPublisher{}

	w := newTestWorker(testConfig(server.URL+"/", outputDir), mockPublisher, mockLogger)
	result, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.NoError(t, result.WalkErr)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Records)
	assert.Equal(t, filepath.Join(outputDir, "fare_news.xlsx"), result.ReportPath)

	rows := readReport(t, result.ReportPath)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Columns, rows[0])
	assert.Equal(t, []string{"Fare hike approved", "2024-03-01", "Riders pay $2.90 per fare", "new_fare_1.jpg", "1", "TRUE"}, rows[1])
	assert.Equal(t, "Board vote", rows[2][0])
	assert.Equal(t, crawler.DownloadFailedSentinel, rows[2][3])
	assert.Equal(t, "FALSE", rows[2][5])

	image, err := os.ReadFile(filepath.Join(outputDir, "new_fare_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:/img/1.jpg", string(image))
	_, err = os.Stat(filepath.Join(outputDir, "new_fare_2.jpg"))
	assert.True(t, os.IsNotExist(err), "skipped articles are not downloaded")

	// the failed image download is the only logged error
	require.Len(t, mockLogger.errors, 1)
	assert.Contains(t, mockLogger.errors[0], "downloader")

	require.Len(t, mockPublisher.messages, 2)
	assert.Equal(t, []string{PublishKey, PublishKey}, mockPublisher.keys)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(mockPublisher.messages[0], &msg))
	assert.Equal(t, result.RunID, msg["run_id"])
	assert.Equal(t, "fare", msg["search_phrase"])
	assert.Equal(t, "transit", msg["category"])
	assert.Equal(t, "Fare hike approved", msg["title"])
	assert.Equal(t, true, msg["contains_money"])
}

func TestWorkerRunExportsPartialResultsOnTimeout(t *testing.T) {
	articles := []siteArticle{
		{title: "Fare hike approved", excerpt: "Riders pay more", date: "Published Mar 1, 2024", image: "/img/1.jpg"},
		{title: "Fare relief", excerpt: "Discounts expand", date: "Published Mar 4, 2024", image: "/img/2.jpg"},
		{title: "Broken page", excerpt: "No caption", date: "", image: "/img/3.jpg"},
		{title: "Never visited", excerpt: "After the failure", date: "Published Mar 5, 2024", image: "/img/4.jpg"},
	}
	server := newNewsSite(t, "4", articles)
	outputDir := t.TempDir()
	mockLogger := NewMockLogger()
	mockPublisher := &MockPublisher{}

	w := newTestWorker(testConfig(server.URL+"/", outputDir), mockPublisher, mockLogger)
	result, err := w.Run(context.Background())

	require.NoError(t, err, "walk failures are not returned to the caller")
	require.Error(t, result.WalkErr)
	assert.True(t, apperrors.IsTimeout(result.WalkErr))
	assert.Equal(t, 2, result.Records)

	rows := readReport(t, result.ReportPath)
	require.Len(t, rows, 3)
	assert.Equal(t, "Fare hike approved", rows[1][0])
	assert.Equal(t, "Fare relief", rows[2][0])

	assert.Len(t, mockPublisher.messages, 2)
	// logged once, by the walker
	require.Len(t, mockLogger.errors, 1)
	assert.Contains(t, mockLogger.errors[0], "walker")
}

func TestWorkerRunExportsEmptyReportWhenSearchFails(t *testing.T) {
	server := newNewsSite(t, "lots", nil)
	outputDir := t.TempDir()
	mockLogger := NewMockLogger()
	mockPublisher := &MockPublisher{}

	w := newTestWorker(testConfig(server.URL+"/", outputDir), mockPublisher, mockLogger)
	result, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, apperrors.IsType(result.WalkErr, apperrors.ErrorTypeParsing))
	assert.Len(t, mockLogger.errors, 1)

	rows := readReport(t, result.ReportPath)
	require.Len(t, rows, 1)
	assert.Equal(t, report.Columns, rows[0])
	assert.Empty(t, mockPublisher.messages)
}

func TestWorkerRunPublishFailuresAreLogged(t *testing.T) {
	articles := []siteArticle{
		{title: "Fare hike approved", excerpt: "Riders pay more", date: "Published Mar 1, 2024", image: "/img/1.jpg"},
	}
	server := newNewsSite(t, "1", articles)
	mockLogger := NewMockLogger()
	mockPublisher := &MockPublisher{err: errors.New("stream unavailable")}

	w := newTestWorker(testConfig(server.URL+"/", t.TempDir()), mockPublisher, mockLogger)
	result, err := w.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Records)
	require.Len(t, mockLogger.errors, 1)
	assert.Contains(t, mockLogger.errors[0], "publisher: stream unavailable")
}

func TestWorkerRunFailsWhenBrowserCannotStart(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig("http://127.0.0.1:1/", outputDir)
	w := NewWorker(cfg, testSelectors, func(ctx context.Context) (browser.Browser, error) {
		return nil, apperrors.NewNavigation("browser", "chrome not found", nil)
	}, nil, report.NewXLSXWriter(), nil, NewMockLogger())

	result, err := w.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "chrome not found")
	_, statErr := os.Stat(ReportPath(outputDir, cfg.SearchPhrase))
	assert.True(t, os.IsNotExist(statErr))
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, filepath.Join("output", "subway fares_news.xlsx"), ReportPath("output", "subway fares"))
	assert.Equal(t, filepath.Join("output", "a_b_news.xlsx"), ReportPath("output", "a/b"))
}
