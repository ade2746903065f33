package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
	sets  int
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.sets++
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// MockLogger implements helpers.LoggerInterface for testing
type MockLogger struct {
	mu     sync.Mutex
	errors []string
	infos  []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
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

// mockDownloader records every download and fails for empty or listed urls
type mockDownloader struct {
	calls   []string
	urls    []string
	failing map[string]bool
}

func (m *mockDownloader) Download(ctx context.Context, imageURL, filename string) string {
	m.calls = append(m.calls, filename)
	m.urls = append(m.urls, imageURL)
	if imageURL == "" || m.failing[imageURL] {
		return DownloadFailedSentinel
	}
	return filename
}

type fakeArticle struct {
	title   string
	excerpt string
	date    string
	image   string
}

type locatorKind int

const (
	kindTitle locatorKind = iota
	kindExcerpt
	kindLink
)

type itemLocator struct {
	kind     locatorKind
	position int
}

// fakeBrowser simulates the results page of a site that renders perPage items
// and re-renders only the first page after navigating back.
type fakeBrowser struct {
	sel      Selectors
	articles []fakeArticle
	perPage  int
	items    map[string]itemLocator

	page   string
	detail int
	loaded int

	countText       string
	popupVisible    bool
	hideLoadMore    bool
	timeoutDetailAt int
	noImageAt       map[int]bool

	loadMoreClicks int
	expansionsAt   map[int]int
	popupClosed    bool
	inputs         map[string]string
	backs          int
	opened         []string
}

func newFakeBrowser(sel Selectors, perPage int, articles []fakeArticle) *fakeBrowser {
	f := &fakeBrowser{
		sel:          sel,
		articles:     articles,
		perPage:      perPage,
		items:        map[string]itemLocator{},
		page:         "blank",
		countText:    fmt.Sprintf("%d", len(articles)),
		expansionsAt: map[int]int{},
		inputs:       map[string]string{},
	}
	for p := 1; p <= len(articles); p++ {
		f.items[sel.At(sel.ItemTitle, p)] = itemLocator{kindTitle, p}
		f.items[sel.At(sel.ItemExcerpt, p)] = itemLocator{kindExcerpt, p}
		f.items[sel.At(sel.ItemLink, p)] = itemLocator{kindLink, p}
	}
	return f
}

func (f *fakeBrowser) firstPage() int {
	return min(f.perPage, len(f.articles))
}

func (f *fakeBrowser) visible(locator string) bool {
	switch locator {
	case f.sel.HomeReady, f.sel.SearchForm:
		return f.page == "home"
	case f.sel.ResultsReady:
		return f.page == "results"
	case f.sel.LoadMore:
		return f.page == "results" && !f.hideLoadMore && f.loaded < len(f.articles)
	case f.sel.Interstitial:
		return f.popupVisible && !f.popupClosed
	case f.sel.DetailDate:
		return f.page == "detail" && f.detail != f.timeoutDetailAt
	}
	if item, ok := f.items[locator]; ok {
		return f.page == "results" && item.position <= f.loaded
	}
	return false
}

func (f *fakeBrowser) Open(ctx context.Context, url string) error {
	f.opened = append(f.opened, url)
	f.page = "home"
	return nil
}

func (f *fakeBrowser) WaitVisible(ctx context.Context, locator string, timeout time.Duration) error {
	if !f.visible(locator) {
		return apperrors.NewTimeout("fake", locator, timeout, nil)
	}
	if item, ok := f.items[locator]; ok && item.kind == kindTitle {
		f.expansionsAt[item.position] = f.loadMoreClicks
	}
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, locator string) error {
	if locator != f.sel.SearchOpen && locator != f.sel.SearchSubmit && !f.visible(locator) {
		return apperrors.NewNavigation("fake", "not clickable: "+locator, nil)
	}
	switch locator {
	case f.sel.SearchSubmit:
		f.page = "results"
		f.loaded = f.firstPage()
	case f.sel.Interstitial:
		f.popupClosed = true
	case f.sel.LoadMore:
		f.loadMoreClicks++
		f.loaded = min(f.loaded+f.perPage, len(f.articles))
	default:
		if item, ok := f.items[locator]; ok && item.kind == kindLink {
			f.page = "detail"
			f.detail = item.position
		}
	}
	return nil
}

func (f *fakeBrowser) InputText(ctx context.Context, locator, text string) error {
	f.inputs[locator] = text
	return nil
}

func (f *fakeBrowser) GetText(ctx context.Context, locator string) (string, error) {
	if locator == f.sel.ResultsCount {
		return f.countText, nil
	}
	if locator == f.sel.DetailDate && f.page == "detail" {
		return f.articles[f.detail-1].date, nil
	}
	if item, ok := f.items[locator]; ok && f.visible(locator) {
		switch item.kind {
		case kindTitle:
			return f.articles[item.position-1].title, nil
		case kindExcerpt:
			return f.articles[item.position-1].excerpt, nil
		}
	}
	return "", apperrors.NewNavigation("fake", "no text at "+locator, nil)
}

func (f *fakeBrowser) GetAttribute(ctx context.Context, locator, attr string) (string, error) {
	if locator == f.sel.DetailImage && attr == "src" && f.page == "detail" && !f.noImageAt[f.detail] {
		return f.articles[f.detail-1].image, nil
	}
	return "", apperrors.NewNavigation("fake", "no attribute at "+locator, nil)
}

func (f *fakeBrowser) IsVisible(ctx context.Context, locator string) (bool, error) {
	return f.visible(locator), nil
}

func (f *fakeBrowser) GoBack(ctx context.Context) error {
	if f.page != "detail" {
		return apperrors.NewNavigation("fake", "no previous page", nil)
	}
	f.backs++
	f.page = "results"
	f.loaded = f.firstPage()
	f.loadMoreClicks = 0
	return nil
}

func (f *fakeBrowser) Close() error {
	return nil
}
