package crawler

import (
	"fmt"
	"os"
	"strings"

	apperrors "sjsage522/newsworker/pkg/errors"

	"gopkg.in/yaml.v3"
)

// Selectors contains CSS selectors for every element the walker touches.
// Item selectors are templates taking the 1-based result position.
type Selectors struct {
	HomeReady    string `yaml:"home_ready"`
	SearchOpen   string `yaml:"search_open"`
	SearchForm   string `yaml:"search_form"`
	SearchInput  string `yaml:"search_input"`
	SearchSubmit string `yaml:"search_submit"`
	ResultsReady string `yaml:"results_ready"`
	ResultsCount string `yaml:"results_count"`
	Interstitial string `yaml:"interstitial_close"`
	LoadMore     string `yaml:"load_more"`
	ItemTitle    string `yaml:"item_title"`
	ItemExcerpt  string `yaml:"item_excerpt"`
	ItemLink     string `yaml:"item_link"`
	DetailDate   string `yaml:"detail_date"`
	DetailImage  string `yaml:"detail_image"`
}

const detailBody = "section.top-section > div > div:nth-child(2) > div:nth-child(2)"

// DefaultSelectors returns the selectors for gothamist.com
func DefaultSelectors() Selectors {
	return Selectors{
		HomeReady:    "header",
		SearchOpen:   "button[aria-label='Go to search page']",
		SearchForm:   "form#search",
		SearchInput:  "form#search > input",
		SearchSubmit: "form#search > button",
		ResultsReady: "span.pi.pi-arrow-right.p-button-icon",
		ResultsCount: "div.search-page-results.pt-2 > span > strong",
		Interstitial: "button[title='Close']",
		LoadMore:     "button[aria-label='Load More']",
		ItemTitle:    "div[trackingcomponentposition='%d'] div.h2",
		ItemExcerpt:  "div[trackingcomponentposition='%d'] p",
		ItemLink:     "div[trackingcomponentposition='%d'] div.card-title > a",
		DetailDate:   detailBody + " p.type-caption",
		DetailImage:  detailBody + " img",
	}
}

// LoadSelectors returns the defaults overridden by any keys set in the YAML file at path
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, apperrors.NewConfiguration("failed to read selectors file "+path, err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, apperrors.NewConfiguration("invalid selectors file "+path, err)
	}
	if err := sel.Validate(); err != nil {
		return sel, err
	}
	return sel, nil
}

// Validate checks that every selector is set and item templates take a position
func (s Selectors) Validate() error {
	fields := map[string]string{
		"search_open":        s.SearchOpen,
		"search_form":        s.SearchForm,
		"search_input":       s.SearchInput,
		"search_submit":      s.SearchSubmit,
		"results_ready":      s.ResultsReady,
		"results_count":      s.ResultsCount,
		"interstitial_close": s.Interstitial,
		"load_more":          s.LoadMore,
		"detail_date":        s.DetailDate,
		"detail_image":       s.DetailImage,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return apperrors.NewConfiguration("selector "+name+" is empty", nil)
		}
	}

	templates := map[string]string{
		"item_title":   s.ItemTitle,
		"item_excerpt": s.ItemExcerpt,
		"item_link":    s.ItemLink,
	}
	for name, value := range templates {
		if strings.Count(value, "%d") != 1 {
			return apperrors.NewConfiguration(fmt.Sprintf("selector %s must contain exactly one %%d, got %q", name, value), nil)
		}
	}
	return nil
}

// At fills a per-item template with position
func (s Selectors) At(template string, position int) string {
	return fmt.Sprintf(template, position)
}
