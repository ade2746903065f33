package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents missing or unparseable run inputs
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeNavigation represents browser navigation failures, including wait timeouts
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeDownload represents image download failures
	ErrorTypeDownload ErrorType = "download"
	// ErrorTypeDateParse represents a publish date that could not be parsed
	ErrorTypeDateParse ErrorType = "date_parse"
	// ErrorTypeParsing represents page text that could not be interpreted
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeExport represents report export errors
	ErrorTypeExport ErrorType = "export"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
)

// ScrapeError represents an error raised while scraping or reporting
type ScrapeError struct {
	Type      ErrorType
	Component string
	Message   string
	Err       error
	Timeout   bool
	Time      time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Component, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Component, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// New creates a new ScrapeError
func New(errType ErrorType, component, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:      errType,
		Component: component,
		Message:   message,
		Err:       err,
		Time:      time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "config", message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(component, message string, err error) *ScrapeError {
	return New(ErrorTypeNavigation, component, message, err)
}

// NewTimeout creates a navigation error for a wait that exceeded its bound
func NewTimeout(component, locator string, timeout time.Duration, err error) *ScrapeError {
	e := New(ErrorTypeNavigation, component, fmt.Sprintf("%q not visible after %v", locator, timeout), err)
	e.Timeout = true
	return e
}

// NewDownload creates a new download error
func NewDownload(component, message string, err error) *ScrapeError {
	return New(ErrorTypeDownload, component, message, err)
}

// NewDateParse creates a new date parsing error
func NewDateParse(component, message string) *ScrapeError {
	return New(ErrorTypeDateParse, component, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(component, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, component, message, err)
}

// NewExport creates a new export error
func NewExport(component, message string, err error) *ScrapeError {
	return New(ErrorTypeExport, component, message, err)
}

// NewCache creates a new cache error
func NewCache(component, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, component, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(component, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, component, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(component, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, component, message, err)
}

// IsType reports whether err wraps a ScrapeError of the given type
func IsType(err error, t ErrorType) bool {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type == t
	}
	return false
}

// IsTimeout reports whether err wraps a wait timeout
func IsTimeout(err error) bool {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Timeout
	}
	return false
}
