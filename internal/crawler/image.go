package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/logger"
	apperrors "sjsage522/newsworker/pkg/errors"
	"sjsage522/newsworker/services/cache"
)

// DownloadFailedSentinel replaces the filename of an image that could not be saved
const DownloadFailedSentinel = "Failed to download image"

// ImageFetchFunc performs a single GET
type ImageFetchFunc func(ctx context.Context, url string, timeout time.Duration) (*helpers.Response, error)

// ImageDownloader saves article images into a directory.
// Failures are logged and reported through DownloadFailedSentinel.
type ImageDownloader struct {
	dir      string
	cacheSvc cache.CacheService
	ttl      time.Duration
	timeout  time.Duration
	fetch    ImageFetchFunc
	errLog   helpers.LoggerInterface
	log      *logger.Logger
}

// NewImageDownloader creates a downloader writing into dir. A nil cacheSvc disables caching.
func NewImageDownloader(dir string, cacheSvc cache.CacheService, ttl, timeout time.Duration, errLog helpers.LoggerInterface) *ImageDownloader {
	if cacheSvc == nil {
		cacheSvc = cache.NoopCache{}
	}
	return &ImageDownloader{
		dir:      dir,
		cacheSvc: cacheSvc,
		ttl:      ttl,
		timeout:  timeout,
		fetch:    helpers.FetchSimply,
		errLog:   errLog,
		log:      logger.ForDownloader(),
	}
}

// ImageFileName returns the file name used for the image at position
func ImageFileName(searchPhrase string, position int) string {
	return fmt.Sprintf("new_%s_%d.jpg", helpers.SanitizeFileName(searchPhrase), position)
}

func imageCacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "image:" + hex.EncodeToString(sum[:])
}

// Download fetches imageURL into filename and returns filename, or the sentinel on failure
func (d *ImageDownloader) Download(ctx context.Context, imageURL, filename string) string {
	if imageURL == "" {
		d.errLog.LogError("downloader", apperrors.NewDownload("downloader", "article has no image url", nil))
		return DownloadFailedSentinel
	}

	key := imageCacheKey(imageURL)
	data, err := d.cacheSvc.Get(key)
	switch {
	case err == nil:
		if writeErr := d.write(filename, data); writeErr == nil {
			d.log.Debug().Str("url", imageURL).Str("file", filename).Msg("Image served from cache")
			return filename
		}
	case !errors.Is(err, cache.ErrMiss):
		d.log.Warn().Err(apperrors.NewCache("downloader", "image cache lookup failed", err)).Msg("Ignoring cache")
	}

	resp, err := d.fetch(ctx, imageURL, d.timeout)
	if err != nil {
		d.errLog.LogError("downloader", apperrors.NewDownload("downloader", "GET "+imageURL+" failed", err))
		return DownloadFailedSentinel
	}
	if !resp.OK() {
		d.errLog.LogError("downloader", apperrors.NewDownload("downloader", fmt.Sprintf("GET %s returned status %d", imageURL, resp.StatusCode), nil))
		return DownloadFailedSentinel
	}

	if err := d.write(filename, resp.Body); err != nil {
		d.errLog.LogError("downloader", apperrors.NewDownload("downloader", "failed to save "+filename, err))
		return DownloadFailedSentinel
	}

	if len(resp.Body) < cache.MaxItemSize {
		if err := d.cacheSvc.Set(key, resp.Body, d.ttl); err != nil {
			d.log.Warn().Err(apperrors.NewCache("downloader", "image cache store failed", err)).Msg("Ignoring cache")
		}
	}

	d.log.Debug().Str("url", imageURL).Str("file", filename).Int("bytes", len(resp.Body)).Msg("Image saved")
	return filename
}

func (d *ImageDownloader) write(filename string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, filename), data, 0644)
}
