// Package downloader fetches one search result and stores it, one job at a time.
package downloader

import (
	"context"
	"fmt"
	"time"

	"imgharvest/pkg/logger"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/search"
)

// DownloadJob is a single result to fetch and store
type DownloadJob struct {
	Label    string
	Query    string
	QueryDir string
	Index    int
	Result   search.ImageResult
}

// DownloadResult represents the result of a download job
type DownloadResult struct {
	Job      DownloadJob
	Path     string
	Success  bool
	Error    error
	Duration time.Duration
	Size     int
	Attempts int
}

// ImageFetcher downloads image bytes
type ImageFetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// ImageStorage persists image bytes under a fresh name in a directory
type ImageStorage interface {
	SaveImage(queryDir string, data []byte) (string, error)
}

// Downloader runs jobs sequentially: fetch with retry, then save
type Downloader struct {
	fetcher ImageFetcher
	storage ImageStorage
	retry   *retry.Config
	logger  logger.Logger
}

// New creates a downloader. A nil retry config means a single attempt.
func New(fetcher ImageFetcher, storage ImageStorage, retryCfg *retry.Config, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1}
	}
	return &Downloader{
		fetcher: fetcher,
		storage: storage,
		retry:   retryCfg,
		logger:  log,
	}
}

// Process fetches job's preview image and saves it. Failures are reported
// in the result rather than returned.
func (d *Downloader) Process(ctx context.Context, job DownloadJob) DownloadResult {
	start := time.Now()
	result := DownloadResult{Job: job}

	log := d.logger.WithFields(map[string]interface{}{
		"label": job.Label,
		"index": job.Index,
	})

	cfg := *d.retry
	cfg.Logger = log
	data, err := retry.DoWithResult(ctx, &cfg, func(ctx context.Context) ([]byte, error) {
		result.Attempts++
		return d.fetcher.FetchImage(ctx, job.Result.PreviewURL)
	})
	if err != nil {
		result.Error = fmt.Errorf("fetch failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	result.Size = len(data)

	path, err := d.storage.SaveImage(job.QueryDir, data)
	if err != nil {
		result.Error = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Path = path
	result.Success = true
	result.Duration = time.Since(start)

	log.DebugWithFields("Image stored", map[string]interface{}{
		"path":     path,
		"size":     result.Size,
		"attempts": result.Attempts,
		"duration": result.Duration,
	})
	return result
}
