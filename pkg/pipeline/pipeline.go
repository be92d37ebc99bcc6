// Package pipeline drives label, query, search, fetch and save for a whole run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"imgharvest/internal/downloader"
	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/metadata"
	"imgharvest/pkg/query"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/search"
	"imgharvest/pkg/storage"
)

// Options holds the per-run settings
type Options struct {
	QueryPrefix    string
	ImagesPerLabel int
	Size           search.Size
	SaveMetadata   bool
}

// OptionsFromConfig extracts the run settings from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	size, err := search.ParseSize(cfg.Search.SizeHint)
	if err != nil {
		size = search.SizeSmall
	}
	return Options{
		QueryPrefix:    cfg.Pipeline.QueryPrefix,
		ImagesPerLabel: cfg.Pipeline.ImagesPerLabel,
		Size:           size,
		SaveMetadata:   cfg.Output.SaveMetadata,
	}
}

// Pipeline acquires images for every label, strictly one step at a time
type Pipeline struct {
	provider   search.Provider
	downloader *downloader.Downloader
	layout     *storage.Layout
	pacer      ratelimit.Pacer
	retry      *retry.Config
	observer   Observer
	logger     logger.Logger
	opts       Options
	runID      string
}

// Option customises a Pipeline
type Option func(*Pipeline)

// WithPacer replaces the pause taken after every result
func WithPacer(p ratelimit.Pacer) Option {
	return func(pl *Pipeline) { pl.pacer = p }
}

// WithLayout replaces the storage layout
func WithLayout(l *storage.Layout) Option {
	return func(pl *Pipeline) { pl.layout = l }
}

// WithObserver registers a progress observer
func WithObserver(o Observer) Option {
	return func(pl *Pipeline) { pl.observer = o }
}

// WithRunID fixes the run identifier
func WithRunID(id string) Option {
	return func(pl *Pipeline) { pl.runID = id }
}

// WithRetry replaces the image fetch retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(pl *Pipeline) { pl.retry = cfg }
}

// WithOptions overrides the run settings taken from the configuration
func WithOptions(opts Options) Option {
	return func(pl *Pipeline) { pl.opts = opts }
}

// New wires a pipeline from configuration. The provider is built by the
// caller and injected.
func New(cfg *config.Config, provider search.Provider, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.NewNopLogger()
	}

	p := &Pipeline{
		provider: provider,
		observer: NopObserver{},
		logger:   log,
		opts:     OptionsFromConfig(cfg),
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger = p.logger.WithField("run_id", p.runID)
	if p.layout == nil {
		p.layout = storage.NewLayout(cfg.Output.BaseDirectory, storage.WithLogger(p.logger))
	}
	if p.pacer == nil {
		p.pacer = ratelimit.NewJitter(cfg.Throttle.MaxDelay)
	}
	if p.retry == nil {
		p.retry = retry.FromSettings(cfg.Retry, p.logger)
	}
	p.downloader = downloader.New(provider, p.layout, p.retry, p.logger)

	return p
}

// RunID returns the identifier attached to every log line of this run
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run processes labels in the given order. Per-result and per-label failures
// are logged and counted; the only error returned is ctx's.
func (p *Pipeline) Run(ctx context.Context, labels []string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: p.runID}

	logger.LogComponentStart(p.logger, "pipeline", map[string]interface{}{
		"labels":           len(labels),
		"images_per_label": p.opts.ImagesPerLabel,
		"size":             string(p.opts.Size),
		"root":             p.layout.Root(),
	})
	p.observer.RunStarted(p.runID, labels, p.opts.ImagesPerLabel)

	// a missing root is retried per query directory, so failure here is not fatal
	_, _ = p.layout.EnsureRootDir()

	var runErr error
	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		report, err := p.processLabel(ctx, label)
		summary.add(report)
		p.observer.LabelFinished(report)
		logger.LogLabelProgress(p.logger.WithField("query", report.Query), label, report.Saved, p.opts.ImagesPerLabel)

		if err != nil {
			runErr = err
			break
		}
	}

	summary.Duration = time.Since(start)
	logger.LogMetrics(p.logger, "run", map[string]interface{}{
		"labels":        len(summary.Labels),
		"saved":         summary.Saved,
		"failed":        summary.Failed,
		"search_errors": summary.SearchErrors,
		"dir_errors":    summary.DirErrors,
		"duration":      summary.Duration,
	})

	reason := "completed"
	if runErr != nil {
		reason = runErr.Error()
	}
	logger.LogComponentStop(p.logger, "pipeline", reason)
	p.observer.RunFinished(summary)

	return summary, runErr
}

// processLabel searches for one label and stores up to the cap of results
func (p *Pipeline) processLabel(ctx context.Context, label string) (LabelReport, error) {
	start := time.Now()
	q := query.Build(p.opts.QueryPrefix, label)
	report := LabelReport{
		Label: label,
		Query: q,
		Dir:   p.layout.QueryDir(q),
	}
	log := p.logger.WithFields(map[string]interface{}{
		"label": label,
		"query": q,
	})

	p.observer.LabelStarted(label, q)

	limit := p.opts.ImagesPerLabel
	if limit <= 0 {
		log.Warn("Image cap is not positive, skipping search")
		report.Duration = time.Since(start)
		return report, nil
	}

	if !storage.ValidQueryName(q) {
		report.DirStatus = storage.DirFailed
		report.DirErr = errs.Directory(report.Dir, fmt.Errorf("query %q is not a single path segment", q))
		log.WithError(report.DirErr).Error("Query cannot name a directory, skipping search")
		report.Duration = time.Since(start)
		return report, nil
	}

	log.Info("Searching")
	report.Searched = true

	index := 0
	for result, err := range p.provider.Search(ctx, q, p.opts.Size) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				report.Duration = time.Since(start)
				return report, ctxErr
			}
			report.SearchErr = err
			log.WithError(err).Error("Search failed, moving to next label")
			break
		}

		report.Consumed++
		p.processResult(ctx, log, &report, index, result)
		index++

		if err := p.pacer.Pace(ctx); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		if index >= limit {
			break
		}
	}

	report.Duration = time.Since(start)
	return report, ctx.Err()
}

// processResult ensures the query directory, then fetches and saves one result
func (p *Pipeline) processResult(ctx context.Context, log logger.Logger, report *LabelReport, index int, result search.ImageResult) {
	log.InfoWithFields("Processing result", map[string]interface{}{
		"index":       index,
		"title":       result.Title,
		"source_url":  result.SourceURL,
		"preview_url": result.PreviewURL,
		"size":        result.Size(),
	})

	dir, status, err := p.layout.EnsureQueryDir(report.Query)
	report.DirStatus = status
	if !status.Ok() {
		report.Failed++
		p.observer.ImageFailed(report.Label, index, result, err)
		return
	}

	outcome := p.downloader.Process(ctx, downloader.DownloadJob{
		Label:    report.Label,
		Query:    report.Query,
		QueryDir: dir,
		Index:    index,
		Result:   result,
	})
	logger.LogImageSaved(log.WithField("index", index), report.Label, result.SourceURL, outcome.Path, outcome.Error)

	if !outcome.Success {
		report.Failed++
		p.observer.ImageFailed(report.Label, index, result, outcome.Error)
		return
	}

	report.Saved++
	p.observer.ImageSaved(report.Label, index, result, outcome.Path)

	if p.opts.SaveMetadata {
		entry := metadata.FromResult(result, outcome.Path, outcome.Size)
		if err := metadata.Append(dir, report.Label, report.Query, p.runID, entry); err != nil {
			log.WithError(err).Warn("Failed to update metadata")
		}
	}
}
