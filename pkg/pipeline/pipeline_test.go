package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/config"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/metadata"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/search"
	"imgharvest/pkg/storage"
)

// fakeProvider serves canned results per query and fetches bytes from memory
type fakeProvider struct {
	results    map[string][]search.ImageResult
	fallback   []search.ImageResult
	searchErrs map[string]error
	fetchErrs  map[string]error

	searches []string
	pulled   int
	fetched  []string
}

func newFakeProvider(n int) *fakeProvider {
	return &fakeProvider{
		results:    map[string][]search.ImageResult{},
		fallback:   makeResults(n),
		searchErrs: map[string]error{},
		fetchErrs:  map[string]error{},
	}
}

func makeResults(n int) []search.ImageResult {
	out := make([]search.ImageResult, n)
	for i := range out {
		out[i] = search.ImageResult{
			Title:      fmt.Sprintf("image %d", i),
			SourceURL:  fmt.Sprintf("https://example.com/full/%d.jpg", i),
			PreviewURL: fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
			Width:      320,
			Height:     240,
		}
	}
	return out
}

func (f *fakeProvider) Search(ctx context.Context, query string, size search.Size) iter.Seq2[search.ImageResult, error] {
	f.searches = append(f.searches, query)
	results, ok := f.results[query]
	if !ok {
		results = f.fallback
	}
	return func(yield func(search.ImageResult, error) bool) {
		for _, r := range results {
			f.pulled++
			if !yield(r, nil) {
				return
			}
		}
		if err := f.searchErrs[query]; err != nil {
			yield(search.ImageResult{}, err)
		}
	}
}

func (f *fakeProvider) FetchImage(ctx context.Context, url string) ([]byte, error) {
	f.fetched = append(f.fetched, url)
	if err := f.fetchErrs[url]; err != nil {
		return nil, err
	}
	return []byte("jpeg:" + url), nil
}

type countingPacer struct {
	calls int
}

func (c *countingPacer) Pace(ctx context.Context) error {
	c.calls++
	return ctx.Err()
}

type recordingObserver struct {
	NopObserver
	events []string
}

func (r *recordingObserver) LabelStarted(label, query string) {
	r.events = append(r.events, "start:"+label)
}

func (r *recordingObserver) ImageSaved(label string, index int, result search.ImageResult, path string) {
	r.events = append(r.events, fmt.Sprintf("saved:%s:%d", label, index))
}

func (r *recordingObserver) ImageFailed(label string, index int, result search.ImageResult, err error) {
	r.events = append(r.events, fmt.Sprintf("failed:%s:%d", label, index))
}

func (r *recordingObserver) RunFinished(summary *Summary) {
	r.events = append(r.events, "done")
}

func testConfig(t *testing.T, perLabel int) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = filepath.Join(t.TempDir(), "downloaded_images")
	cfg.Pipeline.ImagesPerLabel = perLabel
	cfg.Pipeline.QueryPrefix = "интерьер в цвете "
	cfg.Throttle.MaxDelay = 0
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, provider search.Provider, opts ...Option) (*Pipeline, *countingPacer) {
	t.Helper()
	pacer := &countingPacer{}
	defaults := []Option{
		WithPacer(pacer),
		WithRunID("test-run"),
		WithRetry(&retry.Config{MaxAttempts: 2, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}}),
	}
	return New(cfg, provider, logger.NewTestLogger(), append(defaults, opts...)...), pacer
}

func countJPGs(t *testing.T, dir string) int {
	t.Helper()
	return storage.NewLayout(dir).CountImages(dir)
}

func TestRunWritesAtMostCapFiles(t *testing.T) {
	tests := []struct {
		name      string
		available int
		want      int
	}{
		{"fewer results than cap", 3, 3},
		{"more results than cap", 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, 5)
			provider := newFakeProvider(tt.available)
			p, pacer := newTestPipeline(t, cfg, provider)

			summary, err := p.Run(context.Background(), []string{"red"})
			require.NoError(t, err)

			dir := filepath.Join(cfg.Output.BaseDirectory, "interer_v_tsvete_red")
			assert.Equal(t, tt.want, countJPGs(t, dir))
			assert.Equal(t, tt.want, summary.Saved)
			assert.Equal(t, tt.want, provider.pulled)
			assert.Equal(t, tt.want, pacer.calls)
		})
	}
}

func TestRunNonPositiveCapPerformsNoSearch(t *testing.T) {
	for _, limit := range []int{0, -3} {
		cfg := testConfig(t, 1)
		provider := newFakeProvider(10)
		opts := OptionsFromConfig(cfg)
		opts.ImagesPerLabel = limit
		p, pacer := newTestPipeline(t, cfg, provider, WithOptions(opts))

		summary, err := p.Run(context.Background(), []string{"red", "blue"})
		require.NoError(t, err)
		assert.Empty(t, provider.searches)
		assert.Zero(t, pacer.calls)
		assert.Zero(t, summary.Searches)
		assert.Len(t, summary.Labels, 2)
	}
}

func TestRunSkipsFailedFetches(t *testing.T) {
	cfg := testConfig(t, 4)
	provider := newFakeProvider(4)
	provider.fetchErrs["https://cdn.example.com/1.jpg"] = errs.New(errs.ErrorTypeNotFound, "gone", nil)
	observer := &recordingObserver{}
	p, pacer := newTestPipeline(t, cfg, provider, WithObserver(observer))

	summary, err := p.Run(context.Background(), []string{"red"})
	require.NoError(t, err)

	report, ok := summary.Report("red")
	require.True(t, ok)
	assert.Equal(t, 3, report.Saved)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.Consumed)
	assert.Equal(t, 4, pacer.calls)
	assert.Contains(t, observer.events, "failed:red:1")
	assert.Contains(t, observer.events, "saved:red:3")
}

func TestRunRetriesTransientFetchErrors(t *testing.T) {
	cfg := testConfig(t, 1)
	provider := newFakeProvider(1)
	provider.fetchErrs["https://cdn.example.com/0.jpg"] = errs.New(errs.ErrorTypeNetwork, "reset", nil)
	p, _ := newTestPipeline(t, cfg, provider)

	summary, err := p.Run(context.Background(), []string{"red"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, provider.fetched, 2)
}

func TestRunContinuesAfterSearchError(t *testing.T) {
	cfg := testConfig(t, 10)
	provider := newFakeProvider(2)
	provider.results["interer_v_tsvete_blue"] = makeResults(1)
	provider.searchErrs["interer_v_tsvete_blue"] = errs.New(errs.ErrorTypeRateLimit, "captcha", nil)
	p, _ := newTestPipeline(t, cfg, provider)

	summary, err := p.Run(context.Background(), []string{"blue", "red"})
	require.NoError(t, err)

	assert.Equal(t, []string{"interer_v_tsvete_blue", "interer_v_tsvete_red"}, provider.searches)
	assert.Equal(t, 1, summary.SearchErrors)
	assert.Equal(t, 3, summary.Saved)

	blue, _ := summary.Report("blue")
	assert.Error(t, blue.SearchErr)
	assert.Equal(t, 1, blue.Saved)
}

func TestRunContinuesWhenQueryPathIsAFile(t *testing.T) {
	cfg := testConfig(t, 2)
	require.NoError(t, os.MkdirAll(cfg.Output.BaseDirectory, 0755))
	blocked := filepath.Join(cfg.Output.BaseDirectory, "interer_v_tsvete_red")
	require.NoError(t, os.WriteFile(blocked, []byte("not a dir"), 0644))

	provider := newFakeProvider(2)
	p, _ := newTestPipeline(t, cfg, provider)

	summary, err := p.Run(context.Background(), []string{"blue", "red"})
	require.NoError(t, err)

	red, _ := summary.Report("red")
	assert.Equal(t, storage.DirFailed, red.DirStatus)
	assert.Equal(t, 2, red.Failed)
	assert.Zero(t, red.Saved)

	blue, _ := summary.Report("blue")
	assert.Equal(t, 2, blue.Saved)
	assert.Len(t, provider.fetched, 2)
}

func TestRunSkipsLabelsThatCannotNameADirectory(t *testing.T) {
	cfg := testConfig(t, 50)
	cfg.Pipeline.QueryPrefix = ""
	provider := newFakeProvider(100)
	p, pacer := newTestPipeline(t, cfg, provider)

	summary, err := p.Run(context.Background(), []string{"..", "blue", "red/green"})
	require.NoError(t, err)

	for _, label := range []string{"..", "red/green"} {
		report, ok := summary.Report(label)
		require.True(t, ok, label)
		assert.Equal(t, storage.DirFailed, report.DirStatus, label)
		assert.True(t, errs.Is(report.DirErr, errs.ErrorTypeDirectory), label)
		assert.False(t, report.Searched, label)
		assert.Zero(t, report.Consumed, label)
		assert.Zero(t, report.Failed, label)
		assert.NoError(t, report.SearchErr, label)
	}

	assert.Equal(t, []string{"blue"}, provider.searches)
	assert.Equal(t, 50, pacer.calls)
	assert.Equal(t, 2, summary.DirErrors)
	assert.Zero(t, summary.SearchErrors)
	assert.Equal(t, 50, summary.Saved)
}

func TestRunWritesMetadata(t *testing.T) {
	cfg := testConfig(t, 2)
	cfg.Output.SaveMetadata = true
	p, _ := newTestPipeline(t, cfg, newFakeProvider(2))

	_, err := p.Run(context.Background(), []string{"red"})
	require.NoError(t, err)

	m, err := metadata.Load(filepath.Join(cfg.Output.BaseDirectory, "interer_v_tsvete_red"))
	require.NoError(t, err)
	assert.Equal(t, "red", m.Label)
	assert.Equal(t, "test-run", m.RunID)
	require.Len(t, m.Images, 2)
	assert.Equal(t, "image 0", m.Images[0].Title)
}

func TestRunStopsOnCancellation(t *testing.T) {
	cfg := testConfig(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	observer := &cancelAfterFirstLabel{cancel: cancel}
	provider := newFakeProvider(1)
	p, _ := newTestPipeline(t, cfg, provider, WithObserver(observer))

	summary, err := p.Run(ctx, []string{"blue", "green", "red"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, summary.Labels, 1)
	assert.Equal(t, []string{"interer_v_tsvete_blue"}, provider.searches)
}

type cancelAfterFirstLabel struct {
	NopObserver
	cancel context.CancelFunc
}

func (c *cancelAfterFirstLabel) LabelFinished(LabelReport) { c.cancel() }

func TestRunLogsEveryResult(t *testing.T) {
	cfg := testConfig(t, 2)
	log := logger.NewTestLogger()
	p := New(cfg, newFakeProvider(2), log, WithPacer(&countingPacer{}), WithRunID("abc"))

	_, err := p.Run(context.Background(), []string{"red"})
	require.NoError(t, err)

	var processed []logger.LogMessage
	for _, m := range log.GetMessages() {
		if m.Message == "Processing result" {
			processed = append(processed, m)
		}
	}
	require.Len(t, processed, 2)
	assert.Equal(t, "abc", processed[0].Fields["run_id"])
	assert.Equal(t, "image 1", processed[1].Fields["title"])
	assert.Equal(t, "320x240", processed[1].Fields["size"])
	assert.True(t, log.HasMessage("Run metrics"))
}

func TestRunCreatesRootEvenWithoutLabels(t *testing.T) {
	cfg := testConfig(t, 1)
	p, _ := newTestPipeline(t, cfg, newFakeProvider(0))

	summary, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Saved)
	assert.DirExists(t, cfg.Output.BaseDirectory)
}

func TestNewGeneratesRunID(t *testing.T) {
	a := New(testConfig(t, 1), newFakeProvider(0), nil)
	b := New(testConfig(t, 1), newFakeProvider(0), nil)
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestSearchErrorIsNotFatal(t *testing.T) {
	cfg := testConfig(t, 3)
	provider := newFakeProvider(0)
	provider.searchErrs["interer_v_tsvete_red"] = errors.New("boom")
	p, _ := newTestPipeline(t, cfg, provider)

	summary, err := p.Run(context.Background(), []string{"red"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SearchErrors)
	assert.Equal(t, 1, summary.Searches)
}
