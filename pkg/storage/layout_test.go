package storage

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	log := logger.NewTestLogger()
	layout := NewLayout(filepath.Join(t.TempDir(), "downloaded_images"), WithLogger(log))

	status, err := layout.EnsureRootDir()
	require.NoError(t, err)
	assert.Equal(t, DirCreated, status)

	status, err = layout.EnsureRootDir()
	require.NoError(t, err)
	assert.Equal(t, DirExists, status)
	assert.True(t, status.Ok())

	assert.True(t, log.HasMessage("Directory created"))
	assert.True(t, log.HasMessage("Directory already exists"))
	assert.DirExists(t, layout.Root())
}

func TestEnsureQueryDirOverRegularFile(t *testing.T) {
	log := logger.NewTestLogger()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "interer_v_tsvete_red"), []byte("x"), 0644))

	layout := NewLayout(root, WithLogger(log))
	dir, status, err := layout.EnsureQueryDir("interer_v_tsvete_red")

	assert.Equal(t, filepath.Join(root, "interer_v_tsvete_red"), dir)
	assert.Equal(t, DirFailed, status)
	assert.False(t, status.Ok())
	assert.True(t, errs.Is(err, errs.ErrorTypeDirectory))
	assert.True(t, log.HasError())
}

func TestEnsureQueryDirRejectsUnsafeNames(t *testing.T) {
	layout := NewLayout(t.TempDir())

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, status, err := layout.EnsureQueryDir(name)
		assert.Equal(t, DirFailed, status, name)
		assert.True(t, errs.Is(err, errs.ErrorTypeDirectory), name)
	}
}

func TestNextImagePathStrictlyIncreasesWithFrozenClock(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)
	layout := NewLayout(t.TempDir(), WithClock(frozenClock(now)))

	first := filepath.Base(layout.NextImagePath("q"))
	second := filepath.Base(layout.NextImagePath("q"))

	assert.Equal(t, "1714564800123456.jpg", first)
	assert.Equal(t, "1714564800123457.jpg", second)
}

func TestNextImagePathSurvivesClockGoingBackwards(t *testing.T) {
	times := []time.Time{
		time.UnixMicro(2_000_000_000_000_000),
		time.UnixMicro(1_999_999_999_999_000),
		time.UnixMicro(2_000_000_000_000_500),
	}
	i := 0
	layout := NewLayout(t.TempDir(), WithClock(func() time.Time {
		ts := times[i]
		i++
		return ts
	}))

	a := filepath.Base(layout.NextImagePath("q"))
	b := filepath.Base(layout.NextImagePath("q"))
	c := filepath.Base(layout.NextImagePath("q"))

	assert.Equal(t, []string{"2000000000000000.jpg", "2000000000000001.jpg", "2000000000000500.jpg"}, []string{a, b, c})
}

func TestNamesAreLexicallyOrdered(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(1_000_000_000_000_000, 9_000_000_000_000_000).Draw(t, "start")
		steps := rapid.SliceOfN(rapid.Int64Range(-1000, 1000), 1, 50).Draw(t, "steps")

		clock := start
		layout := NewLayout("root", WithClock(func() time.Time {
			return time.UnixMicro(clock)
		}))

		var names []string
		for _, step := range steps {
			clock += step
			names = append(names, filepath.Base(layout.NextImagePath("q")))
		}

		if !sort.StringsAreSorted(names) {
			t.Fatalf("names not sorted: %v", names)
		}
		for i := 1; i < len(names); i++ {
			if names[i] == names[i-1] {
				t.Fatalf("duplicate name %s", names[i])
			}
		}
	})
}

func TestSaveImage(t *testing.T) {
	layout := NewLayout(t.TempDir())
	dir, status, err := layout.EnsureQueryDir("blue")
	require.NoError(t, err)
	require.Equal(t, DirCreated, status)

	path, err := layout.SaveImage(dir, []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.NoFileExists(t, path+".tmp")
	assert.Equal(t, 1, layout.CountImages(dir))
}

func TestSaveImageSkipsExistingName(t *testing.T) {
	now := time.UnixMicro(1_700_000_000_000_000)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "1700000000000000.jpg"), []byte("old"), 0644))

	layout := NewLayout(root, WithClock(frozenClock(now)))
	path, err := layout.SaveImage(root, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000000001.jpg", filepath.Base(path))
	assert.Equal(t, 2, layout.CountImages(root))
}

func TestSaveImageIntoMissingDir(t *testing.T) {
	layout := NewLayout(t.TempDir())

	_, err := layout.SaveImage(filepath.Join(layout.Root(), "absent"), []byte("x"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeWrite))
}

func TestCountImagesIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.jpg"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0755))

	layout := NewLayout(dir)
	assert.Equal(t, 1, layout.CountImages(dir))
	assert.Equal(t, 0, layout.CountImages(filepath.Join(dir, "missing")))
}

func TestDirStatusString(t *testing.T) {
	assert.Equal(t, "created", DirCreated.String())
	assert.Equal(t, "exists", DirExists.String())
	assert.Equal(t, "failed", DirFailed.String())
}

func TestValidQueryName(t *testing.T) {
	for _, name := range []string{"red", "interer_v_tsvete_red", "ь", "a.b"} {
		assert.True(t, ValidQueryName(name), name)
	}
	for _, name := range []string{"", ".", "..", "red/blue", `red\blue`, "/abs"} {
		assert.False(t, ValidQueryName(name), name)
	}
}
