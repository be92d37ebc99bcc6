package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	for _, s := range []string{"small", "Medium", " large ", "WALLPAPER"} {
		_, err := ParseSize(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseSize("huge")
	assert.Error(t, err)
}

func TestImageResultSize(t *testing.T) {
	assert.Equal(t, "640x480", ImageResult{Width: 640, Height: 480}.Size())
}

func TestStaticStopsWhenConsumerBreaks(t *testing.T) {
	client := &Static{Results: make([]ImageResult, 10)}

	n := 0
	for range client.Search(context.Background(), "red", SizeSmall) {
		n++
		if n == 3 {
			break
		}
	}

	assert.Equal(t, 3, client.Pulled)
	assert.Equal(t, []string{"red"}, client.Queries)
}

func TestStaticYieldsTrailingError(t *testing.T) {
	boom := errors.New("boom")
	client := &Static{Results: []ImageResult{{Title: "a"}}, Err: boom}

	var errs []error
	count := 0
	for _, err := range client.Search(context.Background(), "q", SizeSmall) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}

	assert.Equal(t, 1, count)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}
