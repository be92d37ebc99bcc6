// Package search defines the image search contract the pipeline consumes.
package search

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Size is a provider-side filter on image dimensions
type Size string

const (
	SizeSmall     Size = "small"
	SizeMedium    Size = "medium"
	SizeLarge     Size = "large"
	SizeWallpaper Size = "wallpaper"
)

// Sizes lists every supported size hint
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge, SizeWallpaper}

// ParseSize validates a size hint
func ParseSize(s string) (Size, error) {
	size := Size(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Sizes {
		if size == known {
			return size, nil
		}
	}
	return "", fmt.Errorf("unknown size hint %q", s)
}

// ImageResult is one hit returned by a provider
type ImageResult struct {
	Title      string `json:"title"`
	SourceURL  string `json:"source_url"`
	PreviewURL string `json:"preview_url"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Size renders the result dimensions as WxH
func (r ImageResult) Size() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Client searches an image provider.
//
// Search is lazy: pages are requested only as the caller pulls results, and
// breaking out of the range loop stops all further requests. A failure is
// yielded once as a zero result with a non-nil error, after which the
// sequence ends.
type Client interface {
	Search(ctx context.Context, query string, size Size) iter.Seq2[ImageResult, error]
}

// Fetcher downloads the bytes behind an image URL
type Fetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Provider is a Client that can also fetch the images it finds
type Provider interface {
	Client
	Fetcher
}

// Static is an in-memory Client that yields a fixed result list
type Static struct {
	Results []ImageResult
	// Err, when set, is yielded after Results
	Err error
	// Queries records every query searched
	Queries []string
	// Pulled counts results handed to the consumer
	Pulled int
}

func (s *Static) Search(ctx context.Context, query string, size Size) iter.Seq2[ImageResult, error] {
	s.Queries = append(s.Queries, query)
	return func(yield func(ImageResult, error) bool) {
		for _, r := range s.Results {
			if err := ctx.Err(); err != nil {
				yield(ImageResult{}, err)
				return
			}
			s.Pulled++
			if !yield(r, nil) {
				return
			}
		}
		if s.Err != nil {
			yield(ImageResult{}, s.Err)
		}
	}
}
