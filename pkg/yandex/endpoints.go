package yandex

import (
	"net/url"
	"strconv"
	"strings"

	"imgharvest/pkg/search"
)

const (
	// DefaultBaseURL is the public Yandex host
	DefaultBaseURL = "https://yandex.ru"
	searchPath     = "/images/search"
)

// SearchURL builds the results page URL for query at a zero-based page index
func SearchURL(baseURL, query string, size search.Size, page int) string {
	params := url.Values{}
	params.Set("text", query)
	if size != "" {
		params.Set("isize", string(size))
	}
	params.Set("p", strconv.Itoa(page))

	return strings.TrimRight(baseURL, "/") + searchPath + "?" + params.Encode()
}
