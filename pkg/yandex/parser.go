package yandex

import (
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"imgharvest/pkg/search"
)

// bemItem is the data-bem payload carried by every result tile
type bemItem struct {
	SerpItem struct {
		ImgHref string `json:"img_href"`
		Snippet struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"snippet"`
		Preview []struct {
			URL string `json:"url"`
			W   int    `json:"w"`
			H   int    `json:"h"`
		} `json:"preview"`
		Thumb struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"serp-item"`
}

// page is everything extracted from one results page
type page struct {
	Results []search.ImageResult
	Captcha bool
	// Skipped counts tiles whose payload could not be used
	Skipped int
}

// parsePage extracts result tiles from a results page. Relative and
// protocol-relative URLs are resolved against pageURL.
func parsePage(r io.Reader, pageURL *url.URL) (*page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &page{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isCaptchaNode(n) {
				p.Captcha = true
			}
			if n.Data == "div" && hasClass(n, "serp-item") {
				if result, ok := decodeItem(attr(n, "data-bem"), pageURL); ok {
					p.Results = append(p.Results, result)
				} else {
					p.Skipped++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return p, nil
}

func decodeItem(raw string, pageURL *url.URL) (search.ImageResult, bool) {
	if raw == "" {
		return search.ImageResult{}, false
	}

	var item bemItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return search.ImageResult{}, false
	}
	serp := item.SerpItem

	result := search.ImageResult{
		Title:     strings.TrimSpace(serp.Snippet.Title),
		SourceURL: resolve(pageURL, serp.ImgHref),
	}
	if len(serp.Preview) > 0 {
		result.PreviewURL = resolve(pageURL, serp.Preview[0].URL)
		result.Width = serp.Preview[0].W
		result.Height = serp.Preview[0].H
	}
	if result.PreviewURL == "" {
		result.PreviewURL = resolve(pageURL, serp.Thumb.URL)
	}
	if result.SourceURL == "" {
		result.SourceURL = result.PreviewURL
	}

	return result, result.PreviewURL != ""
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

func isCaptchaNode(n *html.Node) bool {
	switch n.Data {
	case "form":
		return strings.Contains(attr(n, "action"), "checkcaptcha")
	case "div", "section":
		return strings.Contains(strings.ToLower(attr(n, "class")), "captcha")
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
