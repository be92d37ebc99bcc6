package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgharvest/pkg/labels"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/retry"
	"imgharvest/pkg/yandex"
)

// serpServer answers searches with tiles whose previews live on the same server
func serpServer(t *testing.T, tilesPerPage int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/images/search", func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		if r.URL.Query().Get("p") != "0" {
			fmt.Fprint(w, "<html><body></body></html>")
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		for i := 0; i < tilesPerPage; i++ {
			payload, _ := json.Marshal(map[string]interface{}{
				"serp-item": map[string]interface{}{
					"img_href": fmt.Sprintf("https://origin.example.com/%s/%d.jpg", text, i),
					"snippet":  map[string]string{"title": fmt.Sprintf("%s %d", text, i)},
					"preview":  []map[string]interface{}{{"url": fmt.Sprintf("/preview/%s/%d.jpg", text, i), "w": 640, "h": 480}},
				},
			})
			fmt.Fprintf(&b, `<div class="serp-item" data-bem="%s"></div>`, html.EscapeString(string(payload)))
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	})
	mux.HandleFunc("/preview/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprint(w, "jpeg:"+r.URL.Path)
	})
	return httptest.NewServer(mux)
}

func TestRunAgainstSearchServer(t *testing.T) {
	server := serpServer(t, 4)
	defer server.Close()

	csvPath := filepath.Join(t.TempDir(), "colors_list.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("red,красный\nblue,синий\n"), 0644))

	set, err := labels.Load(csvPath, labels.Options{})
	require.NoError(t, err)

	cfg := testConfig(t, 3)
	cfg.Search.BaseURL = server.URL
	cfg.Search.MaxPages = 3
	cfg.Output.SaveMetadata = true

	fast := &retry.Config{MaxAttempts: 2, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}}
	client := yandex.NewClient(cfg.Search,
		yandex.WithLimiter(ratelimit.NewRequestLimiter(0)),
		yandex.WithRetry(fast),
	)

	p, pacer := newTestPipeline(t, cfg, client)
	summary, err := p.Run(context.Background(), set.Labels())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Saved)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 6, pacer.calls)

	for _, label := range []string{"blue", "red"} {
		dir := filepath.Join(cfg.Output.BaseDirectory, "interer_v_tsvete_"+label)
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)

		var images []string
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".jpg") {
				images = append(images, e.Name())
			}
		}
		assert.Len(t, images, 3)
		assert.True(t, sort.StringsAreSorted(images))

		data, err := os.ReadFile(filepath.Join(dir, images[0]))
		require.NoError(t, err)
		assert.Equal(t, "jpeg:/preview/interer_v_tsvete_"+label+"/0.jpg", string(data))
		assert.FileExists(t, filepath.Join(dir, "metadata.json"))
	}
}
