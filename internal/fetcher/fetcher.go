// Package fetcher produces listing batches from the supported upstream
// sources: local files, HTTP endpoints, FTP drops and Apify datasets.
package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/apify"
)

// Source yields one finite batch of listings per invocation.
type Source interface {
	Fetch(ctx context.Context) ([]model.Listing, error)
}

// FileSource reads a JSON array of raw scraped records from disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Fetch(_ context.Context) ([]model.Listing, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read file")
	}
	return decodeItems(data)
}

// HTTPSource fetches a JSON array of raw scraped records from a URL.
type HTTPSource struct {
	URL  string
	http *http.Client
}

// NewHTTPSource creates an HTTP-backed source.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:  url,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: http fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fetcher: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read response")
	}
	return decodeItems(data)
}

func decodeItems(data []byte) ([]model.Listing, error) {
	var items []apify.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrap(err, "fetcher: decode items")
	}
	return MapItems(items), nil
}
