// Package metadata records what was saved for each query in a metadata.json manifest.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"imgharvest/pkg/search"
)

// FileName is the manifest written into every query directory
const FileName = "metadata.json"

// ImageMetadata describes one stored image
type ImageMetadata struct {
	File       string    `json:"file"`
	Title      string    `json:"title"`
	SourceURL  string    `json:"source_url"`
	PreviewURL string    `json:"preview_url"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FileSize   int64     `json:"file_size"`
	SavedAt    time.Time `json:"saved_at"`
}

// Manifest is the metadata of every image saved for a query
type Manifest struct {
	Label  string          `json:"label"`
	Query  string          `json:"query"`
	RunID  string          `json:"run_id,omitempty"`
	Images []ImageMetadata `json:"images"`
}

// FromResult builds the metadata for a result stored at path
func FromResult(result search.ImageResult, path string, size int) ImageMetadata {
	return ImageMetadata{
		File:       filepath.Base(path),
		Title:      result.Title,
		SourceURL:  result.SourceURL,
		PreviewURL: result.PreviewURL,
		Width:      result.Width,
		Height:     result.Height,
		FileSize:   int64(size),
		SavedAt:    time.Now().UTC(),
	}
}

// Load reads the manifest in queryDir. A missing manifest yields an empty one.
func Load(queryDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(queryDir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &m, nil
}

// Save writes the manifest into queryDir through a temporary file
func (m *Manifest) Save(queryDir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(queryDir, FileName)
	if err := os.WriteFile(path+".tmp", data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	if err := os.Rename(path+".tmp", path); err != nil {
		os.Remove(path + ".tmp")
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Append loads the manifest in queryDir, drops entries whose image was
// deleted since, adds entry, and saves it back
func Append(queryDir, label, query, runID string, entry ImageMetadata) error {
	m, err := Load(queryDir)
	if err != nil {
		return err
	}
	m.Prune(queryDir)
	m.Label = label
	m.Query = query
	if runID != "" {
		m.RunID = runID
	}
	m.Images = append(m.Images, entry)
	return m.Save(queryDir)
}

// AspectRatio returns the aspect ratio as a string
func (m ImageMetadata) AspectRatio() string {
	if m.Height == 0 {
		return "unknown"
	}

	ratio := float64(m.Width) / float64(m.Height)
	switch {
	case ratio > 1.7 && ratio < 1.8:
		return "16:9"
	case ratio > 1.3 && ratio < 1.4:
		return "4:3"
	case ratio > 0.9 && ratio < 1.1:
		return "1:1"
	case ratio > 0.74 && ratio < 0.76:
		return "3:4"
	case ratio > 0.55 && ratio < 0.57:
		return "9:16"
	default:
		return fmt.Sprintf("%.2f:1", ratio)
	}
}

// Prune drops entries whose image file no longer exists in queryDir and
// returns how many were removed
func (m *Manifest) Prune(queryDir string) int {
	kept := m.Images[:0]
	removed := 0
	for _, img := range m.Images {
		if _, err := os.Stat(filepath.Join(queryDir, img.File)); err != nil {
			removed++
			continue
		}
		kept = append(kept, img)
	}
	m.Images = kept
	return removed
}
