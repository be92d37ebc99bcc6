// Package labels reads the reference file of color names into a clean label set.
package labels

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"unicode"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

const bom = "\uFEFF"

// Options controls how a label file is read
type Options struct {
	// SkipHeader drops the first record
	SkipHeader bool
	// ShowDict logs the variant dictionary once loading finishes
	ShowDict bool
	Logger   logger.Logger
}

// Set is the deduplicated collection of labels and the raw spellings behind them
type Set struct {
	variants map[string][]string
}

// Labels returns every label in sorted order
func (s *Set) Labels() []string {
	out := make([]string, 0, len(s.variants))
	for label := range s.variants {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

// Variants returns the raw first-field values that produced label
func (s *Set) Variants(label string) []string {
	return slices.Clone(s.variants[label])
}

// Contains reports whether label is in the set
func (s *Set) Contains(label string) bool {
	_, ok := s.variants[label]
	return ok
}

// Len returns the number of distinct labels
func (s *Set) Len() int {
	return len(s.variants)
}

// Clean lower-cases raw, strips ASCII digits and trims surrounding whitespace
func Clean(raw string) string {
	lowered := strings.ToLower(raw)
	stripped := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, lowered)
	return strings.TrimFunc(stripped, unicode.IsSpace)
}

// Load reads the label file at path
func Load(path string, opts Options) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.New(errs.ErrorTypeNotFound, fmt.Sprintf("label file %s not found", path), err)
		}
		return nil, fmt.Errorf("open label file: %w", err)
	}
	defer f.Close()

	set, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read label file %s: %w", path, err)
	}
	return set, nil
}

// Read parses comma-separated records from r, taking the first field of each
func Read(r io.Reader, opts Options) (*Set, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	set := &Set{variants: make(map[string][]string)}
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, fmt.Sprintf("row %d", row+1), err)
		}
		if row == 0 && opts.SkipHeader {
			continue
		}
		if len(record) == 0 {
			log.WithField("row", row+1).Debug("Skipping empty row")
			continue
		}

		raw := record[0]
		if row == 0 {
			raw = strings.TrimPrefix(raw, bom)
		}
		label := Clean(raw)
		if label == "" {
			log.WithFields(map[string]interface{}{
				"row": row + 1,
				"raw": raw,
			}).Debug("Skipping row with empty label")
			continue
		}
		set.variants[label] = append(set.variants[label], raw)
	}

	if opts.ShowDict {
		logDictionary(log, set)
	}

	return set, nil
}

func logDictionary(log logger.Logger, set *Set) {
	for _, label := range set.Labels() {
		log.WithFields(map[string]interface{}{
			"label":    label,
			"variants": set.variants[label],
		}).Info("Label variants")
	}
	log.WithField("count", set.Len()).Info("Labels loaded")
}
