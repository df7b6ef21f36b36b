package raster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no raster file matches the pollutant/date
// naming convention.
var ErrNotFound = errors.New("raster: no file matches naming convention")

// dateLayouts are the filename date encodings accepted by DateFromFilename,
// tried in order.
var dateLayouts = []string{"2006-01-02", "20060102", "02-01-2006"}

// Find locates the raster for a pollutant and ISO date under root. Files
// live in a per-pollutant subdirectory and are named either
// <GAS>_<date>.tif or, for the archive-sourced variant, <GAS>_<date>_ADS.tif.
func Find(root, gasCode string, day time.Time) (string, error) {
	code := strings.ToUpper(gasCode)
	date := day.Format("2006-01-02")
	candidates := []string{
		filepath.Join(root, code, fmt.Sprintf("%s_%s.tif", code, date)),
		filepath.Join(root, code, fmt.Sprintf("%s_%s_ADS.tif", code, date)),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s %s", ErrNotFound, code, date)
}

// List returns the sorted paths of every .tif file in the pollutant's
// subdirectory. A missing directory yields an empty list, not an error.
func List(root, gasCode string) []string {
	dir := filepath.Join(root, strings.ToUpper(gasCode))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".tif") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths
}

// DateFromFilename parses the calendar date embedded in a raster filename.
// The date is the final underscore-separated token of the base name, with
// any trailing variant suffix (such as _ADS) before it, encoded as
// YYYY-MM-DD, YYYYMMDD, or DD-MM-YYYY.
func DateFromFilename(path string) (time.Time, error) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	tokens := strings.Split(base, "_")
	// Scan from the rightmost token so a variant suffix after the date does
	// not hide it.
	for i := len(tokens) - 1; i >= 0; i-- {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, tokens[i]); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("raster: no date in filename %q", filepath.Base(path))
}
