// Command validate performs integrity checks across a report data directory:
// raster naming conventions, GeoTIFF decodability and georeferencing,
// boundary layer structure, and end-to-end zonal extraction for the
// configured region. It is the preflight for pointing the service at a new
// data drop.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -rasters data/mock/rasters \
//	  -regions data/mock/boundaries/regions.shp \
//	  -districts data/mock/boundaries/districts.shp \
//	  -parent-cod 100
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"

	"github.com/NeverSmile666/AIR-Monitoring/internal/boundary"
	"github.com/NeverSmile666/AIR-Monitoring/internal/crs"
	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
	"github.com/NeverSmile666/AIR-Monitoring/internal/zonal"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rastersRoot := flag.String("rasters", "", "root directory of per-gas raster folders")
	regionsShp := flag.String("regions", "", "path to the regions shapefile")
	districtsShp := flag.String("districts", "", "path to the districts shapefile")
	parentCod := flag.Int("parent-cod", 0, "region key to exercise end to end")
	fallbackEPSG := flag.Int("fallback-epsg", 3857, "EPSG assumed for boundaries without a .prj sidecar")
	flag.Parse()

	if *rastersRoot == "" || *regionsShp == "" || *districtsShp == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*rastersRoot, *regionsShp, *districtsShp, *parentCod, *fallbackEPSG); code != 0 {
		os.Exit(code)
	}
}

func run(rastersRoot, regionsShp, districtsShp string, parentCod, fallbackEPSG int) int {
	fmt.Println("=== Report Data Integrity Validation ===")
	fmt.Println()

	gases, err := listGases(rastersRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: scan rasters root: %v\n", err)
		return 1
	}
	if len(gases) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no gas directories under %s\n", rastersRoot)
		return 1
	}

	phases := []*phase{
		validateNaming(rastersRoot, gases),
		validateRasters(rastersRoot, gases),
		validateBoundaries(regionsShp, districtsShp, parentCod, fallbackEPSG),
		validateExtraction(rastersRoot, gases, regionsShp, parentCod, fallbackEPSG),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func listGases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var gases []string
	for _, e := range entries {
		if e.IsDir() {
			gases = append(gases, e.Name())
		}
	}
	return gases, nil
}

// Phase 1: every raster filename must carry a parseable date token and live
// under a directory matching its gas prefix.

func validateNaming(root string, gases []string) *phase {
	p := &phase{name: "Phase 1: Raster Naming"}
	for _, gasCode := range gases {
		paths := raster.List(root, gasCode)
		if len(paths) == 0 {
			p.errorf("%s: directory contains no .tif files", gasCode)
			continue
		}
		for _, path := range paths {
			name := filepath.Base(path)
			if !strings.HasPrefix(name, gasCode+"_") {
				p.errorf("%s: %s does not start with %q", gasCode, name, gasCode+"_")
			}
			if _, err := raster.DateFromFilename(path); err != nil {
				p.errorf("%s: %s: %v", gasCode, name, err)
			}
		}
	}
	return p
}

// Phase 2: every raster must decode, carry a usable geotransform, and
// resolve to a coordinate system.

func validateRasters(root string, gases []string) *phase {
	p := &phase{name: "Phase 2: Raster Decoding"}
	for _, gasCode := range gases {
		for _, path := range raster.List(root, gasCode) {
			g, err := raster.Open(path)
			if err != nil {
				p.errorf("%s: %v", filepath.Base(path), err)
				continue
			}
			if g.Transform[1] == 0 || g.Transform[5] == 0 {
				p.errorf("%s: degenerate geotransform %v", filepath.Base(path), g.Transform)
			}
			if _, err := crs.ForRaster(g.EPSG); err != nil {
				p.errorf("%s: %v", filepath.Base(path), err)
			}
		}
	}
	return p
}

// Phase 3: boundary layers must open as polygon layers and the configured
// region key must resolve to a named feature.

func validateBoundaries(regionsShp, districtsShp string, parentCod, fallbackEPSG int) *phase {
	p := &phase{name: "Phase 3: Boundary Layers"}

	for _, path := range []string{regionsShp, districtsShp} {
		srs, err := crs.ForBoundary(boundary.PrjPath(path), fallbackEPSG)
		if err != nil {
			p.errorf("%s: %v", path, err)
			continue
		}
		if _, err := boundary.Open(path, srs); err != nil {
			p.errorf("%s: %v", path, err)
		}
	}

	if parentCod != 0 {
		srs, err := crs.ForBoundary(boundary.PrjPath(regionsShp), fallbackEPSG)
		if err != nil {
			return p
		}
		cat, err := boundary.Open(regionsShp, srs)
		if err != nil {
			return p
		}
		feat, err := cat.FindByKey(parentCod)
		if err != nil {
			p.errorf("parent_cod %d: %v", parentCod, err)
		} else if feat.Name == "" {
			p.errorf("parent_cod %d: empty display name", parentCod)
		}
	}
	return p
}

// Phase 4: the newest raster of each gas must yield a finite zonal
// statistic for the configured region.

func validateExtraction(root string, gases []string, regionsShp string, parentCod, fallbackEPSG int) *phase {
	p := &phase{name: "Phase 4: Zonal Extraction"}
	if parentCod == 0 {
		return p
	}

	srs, err := crs.ForBoundary(boundary.PrjPath(regionsShp), fallbackEPSG)
	if err != nil {
		p.errorf("regions: %v", err)
		return p
	}
	cat, err := boundary.Open(regionsShp, srs)
	if err != nil {
		p.errorf("regions: %v", err)
		return p
	}
	feat, err := cat.FindByKey(parentCod)
	if err != nil {
		p.errorf("parent_cod %d: %v", parentCod, err)
		return p
	}

	for _, gasCode := range gases {
		paths := raster.List(root, gasCode)
		if len(paths) == 0 {
			continue
		}
		latest := paths[len(paths)-1]
		g, err := raster.Open(latest)
		if err != nil {
			continue // already reported in phase 2
		}
		rasterSRS, err := crs.ForRaster(g.EPSG)
		if err != nil {
			continue
		}
		reproj, err := crs.Reproject(feat.Geom, srs, rasterSRS)
		if err != nil {
			p.errorf("%s: reproject region: %v", gasCode, err)
			continue
		}
		mean := zonal.Statistic(gasCode, zonal.Extract(g, reproj.(geom.Polygonal)))
		if math.IsNaN(mean) || math.IsInf(mean, 0) {
			p.errorf("%s: %s: non-finite zonal mean", gasCode, filepath.Base(latest))
		}
	}
	return p
}
