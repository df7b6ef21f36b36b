// Command genrasters generates a synthetic data directory for local runs and
// integration testing: a window of daily pollutant GeoTIFFs per gas plus
// region and district boundary shapefiles. The rasters carry a drifting
// plume, a calm zero-valued band, and a no-data corner so every rendering
// and extraction path gets exercised.
//
// Usage:
//
//	go run ./cmd/genrasters -out data/mock -date 2026-08-30 -days 30
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	shp "github.com/jonas-p/go-shp"

	"github.com/NeverSmile666/AIR-Monitoring/internal/raster"
)

// Geographic extent of the synthetic scene, EPSG 4326.
const (
	lonMin, lonMax = 65.0, 75.0
	latMin, latMax = 36.0, 41.0
)

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for rasters/ and boundaries/")
	gases := flag.String("gases", "CH4,CO,NO2,SO2,O3,HCHO,AERAI", "comma-separated gas codes")
	dateStr := flag.String("date", "", "last raster date, YYYY-MM-DD (default today)")
	days := flag.Int("days", 30, "number of consecutive daily rasters per gas")
	width := flag.Int("width", 120, "raster width in pixels")
	height := flag.Int("height", 80, "raster height in pixels")
	seed := flag.Int64("seed", 1, "random seed for reproducible noise")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	end := time.Now().UTC()
	if *dateStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			return fmt.Errorf("parse -date: %w", err)
		}
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	rastersDir := filepath.Join(*out, "rasters")
	boundsDir := filepath.Join(*out, "boundaries")

	rng := rand.New(rand.NewSource(*seed))
	for _, gasCode := range strings.Split(*gases, ",") {
		gasCode = strings.TrimSpace(gasCode)
		if gasCode == "" {
			continue
		}
		dir := filepath.Join(rastersDir, gasCode)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for d := 0; d < *days; d++ {
			day := end.AddDate(0, 0, -(*days - 1 - d))
			g := syntheticGrid(rng, gasCode, d, *width, *height)
			path := filepath.Join(dir, fmt.Sprintf("%s_%s.tif", gasCode, day.Format("2006-01-02")))
			if err := raster.Write(path, g); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		log.Printf("%s: %d rasters", gasCode, *days)
	}

	if err := os.MkdirAll(boundsDir, 0o755); err != nil {
		return err
	}
	if err := writeRegions(filepath.Join(boundsDir, "regions.shp")); err != nil {
		return fmt.Errorf("write regions: %w", err)
	}
	if err := writeDistricts(filepath.Join(boundsDir, "districts.shp")); err != nil {
		return fmt.Errorf("write districts: %w", err)
	}
	log.Printf("wrote boundaries under %s", boundsDir)
	return nil
}

// syntheticGrid builds one daily field: a Gaussian plume drifting eastward
// day by day over low background noise, a zero-valued calm band along the
// southern edge, and a no-data block in the northwest corner.
func syntheticGrid(rng *rand.Rand, gasCode string, day, width, height int) *raster.Grid {
	g := &raster.Grid{
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		EPSG:      4326,
		NoData:    -9999,
		HasNoData: true,
		Transform: raster.Geotransform{
			lonMin, (lonMax - lonMin) / float64(width), 0,
			latMax, 0, -(latMax - latMin) / float64(height),
		},
	}

	// Stagger plume centers per gas so the images differ visibly.
	gasShift := float64(len(gasCode)%5) / 10
	cx := (0.2 + gasShift + 0.5*float64(day)/30) * float64(width)
	cy := 0.45 * float64(height)
	sigma := 0.12 * float64(width)

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			i := row*width + col
			if row < height/8 && col < width/8 {
				g.Data[i] = g.NoData
				continue
			}
			if row > height*7/8 {
				g.Data[i] = 0
				continue
			}
			dx, dy := float64(col)-cx, float64(row)-cy
			plume := 4e-5 * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			g.Data[i] = plume + 1e-6 + 5e-7*rng.Float64()
		}
	}
	return g
}

func writeRegions(path string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.NumberField("parent_cod", 10),
		shp.StringField("region_nam", 30),
	})

	midLon := (lonMin + lonMax) / 2
	regions := []struct {
		key  int
		name string
		poly *shp.Polygon
	}{
		{100, "Western Region", rect(lonMin, latMin, midLon, latMax)},
		{200, "Eastern Region", rect(midLon, latMin, lonMax, latMax)},
	}
	for _, r := range regions {
		row := int(w.Write(r.poly))
		if err := w.WriteAttribute(row, 0, r.key); err != nil {
			return err
		}
		if err := w.WriteAttribute(row, 1, r.name); err != nil {
			return err
		}
	}
	return writePrj(path)
}

func writeDistricts(path string) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return err
	}
	defer w.Close()

	w.SetFields([]shp.Field{
		shp.NumberField("parent_cod", 10),
		shp.StringField("name", 30),
	})

	// A 4x2 grid of districts tiling the scene.
	const cols, rows = 4, 2
	dLon := (lonMax - lonMin) / cols
	dLat := (latMax - latMin) / rows
	key := 1
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 := lonMin + float64(c)*dLon
			y0 := latMin + float64(r)*dLat
			row := int(w.Write(rect(x0, y0, x0+dLon, y0+dLat)))
			if err := w.WriteAttribute(row, 0, key); err != nil {
				return err
			}
			if err := w.WriteAttribute(row, 1, fmt.Sprintf("District %d", key)); err != nil {
				return err
			}
			key++
		}
	}
	return writePrj(path)
}

// rect builds a clockwise rectangular polygon.
func rect(minX, minY, maxX, maxY float64) *shp.Polygon {
	ring := []shp.Point{
		{X: minX, Y: minY},
		{X: minX, Y: maxY},
		{X: maxX, Y: maxY},
		{X: maxX, Y: minY},
		{X: minX, Y: minY},
	}
	p := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	return &p
}

func writePrj(shpPath string) error {
	prj := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj"
	return os.WriteFile(prj, []byte(wgs84WKT), 0o644)
}
