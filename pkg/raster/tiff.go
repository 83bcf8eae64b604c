package raster

import(
	"fmt"
	"image"
	"image/color"
	"io/ioutil"
	"math"
	"os"
	"sync"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// FormatGTiff is the only format the TIFF library writes: a 16-bit TIFF
// with the geo-referencing in a YAML sidecar.
const FormatGTiff = "GTiff"

// TIFFLibrary loads and saves rasters as TIFF files. Each file has a
// sidecar (`<file>.geo.yaml`) holding the geotransform, projection and
// no-data value. Any number of readers may be active at once; writers
// are exclusive.
type TIFFLibrary struct {
	mu sync.RWMutex
}

func NewTIFFLibrary() *TIFFLibrary {
	return &TIFFLibrary{}
}

type geoSidecar struct {
	GeoTransform [6]float64 `yaml:"geotransform"`
	Projection   string     `yaml:"projection"`
	NoData       *float64   `yaml:"nodata,omitempty"`
}

func SidecarPath(path string) string { return path + ".geo.yaml" }

func (lib *TIFFLibrary)LoadMetadata(path string) (Metadata, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	return loadMetadata(path)
}

func loadMetadata(path string) (Metadata, error) {
	m := Metadata{GeoTransform: DefaultGeoTransform}

	reader, err := os.Open(path)
	if err != nil {
		return m, fmt.Errorf("open+r '%s': %v", path, err)
	}
	defer reader.Close()

	cfg, err := tiff.DecodeConfig(reader)
	if err != nil {
		return m, fmt.Errorf("tiff config '%s': %v", path, err)
	}
	m.Cols, m.Rows = cfg.Width, cfg.Height
	m.Bands, m.BitsPerPixel = bandsOf(cfg.ColorModel)

	// The TIFF tags give us the sample layout exactly, if they parse
	if _, err := reader.Seek(0, 0); err != nil {
		return m, fmt.Errorf("seek '%s': %v", path, err)
	} else if ex, err := exif.Decode(reader); err == nil {
		if tag, err := ex.Get(exif.SamplesPerPixel); err == nil {
			if n, err := tag.Int(0); err == nil && n > 0 {
				m.Bands = n
			}
		}
		if tag, err := ex.Get(exif.BitsPerSample); err == nil {
			if n, err := tag.Int(0); err == nil && n > 0 {
				m.BitsPerPixel = n
			}
		}
	}

	contents, err := ioutil.ReadFile(SidecarPath(path))
	switch {
	case os.IsNotExist(err):
		// Not geo-referenced; pixels are map units
	case err != nil:
		return m, fmt.Errorf("sidecar read '%s': %v", path, err)
	default:
		geo := geoSidecar{}
		if err := yaml.Unmarshal(contents, &geo); err != nil {
			return m, fmt.Errorf("sidecar parse '%s': %v", path, err)
		}
		m.GeoTransform = geo.GeoTransform
		m.Projection = geo.Projection
		m.NoData = geo.NoData
	}

	return m, m.Validate()
}

func bandsOf(cm color.Model) (int, int) {
	switch cm {
	case color.GrayModel:                      return 1, 8
	case color.Gray16Model:                    return 1, 16
	case color.RGBAModel, color.NRGBAModel:    return 4, 8
	case color.RGBA64Model, color.NRGBA64Model: return 4, 16
	}
	return 1, 16
}

func (lib *TIFFLibrary)LoadPixels(path string, band int, w image.Rectangle) (emath.FloatGrid, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()

	reader, err := os.Open(path)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("open+r '%s': %v", path, err)
	}
	defer reader.Close()

	img, err := tiff.Decode(reader)
	if err != nil {
		return emath.FloatGrid{}, fmt.Errorf("tiff loading '%s': %v", path, err)
	}

	// Decoding the whole strip set is the only option the codec has, so
	// the window is cut out afterwards
	if w.Empty() || !w.Add(img.Bounds().Min).In(img.Bounds()) {
		return emath.FloatGrid{}, fmt.Errorf("load '%s' %v of %v: %w", path, w, img.Bounds(), ErrWindow)
	}

	return extractBand(img, band, w)
}

func extractBand(img image.Image, band int, w image.Rectangle) (emath.FloatGrid, error) {
	g := emath.NewFloatGrid(w.Dx(), w.Dy())
	min := img.Bounds().Min.Add(w.Min)

	switch src := img.(type) {
	case *image.Gray16:
		if band != 1 {
			return g, fmt.Errorf("band %d requested from a single band image", band)
		}
		for y:=0; y<w.Dy(); y++ {
			for x:=0; x<w.Dx(); x++ {
				g.Set(x, y, float64(src.Gray16At(min.X+x, min.Y+y).Y))
			}
		}
		return g, nil

	case *image.Gray:
		if band != 1 {
			return g, fmt.Errorf("band %d requested from a single band image", band)
		}
		for y:=0; y<w.Dy(); y++ {
			for x:=0; x<w.Dx(); x++ {
				g.Set(x, y, float64(src.GrayAt(min.X+x, min.Y+y).Y))
			}
		}
		return g, nil
	}

	if band < 1 || band > 4 {
		return g, fmt.Errorf("band %d out of range", band)
	}
	for y:=0; y<w.Dy(); y++ {
		for x:=0; x<w.Dx(); x++ {
			c := color.NRGBA64Model.Convert(img.At(min.X+x, min.Y+y)).(color.NRGBA64)
			v := [4]uint16{c.R, c.G, c.B, c.A}[band-1]
			g.Set(x, y, float64(v))
		}
	}
	return g, nil
}

func clampU16(v float64) uint16 {
	if math.IsNaN(v) || v <= 0 { return 0 }
	if v >= 65535 { return 65535 }
	return uint16(math.Round(v))
}

func toImage(bands []emath.FloatGrid) (image.Image, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("no bands to save")
	}
	b := bands[0].Bounds()
	for _, g := range bands[1:] {
		if g.Bounds() != b {
			return nil, fmt.Errorf("band sizes differ: %v vs %v", g.Bounds(), b)
		}
	}

	switch len(bands) {
	case 1:
		img := image.NewGray16(b)
		for y:=0; y<b.Dy(); y++ {
			for x:=0; x<b.Dx(); x++ {
				img.SetGray16(x, y, color.Gray16{clampU16(bands[0].Get(x, y))})
			}
		}
		return img, nil

	case 3, 4:
		img := image.NewNRGBA64(b)
		for y:=0; y<b.Dy(); y++ {
			for x:=0; x<b.Dx(); x++ {
				c := color.NRGBA64{clampU16(bands[0].Get(x, y)), clampU16(bands[1].Get(x, y)), clampU16(bands[2].Get(x, y)), 0xFFFF}
				if len(bands) == 4 { c.A = clampU16(bands[3].Get(x, y)) }
				img.SetNRGBA64(x, y, c)
			}
		}
		return img, nil
	}

	return nil, fmt.Errorf("can't save %d bands", len(bands))
}

// Save writes the bands as 16-bit samples (values are rounded and
// clamped into 0-65535), then the geo sidecar.
func (lib *TIFFLibrary)Save(path string, bands []emath.FloatGrid, format string, meta Metadata) error {
	if format != FormatGTiff && format != "" {
		return fmt.Errorf("save '%s': format '%s' not supported", path, format)
	}
	img, err := toImage(bands)
	if err != nil {
		return fmt.Errorf("save '%s': %v", path, err)
	}
	if img.Bounds().Dx() != meta.Cols || img.Bounds().Dy() != meta.Rows {
		return fmt.Errorf("save '%s': pixels are %v, metadata says %dx%d", path, img.Bounds().Size(), meta.Cols, meta.Rows)
	}

	geo, err := yaml.Marshal(geoSidecar{meta.GeoTransform, meta.Projection, meta.NoData})
	if err != nil {
		return fmt.Errorf("save '%s': sidecar: %v", path, err)
	}

	lib.mu.Lock()
	defer lib.mu.Unlock()

	writer, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open+w '%s': %v", path, err)
	}
	if err := tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		writer.Close()
		return fmt.Errorf("tiff encode '%s': %v", path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close '%s': %v", path, err)
	}

	if err := ioutil.WriteFile(SidecarPath(path), geo, 0644); err != nil {
		return fmt.Errorf("sidecar write '%s': %v", path, err)
	}
	return nil
}

// Remove deletes a raster and its sidecar. Missing files are fine.
func (lib *TIFFLibrary)Remove(path string) error {
	lib.mu.Lock()
	defer lib.mu.Unlock()

	for _, p := range []string{path, SidecarPath(path)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove '%s': %v", p, err)
		}
	}
	return nil
}
