package raster

import(
	"errors"
	"image"

	"github.com/abworrall/tiepoint/pkg/emath"
)

// ErrWindow means a windowed read or crop asked for pixels outside the
// raster. It points at a logic bug in the caller, not at bad input.
var ErrWindow = errors.New("window outside raster")

type Loader interface {
	LoadMetadata(path string) (Metadata, error)

	// LoadPixels reads one band (1-based) of the window `w`.
	LoadPixels(path string, band int, w image.Rectangle) (emath.FloatGrid, error)
}

type Saver interface {
	Save(path string, bands []emath.FloatGrid, format string, meta Metadata) error
}

// A Library is the full raster I/O port the pipeline is handed.
type Library interface {
	Loader
	Saver
	Remove(path string) error
}

// LoadRaster reads band `band` inside `w`, with metadata adjusted to the window.
func LoadRaster(l Loader, path string, band int, w image.Rectangle) (Raster, error) {
	meta, err := l.LoadMetadata(path)
	if err != nil {
		return Raster{}, err
	}
	pix, err := l.LoadPixels(path, band, w)
	if err != nil {
		return Raster{}, err
	}
	return NewRaster(meta.Window(w), pix)
}

// LoadAll reads the whole of band 1.
func LoadAll(l Loader, path string) (Raster, error) {
	meta, err := l.LoadMetadata(path)
	if err != nil {
		return Raster{}, err
	}
	return LoadRaster(l, path, 1, meta.Bounds())
}

// SaveRaster writes a single band raster in the default format.
func SaveRaster(s Saver, path string, r Raster) error {
	meta := r.Meta
	meta.Bands = 1
	return s.Save(path, []emath.FloatGrid{r.Pix}, FormatGTiff, meta)
}
