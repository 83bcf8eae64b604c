package main

import(
	"flag"
	"log"
	"strings"

	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/synth"
)

var(
	fCols int
	fRows int
	fDx int
	fDy int
	fSeed int64
	fGSD float64
	fOriginX float64
	fOriginY float64
	fProjection string
	fPrefix string
	fPreview bool
)

func init() {
	flag.IntVar(&fCols, "cols", 1024, "width of the scenes")
	flag.IntVar(&fRows, "rows", 1024, "height of the scenes")
	flag.IntVar(&fDx, "dx", 3, "columns to shift the reference by")
	flag.IntVar(&fDy, "dy", -2, "rows to shift the reference by")
	flag.Int64Var(&fSeed, "seed", 1, "texture seed")
	flag.Float64Var(&fGSD, "gsd", 1, "pixel size, in map units")
	flag.Float64Var(&fOriginX, "x0", 0, "map X of the top-left corner")
	flag.Float64Var(&fOriginY, "y0", 0, "map Y of the top-left corner")
	flag.StringVar(&fProjection, "proj", "", "proj4 string for both scenes; if set, rows run south")
	flag.StringVar(&fPrefix, "o", "synth", "output prefix; writes <o>-input.tif and <o>-reference.tif")
	flag.BoolVar(&fPreview, "png", false, "also write a PNG preview of each scene")
	flag.Parse()
}

func main() {
	meta := synth.Meta(fCols, fRows)
	meta.GeoTransform = [6]float64{fOriginX, fGSD, 0, fOriginY, 0, fGSD}
	if fProjection != "" {
		if err := geoproj.Validate(strings.TrimSpace(fProjection)); err != nil {
			log.Fatal(err)
		}
		meta.Projection = strings.TrimSpace(fProjection)
		meta.GeoTransform[5] = -fGSD
	}

	in, ref, err := synth.ShiftedPair(meta, fDx, fDy, fSeed)
	if err != nil {
		log.Fatal(err)
	}

	lib := raster.NewTIFFLibrary()
	for name, r := range map[string]raster.Raster{"input": in, "reference": ref} {
		filename := fPrefix + "-" + name + ".tif"
		if err := raster.SaveRaster(lib, filename, r); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s (%s)\n", filename, r.Meta)

		if fPreview {
			png := fPrefix + "-" + name + ".png"
			if err := r.Pix.ToImg(name, png, r.Meta.NoData); err != nil {
				log.Fatal(err)
			}
		}
	}
}
