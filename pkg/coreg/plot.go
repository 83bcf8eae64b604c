package coreg

import(
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"

	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

// PlotOptions control the GCP plot.
type PlotOptions struct {
	MaxSize     int     // longest side of the plot, pixels
	Exaggerate  float64 // displacement vectors are drawn this many times longer
	Title       string
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{MaxSize: 1024, Exaggerate: 20}
}

// confidenceColor runs from red (0) through yellow to green (1).
func confidenceColor(c float64) colorful.Color {
	c = math.Max(0, math.Min(1, c))
	return colorful.Hsv(120*c, 0.9, 0.95)
}

// PlotGCPs draws each result as a vector from its chip center, over a
// quicklook of the scene the chips came from, and saves it as a PNG.
func PlotGCPs(filename string, scene raster.Raster, results []tiepoint.Result, o PlotOptions) error {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultPlotOptions().MaxSize
	}
	src := scene.Pix.ToImage(scene.Meta.NoData)

	scale := math.Min(1, float64(o.MaxSize)/float64(max(scene.Meta.Cols, scene.Meta.Rows)))
	w := int(math.Max(1, math.Round(float64(scene.Meta.Cols)*scale)))
	h := int(math.Max(1, math.Round(float64(scene.Meta.Rows)*scale)))
	bg := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(bg, bg.Bounds(), src, src.Bounds(), draw.Src, nil)

	dc := gg.NewContextForImage(bg)
	dc.SetLineWidth(1.5)

	gsd := scene.Meta.GSD()
	for _, r := range results {
		p, err := scene.Meta.MapToPixel(r.Chip.Center)
		if err != nil {
			return err
		}
		d := r.Displacement(gsd).Scale(o.Exaggerate)
		x0, y0 := p.X*scale, p.Y*scale
		x1, y1 := (p.X+d.X)*scale, (p.Y+d.Y)*scale

		dc.SetColor(confidenceColor(r.Confidence))
		if !r.Good {
			dc.SetRGB(0.5, 0.5, 0.5)
		}
		dc.DrawCircle(x0, y0, 2)
		dc.Fill()
		dc.DrawLine(x0, y0, x1, y1)
		dc.Stroke()
	}

	dc.SetRGB(1, 1, 1)
	title := o.Title
	if title == "" {
		title = fmt.Sprintf("%d GCPs, vectors x%.0f", len(results), o.Exaggerate)
	}
	dc.DrawString(title, 10, 20)

	return dc.SavePNG(filename)
}
