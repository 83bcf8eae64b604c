package main

import(
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/abworrall/tiepoint/pkg/coreg"
	"github.com/abworrall/tiepoint/pkg/geoproj"
	"github.com/abworrall/tiepoint/pkg/logger"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/resample"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

var(
	fConfig string
	fVerbosity int
	fWorkDir string
	fChipSize int
	fGridSize int
	fChipMethod string
	fFixedLocations string
	fLevels int
	fTileSize int
	fThreads int
	fThreshold float64
	fCorrelator string
	fResampler string
	fNoHull bool
	fOutput string
	fReport string
	fPlot string
)

func init() {
	flag.StringVar(&fConfig, "config", "", "YAML config file; flags that are set override it")
	flag.IntVar(&fVerbosity, "v", 0, "how verbose to get")
	flag.StringVar(&fWorkDir, "workdir", "", "where to put scratch files (default: system temp dir)")
	flag.IntVar(&fChipSize, "chipsize", 0, "chip size in pixels (odd, >=15)")
	flag.IntVar(&fGridSize, "gridsize", 0, "chip grid spacing in pixels")
	flag.StringVar(&fChipMethod, "chips", "", "how to pick chips: "+tiepoint.ListChipMethods())
	flag.StringVar(&fFixedLocations, "locations", "", "file of lat,lon chip locations, for -chips=fixed")
	flag.IntVar(&fLevels, "levels", 0, "pyramid levels")
	flag.IntVar(&fTileSize, "tilesize", 0, "tile size in pixels")
	flag.IntVar(&fThreads, "threads", 0, "correlation threads")
	flag.Float64Var(&fThreshold, "threshold", 0, "correlation threshold at full resolution, (0,1]")
	flag.StringVar(&fCorrelator, "correlator", "", "ncc or phase")
	flag.StringVar(&fResampler, "resampler", "", "how to bring the input onto the reference grid: "+resample.ListMethods())
	flag.BoolVar(&fNoHull, "nohull", false, "skip convex hull outlier rejection")
	flag.StringVar(&fOutput, "o", "gcps.csv", "where to write the GCPs")
	flag.StringVar(&fReport, "report", "", "where to write a YAML run report")
	flag.StringVar(&fPlot, "plot", "", "where to write a PNG plot of the GCPs")
	flag.Parse()

	log.Printf("tiepoint starting\n")
}

func config() coreg.Config {
	c := coreg.NewConfig()
	if fConfig != "" {
		var err error
		if c, err = coreg.LoadConfig(fConfig); err != nil {
			log.Fatal(err)
		}
	}

	// Only the flags given on the command line override the config
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":          c.Verbosity = fVerbosity
		case "workdir":    c.WorkDir = fWorkDir
		case "chipsize":   c.ChipSize = fChipSize
		case "gridsize":   c.GridSize = fGridSize
		case "chips":      c.ChipMethod = fChipMethod
		case "locations":  c.FixedLocationsFile = fFixedLocations
		case "levels":     c.PyramidLevels = fLevels
		case "tilesize":   c.TileSize = fTileSize
		case "threads":    c.Threads = fThreads
		case "threshold":  c.Threshold = fThreshold
		case "correlator": c.Correlator = fCorrelator
		case "resampler":  c.Resampler = fResampler
		case "nohull":     c.HullRejection = !fNoHull
		}
	})
	return c
}

func main() {
	if flag.NArg() != 2 {
		log.Fatalf("usage: tiepoint [flags] input.tif reference.tif")
	}
	inputPath, refPath := flag.Arg(0), flag.Arg(1)

	cfg := config()
	if cfg.Verbosity > 0 {
		log.Printf("Final configuration:-\n\n%s\n", cfg.AsYaml())
	}

	lib := raster.NewTIFFLibrary()
	svc := coreg.Services{
		Library:    lib,
		Projection: geoproj.NewProj4(),
		Log:        logger.NewStdOutLogger(logger.FromVerbosity(cfg.Verbosity)),
	}

	p, err := coreg.New(cfg, svc)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := p.Run(ctx, inputPath, refPath)
	if err != nil {
		log.Fatal(err)
	}

	if !out.OverlapExists {
		log.Printf("%s and %s don't overlap; no GCPs\n", inputPath, refPath)
	} else if out.ShiftSkipped {
		log.Printf("%d GCPs, too few to trust a shift\n", len(out.Results))
	} else {
		log.Printf("%d GCPs, shift %s px\n", len(out.Results), out.Shift)
	}

	if err := coreg.WriteGCPFile(fOutput, out.Results, out.Grid.GSD()); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s\n", fOutput)

	if fReport != "" {
		if err := coreg.WriteReportFile(fReport, coreg.NewReport(cfg, inputPath, refPath, out)); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s\n", fReport)
	}

	if fPlot != "" && out.OverlapExists {
		// GCPs are in the reference's map coords, so draw them over it
		scene, err := raster.LoadAll(lib, refPath)
		if err != nil {
			log.Fatal(err)
		}
		opts := coreg.DefaultPlotOptions()
		opts.Title = inputPath + " vs " + refPath
		if err := coreg.PlotGCPs(fPlot, scene, out.Results, opts); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s\n", fPlot)
	}
}
