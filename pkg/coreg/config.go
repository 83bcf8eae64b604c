// Package coreg is the top of the registration pipeline: it lines up an
// input scene with a reference scene, cuts the pair into tiles, refines
// tie points tile by tile through image pyramids, and merges the lot.
package coreg

import(
	"fmt"
	"io/ioutil"
	"os"
	"runtime"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/tiepoint/pkg/correlate"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/resample"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

const MinChipSize = 15

type Config struct {
	Verbosity          int      `yaml:"verbosity"`
	WorkDir            string   `yaml:"workdir"`          // parent of the run's scratch dir

	ChipSize           int      `yaml:"chipsize"`         // odd, at least 15
	GridSize           int      `yaml:"gridsize"`         // chip lattice spacing, pixels
	ChipMethod         string   `yaml:"chipmethod"`       // grid, sobel, harris or fixed
	FixedLocationsFile string   `yaml:"fixedlocations"`   // lat,lon per line, for the fixed method

	PyramidLevels      int      `yaml:"pyramidlevels"`
	TileSize           int      `yaml:"tilesize"`         // tile core size, pixels
	Threads            int      `yaml:"threads"`

	Threshold          float64  `yaml:"threshold"`        // at the finest level; coarser levels are more lenient
	MinGoodMatches     int      `yaml:"mingoodmatches"`   // below this a level is skipped
	SearchRadius       int      `yaml:"searchradius"`     // at the coarsest level
	RefineRadius       int      `yaml:"refineradius"`     // once a coarser level found a shift
	HullRejection      bool     `yaml:"hullrejection"`
	HullTolerance      float64  `yaml:"hulltolerance"`    // pixels

	Correlator         string   `yaml:"correlator"`       // ncc or phase
	Resampler          string   `yaml:"resampler"`        // for bringing the input onto the reference grid
	NoData             *float64 `yaml:"nodata,omitempty"` // overrides what the files say
}

func NewConfig() Config {
	return Config{
		WorkDir:        os.TempDir(),
		ChipSize:       33,
		GridSize:       66,
		ChipMethod:     "grid",
		PyramidLevels:  3,
		TileSize:       2048,
		Threads:        runtime.NumCPU(),
		Threshold:      0.7,
		MinGoodMatches: 5,
		SearchRadius:   8,
		RefineRadius:   4,
		HullRejection:  true,
		HullTolerance:  1.5,
		Correlator:     "ncc",
		Resampler:      "area",
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.Unmarshal(b, &c)
	return c, err
}

// LoadConfig reads a YAML config; fields it doesn't mention keep their defaults.
func LoadConfig(filename string) (Config, error) {
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %v", filename, err)
	}
	c, err := newConfigFromYaml(contents)
	if err != nil {
		return Config{}, configErrorf("parse %s: %v", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Validate checks everything that can be checked before touching any
// imagery. All failures are ErrConfig.
func (c Config)Validate() error {
	if c.ChipSize < MinChipSize || c.ChipSize%2 == 0 {
		return configErrorf("chip size %d must be odd, and at least %d", c.ChipSize, MinChipSize)
	}
	if c.GridSize <= 0 {
		return configErrorf("grid size %d must be positive", c.GridSize)
	}
	if c.PyramidLevels < 1 {
		return configErrorf("need at least one pyramid level, got %d", c.PyramidLevels)
	}
	if c.TileSize <= c.ChipSize {
		return configErrorf("tile size %d must exceed chip size %d", c.TileSize, c.ChipSize)
	}
	if c.Threads <= 0 {
		return configErrorf("thread count must be positive, got %d", c.Threads)
	}
	if !(c.Threshold > 0 && c.Threshold <= 1) {
		return configErrorf("threshold %g must be in (0,1]", c.Threshold)
	}
	if c.MinGoodMatches < 1 {
		return configErrorf("min good matches must be positive, got %d", c.MinGoodMatches)
	}
	if c.SearchRadius < 1 || c.RefineRadius < 1 {
		return configErrorf("search radii must be positive, got %d and %d", c.SearchRadius, c.RefineRadius)
	}
	if c.HullTolerance < 0 {
		return configErrorf("hull tolerance %g must not be negative", c.HullTolerance)
	}

	m, err := c.GetChipMethod()
	if err != nil {
		return configErrorf("%v", err)
	}
	if m == tiepoint.FixedChips && c.FixedLocationsFile == "" {
		return configErrorf("fixed chips need a locations file")
	}
	if _, err := c.GetCorrelator(); err != nil {
		return configErrorf("%v", err)
	}
	if _, err := c.GetResampler(); err != nil {
		return configErrorf("%v", err)
	}
	if err := raster.CheckWritable(c.WorkDir); err != nil {
		return configErrorf("%v", err)
	}
	return nil
}

func (c Config)GetChipMethod() (tiepoint.ChipMethod, error) {
	return tiepoint.ParseChipMethod(c.ChipMethod)
}

func (c Config)GetCorrelator() (correlate.Correlator, error) {
	t, err := correlate.ParseTechnique(c.Correlator)
	if err != nil {
		return nil, err
	}
	return correlate.New(t), nil
}

func (c Config)GetResampler() (resample.Method, error) {
	return resample.ParseMethod(c.Resampler)
}
