package coreg

import(
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tiepoint/pkg/resample"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
)

func TestNewConfigIsValid(t *testing.T) {
	c := NewConfig()
	c.WorkDir = t.TempDir()
	assert.NoError(t, c.Validate())

	assert.Equal(t, 33, c.ChipSize)
	assert.Equal(t, 66, c.GridSize)
	assert.Equal(t, 3, c.PyramidLevels)
	assert.Equal(t, 2048, c.TileSize)
	assert.True(t, c.HullRejection)
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct{
		name string
		edit func(c *Config)
	}{
		{"even chip", func(c *Config) { c.ChipSize = 32 }},
		{"small chip", func(c *Config) { c.ChipSize = 13 }},
		{"no grid", func(c *Config) { c.GridSize = 0 }},
		{"no levels", func(c *Config) { c.PyramidLevels = 0 }},
		{"tile too small", func(c *Config) { c.TileSize = 33 }},
		{"no threads", func(c *Config) { c.Threads = 0 }},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"big threshold", func(c *Config) { c.Threshold = 1.1 }},
		{"min good", func(c *Config) { c.MinGoodMatches = 0 }},
		{"radius", func(c *Config) { c.SearchRadius = 0 }},
		{"tolerance", func(c *Config) { c.HullTolerance = -1 }},
		{"chip method", func(c *Config) { c.ChipMethod = "dartboard" }},
		{"fixed, no file", func(c *Config) { c.ChipMethod = "fixed" }},
		{"correlator", func(c *Config) { c.Correlator = "guess" }},
		{"resampler", func(c *Config) { c.Resampler = "lanczos" }},
		{"workdir", func(c *Config) { c.WorkDir = filepath.Join(dir, "nope") }},
		{"workdir is a file", func(c *Config) {
			f := filepath.Join(dir, "file")
			os.WriteFile(f, []byte{}, 0644)
			c.WorkDir = f
		}},
	}

	for _, test := range tests {
		c := NewConfig()
		c.WorkDir = dir
		test.edit(&c)
		err := c.Validate()
		assert.True(t, errors.Is(err, ErrConfig), "%s: %v", test.name, err)
	}
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "cfg.yaml")
	yml := "chipsize: 21\nchipmethod: harris\nnodata: -9999\nresampler: bicubic\n"
	require.NoError(t, os.WriteFile(filename, []byte(yml), 0644))

	c, err := LoadConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, 21, c.ChipSize)
	assert.Equal(t, 66, c.GridSize, "unmentioned fields keep their defaults")
	require.NotNil(t, c.NoData)
	assert.Equal(t, -9999.0, *c.NoData)

	m, err := c.GetChipMethod()
	require.NoError(t, err)
	assert.Equal(t, tiepoint.HarrisChips, m)
	r, err := c.GetResampler()
	require.NoError(t, err)
	assert.Equal(t, resample.Bicubic, r)

	// Round trips through its own yaml
	c2, err := newConfigFromYaml([]byte(c.AsYaml()))
	require.NoError(t, err)
	assert.Equal(t, c, c2)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filename, []byte("chipsize: [1,2\n"), 0644))
	_, err = LoadConfig(filename)
	assert.True(t, errors.Is(err, ErrConfig))
}
