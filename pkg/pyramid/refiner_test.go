package pyramid

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tiepoint/pkg/correlate"
	"github.com/abworrall/tiepoint/pkg/emath"
	"github.com/abworrall/tiepoint/pkg/logger"
	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/synth"
	"github.com/abworrall/tiepoint/pkg/tiepoint"
	"github.com/abworrall/tiepoint/pkg/workpool"
)

func refiner(t *testing.T, lib raster.Library) *Refiner {
	pool, err := workpool.New(4, nil)
	require.NoError(t, err)
	return NewRefiner(tiepoint.Services{
		Log:        &logger.NullLogger{},
		Correlator: correlate.New(correlate.NCC),
		Pool:       pool,
	}, lib)
}

func refineParams(levels int) Params {
	return Params{
		Levels:         levels,
		MinGoodMatches: 5,
		RefineRadius:   3,
		Generator: tiepoint.Params{
			Method:        tiepoint.GridChips,
			Chip:          tiepoint.ChipParams{Size: 15, GridSize: 24},
			SearchRadius:  4,
			Threshold:     0.7,
			HullRejection: true,
			HullTolerance: 1.5,
		},
	}
}

func pairOnDisk(t *testing.T, lib raster.Library, wd *raster.WorkDir, cols, rows, dx, dy int) (string, string) {
	in, ref, err := synth.ShiftedPair(synth.Meta(cols, rows), dx, dy, 17)
	require.NoError(t, err)
	return save(t, lib, wd, "in.tif", in), save(t, lib, wd, "ref.tif", ref)
}

func TestRefine(t *testing.T) {
	lib := raster.NewTIFFLibrary()
	wd := workdir(t)
	inPath, refPath := pairOnDisk(t, lib, wd, 256, 256, 7, -5)

	// The shift is beyond the search radius at level 0, so finding it
	// relies on the coarser levels
	out, err := refiner(t, lib).Run(refineParams(3), inPath, refPath, wd)
	require.NoError(t, err)

	require.Equal(t, 3, len(out.Levels))
	assert.Equal(t, []int{2, 1, 0}, []int{out.Levels[0].Level, out.Levels[1].Level, out.Levels[2].Level})
	assert.InDelta(t, 0.7/3, out.Levels[0].Threshold, 1e-9)
	assert.Equal(t, 4, out.Levels[0].SearchRadius)
	assert.Equal(t, emath.Point2D{}, out.Levels[0].Offset)
	assert.False(t, out.Levels[2].Skipped)

	assert.False(t, out.Skipped)
	assert.InDelta(t, 7.0, out.Shift.X, 0.5)
	assert.InDelta(t, -5.0, out.Shift.Y, 0.5)
	assert.InDelta(t, 7.0, out.Accumulated.X, 1.01)
	assert.InDelta(t, -5.0, out.Accumulated.Y, 1.01)
	assert.Greater(t, tiepoint.CountGood(out.Results), 20)

	good := tiepoint.GoodOnly(out.Results)
	near := 0
	for _, r := range good {
		if r.Displacement(emath.Point2D{X: 1, Y: 1}).Dist(emath.Point2D{X: 7, Y: -5}) < 1 {
			near++
		}
	}
	assert.GreaterOrEqual(t, near, len(good)*9/10)

	// Pyramid files are gone
	files, err := wd.Files()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"in.tif", "in.tif.geo.yaml", "ref.tif", "ref.tif.geo.yaml"}, files)
}

func TestRefineSingleLevel(t *testing.T) {
	lib := raster.NewTIFFLibrary()
	wd := workdir(t)
	inPath, refPath := pairOnDisk(t, lib, wd, 128, 128, 2, 1)

	out, err := refiner(t, lib).Run(refineParams(1), inPath, refPath, wd)
	require.NoError(t, err)
	require.Equal(t, 1, len(out.Levels))
	assert.False(t, out.Levels[0].Retried)
	assert.InDelta(t, 0.7, out.Levels[0].Threshold, 1e-9)
	assert.Equal(t, emath.Point2D{}, out.Accumulated)
	assert.InDelta(t, 2.0, out.Shift.X, 0.5)
	assert.InDelta(t, 1.0, out.Shift.Y, 0.5)
}

func TestRefineNothingMatches(t *testing.T) {
	lib := raster.NewTIFFLibrary()
	wd := workdir(t)
	in, ref, err := synth.ShiftedPair(synth.Meta(128, 128), 0, 0, 3)
	require.NoError(t, err)
	ref.Pix.Fill(500)
	inPath, refPath := save(t, lib, wd, "in.tif", in), save(t, lib, wd, "ref.tif", ref)

	p := refineParams(2)
	out, err := refiner(t, lib).Run(p, inPath, refPath, wd)
	require.NoError(t, err, "no matches is not a failure")

	assert.True(t, out.Skipped)
	assert.Equal(t, 0, tiepoint.CountGood(out.Results))
	require.Equal(t, 2, len(out.Levels))
	assert.True(t, out.Levels[0].Skipped)
	assert.True(t, out.Levels[1].Skipped)
	assert.True(t, out.Levels[1].Retried)
	assert.InDelta(t, 0.35, out.Levels[1].Threshold, 1e-9)

	// A skipped level doubles the search radius, and carries no shift
	assert.Equal(t, 8, out.Levels[1].SearchRadius)
	assert.Equal(t, emath.Point2D{}, out.Accumulated)
}

func TestRefineErrors(t *testing.T) {
	lib := raster.NewTIFFLibrary()
	wd := workdir(t)
	inPath, refPath := pairOnDisk(t, lib, wd, 100, 100, 0, 0)
	r := refiner(t, lib)

	p := refineParams(0)
	_, err := r.Run(p, inPath, refPath, wd)
	assert.Error(t, err)

	p = refineParams(2)
	p.MinGoodMatches = 0
	_, err = r.Run(p, inPath, refPath, wd)
	assert.Error(t, err)

	_, err = r.Run(refineParams(4), inPath, refPath, wd)
	assert.ErrorIs(t, err, ErrDivisibility)

	_, err = r.Run(refineParams(2), inPath, wd.Path("missing.tif"), wd)
	assert.Error(t, err)

	small, _, err := synth.ShiftedPair(synth.Meta(50, 50), 0, 0, 1)
	require.NoError(t, err)
	smallPath := save(t, lib, wd, "small.tif", small)
	_, err = r.Run(refineParams(2), inPath, smallPath, wd)
	assert.ErrorIs(t, err, raster.ErrWindow)
}
