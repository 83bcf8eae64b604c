// Package pyramid builds reduced resolution copies of a scene, and uses
// them to refine tie points from coarse to fine.
package pyramid

import(
	"errors"
	"fmt"

	"github.com/abworrall/tiepoint/pkg/raster"
	"github.com/abworrall/tiepoint/pkg/resample"
)

// ErrDivisibility means a scene's size doesn't divide by the pyramid's
// biggest reduction; the caller should have padded it.
var ErrDivisibility = errors.New("scene size not divisible by pyramid reduction")

// A Level is one rung of a pyramid. Level 0 is the scene itself, and
// each level after it is half the size of the one before.
type Level struct {
	Path      string
	Reduction int
	Meta      raster.Metadata
}

func (l Level)String() string {
	return fmt.Sprintf("level[x%d %dx%d %s]", l.Reduction, l.Meta.Cols, l.Meta.Rows, l.Path)
}

// MaxReduction is the reduction of the coarsest level of an n level pyramid.
func MaxReduction(n int) int {
	return 1 << (n - 1)
}

// CheckDivisible reports ErrDivisibility if an n level pyramid can't be
// built on a scene of this size.
func CheckDivisible(meta raster.Metadata, n int) error {
	if n < 1 {
		return fmt.Errorf("pyramid needs at least one level, got %d", n)
	}
	div := MaxReduction(n)
	if meta.Cols%div != 0 || meta.Rows%div != 0 {
		return fmt.Errorf("%dx%d, %d levels: %w", meta.Cols, meta.Rows, n, ErrDivisibility)
	}
	return nil
}

// Build makes an n level pyramid from band 1 of the scene at `path`.
// Level 0 refers to `path`; the reduced levels are written into `wd` as
// `<name>-L<i>.tif`, and belong to the caller, who should Cleanup them
// once done.
func Build(lib raster.Library, path string, n int, wd *raster.WorkDir, name string) ([]Level, error) {
	meta, err := lib.LoadMetadata(path)
	if err != nil {
		return nil, err
	}
	if err := CheckDivisible(meta, n); err != nil {
		return nil, err
	}

	levels := []Level{{Path: path, Reduction: 1, Meta: meta}}
	if n == 1 {
		return levels, nil
	}

	prev, err := raster.LoadAll(lib, path)
	if err != nil {
		return nil, err
	}
	for i:=1; i<n; i++ {
		pix, err := resample.Reduce(prev.Pix, 2, prev.Meta.NoData)
		if err != nil {
			Cleanup(lib, levels)
			return nil, err
		}
		next, err := raster.NewRaster(prev.Meta.Reduced(2), pix)
		if err != nil {
			Cleanup(lib, levels)
			return nil, err
		}

		l := Level{
			Path:      wd.Path(fmt.Sprintf("%s-L%d.tif", name, i)),
			Reduction: MaxReduction(i + 1),
			Meta:      next.Meta,
		}
		if err := raster.SaveRaster(lib, l.Path, next); err != nil {
			Cleanup(lib, levels)
			return nil, err
		}
		levels = append(levels, l)
		prev = next
	}

	return levels, nil
}

// Cleanup removes the files of the reduced levels; level 0 isn't ours.
func Cleanup(lib raster.Library, levels []Level) error {
	var firstErr error
	for _, l := range levels {
		if l.Reduction == 1 {
			continue
		}
		if err := lib.Remove(l.Path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
