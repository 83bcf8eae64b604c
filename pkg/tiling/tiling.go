// Package tiling cuts a big raster into tiles that can be processed one
// at a time.
package tiling

import(
	"fmt"
	"image"
)

// A Tile has a core, and a region. The cores of all the tiles cover the
// raster exactly once; the region is the core grown by a margin (but
// kept on the raster), so that features near the core's edge still have
// context.
type Tile struct {
	Index    int
	Col, Row int
	Core     image.Rectangle
	Region   image.Rectangle
}

func (t Tile)String() string {
	return fmt.Sprintf("tile[%d (%d,%d) core:%v region:%v]", t.Index, t.Col, t.Row, t.Core, t.Region)
}

// Partition tiles a cols x rows raster with tileSize cores, in row major
// order. The last row and column of tiles take whatever is left over.
func Partition(cols, rows, tileSize, margin int) ([]Tile, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("can't tile a %dx%d raster", cols, rows)
	}
	if tileSize <= 0 || margin < 0 {
		return nil, fmt.Errorf("bad tile size %d / margin %d", tileSize, margin)
	}

	bounds := image.Rect(0, 0, cols, rows)
	tiles := []Tile{}
	for r, y := 0, 0; y < rows; r, y = r+1, y+tileSize {
		for c, x := 0, 0; x < cols; c, x = c+1, x+tileSize {
			core := image.Rect(x, y, x+tileSize, y+tileSize).Intersect(bounds)
			tiles = append(tiles, Tile{
				Index:  len(tiles),
				Col:    c,
				Row:    r,
				Core:   core,
				Region: core.Inset(-margin).Intersect(bounds),
			})
		}
	}
	return tiles, nil
}

// Grid returns how many tiles across and down Partition will produce.
func Grid(cols, rows, tileSize int) (int, int) {
	return (cols + tileSize - 1) / tileSize, (rows + tileSize - 1) / tileSize
}
