package tiling

import(
	"image"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tiles, err := Partition(250, 120, 100, 10)
	require.NoError(t, err)

	want := []Tile{
		{0, 0, 0, image.Rect(0, 0, 100, 100), image.Rect(0, 0, 110, 110)},
		{1, 1, 0, image.Rect(100, 0, 200, 100), image.Rect(90, 0, 210, 110)},
		{2, 2, 0, image.Rect(200, 0, 250, 100), image.Rect(190, 0, 250, 110)},
		{3, 0, 1, image.Rect(0, 100, 100, 120), image.Rect(0, 90, 110, 120)},
		{4, 1, 1, image.Rect(100, 100, 200, 120), image.Rect(90, 90, 210, 120)},
		{5, 2, 1, image.Rect(200, 100, 250, 120), image.Rect(190, 90, 250, 120)},
	}
	if diff := cmp.Diff(want, tiles); diff != "" {
		t.Errorf("Partition mismatch (-want +got):\n%s", diff)
	}

	c, r := Grid(250, 120, 100)
	assert.Equal(t, 3, c)
	assert.Equal(t, 2, r)
}

func TestPartitionOneTile(t *testing.T) {
	tiles, err := Partition(64, 64, 2048, 66)
	require.NoError(t, err)
	require.Equal(t, 1, len(tiles))
	assert.Equal(t, image.Rect(0, 0, 64, 64), tiles[0].Core)
	assert.Equal(t, tiles[0].Core, tiles[0].Region)
}

func TestPartitionCoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i:=0; i<50; i++ {
		cols, rows := 1+rng.Intn(300), 1+rng.Intn(300)
		size, margin := 1+rng.Intn(120), rng.Intn(40)

		tiles, err := Partition(cols, rows, size, margin)
		require.NoError(t, err)

		hits := make([]int, cols*rows)
		bounds := image.Rect(0, 0, cols, rows)
		for _, tile := range tiles {
			assert.True(t, tile.Core.In(tile.Region))
			assert.True(t, tile.Region.In(bounds))
			for y := tile.Core.Min.Y; y < tile.Core.Max.Y; y++ {
				for x := tile.Core.Min.X; x < tile.Core.Max.X; x++ {
					hits[y*cols+x]++
				}
			}
		}
		for j, h := range hits {
			require.Equal(t, 1, h, "%dx%d tile %d margin %d: pixel %d", cols, rows, size, margin, j)
		}
	}
}

func TestPartitionErrors(t *testing.T) {
	_, err := Partition(0, 10, 5, 0)
	assert.Error(t, err)
	_, err = Partition(10, 10, 0, 0)
	assert.Error(t, err)
	_, err = Partition(10, 10, 5, -1)
	assert.Error(t, err)
}
