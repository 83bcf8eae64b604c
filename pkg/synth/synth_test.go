package synth

import(
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTexture(t *testing.T) {
	a := Texture(64, 48, 7)
	b := Texture(64, 48, 7)
	c := Texture(64, 48, 8)

	assert.Equal(t, a.Values(), b.Values())
	assert.NotEqual(t, a.Values(), c.Values())

	for _, v := range a.Values() {
		assert.GreaterOrEqual(t, v, 100.0)
		assert.LessOrEqual(t, v, 1100.0)
	}
}

func TestShiftedPair(t *testing.T) {
	in, ref, err := ShiftedPair(Meta(40, 30), 3, -2, 1)
	require.NoError(t, err)

	assert.Equal(t, in.Pix.Get(10, 10), ref.Pix.Get(13, 8))
	assert.Equal(t, NoData, ref.Pix.Get(0, 0))
	assert.Equal(t, NoData, ref.Pix.Get(20, 29))
	assert.Equal(t, 0, in.Pix.Count(NoData))
	require.NotNil(t, ref.Meta.NoData)

	_, _, err = ShiftedPair(Meta(40, 30), 40, 0, 1)
	assert.Error(t, err)
}
