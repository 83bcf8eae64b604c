package workpool

import(
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/tiepoint/pkg/logger"
)

func TestNewRejectsBadThreadCount(t *testing.T) {
	_, err := New(0, nil)
	assert.Error(t, err)
	_, err = New(-3, nil)
	assert.Error(t, err)
}

func TestEveryJobRunsOnce(t *testing.T) {
	p, err := New(7, &logger.NullLogger{})
	require.NoError(t, err)

	for _, n := range []int{0, 1, 6, 7, 8, 1000} {
		counts := make([]int32, n)
		p.Run("test", n, func(i int) {
			atomic.AddInt32(&counts[i], 1)
		})
		for i, c := range counts {
			assert.Equal(t, int32(1), c, "n=%d, job %d", n, i)
		}
	}
}

func TestConcurrencyIsBounded(t *testing.T) {
	p, err := New(3, nil)
	require.NoError(t, err)

	var active, peak int32
	p.Run("bounded", 30, func(i int) {
		now := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
	})

	assert.LessOrEqual(t, peak, int32(3))
	assert.Equal(t, int32(0), atomic.LoadInt32(&active))
}

func TestRunBlocksUntilDone(t *testing.T) {
	p, err := New(4, nil)
	require.NoError(t, err)

	results := make([]int, 50)
	p.Run("squares", len(results), func(i int) {
		time.Sleep(100 * time.Microsecond)
		results[i] = i * i
	})
	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}
