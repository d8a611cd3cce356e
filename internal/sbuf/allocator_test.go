package sbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Allocator_AllocRelease_ReturnsFrame(t *testing.T) {
	a := NewAllocator(4, 256)

	b := a.Alloc(CS16)
	require.NotNil(t, b)
	b.Publish(1)

	allocs, frees, outstanding := a.Counts()
	assert.Equal(t, uint64(1), allocs)
	assert.Equal(t, uint64(0), frees)
	assert.Equal(t, int64(1), outstanding)

	b.Release()

	allocs, frees, outstanding = a.Counts()
	assert.Equal(t, uint64(1), allocs)
	assert.Equal(t, uint64(1), frees)
	assert.Equal(t, int64(0), outstanding)
}

func Test_Allocator_Alloc_ExhaustedReturnsNil(t *testing.T) {
	a := NewAllocator(2, 16)

	b1 := a.Alloc(CS16)
	b2 := a.Alloc(CS16)
	require.NotNil(t, b1)
	require.NotNil(t, b2)

	assert.Nil(t, a.Alloc(CS16))

	b1.Publish(1)
	b1.Release()

	assert.NotNil(t, a.Alloc(CS16))
}

func Test_Allocator_Release_FiresExactlyOnce(t *testing.T) {
	a := NewAllocator(1, 16)
	b := a.Alloc(CS16)
	require.NotNil(t, b)

	var fires int
	var mu sync.Mutex
	wrapped := NewBuffer(b.Fmt, b.NumSamp, b.Samples, func(inner *Buffer) {
		mu.Lock()
		fires++
		mu.Unlock()
	})
	wrapped.Publish(8)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wrapped.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fires)
}

// Many goroutines alloc/release concurrently against a small pool;
// outstanding must always return to zero and never go negative or exceed
// the pool size.
func Test_Allocator_ConcurrentAllocRelease(t *testing.T) {
	const nrFrames = 64
	const nrWorkers = 8
	const iterations = 100_000

	a := NewAllocator(nrFrames, 64)

	var wg sync.WaitGroup
	for w := 0; w < nrWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				b := a.Alloc(CS16)
				if b == nil {
					continue
				}
				b.Publish(1)
				_, _, outstanding := a.Counts()
				assert.GreaterOrEqual(t, outstanding, int64(0))
				assert.LessOrEqual(t, outstanding, int64(nrFrames))
				b.Release()
			}
		}()
	}
	wg.Wait()

	_, _, outstanding := a.Counts()
	assert.Equal(t, int64(0), outstanding)
}

func Test_Allocator_FrameCap(t *testing.T) {
	a := NewAllocator(1, 512)
	assert.Equal(t, 512, a.FrameCap())
}
