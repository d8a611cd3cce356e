package sbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SPSCQueue_RoundsUpToPowerOfTwo(t *testing.T) {
	q := NewSPSCQueue(5)
	assert.Len(t, q.buf, 8)
}

func Test_SPSCQueue_PushPop_FIFO(t *testing.T) {
	q := NewSPSCQueue(4)

	bufs := make([]*Buffer, 4)
	for i := range bufs {
		bufs[i] = NewBuffer(S16, 0, nil, nil)
		require.True(t, q.TryPush(bufs[i]))
	}

	assert.False(t, q.TryPush(NewBuffer(S16, 0, nil, nil)), "queue should report full at capacity")

	for i := range bufs {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Same(t, bufs[i], got)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func Test_SPSCQueue_ConcurrentProducerConsumer(t *testing.T) {
	const n = 200_000
	q := NewSPSCQueue(256)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			b := NewBuffer(S16, i, nil, nil)
			for !q.TryPush(b) {
				// spin: bounded queue, consumer is draining concurrently
			}
		}
	}()

	go func() {
		defer wg.Done()
		next := 0
		for next < n {
			b, ok := q.TryPop()
			if !ok {
				continue
			}
			assert.Equal(t, next, b.NumSamp, "buffers must be delivered in FIFO order")
			next++
		}
	}()

	wg.Wait()
}
