package sbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_Buffer_IsComplex(t *testing.T) {
	assert.True(t, NewBuffer(CS16, 0, nil, nil).IsComplex())
	assert.True(t, NewBuffer(CS8, 0, nil, nil).IsComplex())
	assert.False(t, NewBuffer(S16, 0, nil, nil).IsComplex())
}

// Reference-counting correctness: for any positive consumer count, Release
// fires the release callback exactly once, no matter how many times or in
// what order consumers call it relative to each other.
func Test_Buffer_RefcountFiresExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nrConsumers := rapid.IntRange(1, 64).Draw(t, "nrConsumers")

		var fires int
		b := NewBuffer(CS16, 0, nil, func(*Buffer) { fires++ })
		b.Publish(int32(nrConsumers))

		for i := 0; i < nrConsumers; i++ {
			b.Release()
		}

		assert.Equal(t, 1, fires)
		assert.Equal(t, int32(0), b.Refs())
	})
}

func Test_Buffer_NilReleaseIsSafe(t *testing.T) {
	b := NewBuffer(S16, 0, nil, nil)
	b.Publish(1)
	assert.NotPanics(t, func() { b.Release() })
}
