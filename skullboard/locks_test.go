package skullboard

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocks(t *testing.T) {
	l := NewKeyedLocks()

	release, ok := l.TryAcquire("g1:m1")
	require.True(t, ok)
	assert.True(t, l.Held("g1:m1"))

	_, ok = l.TryAcquire("g1:m1")
	assert.False(t, ok, "a held key cannot be taken twice")

	other, ok := l.TryAcquire("g1:m2")
	require.True(t, ok, "keys are independent")
	other()

	release()
	release()
	assert.False(t, l.Held("g1:m1"))

	again, ok := l.TryAcquire("g1:m1")
	require.True(t, ok)
	again()
}

func TestKeyedLocks_Contended(t *testing.T) {
	l := NewKeyedLocks()
	release, ok := l.TryAcquire(lockKey("g", "m"))
	require.True(t, ok)
	defer release()

	var (
		wins atomic.Int32
		wg   sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r, ok := l.TryAcquire(lockKey("g", "m")); ok {
				wins.Add(1)
				r()
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, wins.Load())
}
