package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	l := New()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("alice@example.com")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	require.Equal(t, 50, counter)
	require.Equal(t, 0, l.size())
}

func TestLockDifferentKeysIndependent(t *testing.T) {
	l := New()
	unlockA := l.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
	require.Equal(t, 0, l.size())
}
