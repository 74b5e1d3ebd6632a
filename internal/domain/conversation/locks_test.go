package conversation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreadLocks_SerializesPerThread(t *testing.T) {
	locks := newThreadLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("t1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			counter++

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxSeen)
	require.Equal(t, 50, counter)
	require.Equal(t, 0, locks.size())
}

func TestThreadLocks_IndependentThreads(t *testing.T) {
	locks := newThreadLocks()
	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	require.Equal(t, 2, locks.size())
	unlockA()
	unlockB()
	require.Equal(t, 0, locks.size())
}
