package processing

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetingLocksSerializeSameID(t *testing.T) {
	locks := newMeetingLocks()

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("m1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestMeetingLocksIndependentIDs(t *testing.T) {
	locks := newMeetingLocks()

	unlockA := locks.Lock("a")
	// A held lock on "a" must not block "b".
	unlockB := locks.Lock("b")
	unlockB()
	unlockA()
}

func TestMeetingLocksCleanUpEntries(t *testing.T) {
	locks := newMeetingLocks()

	unlock := locks.Lock("m1")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
