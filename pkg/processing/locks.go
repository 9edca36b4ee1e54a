package processing

import "sync"

// meetingLocks serializes pipeline runs per meeting id. Two concurrent runs
// against the same meeting would race on the delete-then-insert of action
// items, so the second caller waits for the first.
type meetingLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newMeetingLocks() *meetingLocks {
	return &meetingLocks{locks: make(map[string]*lockEntry)}
}

// Lock acquires the per-meeting lock and returns its release function.
func (l *meetingLocks) Lock(meetingID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[meetingID]
	if !ok {
		entry = &lockEntry{}
		l.locks[meetingID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, meetingID)
		}
		l.mu.Unlock()
	}
}
