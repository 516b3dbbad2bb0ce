package workflow

import "sync"

// MissionLocks serializes read-decide-write sequences per mission id.
// Entries are dropped once no goroutine holds or waits for them.
type MissionLocks struct {
	mu    sync.Mutex
	locks map[string]*missionLock
}

type missionLock struct {
	mu   sync.Mutex
	refs int
}

// NewMissionLocks creates an empty lock table
func NewMissionLocks() *MissionLocks {
	return &MissionLocks{locks: make(map[string]*missionLock)}
}

// Lock blocks until the mission lock is held and returns its release func
func (l *MissionLocks) Lock(missionID string) func() {
	l.mu.Lock()
	ml, ok := l.locks[missionID]
	if !ok {
		ml = &missionLock{}
		l.locks[missionID] = ml
	}
	ml.refs++
	l.mu.Unlock()

	ml.mu.Lock()

	return func() {
		ml.mu.Unlock()

		l.mu.Lock()
		ml.refs--
		if ml.refs == 0 {
			delete(l.locks, missionID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of missions currently locked or awaited
func (l *MissionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
