package mining

import "sync"

// keyedExecutor serializes work per key. Holding a key's slot is the
// single-writer guarantee the resource transitions rely on: precondition
// checks and persistence happen with no concurrent writer on the same key.
// Work on different keys proceeds independently.
type keyedExecutor struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedExecutor() *keyedExecutor {
	return &keyedExecutor{locks: make(map[string]*sync.Mutex)}
}

func (e *keyedExecutor) lockFor(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// Do runs fn while holding key's slot.
func (e *keyedExecutor) Do(key string, fn func()) {
	l := e.lockFor(key)
	l.Lock()
	defer l.Unlock()
	fn()
}
