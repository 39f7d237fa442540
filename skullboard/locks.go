package skullboard

import "sync"

// KeyedLocks is a set of in-flight keys. A key is either held or free; there
// is no waiting.
type KeyedLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{held: make(map[string]struct{})}
}

// TryAcquire takes key if it is free. The returned release is safe to call
// more than once.
func (l *KeyedLocks) TryAcquire(key string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently taken.
func (l *KeyedLocks) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

func lockKey(guildID, messageID string) string {
	return guildID + ":" + messageID
}
