package engine

import (
	"sync"
	"time"
)

// win is the engine that last loaded a page for a memory key.
type win struct {
	engine  string
	expires time.Time
}

// DomainMemory remembers which engine last loaded a page for a given
// domain and wait_for selector, so repeat visits skip the race.
type DomainMemory struct {
	mu      sync.Mutex
	wins    map[string]win
	ttl     time.Duration
	stop    chan struct{}
	stopped sync.Once
}

// NewDomainMemory starts a memory whose entries live for ttl. Expired
// entries are swept at a twelfth of the TTL, but never more often than once
// a minute.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	m := &DomainMemory{
		wins: make(map[string]win),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go m.sweepLoop(max(ttl/12, time.Minute))
	return m
}

// Get returns the remembered engine for key, or "" when nothing is
// remembered or the entry has expired.
func (m *DomainMemory) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wins[key]
	if !ok {
		return ""
	}
	if time.Now().After(w.expires) {
		delete(m.wins, key)
		return ""
	}
	return w.engine
}

// Set records engine as the winner for key and restarts its TTL.
func (m *DomainMemory) Set(key, engine string) {
	m.mu.Lock()
	m.wins[key] = win{engine: engine, expires: time.Now().Add(m.ttl)}
	m.mu.Unlock()
}

// Forget drops key only while it still points at engine. A concurrent
// race that already stored a newer winner is left alone.
func (m *DomainMemory) Forget(key, engine string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.wins[key]; ok && w.engine == engine {
		delete(m.wins, key)
		return true
	}
	return false
}

// Len reports the number of entries, expired ones included until swept.
func (m *DomainMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.wins)
}

// Stop ends the sweeper. It is safe to call more than once.
func (m *DomainMemory) Stop() {
	m.stopped.Do(func() { close(m.stop) })
}

func (m *DomainMemory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.sweep(now)
		}
	}
}

func (m *DomainMemory) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, w := range m.wins {
		if now.After(w.expires) {
			delete(m.wins, key)
		}
	}
}
