// Package cache provides small TTL caches for the API server's
// read-side projections (upcoming obligations, budget progress).
package cache

import (
	"sync"
	"time"
)

// Expirer is implemented by caches that can drop expired entries.
type Expirer interface {
	CleanExpired() int
}

// Janitor periodically sweeps expired entries out of registered caches.
type Janitor struct {
	mu     sync.Mutex
	caches []Expirer
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Register adds a cache to the sweep set. Must be called before
// StartCleanup.
func (j *Janitor) Register(c Expirer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.caches = append(j.caches, c)
}

// StartCleanup launches the sweep loop. Call at most once.
func (j *Janitor) StartCleanup(interval time.Duration) {
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.mu.Lock()
				for _, c := range j.caches {
					c.CleanExpired()
				}
				j.mu.Unlock()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.once.Do(func() {
		close(j.stop)
		<-j.done
	})
}
