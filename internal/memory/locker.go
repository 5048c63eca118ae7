package memory

import (
	"context"
	"sync"
	"time"
)

// Locker is a process-local stand-in for redisx.Locker.
type Locker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	seq   map[string]uint64
	Now   func() time.Time
	count uint64
}

func NewLocker() *Locker {
	return &Locker{held: map[string]time.Time{}, seq: map[string]uint64{}, Now: time.Now}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return func() {}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.Now()
	if exp, ok := l.held[key]; ok && exp.After(now) {
		return func() {}, false, nil
	}
	l.count++
	token := l.count
	l.held[key] = now.Add(ttl)
	l.seq[key] = token
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.seq[key] == token {
			delete(l.held, key)
			delete(l.seq, key)
		}
	}, true, nil
}

// Dedup is a process-local stand-in for redisx.Dedup.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedup() *Dedup { return &Dedup{seen: map[string]struct{}{}} }

func (d *Dedup) First(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[eventID]; ok {
		return false, nil
	}
	d.seen[eventID] = struct{}{}
	return true, nil
}

func (d *Dedup) Forget(ctx context.Context, eventID string) error {
	d.mu.Lock()
	delete(d.seen, eventID)
	d.mu.Unlock()
	return nil
}
