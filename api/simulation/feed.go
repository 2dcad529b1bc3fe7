package simulation

import (
	"sync"

	"github.com/kilianp07/robocharge/core/sim"
)

// feedBuffer bounds how many snapshots a subscriber may lag behind.
const feedBuffer = 4

// SnapshotFeed fans tick snapshots out to observers (websocket clients, the
// MQTT publisher). A later snapshot supersedes every earlier one, so a slow
// subscriber never stalls the tick loop: when its buffer is full the oldest
// pending snapshot is discarded to make room for the newest.
type SnapshotFeed struct {
	mu     sync.Mutex
	subs   map[int]chan sim.Snapshot
	nextID int
	closed bool
}

// NewSnapshotFeed returns an empty feed.
func NewSnapshotFeed() *SnapshotFeed {
	return &SnapshotFeed{subs: make(map[int]chan sim.Snapshot)}
}

// Publish delivers the snapshot to every subscriber without blocking,
// coalescing toward the newest state for laggards.
func (f *SnapshotFeed) Publish(snap sim.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, ch := range f.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// Full: age out the oldest pending snapshot, then retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Subscribe registers an observer. The returned cancel function removes the
// subscription and closes its channel; calling it twice is safe.
func (f *SnapshotFeed) Subscribe() (<-chan sim.Snapshot, func()) {
	ch := make(chan sim.Snapshot, feedBuffer)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close drops every subscriber and rejects further publishes.
func (f *SnapshotFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
