package simulation

import (
	"testing"

	"github.com/kilianp07/robocharge/core/sim"
)

func snapAt(tick int) sim.Snapshot { return sim.Snapshot{Tick: tick} }

func TestFeedDeliversInOrder(t *testing.T) {
	f := NewSnapshotFeed()
	sub, cancel := f.Subscribe()
	defer cancel()

	f.Publish(snapAt(1))
	f.Publish(snapAt(2))
	if got := <-sub; got.Tick != 1 {
		t.Fatalf("first snapshot tick = %d, want 1", got.Tick)
	}
	if got := <-sub; got.Tick != 2 {
		t.Fatalf("second snapshot tick = %d, want 2", got.Tick)
	}
}

func TestFeedCoalescesForSlowSubscriber(t *testing.T) {
	f := NewSnapshotFeed()
	sub, cancel := f.Subscribe()
	defer cancel()

	// Publish well past the buffer without draining; the newest snapshot
	// must survive, with the oldest ones aged out.
	for tick := 1; tick <= 20; tick++ {
		f.Publish(snapAt(tick))
	}
	var last sim.Snapshot
	n := 0
	for {
		select {
		case s := <-sub:
			last = s
			n++
			continue
		default:
		}
		break
	}
	if n != feedBuffer {
		t.Fatalf("buffered %d snapshots, want %d", n, feedBuffer)
	}
	if last.Tick != 20 {
		t.Fatalf("newest buffered tick = %d, want 20", last.Tick)
	}
}

func TestFeedCancelIsIdempotent(t *testing.T) {
	f := NewSnapshotFeed()
	sub, cancel := f.Subscribe()
	cancel()
	cancel()
	if _, ok := <-sub; ok {
		t.Fatalf("channel still open after cancel")
	}
	// Publishing after the only subscriber left must not panic.
	f.Publish(snapAt(1))
}

func TestFeedClose(t *testing.T) {
	f := NewSnapshotFeed()
	sub1, cancel1 := f.Subscribe()
	sub2, _ := f.Subscribe()
	f.Close()
	if _, ok := <-sub1; ok {
		t.Fatalf("sub1 still open after close")
	}
	if _, ok := <-sub2; ok {
		t.Fatalf("sub2 still open after close")
	}
	// Cancel after close must not double-close the channel.
	cancel1()
	f.Publish(snapAt(1))

	sub3, cancel3 := f.Subscribe()
	if _, ok := <-sub3; ok {
		t.Fatalf("subscribe after close returned an open channel")
	}
	cancel3()
}
