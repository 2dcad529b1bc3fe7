// Package simulation exposes the control surface consumed by the CLI and
// the visualization client: start, step, reset, run-until, snapshots and a
// websocket snapshot stream.
package simulation

import (
	"errors"
	"sync"

	corelogger "github.com/kilianp07/robocharge/core/logger"
	"github.com/kilianp07/robocharge/core/metrics"
	"github.com/kilianp07/robocharge/core/sim"
	"github.com/kilianp07/robocharge/qa/scenarios"
)

// ErrNoRun is returned when no simulation has been started yet.
var ErrNoRun = errors.New("no active run")

// Controller serializes access to a single simulation run. Steps happen
// under the lock, so snapshots are always tick-aligned.
type Controller struct {
	mu    sync.Mutex
	model *sim.Model
	sink  metrics.Sink
	log   corelogger.Logger
	feed  *SnapshotFeed
}

// NewController creates an idle controller.
func NewController(sink metrics.Sink, log corelogger.Logger) *Controller {
	if log == nil {
		log = corelogger.NopLogger{}
	}
	return &Controller{
		sink: sink,
		log:  log,
		feed: NewSnapshotFeed(),
	}
}

// Snapshots returns the feed carrying one snapshot per executed tick.
func (c *Controller) Snapshots() *SnapshotFeed { return c.feed }

// Close tears down the snapshot feed.
func (c *Controller) Close() { c.feed.Close() }

// Start initializes a run from a preset name or an inline scenario.
func (c *Controller) Start(name string, inline *sim.Scenario) (sim.Snapshot, error) {
	var sc sim.Scenario
	if inline != nil {
		sc = *inline
	} else {
		var err error
		sc, err = scenarios.Get(name)
		if err != nil {
			return sim.Snapshot{}, err
		}
	}
	model, err := sim.New(sc, c.sink, c.log)
	if err != nil {
		return sim.Snapshot{}, err
	}
	c.mu.Lock()
	c.model = model
	snap := model.Snapshot()
	c.mu.Unlock()
	c.log.Infof("started scenario %s", sc.Name)
	return snap, nil
}

// Step advances one tick and returns the resulting snapshot.
func (c *Controller) Step() (sim.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return sim.Snapshot{}, ErrNoRun
	}
	c.model.Step()
	snap := c.model.Snapshot()
	c.feed.Publish(snap)
	return snap, nil
}

// Reset returns the run to its initial state.
func (c *Controller) Reset() (sim.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return sim.Snapshot{}, ErrNoRun
	}
	if err := c.model.Reset(); err != nil {
		return sim.Snapshot{}, err
	}
	return c.model.Snapshot(), nil
}

// RunUntil steps until termination or until maxTicks ticks have elapsed,
// publishing a snapshot per tick.
func (c *Controller) RunUntil(maxTicks int) (sim.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return sim.Snapshot{}, ErrNoRun
	}
	for i := 0; !c.model.Done() && i < maxTicks; i++ {
		c.model.Step()
		c.feed.Publish(c.model.Snapshot())
	}
	return c.model.Snapshot(), nil
}

// Snapshot returns the current state without advancing.
func (c *Controller) Snapshot() (sim.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model == nil {
		return sim.Snapshot{}, ErrNoRun
	}
	return c.model.Snapshot(), nil
}
