// Package observer implements the statistics/observer loop (spec §4.6,
// component C6): a per (environment, service) bounded ring of samples
// recording planned vs. observed unit counts and task-status counters, fed
// to a chart renderer outside this system's scope.
//
// Grounded on the teacher's stats.ProxyCoreStats.copyZeroReset /
// copyCumulative idiom (stats/proxy_stats.go): a sampling loop snapshots
// live counters into an immutable copy without holding a lock across the
// sample interval, generalized here from a stats tracker map to a fixed
// Sample struct.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/oscied/orchestrator/capacity"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

// DefaultRingLength is the ring capacity used when none is configured: 30
// samples per (environment, service) pair, independent of the tick rate.
const DefaultRingLength = 30

// TaskCounts is the task-status slice of one sample (spec §4.6: "counters
// for task statuses (pending, in-progress, success)"). Tasks are not
// themselves environment-scoped in the data model (§3), so these counters
// are per service kind (transform or publisher) across the whole store,
// not per environment.
type TaskCounts struct {
	Pending    int
	InProgress int
	Success    int
}

// Sample is one ring entry: wall-clock time, the event table's planned
// count, the observed unit state distribution, and task-status counters.
type Sample struct {
	Time    time.Time
	Planned int
	ByState map[capacity.UnitState]int
	Tasks   TaskCounts
}

// Ring is a fixed-capacity circular buffer of samples; once full, Add
// overwrites the oldest entry.
type Ring struct {
	mu      sync.Mutex
	samples []Sample
	cap     int
	next    int
	full    bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingLength
	}
	return &Ring{samples: make([]Sample, capacity), cap: capacity}
}

func (r *Ring) Add(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[r.next] = s
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot returns the ring's samples in chronological order.
func (r *Ring) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Sample, r.next)
		copy(out, r.samples[:r.next])
		return out
	}
	out := make([]Sample, r.cap)
	copy(out, r.samples[r.next:])
	copy(out[r.cap-r.next:], r.samples[:r.next])
	return out
}

// Key identifies one tracked (environment, service) pair.
type Key struct {
	Environment string
	Service     string
}

// Observer runs independently of capacity.Controller (spec §4.6: "an
// independent loop from the controller and does not gate scheduling") but
// reads the same EventTable/Adapter pairing so its "planned" figure always
// matches what the controller is driving toward.
type Observer struct {
	Adapter  capacity.Adapter
	Tables   map[string]*capacity.EventTable
	Services []string
	Store    store.Store
	RingLen  int

	mu    sync.Mutex
	rings map[Key]*Ring

	metrics *prometheusMetrics
}

func New(adapter capacity.Adapter, tables map[string]*capacity.EventTable, services []string, st store.Store) *Observer {
	return &Observer{
		Adapter:  adapter,
		Tables:   tables,
		Services: services,
		Store:    st,
		RingLen:  DefaultRingLength,
		rings:    map[Key]*Ring{},
		metrics:  newPrometheusMetrics(),
	}
}

func (o *Observer) ringFor(k Key) *Ring {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.rings[k]
	if !ok {
		r = NewRing(o.RingLen)
		o.rings[k] = r
	}
	return r
}

// Snapshot returns the current samples for one (environment, service) pair,
// or nil if nothing has been sampled for it yet.
func (o *Observer) Snapshot(k Key) []Sample {
	o.mu.Lock()
	r, ok := o.rings[k]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	return r.Snapshot()
}

// Tick samples every managed (environment, service) pair at the given
// hour-of-day and appends one Sample to each pair's ring.
func (o *Observer) Tick(ctx context.Context, hour int) error {
	taskCounts, err := o.taskCounts(ctx)
	if err != nil {
		return cmn.Wrap(err, cmn.KindTransient, "failed to sample task status counters")
	}
	for env, table := range o.Tables {
		desired := table.Lookup(hour)
		for _, service := range o.Services {
			observed, err := o.Adapter.Observe(ctx, env, service)
			if err != nil {
				return cmn.Wrap(err, cmn.KindTransient, "failed to observe units for "+env+"/"+service)
			}
			sample := Sample{
				Time:    cmn.Now(),
				Planned: desired[service],
				ByState: observed.ByState,
				Tasks:   taskCounts[service],
			}
			o.ringFor(Key{Environment: env, Service: service}).Add(sample)
			o.metrics.record(env, service, sample)
		}
	}
	return nil
}

// taskCounts samples store-wide TransformTask and PublisherTask status
// counters, keyed the same way the event table keys services ("transform",
// "publisher").
func (o *Observer) taskCounts(ctx context.Context) (map[string]TaskCounts, error) {
	result := map[string]TaskCounts{}

	xforms, err := o.Store.FindTransformTasks(ctx, store.Spec{})
	if err != nil {
		return nil, err
	}
	var tc TaskCounts
	for _, t := range xforms {
		switch t.Status {
		case store.TaskPending:
			tc.Pending++
		case store.TaskProgress:
			tc.InProgress++
		case store.TaskSuccess:
			tc.Success++
		}
	}
	result["transform"] = tc

	pubs, err := o.Store.FindPublisherTasks(ctx, store.Spec{})
	if err != nil {
		return nil, err
	}
	tc = TaskCounts{}
	for _, t := range pubs {
		switch t.Status {
		case store.TaskPending:
			tc.Pending++
		case store.TaskProgress:
			tc.InProgress++
		case store.TaskSuccess:
			tc.Success++
		}
	}
	result["publisher"] = tc

	return result, nil
}

// Run executes Tick once per tick duration until ctx is cancelled,
// implementing the observer control loop named in spec §5. hourFn maps a
// tick's wall-clock time to the hour-of-day looked up in the event tables;
// cmd/orchestrator passes the UTC hour, with no time-speedup factor.
func (o *Observer) Run(ctx context.Context, tick time.Duration, hourFn func(time.Time) int) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := o.Tick(ctx, hourFn(now)); err != nil {
				// Scheduler loops catch communication errors and continue on
				// the next tick; no crash on transient failure (spec §7).
				continue
			}
		}
	}
}
