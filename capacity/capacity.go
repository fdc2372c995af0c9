// Package capacity implements the capacity controller (spec §4.5, component
// C5): a per-environment 24-hour event table of desired unit counts,
// reconciled against an observed cluster state through a pluggable Adapter.
//
// Grounded on the teacher's cluster.Smap (cluster/map.go): a membership map
// with Count*/Get* accessors over per-node state, generalized here from
// "proxy/target membership" to "per-service unit counts with health state".
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package capacity

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oscied/orchestrator/cmn"
)

// UnitState mirrors the health states an adapter reports per unit.
type UnitState string

const (
	UnitStarted UnitState = "started"
	UnitPending UnitState = "pending"
	UnitError   UnitState = "error"
	UnitUnknown UnitState = "unknown"
)

// UnitInfo is one running (or failed) unit as reported by an Adapter.
type UnitInfo struct {
	ID    string
	State UnitState
}

// ObservedUnits summarizes one service's fleet in one environment.
type ObservedUnits struct {
	Service string
	Total   int
	ByState map[UnitState]int
	Units   []UnitInfo
}

// Adapter is the cluster-control contract a capacity controller drives.
// Implementations wrap a specific cloud API (EC2, GCE, a Kubernetes
// Deployment/ReplicaSet, or an in-memory mock for tests).
type Adapter interface {
	// Observe returns the current observed unit count and state
	// distribution for service in this environment.
	Observe(ctx context.Context, environment, service string) (ObservedUnits, error)

	// EnsureNumUnits drives service in environment to exactly count
	// running units, scaling up or down as needed. Implementations MAY
	// terminate machines directly to reclaim capacity (spec §4.5 step 3).
	EnsureNumUnits(ctx context.Context, environment, service string, count int) error

	// ResolveError emits a best-effort heal hint for one unit reported in
	// UnitError state (spec §4.5 step 4: "a single resolved hint").
	ResolveError(ctx context.Context, environment, service, unitID string) error
}

// EventEntry is one row of an event table: from HourOfDay (inclusive,
// 0-23), desired holds service -> unit count.
type EventEntry struct {
	HourOfDay int
	Desired   map[string]int
}

// EventTable is an ordered, piecewise-constant desired-capacity function
// over a 24-hour cycle (spec §4.5, GLOSSARY "Event table").
type EventTable struct {
	entries []EventEntry
}

// NewEventTable builds a table from entries, sorting them by HourOfDay so
// Lookup can binary-search/scan in order regardless of caller-supplied
// order.
func NewEventTable(entries ...EventEntry) *EventTable {
	sorted := append([]EventEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].HourOfDay < sorted[j].HourOfDay })
	return &EventTable{entries: sorted}
}

// Lookup finds the latest entry whose HourOfDay <= hour, wrapping within the
// day: querying before the first entry's hour returns the last entry (the
// schedule from the previous day is still in effect).
func (t *EventTable) Lookup(hour int) map[string]int {
	if len(t.entries) == 0 {
		return map[string]int{}
	}
	best := t.entries[len(t.entries)-1]
	for _, e := range t.entries {
		if e.HourOfDay <= hour {
			best = e
		} else {
			break
		}
	}
	return best.Desired
}

// Controller reconciles every managed (environment, service) pair against
// its EventTable on each tick. Only one reconciliation per environment may
// be in flight at a time (spec §5), enforced with golang.org/x/sync/singleflight
// rather than a per-environment mutex so a slow reconciliation never blocks
// the next tick from being scheduled — it simply joins the in-flight call.
type Controller struct {
	Adapter Adapter
	Tables  map[string]*EventTable // environment name -> table
	Services []string

	group    singleflight.Group
	healedMu sync.Mutex
	healed   map[string]bool // unit id -> a heal hint has already been emitted
}

func NewController(adapter Adapter, tables map[string]*EventTable, services []string) *Controller {
	return &Controller{Adapter: adapter, Tables: tables, Services: services, healed: map[string]bool{}}
}

// ReconcileResult records what a single tick did, for the observer and for
// tests.
type ReconcileResult struct {
	Environment string
	Service     string
	Desired     int
	Observed    ObservedUnits
	Scaled      bool
	Healed      []string
}

// Tick runs one reconciliation pass over every managed environment and
// service at the given hour-of-day (0-23).
func (c *Controller) Tick(ctx context.Context, hour int) ([]ReconcileResult, error) {
	var results []ReconcileResult
	for env, table := range c.Tables {
		v, err, _ := c.group.Do(env, func() (interface{}, error) {
			return c.reconcileEnvironment(ctx, env, table, hour)
		})
		if err != nil {
			return results, err
		}
		results = append(results, v.([]ReconcileResult)...)
	}
	return results, nil
}

func (c *Controller) reconcileEnvironment(ctx context.Context, env string, table *EventTable, hour int) ([]ReconcileResult, error) {
	desired := table.Lookup(hour)
	var results []ReconcileResult
	for _, service := range c.Services {
		want := desired[service]
		observed, err := c.Adapter.Observe(ctx, env, service)
		if err != nil {
			return results, cmn.Wrap(err, cmn.KindTransient, "failed to observe units")
		}
		scaled := false
		if observed.Total != want {
			if err := c.Adapter.EnsureNumUnits(ctx, env, service, want); err != nil {
				return results, cmn.Wrap(err, cmn.KindTransient, "failed to ensure unit count")
			}
			scaled = true
		}
		var healed []string
		c.healedMu.Lock()
		for _, unit := range observed.Units {
			if unit.State != UnitError {
				delete(c.healed, unit.ID) // recovered: a future error gets a fresh hint
				continue
			}
			if c.healed[unit.ID] {
				continue // already emitted a hint for this unit; don't spam
			}
			if err := c.Adapter.ResolveError(ctx, env, service, unit.ID); err == nil {
				c.healed[unit.ID] = true
				healed = append(healed, unit.ID)
			}
		}
		c.healedMu.Unlock()

		results = append(results, ReconcileResult{
			Environment: env,
			Service:     service,
			Desired:     want,
			Observed:    observed,
			Scaled:      scaled,
			Healed:      healed,
		})
	}
	return results, nil
}

// Run executes Tick once per tick duration until ctx is cancelled, the
// capacity controller's own control loop (spec §5), independent of and
// running alongside the Observer loop.
func (c *Controller) Run(ctx context.Context, tick time.Duration, hourFn func(time.Time) int) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if _, err := c.Tick(ctx, hourFn(now)); err != nil {
				continue
			}
		}
	}
}
