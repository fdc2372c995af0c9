// Package janitor implements the task-janitor control loop named in spec §5:
// a periodic sweep that reclaims PENDING media a dispatcher launch left
// behind when queue submission itself failed (spec §4.3 step 5).
//
// Grounded on the same ticker-driven Run shape as capacity.Controller.Run
// and observer.Observer.Run — this codebase's own established idiom for an
// independent control loop, generalized here to a store sweep instead of a
// cluster-adapter reconciliation.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package janitor

import (
	"context"
	"time"

	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

// Janitor reclaims orphaned PENDING media: one with no transform task that
// still references it as media_out_id, older than Grace.
type Janitor struct {
	Store store.Store
	Grace time.Duration
}

func New(s store.Store, grace time.Duration) *Janitor {
	if grace <= 0 {
		grace = 10 * time.Minute
	}
	return &Janitor{Store: s, Grace: grace}
}

// Sweep deletes every PENDING media whose add_date is older than j.Grace and
// which no transform task references as its output, returning how many it
// reclaimed.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	medias, err := j.Store.FindMedias(ctx, store.Spec{Filter: map[string]any{"status": store.MediaPending}})
	if err != nil {
		return 0, cmn.Wrap(err, cmn.KindInternal, "failed to list pending media")
	}
	reclaimed := 0
	for _, m := range medias {
		stale, err := j.isStaleOrphan(ctx, m)
		if err != nil {
			return reclaimed, err
		}
		if !stale {
			continue
		}
		if err := j.Store.DeleteMedia(ctx, m.ID); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}
	return reclaimed, nil
}

func (j *Janitor) isStaleOrphan(ctx context.Context, m *store.Media) (bool, error) {
	added, err := cmn.ParseTime(anyToString(m.Metadata["add_date"]))
	if err != nil || added.IsZero() || cmn.Now().Sub(added) < j.Grace {
		return false, nil
	}
	tasks, err := j.Store.FindTransformTasks(ctx, store.Spec{Filter: map[string]any{"media_out_id": m.ID}})
	if err != nil {
		return false, cmn.Wrap(err, cmn.KindInternal, "failed to list transform tasks")
	}
	return len(tasks) == 0, nil
}

func anyToString(v any) string {
	s, _ := v.(string)
	return s
}

// Run sweeps once per tick until ctx is cancelled, swallowing sweep errors
// the way the capacity and observer loops do (spec §7: no crash on
// transient failure).
func (j *Janitor) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = j.Sweep(ctx)
		}
	}
}
