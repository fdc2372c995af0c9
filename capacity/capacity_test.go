package capacity_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/capacity"
)

var _ = Describe("EventTable.Lookup", func() {
	table := capacity.NewEventTable(
		capacity.EventEntry{HourOfDay: 8, Desired: map[string]int{"transform": 3}},
		capacity.EventEntry{HourOfDay: 0, Desired: map[string]int{"transform": 0, "publisher": 0}},
	)

	It("finds the latest entry at or before the queried hour", func() {
		Expect(table.Lookup(9)["transform"]).To(Equal(3))
		Expect(table.Lookup(8)["transform"]).To(Equal(3))
		Expect(table.Lookup(7)["transform"]).To(Equal(0))
	})

	It("wraps to the last entry when queried before the first", func() {
		empty := capacity.NewEventTable(capacity.EventEntry{HourOfDay: 8, Desired: map[string]int{"transform": 3}})
		Expect(empty.Lookup(2)["transform"]).To(Equal(3))
	})
})

var _ = Describe("Controller.Tick", func() {
	It("scales a service up to the event table's desired count", func() {
		ctx := context.Background()
		adapter := capacity.NewMockAdapter()
		tables := map[string]*capacity.EventTable{
			"dev": capacity.NewEventTable(
				capacity.EventEntry{HourOfDay: 0, Desired: map[string]int{"transform": 0, "publisher": 0}},
				capacity.EventEntry{HourOfDay: 8, Desired: map[string]int{"transform": 3, "publisher": 0}},
			),
		}
		ctrl := capacity.NewController(adapter, tables, []string{"transform", "publisher"})

		results, err := ctrl.Tick(ctx, 9)
		Expect(err).NotTo(HaveOccurred())

		var xform capacity.ReconcileResult
		for _, r := range results {
			if r.Service == "transform" {
				xform = r
			}
		}
		Expect(xform.Desired).To(Equal(3))
		Expect(xform.Scaled).To(BeTrue())

		observed, err := adapter.Observe(ctx, "dev", "transform")
		Expect(err).NotTo(HaveOccurred())
		Expect(observed.Total).To(Equal(3))
	})

	It("converges after at most two ticks and stops reissuing scale commands", func() {
		ctx := context.Background()
		adapter := capacity.NewMockAdapter()
		tables := map[string]*capacity.EventTable{
			"dev": capacity.NewEventTable(capacity.EventEntry{HourOfDay: 0, Desired: map[string]int{"transform": 2}}),
		}
		ctrl := capacity.NewController(adapter, tables, []string{"transform"})

		_, err := ctrl.Tick(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		results, err := ctrl.Tick(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Scaled).To(BeFalse())
	})

	It("emits a single heal hint per unit error and does not repeat it", func() {
		ctx := context.Background()
		adapter := capacity.NewMockAdapter()
		Expect(adapter.EnsureNumUnits(ctx, "dev", "transform", 1)).To(Succeed())
		observed, _ := adapter.Observe(ctx, "dev", "transform")
		adapter.SetUnitState("dev", "transform", observed.Units[0].ID, capacity.UnitError)

		tables := map[string]*capacity.EventTable{
			"dev": capacity.NewEventTable(capacity.EventEntry{HourOfDay: 0, Desired: map[string]int{"transform": 1}}),
		}
		ctrl := capacity.NewController(adapter, tables, []string{"transform"})

		results, err := ctrl.Tick(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Healed).To(HaveLen(1))

		results, err = ctrl.Tick(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Healed).To(BeEmpty())
	})
})
