package observer_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/capacity"
	"github.com/oscied/orchestrator/observer"
	"github.com/oscied/orchestrator/store"
)

var _ = Describe("Observer.Tick", func() {
	It("records a planned/observed sample for every managed environment and service", func() {
		ctx := context.Background()
		s, err := store.NewBuntStore("")
		Expect(err).NotTo(HaveOccurred())

		adapter := capacity.NewMockAdapter()
		Expect(adapter.EnsureNumUnits(ctx, "dev", "transform", 2)).To(Succeed())

		tables := map[string]*capacity.EventTable{
			"dev": capacity.NewEventTable(capacity.EventEntry{HourOfDay: 0, Desired: map[string]int{"transform": 2, "publisher": 0}}),
		}
		obs := observer.New(adapter, tables, []string{"transform", "publisher"}, s)

		Expect(obs.Tick(ctx, 9)).To(Succeed())

		samples := obs.Snapshot(observer.Key{Environment: "dev", Service: "transform"})
		Expect(samples).To(HaveLen(1))
		Expect(samples[0].Planned).To(Equal(2))
		Expect(samples[0].ByState[capacity.UnitStarted]).To(Equal(2))
	})

	It("bounds ring history to the configured length", func() {
		r := observer.NewRing(3)
		for i := 0; i < 5; i++ {
			r.Add(observer.Sample{Planned: i})
		}
		snap := r.Snapshot()
		Expect(snap).To(HaveLen(3))
		Expect(snap[len(snap)-1].Planned).To(Equal(4))
	})
})
