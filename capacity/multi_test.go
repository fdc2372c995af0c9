package capacity_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/capacity"
)

var _ = Describe("MultiAdapter", func() {
	It("routes each call to the adapter registered for that environment", func() {
		ctx := context.Background()
		dev, prod := capacity.NewMockAdapter(), capacity.NewMockAdapter()
		multi := capacity.NewMultiAdapter()
		multi.Register("dev", dev)
		multi.Register("prod", prod)

		Expect(multi.EnsureNumUnits(ctx, "dev", "transform", 2)).To(Succeed())
		Expect(multi.EnsureNumUnits(ctx, "prod", "transform", 5)).To(Succeed())

		devObserved, err := multi.Observe(ctx, "dev", "transform")
		Expect(err).NotTo(HaveOccurred())
		Expect(devObserved.Total).To(Equal(2))

		prodObserved, err := multi.Observe(ctx, "prod", "transform")
		Expect(err).NotTo(HaveOccurred())
		Expect(prodObserved.Total).To(Equal(5))
	})

	It("errors on an unregistered environment", func() {
		ctx := context.Background()
		multi := capacity.NewMultiAdapter()
		_, err := multi.Observe(ctx, "missing", "transform")
		Expect(err).To(HaveOccurred())
	})
})
