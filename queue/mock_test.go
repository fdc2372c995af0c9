package queue_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/queue"
)

var _ = Describe("MockQueue", func() {
	var q *queue.MockQueue

	BeforeEach(func() {
		q = queue.NewMockQueue("transform", "publisher")
	})

	It("returns a task id for a known queue", func() {
		id, err := q.Submit(context.Background(), queue.Job{Queue: "transform", Payload: map[string]interface{}{"x": 1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())

		job, ok := q.Job(id)
		Expect(ok).To(BeTrue())
		Expect(job.Payload["x"]).To(Equal(1))
	})

	It("fails submission to an unknown queue", func() {
		_, err := q.Submit(context.Background(), queue.Job{Queue: "nope"})
		Expect(err).To(HaveOccurred())
	})

	It("honors FailNextSubmit as a one-shot transient failure", func() {
		q.FailNextSubmit()
		_, err := q.Submit(context.Background(), queue.Job{Queue: "transform"})
		Expect(err).To(HaveOccurred())

		id, err := q.Submit(context.Background(), queue.Job{Queue: "transform"})
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
	})

	It("revokes a submitted task and rejects an unknown one", func() {
		id, _ := q.Submit(context.Background(), queue.Job{Queue: "transform"})
		Expect(q.Revoke(context.Background(), id, true)).To(Succeed())
		Expect(q.Revoked(id)).To(BeTrue())

		Expect(q.Revoke(context.Background(), "missing", true)).To(HaveOccurred())
	})

	It("lists the queues it was constructed with", func() {
		names, err := q.Queues(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(ConsistOf("transform", "publisher"))
	})
})
