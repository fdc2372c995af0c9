package janitor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/janitor"
	"github.com/oscied/orchestrator/store"
)

var _ = Describe("Janitor", func() {
	var (
		ctx context.Context
		s   *store.BuntStore
		j   *janitor.Janitor
		now time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = store.NewBuntStore("")
		Expect(err).NotTo(HaveOccurred())
		j = janitor.New(s, 10*time.Minute)

		now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		cmn.Now = func() time.Time { return now }
	})

	AfterEach(func() {
		cmn.Now = time.Now
	})

	It("reclaims a pending media older than the grace period with no referencing task", func() {
		stale := &store.Media{
			URI:      "glusterfs://h/m/medias/out/stale.mp4",
			Status:   store.MediaPending,
			Metadata: map[string]interface{}{"title": "Stale", "add_date": cmn.FormatTime(now.Add(-1 * time.Hour))},
		}
		Expect(s.InsertMedia(ctx, stale)).To(Succeed())

		n, err := j.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		_, err = s.FindMediaByID(ctx, stale.ID)
		Expect(err).To(HaveOccurred())
	})

	It("leaves a pending media younger than the grace period alone", func() {
		fresh := &store.Media{
			URI:      "glusterfs://h/m/medias/out/fresh.mp4",
			Status:   store.MediaPending,
			Metadata: map[string]interface{}{"title": "Fresh", "add_date": cmn.FormatTime(now.Add(-1 * time.Minute))},
		}
		Expect(s.InsertMedia(ctx, fresh)).To(Succeed())

		n, err := j.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(0))

		_, err = s.FindMediaByID(ctx, fresh.ID)
		Expect(err).NotTo(HaveOccurred())
	})

	It("leaves a stale pending media alone if a transform task still references it", func() {
		mediaIn := &store.Media{URI: "glusterfs://h/m/medias/in/in.mp4", Status: store.MediaReady, Metadata: map[string]interface{}{"title": "In"}}
		Expect(s.InsertMedia(ctx, mediaIn)).To(Succeed())

		stillWanted := &store.Media{
			URI:      "glusterfs://h/m/medias/out/wanted.mp4",
			Status:   store.MediaPending,
			Metadata: map[string]interface{}{"title": "Wanted", "add_date": cmn.FormatTime(now.Add(-1 * time.Hour))},
		}
		Expect(s.InsertMedia(ctx, stillWanted)).To(Succeed())

		task := &store.TransformTask{ID: "task-1", MediaInID: mediaIn.ID, MediaOutID: stillWanted.ID, Status: store.TaskPending}
		Expect(s.InsertTransformTask(ctx, task)).To(Succeed())

		n, err := j.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(0))
	})
})
