package dispatch_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/dispatch"
	"github.com/oscied/orchestrator/queue"
	"github.com/oscied/orchestrator/store"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx   context.Context
		s     *store.BuntStore
		q     *queue.MockQueue
		b     *blobstore.MockStore
		d     *dispatch.Dispatcher
		user  *store.User
		media *store.Media
		prof  *store.TransformProfile
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = store.NewBuntStore("")
		Expect(err).NotTo(HaveOccurred())
		q = queue.NewMockQueue("transform", "publisher")
		b = blobstore.NewMockStore()
		d = dispatch.New(s, q, b)

		user = &store.User{Mail: "a@b.test"}
		Expect(s.InsertUser(ctx, user)).To(Succeed())

		media = &store.Media{UserID: user.ID, URI: "glusterfs://h/m/medias/u/in/in.mp4", Status: store.MediaReady, Metadata: map[string]interface{}{"title": "In"}}
		Expect(s.InsertMedia(ctx, media)).To(Succeed())

		prof = &store.TransformProfile{Title: "h264", EncoderName: "ffmpeg"}
		Expect(s.InsertProfile(ctx, prof)).To(Succeed())
	})

	Describe("LaunchTransform", func() {
		It("creates a pending output media and a pending task", func() {
			task, out, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "transform",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Status).To(Equal(store.MediaPending))
			Expect(task.Status).To(Equal(store.TaskPending))
			Expect(task.MediaOutID).To(Equal(out.ID))

			job, ok := q.Job(task.ID)
			Expect(ok).To(BeTrue())
			Expect(job.Queue).To(Equal("transform"))
		})

		It("rejects an unknown queue", func() {
			_, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "nope",
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a missing metadata.title", func() {
			_, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{},
				Queue:     "transform",
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a deleted input media", func() {
			media.Status = store.MediaDeleted
			Expect(s.UpdateMedia(ctx, media)).To(Succeed())

			_, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "transform",
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RevokeTransform", func() {
		var taskID string

		BeforeEach(func() {
			task, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "transform",
			})
			Expect(err).NotTo(HaveOccurred())
			taskID = task.ID
		})

		It("revokes a non-terminal task", func() {
			Expect(d.RevokeTransform(ctx, taskID, dispatch.RevokeOptions{})).To(Succeed())
			task, err := s.FindTransformTaskByID(ctx, taskID)
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Status).To(Equal(store.TaskRevoked))
			Expect(task.Revoked).To(BeTrue())
		})

		It("rejects revoking an already-terminal task", func() {
			Expect(d.RevokeTransform(ctx, taskID, dispatch.RevokeOptions{})).To(Succeed())
			Expect(d.RevokeTransform(ctx, taskID, dispatch.RevokeOptions{})).To(HaveOccurred())
		})
	})

	Describe("LaunchPublisher", func() {
		It("rejects a media that is not READY", func() {
			media.Status = store.MediaPending
			Expect(s.UpdateMedia(ctx, media)).To(Succeed())

			_, err := d.LaunchPublisher(ctx, dispatch.PublisherInput{UserID: user.ID, MediaID: media.ID, Queue: "publisher"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a media that is already published", func() {
			media.PublicURIs = map[string]string{"t1": "http://h/x"}
			Expect(s.UpdateMedia(ctx, media)).To(Succeed())

			_, err := d.LaunchPublisher(ctx, dispatch.PublisherInput{UserID: user.ID, MediaID: media.ID, Queue: "publisher"})
			Expect(err).To(HaveOccurred())
		})

		It("launches successfully for a READY, unpublished media", func() {
			task, err := d.LaunchPublisher(ctx, dispatch.PublisherInput{UserID: user.ID, MediaID: media.ID, Queue: "publisher"})
			Expect(err).NotTo(HaveOccurred())
			Expect(task.Status).To(Equal(store.TaskPending))
		})
	})

	Describe("DeleteProfile", func() {
		It("blocks deletion while a non-terminal task references the profile", func() {
			_, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "transform",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(d.DeleteProfile(ctx, prof.ID)).To(HaveOccurred())
		})

		It("allows deletion once referencing tasks are terminal", func() {
			task, _, err := d.LaunchTransform(ctx, dispatch.TransformInput{
				UserID:    user.ID,
				MediaInID: media.ID,
				ProfileID: prof.ID,
				Filename:  "out.mp4",
				Metadata:  map[string]interface{}{"title": "Out"},
				Queue:     "transform",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(d.RevokeTransform(ctx, task.ID, dispatch.RevokeOptions{})).To(Succeed())

			Expect(d.DeleteProfile(ctx, prof.ID)).To(Succeed())
		})
	})
})
