package callback_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/callback"
	"github.com/oscied/orchestrator/store"
)

var _ = Describe("Handler.HandleTransform", func() {
	var (
		ctx  context.Context
		s    *store.BuntStore
		blob *blobstore.MockStore
		h    *callback.Handler
		task *store.TransformTask
		out  *store.Media
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = store.NewBuntStore("")
		Expect(err).NotTo(HaveOccurred())
		blob = blobstore.NewMockStore()
		h = callback.New(s, blob, nil)

		out = &store.Media{Status: store.MediaPending, Metadata: map[string]interface{}{"title": "Out"}}
		Expect(s.InsertMedia(ctx, out)).To(Succeed())
		out.UserID = "u"
		out.Filename = "out.mp4"
		out.URI = blobstore.StagingPath(out.ID, out.Filename)
		Expect(s.UpdateMedia(ctx, out)).To(Succeed())

		finalURI := "mock://medias/u/" + out.ID + "/out.mp4"
		blob.SetSize(finalURI, 1024)
		blob.SetDuration(finalURI, 12.5)

		task = &store.TransformTask{ID: "t1", MediaOutID: out.ID, Status: store.TaskPending, Statistic: store.TaskStatistic{}}
		Expect(s.InsertTransformTask(ctx, task)).To(Succeed())
	})

	It("moves PENDING to PROGRESS on a progress callback", func() {
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "PROGRESS"})).To(Succeed())
		got, _ := s.FindTransformTaskByID(ctx, "t1")
		Expect(got.Status).To(Equal(store.TaskProgress))
	})

	It("promotes the output media to READY and merges probe stats on SUCCESS", func() {
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "SUCCESS"})).To(Succeed())

		gotTask, _ := s.FindTransformTaskByID(ctx, "t1")
		Expect(gotTask.Status).To(Equal(store.TaskSuccess))

		gotMedia, _ := s.FindMediaByID(ctx, out.ID)
		Expect(gotMedia.Status).To(Equal(store.MediaReady))
		Expect(gotMedia.Metadata["size"]).To(Equal(int64(1024)))
	})

	It("marks the output media DELETED and cleans storage on ERROR", func() {
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "ERROR\nbad codec"})).To(Succeed())

		gotTask, _ := s.FindTransformTaskByID(ctx, "t1")
		Expect(gotTask.Status).To(Equal(store.TaskFailure))
		Expect(gotTask.Statistic["error_details"]).To(Equal("bad codec"))

		gotMedia, _ := s.FindMediaByID(ctx, out.ID)
		Expect(gotMedia.Status).To(Equal(store.MediaDeleted))
		Expect(blob.Deleted(out.URI)).To(BeTrue())
	})

	It("is idempotent: a duplicate SUCCESS after SUCCESS changes nothing", func() {
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "SUCCESS"})).To(Succeed())
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "SUCCESS"})).To(Succeed())

		got, _ := s.FindTransformTaskByID(ctx, "t1")
		Expect(got.Status).To(Equal(store.TaskSuccess))
	})

	It("acknowledges but records a late error on an already-terminal task", func() {
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "SUCCESS"})).To(Succeed())
		Expect(h.HandleTransform(ctx, callback.TransformCallback{TaskID: "t1", Status: "ERROR\nlate failure"})).To(Succeed())

		got, _ := s.FindTransformTaskByID(ctx, "t1")
		Expect(got.Status).To(Equal(store.TaskSuccess))
		Expect(got.Statistic["error_details"]).To(Equal("late failure"))
	})

	It("fails on an unknown task id", func() {
		err := h.HandleTransform(ctx, callback.TransformCallback{TaskID: "nope", Status: "SUCCESS"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Handler.HandlePublisher and HandleRevoke", func() {
	var (
		ctx   context.Context
		s     *store.BuntStore
		h     *callback.Handler
		media *store.Media
		task  *store.PublisherTask
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		s, err = store.NewBuntStore("")
		Expect(err).NotTo(HaveOccurred())
		h = callback.New(s, nil, nil)

		media = &store.Media{Status: store.MediaReady, Metadata: map[string]interface{}{"title": "M"}}
		Expect(s.InsertMedia(ctx, media)).To(Succeed())

		task = &store.PublisherTask{ID: "p1", MediaID: media.ID, Status: store.TaskPending, Statistic: store.TaskStatistic{}}
		Expect(s.InsertPublisherTask(ctx, task)).To(Succeed())
	})

	It("sets public_uris on publisher SUCCESS", func() {
		Expect(h.HandlePublisher(ctx, callback.PublisherCallback{TaskID: "p1", PublishURI: "http://h/x", Status: "SUCCESS"})).To(Succeed())

		gotMedia, _ := s.FindMediaByID(ctx, media.ID)
		Expect(gotMedia.PublicURIs["p1"]).To(Equal("http://h/x"))

		gotTask, _ := s.FindPublisherTaskByID(ctx, "p1")
		Expect(gotTask.Status).To(Equal(store.TaskSuccess))
		Expect(gotTask.PublishURI).To(Equal("http://h/x"))
	})

	It("removes a public_uris entry (missing key not an error) and finishes REVOKED on revoke callback", func() {
		Expect(h.HandlePublisher(ctx, callback.PublisherCallback{TaskID: "p1", PublishURI: "http://h/x", Status: "SUCCESS"})).To(Succeed())

		got, _ := s.FindPublisherTaskByID(ctx, "p1")
		got.Status = store.TaskRevoking
		Expect(s.UpdatePublisherTask(ctx, got)).To(Succeed())

		Expect(h.HandleRevoke(ctx, callback.RevokeCallback{TaskID: "p1", Status: "SUCCESS"})).To(Succeed())

		gotMedia, _ := s.FindMediaByID(ctx, media.ID)
		_, present := gotMedia.PublicURIs["p1"]
		Expect(present).To(BeFalse())

		gotTask, _ := s.FindPublisherTaskByID(ctx, "p1")
		Expect(gotTask.Status).To(Equal(store.TaskRevoked))
	})

	It("rejects a second publisher task publishing the same media at callback time", func() {
		Expect(h.HandlePublisher(ctx, callback.PublisherCallback{TaskID: "p1", PublishURI: "http://h/x", Status: "SUCCESS"})).To(Succeed())

		other := &store.PublisherTask{ID: "p2", MediaID: media.ID, Status: store.TaskPending, Statistic: store.TaskStatistic{}}
		Expect(s.InsertPublisherTask(ctx, other)).To(Succeed())

		Expect(h.HandlePublisher(ctx, callback.PublisherCallback{TaskID: "p2", PublishURI: "http://h/y", Status: "SUCCESS"})).To(Succeed())

		gotOther, _ := s.FindPublisherTaskByID(ctx, "p2")
		Expect(gotOther.Status).To(Equal(store.TaskFailure))
	})
})
