package blobstore_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/oscied/orchestrator/blobstore"
)

var _ = Describe("POSIXStore", func() {
	var (
		root    string
		staging string
		store   *blobstore.POSIXStore
	)

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "blobstore-test-*")
		Expect(err).NotTo(HaveOccurred())
		staging = filepath.Join(root, "staging.mp4")
		Expect(os.WriteFile(staging, []byte("fake media bytes"), 0o644)).To(Succeed())
		store = blobstore.NewPOSIXStore(root, "storage.local", "mnt")
	})

	AfterEach(func() {
		_ = os.RemoveAll(root)
	})

	It("renames into the canonical path and returns a glusterfs uri", func() {
		uri, err := store.Rename(context.Background(), staging, "user-1", "media-1", "out.mp4")
		Expect(err).NotTo(HaveOccurred())
		Expect(uri).To(Equal("glusterfs://storage.local/mnt/medias/user-1/media-1/out.mp4"))

		_, statErr := os.Stat(filepath.Join(root, "medias", "user-1", "media-1", "out.mp4"))
		Expect(statErr).NotTo(HaveOccurred())
	})

	It("probes the size of a registered media directory", func() {
		uri, err := store.Rename(context.Background(), staging, "user-1", "media-1", "out.mp4")
		Expect(err).NotTo(HaveOccurred())

		size, err := store.ProbeSize(context.Background(), uri)
		Expect(err).NotTo(HaveOccurred())
		Expect(size).To(BeNumerically(">", 0))
	})

	It("deletes the containing directory recursively", func() {
		uri, _ := store.Rename(context.Background(), staging, "user-1", "media-1", "out.mp4")
		Expect(store.DeleteTree(context.Background(), uri)).To(Succeed())

		_, statErr := os.Stat(filepath.Join(root, "medias", "user-1", "media-1"))
		Expect(os.IsNotExist(statErr)).To(BeTrue())
	})

	It("treats deleting an already-absent path as a no-op", func() {
		uri := "glusterfs://storage.local/mnt/medias/nobody/nothing/x.mp4"
		Expect(store.DeleteTree(context.Background(), uri)).To(Succeed())
	})

	It("rejects a uri that does not belong to this mount", func() {
		_, err := store.ProbeSize(context.Background(), "glusterfs://other.host/mnt/medias/u/m/f.mp4")
		Expect(err).To(HaveOccurred())
	})
})
