package blobstore

import (
	"context"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/oscied/orchestrator/cmn"
)

// GCSStore backs BlobStore with Google Cloud Storage, via the teacher's own
// cloud.google.com/go/storage dependency (originally wired for ais/backend's
// GCP object-storage provider).
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to create gcs client")
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (g *GCSStore) uri(key string) string { return "gs://" + g.bucket + "/" + key }

func (g *GCSStore) keyFromURI(uri string) (string, error) {
	prefix := "gs://" + g.bucket + "/"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", cmn.NewInvalidRequest("uri does not belong to bucket " + g.bucket)
	}
	return uri[len(prefix):], nil
}

func (g *GCSStore) Rename(ctx context.Context, stagingKey, userID, mediaID, filename string) (string, error) {
	dest := CanonicalPath(userID, mediaID, filename)
	bucket := g.client.Bucket(g.bucket)
	src := bucket.Object(stagingKey)
	dst := bucket.Object(dest)
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "unable to register media in gcs")
	}
	if err := src.Delete(ctx); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "failed to clean up staged object")
	}
	return g.uri(dest), nil
}

func (g *GCSStore) ProbeSize(ctx context.Context, uri string) (int64, error) {
	key, err := g.keyFromURI(uri)
	if err != nil {
		return 0, err
	}
	attrs, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return 0, cmn.NewMissingEntityRef("media object", uri)
	}
	if err != nil {
		return 0, cmn.Wrap(err, cmn.KindInternal, "failed to probe media size")
	}
	return attrs.Size, nil
}

func (g *GCSStore) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return 0, cmn.NewNotImplemented("duration probing is not supported on the gcs backend")
}

func (g *GCSStore) DeleteTree(ctx context.Context, uri string) error {
	prefix, err := g.keyFromURI(uri)
	if err != nil {
		return err
	}
	dir := prefix[:len(prefix)-len(lastSegment(prefix))]
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: dir})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return cmn.Wrap(err, cmn.KindInternal, "failed to list media objects for deletion")
		}
		if err := g.client.Bucket(g.bucket).Object(attrs.Name).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			return cmn.Wrap(err, cmn.KindInternal, "failed to delete media object")
		}
	}
	return nil
}
