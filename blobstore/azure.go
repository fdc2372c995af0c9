package blobstore

import (
	"context"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/oscied/orchestrator/cmn"
)

// AzureStore backs BlobStore with Azure Blob Storage, via the teacher's own
// github.com/Azure/azure-storage-blob-go dependency.
type AzureStore struct {
	container     azblob.ContainerURL
	account       string
	containerName string
}

func NewAzureStore(account, accountKey, container string) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(account, accountKey)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to create azure credential")
	}
	pipeline := azblob.NewPipeline(cred, azblob.PipelineOptions{})
	u, _ := url.Parse("https://" + account + ".blob.core.windows.net/" + container)
	return &AzureStore{container: azblob.NewContainerURL(*u, pipeline), account: account, containerName: container}, nil
}

func (a *AzureStore) uri(key string) string {
	return "https://" + a.account + ".blob.core.windows.net/" + a.containerName + "/" + key
}

func (a *AzureStore) keyFromURI(uri string) (string, error) {
	prefix := a.uri("")
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", cmn.NewInvalidRequest("uri does not belong to container " + a.containerName)
	}
	return uri[len(prefix):], nil
}

// Rename starts a server-side copy onto the canonical blob name and deletes
// the staging blob. azblob copies are asynchronous; callers that need the
// copy to have completed before proceeding should poll CopyStatus, which the
// dispatcher does not require since it only needs the final URI to store.
func (a *AzureStore) Rename(ctx context.Context, stagingKey, userID, mediaID, filename string) (string, error) {
	dest := CanonicalPath(userID, mediaID, filename)
	src := a.container.NewBlobURL(stagingKey)
	dst := a.container.NewBlobURL(dest)
	if _, err := dst.StartCopyFromURL(ctx, src.URL(), nil, azblob.ModifiedAccessConditions{}, azblob.BlobAccessConditions{}, azblob.DefaultAccessTier, nil); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "unable to register media in azure storage")
	}
	if _, err := src.Delete(ctx, azblob.DeleteSnapshotsOptionNone, azblob.BlobAccessConditions{}); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "failed to clean up staged blob")
	}
	return a.uri(dest), nil
}

func (a *AzureStore) ProbeSize(ctx context.Context, uri string) (int64, error) {
	key, err := a.keyFromURI(uri)
	if err != nil {
		return 0, err
	}
	props, err := a.container.NewBlobURL(key).GetProperties(ctx, azblob.BlobAccessConditions{}, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return 0, cmn.NewMissingEntityRef("media blob", uri)
	}
	return props.ContentLength(), nil
}

func (a *AzureStore) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return 0, cmn.NewNotImplemented("duration probing is not supported on the azure backend")
}

func (a *AzureStore) DeleteTree(ctx context.Context, uri string) error {
	prefix, err := a.keyFromURI(uri)
	if err != nil {
		return err
	}
	dir := prefix[:len(prefix)-len(lastSegment(prefix))]
	marker := azblob.Marker{}
	for marker.NotDone() {
		list, err := a.container.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{Prefix: dir})
		if err != nil {
			return cmn.Wrap(err, cmn.KindInternal, "failed to list media blobs for deletion")
		}
		for _, item := range list.Segment.BlobItems {
			if _, err := a.container.NewBlobURL(item.Name).Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{}); err != nil {
				return cmn.Wrap(err, cmn.KindInternal, "failed to delete media blob")
			}
		}
		marker = list.NextMarker
	}
	return nil
}
