package blobstore

import (
	"context"
	"net/url"

	"github.com/oscied/orchestrator/cmn"
)

// Open selects a BlobStore backend from a storage URI the way store.Open
// does for StoreConf.MongoAdminConnection: the scheme names the backend,
// an empty URI selects the in-process mock. Recognized schemes:
//
//	posix://<root-path>?address=<storage_address>&mount=<mountpoint>
//	s3://<bucket>?region=<region>
//	gs://<bucket>
//	azure://<container>?account=<account>&key=<account-key>
func Open(ctx context.Context, storageURI string) (BlobStore, error) {
	if storageURI == "" {
		return NewMockStore(), nil
	}
	u, err := url.Parse(storageURI)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to parse storage_uri")
	}
	switch u.Scheme {
	case "posix", "glusterfs":
		q := u.Query()
		return NewPOSIXStore(u.Path, q.Get("address"), q.Get("mount")), nil
	case "s3":
		return NewS3Store(u.Host, u.Query().Get("region"))
	case "gs":
		return NewGCSStore(ctx, u.Host)
	case "azure":
		q := u.Query()
		return NewAzureStore(q.Get("account"), q.Get("key"), u.Host)
	default:
		return nil, cmn.NewInvalidRequest("unsupported storage_uri scheme: " + u.Scheme)
	}
}
