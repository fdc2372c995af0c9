package blobstore

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/oscied/orchestrator/cmn"
)

// S3Store backs BlobStore with Amazon S3, reusing the aws-sdk-go dependency
// the teacher already carries (originally wired for its own S3-compatible
// backend provider, ais/backend, under a different domain).
type S3Store struct {
	client *s3.S3
	bucket string
}

func NewS3Store(bucket, region string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to create s3 session")
	}
	return &S3Store{client: s3.New(sess), bucket: bucket}, nil
}

func (s *S3Store) key(userID, mediaID, filename string) string {
	return CanonicalPath(userID, mediaID, filename)
}

func (s *S3Store) uri(key string) string { return "s3://" + s.bucket + "/" + key }

func (s *S3Store) keyFromURI(uri string) (string, error) {
	prefix := "s3://" + s.bucket + "/"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", cmn.NewInvalidRequest("uri does not belong to bucket " + s.bucket)
	}
	return uri[len(prefix):], nil
}

// Rename copies the staged object onto its canonical key and deletes the
// staging object; S3 has no native rename. Retries are left to the SDK's
// own request retryer.
func (s *S3Store) Rename(ctx context.Context, stagingKey, userID, mediaID, filename string) (string, error) {
	dest := s.key(userID, mediaID, filename)
	copySource := s.bucket + "/" + stagingKey
	_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(copySource),
		Key:        aws.String(dest),
	})
	if err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "unable to register media in s3")
	}
	if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(stagingKey),
	}); err != nil {
		return "", cmn.Wrap(err, cmn.KindTransient, "failed to clean up staged object")
	}
	return s.uri(dest), nil
}

func (s *S3Store) ProbeSize(ctx context.Context, uri string) (int64, error) {
	key, err := s.keyFromURI(uri)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return 0, cmn.NewMissingEntityRef("media object", uri)
	}
	return aws.Int64Value(out.ContentLength), nil
}

// ProbeDuration needs a local mount to run ffprobe against; object storage
// has none, so this policy is intentionally unimplemented here (spec §7:
// NotImplementedPolicy -> 501).
func (s *S3Store) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return 0, cmn.NewNotImplemented("duration probing is not supported on the s3 backend")
}

func (s *S3Store) DeleteTree(ctx context.Context, uri string) error {
	prefix, err := s.keyFromURI(uri)
	if err != nil {
		return err
	}
	dir := prefix[:len(prefix)-len(lastSegment(prefix))]
	var listErr error
	err = s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(dir),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			if _, derr := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: obj.Key}); derr != nil {
				listErr = derr
				return false
			}
		}
		return true
	})
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to list media objects for deletion")
	}
	if listErr != nil {
		return cmn.Wrap(listErr, cmn.KindInternal, "failed to delete media objects")
	}
	return nil
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
