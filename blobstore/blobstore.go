// Package blobstore maps a media asset to a location on shared storage and
// provides the rename/probe/delete operations the dispatcher and callback
// handler need to maintain that mapping (spec §4.7, §9's "BlobStore
// interface").
package blobstore

import (
	"context"
	"fmt"
)

// BlobStore is the contract every shared-storage backend satisfies.
type BlobStore interface {
	// Rename moves the object at stagingPath to the canonical path for
	// (userID, mediaID, filename) and returns the externally addressable
	// URI for it. Implementations retry transient failures internally
	// (spec §4.7: "retry up to 5 times at 1s spacing").
	Rename(ctx context.Context, stagingPath, userID, mediaID, filename string) (uri string, err error)

	// ProbeSize returns the size in bytes of the object at uri.
	ProbeSize(ctx context.Context, uri string) (int64, error)

	// ProbeDuration returns the media duration in seconds of the object at
	// uri, via an external tool (ffprobe). Implementations that cannot
	// support this (e.g. a generic object-store backend without a local
	// mount) return cmn.NewNotImplemented.
	ProbeDuration(ctx context.Context, uri string) (float64, error)

	// DeleteTree removes the directory containing uri and everything
	// under it, recursively. Deleting an already-absent path is not an
	// error.
	DeleteTree(ctx context.Context, uri string) error
}

// CanonicalPath implements the addressing policy of spec §4.7:
// <shared_root>/medias/<user>/<media>/<filename>.
func CanonicalPath(userID, mediaID, filename string) string {
	return fmt.Sprintf("medias/%s/%s/%s", userID, mediaID, filename)
}

// StagingPath is the location a producer (an upload handler, a transform
// worker) writes to before the result is registered with Rename. It is
// keyed on mediaID alone: a transform's output media id is minted before
// the worker ever runs, so the worker is handed this path as its write
// target up front, and Rename moves whatever lands there onto
// CanonicalPath once the producer reports success.
func StagingPath(mediaID, filename string) string {
	return fmt.Sprintf("staging/%s/%s", mediaID, filename)
}
