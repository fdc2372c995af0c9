// Package dispatch implements the task dispatcher (spec §4.3, component C3):
// launching transform and publisher tasks onto the worker queue, and
// revoking them, while keeping the store's Media/Task documents consistent.
//
// Grounded on the teacher's xaction/xrun package (xaction providers guard
// their own start/rename transitions against a previous entry's phase before
// committing a new one) for the "validate, then commit, then enqueue" launch
// shape, generalized here to the media-transform domain.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package dispatch

import (
	"context"

	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/queue"
	"github.com/oscied/orchestrator/store"
)

// Dispatcher composes the store and the job queue to launch and revoke
// transform and publisher tasks. It holds no task-local state of its own;
// every invariant is enforced against the store at call time.
type Dispatcher struct {
	Store store.Store
	Queue queue.JobQueue
	Blobs blobstore.BlobStore
}

func New(s store.Store, q queue.JobQueue, b blobstore.BlobStore) *Dispatcher {
	return &Dispatcher{Store: s, Queue: q, Blobs: b}
}

// TransformInput is the launch request body for POST /transform/task.
type TransformInput struct {
	UserID      string
	MediaInID   string
	ProfileID   string
	Filename    string
	Metadata    map[string]interface{}
	SendEmail   bool
	Queue       string
	CallbackURL string
}

// LaunchTransform implements spec §4.3's six-step transform launch.
func (d *Dispatcher) LaunchTransform(ctx context.Context, in TransformInput) (*store.TransformTask, *store.Media, error) {
	user, err := d.Store.FindUserByID(ctx, in.UserID)
	if err != nil {
		return nil, nil, cmn.Wrap(err, cmn.KindInternal, "failed to load user")
	}
	if user == nil {
		return nil, nil, cmn.NewMissingEntityRef("user", in.UserID)
	}
	mediaIn, err := d.Store.FindMediaByID(ctx, in.MediaInID)
	if err != nil {
		return nil, nil, cmn.Wrap(err, cmn.KindInternal, "failed to load input media")
	}
	if mediaIn == nil {
		return nil, nil, cmn.NewMissingEntityRef("media", in.MediaInID)
	}
	profile, err := d.Store.FindProfileByID(ctx, in.ProfileID)
	if err != nil {
		return nil, nil, cmn.Wrap(err, cmn.KindInternal, "failed to load profile")
	}
	if profile == nil {
		return nil, nil, cmn.NewMissingEntityRef("profile", in.ProfileID)
	}
	queues, err := d.Queue.Queues(ctx)
	if err != nil {
		return nil, nil, cmn.Wrap(err, cmn.KindTransient, "failed to list queues")
	}
	if !contains(queues, in.Queue) {
		return nil, nil, cmn.NewMissingEntityRef("queue", in.Queue)
	}

	if mediaIn.Status == store.MediaDeleted {
		return nil, nil, cmn.NewInvalidRequest("input media is deleted")
	}
	if in.Metadata == nil || in.Metadata["title"] == nil || in.Metadata["title"] == "" {
		return nil, nil, cmn.NewInvalidRequest("metadata.title is required")
	}

	mediaOut := &store.Media{
		UserID:   in.UserID,
		ParentID: in.MediaInID,
		Filename: in.Filename,
		Metadata: in.Metadata,
		Status:   store.MediaPending,
	}
	mediaOut.Metadata["add_date"] = cmn.FormatTime(cmn.Now())

	// The output media's final uri is only assigned by BlobStore.Rename once
	// the worker has actually written it (spec §4.7's registration step), so
	// until then mediaOut.URI holds the staging path the worker is told to
	// write to: the media is inserted first (minting its id), its own id is
	// used to compute that staging path, then it is updated in place. A URI
	// conflict on insert would mean a prior media already occupies that
	// slot, which cannot happen since ids are fresh UUIDs — but a conflict
	// on the subsequent update still aborts without enqueuing (step 4).
	if err := d.Store.InsertMedia(ctx, mediaOut); err != nil {
		return nil, nil, err
	}
	stagingPath := blobstore.StagingPath(mediaOut.ID, in.Filename)
	mediaOut.URI = stagingPath
	if err := d.Store.UpdateMedia(ctx, mediaOut); err != nil {
		_ = d.Store.DeleteMedia(ctx, mediaOut.ID)
		return nil, nil, err
	}

	payload := map[string]interface{}{
		"media_in":     mediaIn,
		"media_out":    mediaOut,
		"staging_path": stagingPath,
		"profile":      profile,
		"callback_url": in.CallbackURL,
	}
	taskID, err := d.Queue.Submit(ctx, queue.Job{Queue: in.Queue, CallbackURL: in.CallbackURL, Payload: payload})
	if err != nil {
		// The PENDING media is left for janitor cleanup, per spec §4.3 step 5.
		return nil, nil, err
	}

	task := &store.TransformTask{
		ID:         taskID,
		UserID:     in.UserID,
		MediaInID:  in.MediaInID,
		MediaOutID: mediaOut.ID,
		ProfileID:  in.ProfileID,
		SendEmail:  in.SendEmail,
		Status:     store.TaskPending,
		Statistic:  store.TaskStatistic{},
	}
	task.Statistic.SetTime("add_date", cmn.Now())
	if err := d.Store.InsertTransformTask(ctx, task); err != nil {
		return nil, nil, err
	}
	return task, mediaOut, nil
}

// PublisherInput is the launch request body for POST /publisher/task.
type PublisherInput struct {
	UserID      string
	MediaID     string
	SendEmail   bool
	Queue       string
	CallbackURL string
}

// LaunchPublisher implements the publisher analogue of LaunchTransform.
func (d *Dispatcher) LaunchPublisher(ctx context.Context, in PublisherInput) (*store.PublisherTask, error) {
	user, err := d.Store.FindUserByID(ctx, in.UserID)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to load user")
	}
	if user == nil {
		return nil, cmn.NewMissingEntityRef("user", in.UserID)
	}
	media, err := d.Store.FindMediaByID(ctx, in.MediaID)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to load media")
	}
	if media == nil {
		return nil, cmn.NewMissingEntityRef("media", in.MediaID)
	}
	if media.Status != store.MediaReady {
		return nil, cmn.NewInvalidRequest("media is not ready for publication")
	}
	if len(media.PublicURIs) > 0 {
		return nil, cmn.NewInvalidRequest("media is already published")
	}
	queues, err := d.Queue.Queues(ctx)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindTransient, "failed to list queues")
	}
	if !contains(queues, in.Queue) {
		return nil, cmn.NewMissingEntityRef("queue", in.Queue)
	}

	existing, err := d.Store.FindPublisherTasks(ctx, store.Spec{Filter: map[string]interface{}{"media_id": in.MediaID}})
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to list publisher tasks")
	}
	for _, t := range existing {
		if !t.Status.Terminal() {
			return nil, cmn.NewInvalidRequest("media already has a non-terminal publisher task")
		}
	}

	taskID, err := d.Queue.Submit(ctx, queue.Job{
		Queue:       in.Queue,
		CallbackURL: in.CallbackURL,
		Payload: map[string]interface{}{
			"media":        media,
			"callback_url": in.CallbackURL,
		},
	})
	if err != nil {
		return nil, err
	}

	task := &store.PublisherTask{
		ID:        taskID,
		UserID:    in.UserID,
		MediaID:   in.MediaID,
		SendEmail: in.SendEmail,
		Status:    store.TaskPending,
		Statistic: store.TaskStatistic{},
	}
	task.Statistic.SetTime("add_date", cmn.Now())
	if err := d.Store.InsertPublisherTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// RevokeOptions controls the side effects of a revoke request (spec §4.3:
// "(a) flips revoked=true, (b) if terminate=true, sends a best-effort
// cancellation to the worker, (c) if delete_media=true, deletes the output
// media").
type RevokeOptions struct {
	Terminate   bool
	DeleteMedia bool
}

// RevokeTransform revokes a TransformTask. Idempotence: revoking an
// already-revoked or otherwise terminal task fails with InvalidRequest;
// revoking a non-terminal task always succeeds.
func (d *Dispatcher) RevokeTransform(ctx context.Context, taskID string, opts RevokeOptions) error {
	task, err := d.Store.FindTransformTaskByID(ctx, taskID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load task")
	}
	if task == nil {
		return cmn.NewMissingEntityRef("task", taskID)
	}
	if task.Status.Terminal() {
		return cmn.NewInvalidRequest("cannot revoke a task that has already reached a terminal state")
	}
	task.Revoked = true
	task.Status = store.TaskRevoked
	if opts.Terminate {
		// Best-effort: the worker may have already finished, in which
		// case this call simply has no effect on the other side.
		_ = d.Queue.Revoke(ctx, taskID, true)
	}
	if err := d.Store.UpdateTransformTask(ctx, task); err != nil {
		return err
	}
	if opts.DeleteMedia {
		return d.deleteOutputMedia(ctx, task.MediaOutID)
	}
	return nil
}

func (d *Dispatcher) deleteOutputMedia(ctx context.Context, mediaID string) error {
	media, err := d.Store.FindMediaByID(ctx, mediaID)
	if err != nil || media == nil {
		return err
	}
	media.Status = store.MediaDeleted
	media.PublicURIs = map[string]string{}
	if d.Blobs != nil {
		_ = d.Blobs.DeleteTree(ctx, media.URI)
	}
	return d.Store.UpdateMedia(ctx, media)
}

// RevokePublisher revokes a PublisherTask. A non-terminal task (PENDING or
// PROGRESS) moves straight to REVOKED, symmetrically to TransformTask (spec
// §9 Open Question ii). A task already in SUCCESS enters REVOKING and a
// worker-side unpublish job is submitted; its completion is handled by
// callback.Handler.HandleRevoke. Any other terminal state rejects the
// request.
func (d *Dispatcher) RevokePublisher(ctx context.Context, taskID string, opts RevokeOptions) error {
	task, err := d.Store.FindPublisherTaskByID(ctx, taskID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load task")
	}
	if task == nil {
		return cmn.NewMissingEntityRef("task", taskID)
	}

	switch task.Status {
	case store.TaskPending, store.TaskProgress:
		if opts.Terminate {
			_ = d.Queue.Revoke(ctx, taskID, true)
		}
		task.Status = store.TaskRevoked
		return d.Store.UpdatePublisherTask(ctx, task)
	case store.TaskSuccess:
		media, err := d.Store.FindMediaByID(ctx, task.MediaID)
		if err != nil {
			return cmn.Wrap(err, cmn.KindInternal, "failed to load media")
		}
		unpublishQueue := task.ID // spec §4.3: "queue = worker's hostname"; the
		// worker that holds the published copy is addressed by the task id
		// it was originally dispatched under.
		revokeTaskID, err := d.Queue.Submit(ctx, queue.Job{
			Queue: unpublishQueue,
			Payload: map[string]interface{}{
				"task_id": task.ID,
				"media":   media,
				"action":  "unpublish",
			},
		})
		if err != nil {
			return err
		}
		task.Status = store.TaskRevoking
		task.RevokeTaskID = revokeTaskID
		return d.Store.UpdatePublisherTask(ctx, task)
	default:
		return cmn.NewInvalidRequest("cannot revoke a task in its current state")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// DeleteProfile removes a TransformProfile, blocking the deletion if any
// non-terminal TransformTask still references it (spec §9 Open Question i:
// the source allows this unconditionally; this implementation takes the
// spec's own "SHOULD block" recommendation).
func (d *Dispatcher) DeleteProfile(ctx context.Context, profileID string) error {
	profile, err := d.Store.FindProfileByID(ctx, profileID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load profile")
	}
	if profile == nil {
		return cmn.NewMissingEntityRef("profile", profileID)
	}
	tasks, err := d.Store.FindTransformTasks(ctx, store.Spec{Filter: map[string]interface{}{"profile_id": profileID}})
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to list tasks for profile")
	}
	for _, t := range tasks {
		if !t.Status.Terminal() {
			return cmn.NewInvalidRequest("profile is referenced by a non-terminal task")
		}
	}
	return d.Store.DeleteProfile(ctx, profileID)
}
