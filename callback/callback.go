// Package callback applies worker-originated state transitions to tasks and
// their associated media, with idempotence on duplicate/late callbacks (spec
// §4.4, component C4).
//
// Grounded on the teacher's xaction state-machine guards (xaction/xrun:
// PreRenewHook only accepts a phase transition if the previous entry's own
// phase/target make it legal, otherwise it errors without mutating state) —
// generalized here to task-status guards instead of bucket-rename phases.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package callback

import (
	"context"
	"fmt"
	"strings"

	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/dispatch"
	"github.com/oscied/orchestrator/notify"
	"github.com/oscied/orchestrator/store"
)

// Handler applies callback-driven transitions against the store. Notify may
// be left nil (spec §6: email is opt-in and defaults to disabled).
type Handler struct {
	Store  store.Store
	Blobs  blobstore.BlobStore
	Notify *notify.Notifier
}

func New(s store.Store, b blobstore.BlobStore, n *notify.Notifier) *Handler {
	return &Handler{Store: s, Blobs: b, Notify: n}
}

// errorStatus reports whether a worker-supplied status string signals
// failure; the original worker pool encodes this as "ERROR\n<details>".
func errorStatus(status string) (bool, string) {
	if strings.HasPrefix(status, "ERROR") {
		details := strings.TrimPrefix(status, "ERROR")
		return true, strings.TrimSpace(strings.TrimPrefix(details, "\n"))
	}
	return false, ""
}

// TransformCallback is POST /transform/callback's body. Percent is an
// optional enrichment over spec §4.4's bare {task_id, status}: when a
// worker reports it, elapsed_time/eta_time are recomputed the way the
// original worker pool does on every progress update (dispatch.ComputeETA).
type TransformCallback struct {
	TaskID  string
	Status  string // "PROGRESS" | "SUCCESS" | "ERROR\n<details>"
	Percent *float64
}

// HandleTransform applies a transform worker callback. Late/duplicate
// callbacks on a terminal task are acknowledged with a nil error and no
// state change, per spec §4.4; an unknown task id yields a MissingEntity
// error, and a failed store update or output-media registration is
// returned to the caller.
func (h *Handler) HandleTransform(ctx context.Context, cb TransformCallback) error {
	task, err := h.Store.FindTransformTaskByID(ctx, cb.TaskID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load task")
	}
	if task == nil {
		return cmn.NewMissingEntityRef("task", cb.TaskID)
	}

	isErr, details := errorStatus(cb.Status)

	if task.Status.Terminal() {
		// Spec §4.4: "appending error_details if the incoming status is an
		// error string and the stored task is not yet terminal" — since we
		// are already terminal here, this callback changes nothing, but an
		// error report is still recorded so it isn't silently dropped.
		if isErr && task.Statistic["error_details"] == nil {
			task.Statistic["error_details"] = details
			return h.Store.UpdateTransformTask(ctx, task)
		}
		return nil
	}

	switch {
	case isErr:
		task.Status = store.TaskFailure
		task.Statistic["error_details"] = details
		if err := h.Store.UpdateTransformTask(ctx, task); err != nil {
			return err
		}
		if err := h.failTransformMedia(ctx, task); err != nil {
			return err
		}
		h.notifyTransform(task, details)
		return nil
	case cb.Status == "SUCCESS":
		task.Status = store.TaskSuccess
		if err := h.Store.UpdateTransformTask(ctx, task); err != nil {
			return err
		}
		if err := h.finishTransformMedia(ctx, task); err != nil {
			return err
		}
		h.notifyTransform(task, "")
		return nil
	default: // PROGRESS or any other non-terminal signal
		startedNow := task.Status == store.TaskPending
		if startedNow {
			task.Status = store.TaskProgress
			task.Statistic.SetTime("start_date", cmn.Now())
		}
		if cb.Percent != nil {
			task.Statistic["percent"] = *cb.Percent
			if start, err := cmn.ParseTime(fmt.Sprint(task.Statistic["start_date"])); err == nil && !start.IsZero() {
				elapsed := cmn.Now().Sub(start)
				task.Statistic["elapsed_time"] = elapsed.Seconds()
				task.Statistic["eta_time"] = dispatch.ComputeETA(elapsed, *cb.Percent).Seconds()
			}
		}
		return h.Store.UpdateTransformTask(ctx, task)
	}
}

// notifyTransform emails the task's owner on terminal success/failure, when
// both the task requested it (send_email) and SMTP is configured
// (h.Notify.Enabled()). Lookup/delivery failures are swallowed: a
// notification is best-effort and must never fail the callback itself.
func (h *Handler) notifyTransform(task *store.TransformTask, errDetails string) {
	if h.Notify == nil || !h.Notify.Enabled() || !task.SendEmail {
		return
	}
	user, err := h.Store.FindUserByID(context.Background(), task.UserID)
	if err != nil || user == nil {
		return
	}
	_ = h.Notify.Send(user.Mail, notify.TaskOutcome{
		Kind: "transform", TaskID: task.ID, Status: string(task.Status), Detail: errDetails,
	})
}

// finishTransformMedia registers the worker's output: media.URI still holds
// the staging path handed to the worker at launch (dispatch.LaunchTransform),
// so Rename is what turns it into the canonical, externally addressable uri
// before anything is probed against it.
func (h *Handler) finishTransformMedia(ctx context.Context, task *store.TransformTask) error {
	media, err := h.Store.FindMediaByID(ctx, task.MediaOutID)
	if err != nil || media == nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load output media")
	}
	media.Status = store.MediaReady
	if h.Blobs != nil {
		uri, err := h.Blobs.Rename(ctx, media.URI, media.UserID, media.ID, media.Filename)
		if err != nil {
			return cmn.Wrap(err, cmn.KindTransient, "failed to register output media")
		}
		media.URI = uri
		if size, err := h.Blobs.ProbeSize(ctx, media.URI); err == nil {
			media.Metadata["size"] = size
		}
		if dur, err := h.Blobs.ProbeDuration(ctx, media.URI); err == nil {
			media.Metadata["duration"] = dur
		}
	}
	return h.Store.UpdateMedia(ctx, media)
}

func (h *Handler) failTransformMedia(ctx context.Context, task *store.TransformTask) error {
	media, err := h.Store.FindMediaByID(ctx, task.MediaOutID)
	if err != nil || media == nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load output media")
	}
	media.Status = store.MediaDeleted
	media.PublicURIs = map[string]string{}
	if h.Blobs != nil {
		_ = h.Blobs.DeleteTree(ctx, media.URI)
	}
	return h.Store.UpdateMedia(ctx, media)
}

// PublisherCallback is POST /publisher/callback's body.
type PublisherCallback struct {
	TaskID     string
	PublishURI string
	Status     string
}

func (h *Handler) HandlePublisher(ctx context.Context, cb PublisherCallback) error {
	task, err := h.Store.FindPublisherTaskByID(ctx, cb.TaskID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load task")
	}
	if task == nil {
		return cmn.NewMissingEntityRef("task", cb.TaskID)
	}

	isErr, details := errorStatus(cb.Status)

	if task.Status.Terminal() {
		if isErr && task.Statistic["error_details"] == nil {
			task.Statistic["error_details"] = details
			return h.Store.UpdatePublisherTask(ctx, task)
		}
		return nil
	}

	switch {
	case isErr:
		task.Status = store.TaskFailure
		task.Statistic["error_details"] = details
		if err := h.Store.UpdatePublisherTask(ctx, task); err != nil {
			return err
		}
		h.notifyPublisher(task, details)
		return nil
	case cb.Status == "SUCCESS":
		if err := h.finishPublisher(ctx, task, cb.PublishURI); err != nil {
			return err
		}
		h.notifyPublisher(task, "")
		return nil
	default:
		if task.Status == store.TaskPending {
			task.Status = store.TaskProgress
		}
		task.Statistic.SetTime("start_date", cmn.Now())
		return h.Store.UpdatePublisherTask(ctx, task)
	}
}

// notifyPublisher is the PublisherTask analogue of notifyTransform.
func (h *Handler) notifyPublisher(task *store.PublisherTask, errDetails string) {
	if h.Notify == nil || !h.Notify.Enabled() || !task.SendEmail {
		return
	}
	user, err := h.Store.FindUserByID(context.Background(), task.UserID)
	if err != nil || user == nil {
		return
	}
	_ = h.Notify.Send(user.Mail, notify.TaskOutcome{
		Kind: "publisher", TaskID: task.ID, Status: string(task.Status), Detail: errDetails,
	})
}

// finishPublisher rechecks, just before writing public_uris, that no other
// publisher task in SUCCESS or REVOKING has already claimed the media — the
// §9(iii) recheck the source's launch-time-only guard misses. The recheck
// and the media/task writes are separate store calls, not one transaction.
func (h *Handler) finishPublisher(ctx context.Context, task *store.PublisherTask, publishURI string) error {
	media, err := h.Store.FindMediaByID(ctx, task.MediaID)
	if err != nil || media == nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load media")
	}
	others, err := h.Store.FindPublisherTasks(ctx, store.Spec{Filter: map[string]interface{}{"media_id": task.MediaID}})
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to list publisher tasks")
	}
	for _, other := range others {
		if other.ID != task.ID && (other.Status == store.TaskSuccess || other.Status == store.TaskRevoking) {
			task.Status = store.TaskFailure
			task.Statistic["error_details"] = "media already published by another task"
			return h.Store.UpdatePublisherTask(ctx, task)
		}
	}
	task.Status = store.TaskSuccess
	task.PublishURI = publishURI
	if media.PublicURIs == nil {
		media.PublicURIs = map[string]string{}
	}
	media.PublicURIs[task.ID] = publishURI
	if err := h.Store.UpdateMedia(ctx, media); err != nil {
		return err
	}
	return h.Store.UpdatePublisherTask(ctx, task)
}

// RevokeCallback is POST /publisher/revoke/callback's body.
type RevokeCallback struct {
	TaskID string
	Status string
}

// HandleRevoke completes the SUCCESS -> REVOKING -> REVOKED side channel.
func (h *Handler) HandleRevoke(ctx context.Context, cb RevokeCallback) error {
	task, err := h.Store.FindPublisherTaskByID(ctx, cb.TaskID)
	if err != nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load task")
	}
	if task == nil {
		return cmn.NewMissingEntityRef("task", cb.TaskID)
	}
	if task.Status == store.TaskRevoked {
		return nil
	}
	if task.Status != store.TaskRevoking {
		return nil // nothing to do: never entered REVOKING, or already moved on
	}
	isErr, details := errorStatus(cb.Status)
	if isErr {
		task.Statistic["error_details"] = details
		return h.Store.UpdatePublisherTask(ctx, task)
	}
	media, err := h.Store.FindMediaByID(ctx, task.MediaID)
	if err != nil || media == nil {
		return cmn.Wrap(err, cmn.KindInternal, "failed to load media")
	}
	// A missing key is not an error (spec §4.4).
	delete(media.PublicURIs, task.ID)
	if err := h.Store.UpdateMedia(ctx, media); err != nil {
		return err
	}
	task.Status = store.TaskRevoked
	return h.Store.UpdatePublisherTask(ctx, task)
}
