package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/callback"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/dispatch"
)

func (s *Server) registerPublisherRoutes() {
	s.mux.HandleFunc(cmn.URLPathPublisherTaskCount.S, s.handlePublisherTaskCount)
	s.mux.HandleFunc(cmn.URLPathPublisherTask.S, s.handlePublisherTaskCollection)
	s.mux.HandleFunc(cmn.URLPathPublisherTaskID.S+"/", s.handlePublisherTaskByID)
	s.mux.HandleFunc(cmn.URLPathPublisherCallback.S, s.handlePublisherCallback)
	s.mux.HandleFunc(cmn.URLPathPublisherRevokeCallback.S, s.handlePublisherRevokeCallback)
}

func (s *Server) handlePublisherTaskCount(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := s.Store.CountPublisherTasks(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handlePublisherTaskCollection(w http.ResponseWriter, r *http.Request) {
	p, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowNode(), authn.AllowAny())
	if err != nil {
		writeErr(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		spec, err := parseSpec(r)
		if err != nil {
			writeErr(w, err)
			return
		}
		tasks, err := s.Store.FindPublisherTasks(r.Context(), spec)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		s.createPublisherTask(w, r, p)
	default:
		methodNotAllowed(w)
	}
}

type createPublisherTaskBody struct {
	UserID      string `json:"user_id"`
	MediaID     string `json:"media_id"`
	SendEmail   bool   `json:"send_email"`
	Queue       string `json:"queue"`
	CallbackURL string `json:"callback_url"`
}

func (s *Server) createPublisherTask(w http.ResponseWriter, r *http.Request, p authn.Principal) {
	var body createPublisherTaskBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if p.IsUser() {
		if body.UserID == "" {
			body.UserID = p.User.ID
		} else if body.UserID != p.User.ID {
			writeErr(w, cmn.NewAuthRefused("cannot launch a task on behalf of another user"))
			return
		}
	}
	if body.Queue == "" {
		writeErr(w, cmn.NewInvalidRequest("queue is required"))
		return
	}
	task, err := s.Dispatch.LaunchPublisher(r.Context(), dispatch.PublisherInput{
		UserID: body.UserID, MediaID: body.MediaID, SendEmail: body.SendEmail,
		Queue: body.Queue, CallbackURL: body.CallbackURL,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, task)
}

func (s *Server) handlePublisherTaskByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, cmn.URLPathPublisherTaskID.S)
	if id == "" {
		writeErr(w, cmn.NewMissingEntityRef("task", ""))
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeErr(w, cmn.NewMalformedID("malformed task id"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.getPublisherTask(w, r, id)
	case http.MethodDelete:
		s.revokePublisherTask(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) getPublisherTask(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowNode(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	task, err := s.Store.FindPublisherTaskByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if task == nil {
		writeErr(w, cmn.NewMissingEntityRef("task", id))
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, task)
}

func (s *Server) revokePublisherTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.Store.FindPublisherTaskByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if task == nil {
		writeErr(w, cmn.NewMissingEntityRef("task", id))
		return
	}
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform"), authn.SelfID(task.UserID)); err != nil {
		writeErr(w, err)
		return
	}
	opts := dispatch.RevokeOptions{
		Terminate:   r.URL.Query().Get("terminate") == "true",
		DeleteMedia: r.URL.Query().Get("delete_media") == "true",
	}
	if err := s.Dispatch.RevokePublisher(r.Context(), id, opts); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "revoked")
}

type publisherCallbackBody struct {
	TaskID     string `json:"task_id"`
	PublishURI string `json:"publish_uri"`
	Status     string `json:"status"`
}

func (s *Server) handlePublisherCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowNode()); err != nil {
		writeErr(w, err)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body publisherCallbackBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.TaskID == "" {
		writeErr(w, cmn.NewInvalidRequest("task_id is required"))
		return
	}
	if err := s.Callback.HandlePublisher(r.Context(), callback.PublisherCallback{
		TaskID: body.TaskID, PublishURI: body.PublishURI, Status: body.Status,
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "ack")
}

type revokeCallbackBody struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (s *Server) handlePublisherRevokeCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowNode()); err != nil {
		writeErr(w, err)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body revokeCallbackBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.TaskID == "" {
		writeErr(w, cmn.NewInvalidRequest("task_id is required"))
		return
	}
	if err := s.Callback.HandleRevoke(r.Context(), callback.RevokeCallback{
		TaskID: body.TaskID, Status: body.Status,
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "ack")
}
