package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/callback"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/dispatch"
)

func (s *Server) registerTransformRoutes() {
	s.mux.HandleFunc(cmn.URLPathTransformQueue.S, s.handleTransformQueue)
	s.mux.HandleFunc(cmn.URLPathTransformTaskCount.S, s.handleTransformTaskCount)
	s.mux.HandleFunc(cmn.URLPathTransformTask.S, s.handleTransformTaskCollection)
	s.mux.HandleFunc(cmn.URLPathTransformTaskID.S+"/", s.handleTransformTaskByID)
	s.mux.HandleFunc(cmn.URLPathTransformCallback.S, s.handleTransformCallback)
	s.registerUnitRoutes()
}

func (s *Server) handleTransformQueue(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	queues, err := s.Queue.Queues(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, queues)
}

func (s *Server) handleTransformTaskCount(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := s.Store.CountTransformTasks(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handleTransformTaskCollection(w http.ResponseWriter, r *http.Request) {
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
		tasks, err := s.Store.FindTransformTasks(r.Context(), spec)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		s.createTransformTask(w, r, p)
	default:
		methodNotAllowed(w)
	}
}

type createTransformTaskBody struct {
	UserID      string         `json:"user_id"`
	MediaInID   string         `json:"media_in_id"`
	ProfileID   string         `json:"profile_id"`
	Filename    string         `json:"filename"`
	Metadata    map[string]any `json:"metadata"`
	SendEmail   bool           `json:"send_email"`
	Queue       string         `json:"queue"`
	CallbackURL string         `json:"callback_url"`
}

func (s *Server) createTransformTask(w http.ResponseWriter, r *http.Request, p authn.Principal) {
	var body createTransformTaskBody
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
	task, media, err := s.Dispatch.LaunchTransform(r.Context(), dispatch.TransformInput{
		UserID: body.UserID, MediaInID: body.MediaInID, ProfileID: body.ProfileID,
		Filename: body.Filename, Metadata: body.Metadata, SendEmail: body.SendEmail,
		Queue: body.Queue, CallbackURL: body.CallbackURL,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, map[string]any{"task": task, "media_out": media})
}

func (s *Server) handleTransformTaskByID(w http.ResponseWriter, r *http.Request) {
	id := pathSuffix(r, cmn.URLPathTransformTaskID.S)
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
		s.getTransformTask(w, r, id)
	case http.MethodDelete:
		s.revokeTransformTask(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) getTransformTask(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowNode(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	task, err := s.Store.FindTransformTaskByID(r.Context(), id)
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

func (s *Server) revokeTransformTask(w http.ResponseWriter, r *http.Request, id string) {
	task, err := s.Store.FindTransformTaskByID(r.Context(), id)
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
	if err := s.Dispatch.RevokeTransform(r.Context(), id, opts); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "revoked")
}

type transformCallbackBody struct {
	TaskID  string   `json:"task_id"`
	Status  string   `json:"status"`
	Percent *float64 `json:"percent"`
}

func (s *Server) handleTransformCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowNode()); err != nil {
		writeErr(w, err)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body transformCallbackBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.TaskID == "" {
		writeErr(w, cmn.NewInvalidRequest("task_id is required"))
		return
	}
	if err := s.Callback.HandleTransform(r.Context(), callback.TransformCallback{
		TaskID: body.TaskID, Status: body.Status, Percent: body.Percent,
	}); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "ack")
}
