package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

func isUser(p authn.Principal) bool { return p.IsUser() }

func (s *Server) registerUserRoutes() {
	s.mux.HandleFunc(cmn.URLPathUserLogin.S, s.handleUserLogin)
	s.mux.HandleFunc(cmn.URLPathUserCount.S, s.handleUserCount)
	s.mux.HandleFunc(cmn.URLPathUser.S, s.handleUserCollection)
	s.mux.HandleFunc(cmn.URLPathUserID.S+"/", s.handleUserByID)
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	p, err := s.Auth.Authorize(r, authn.Predicate(isUser))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, toUserView(p.User))
}

func (s *Server) handleUserCount(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := s.Store.CountUsers(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handleUserCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listUsers(w, r)
	case http.MethodPost:
		s.createUser(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform")); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	users, err := s.Store.FindUsers(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, toUserViews(users))
}

type createUserBody struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Mail          string `json:"mail"`
	Secret        string `json:"secret"`
	AdminPlatform bool   `json:"admin_platform"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform")); err != nil {
		writeErr(w, err)
		return
	}
	var body createUserBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.Mail == "" || body.Secret == "" {
		writeErr(w, cmn.NewInvalidRequest("mail and secret are required"))
		return
	}
	hash, err := authn.HashSecret(body.Secret)
	if err != nil {
		writeErr(w, cmn.Wrap(err, cmn.KindInternal, "failed to hash secret"))
		return
	}
	u := &store.User{
		FirstName: body.FirstName, LastName: body.LastName, Mail: body.Mail,
		Secret: hash, AdminPlatform: body.AdminPlatform,
	}
	if err := s.Store.InsertUser(r.Context(), u); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	seg := splitSegments(pathSuffix(r, cmn.URLPathUserID.S))
	if len(seg) != 1 || seg[0] == "" {
		writeErr(w, cmn.NewMissingEntityRef("user", ""))
		return
	}
	id := seg[0]
	if _, err := uuid.Parse(id); err != nil {
		writeErr(w, cmn.NewMalformedID("malformed user id"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getUser(w, r, id)
	case http.MethodPatch, http.MethodPut:
		s.updateUser(w, r, id)
	case http.MethodDelete:
		s.deleteUser(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	u, err := s.Store.FindUserByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if u == nil {
		writeErr(w, cmn.NewMissingEntityRef("user", id))
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, toUserView(u))
}

type updateUserBody struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Mail          *string `json:"mail"`
	Secret        *string `json:"secret"`
	AdminPlatform *bool   `json:"admin_platform"`
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	p, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform"), authn.SelfID(id))
	if err != nil {
		writeErr(w, err)
		return
	}
	u, err := s.Store.FindUserByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if u == nil {
		writeErr(w, cmn.NewMissingEntityRef("user", id))
		return
	}
	var body updateUserBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.AdminPlatform != nil {
		if !p.IsRoot() && !p.User.AdminPlatform {
			writeErr(w, cmn.NewAuthRefused("only an administrator may change admin_platform"))
			return
		}
		u.AdminPlatform = *body.AdminPlatform
	}
	if body.FirstName != nil {
		u.FirstName = *body.FirstName
	}
	if body.LastName != nil {
		u.LastName = *body.LastName
	}
	if body.Mail != nil {
		u.Mail = *body.Mail
	}
	if body.Secret != nil {
		hash, err := authn.HashSecret(*body.Secret)
		if err != nil {
			writeErr(w, cmn.Wrap(err, cmn.KindInternal, "failed to hash secret"))
			return
		}
		u.Secret = hash
	}
	if err := s.Store.UpdateUser(r.Context(), u); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "updated")
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform"), authn.SelfID(id)); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Store.DeleteUser(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "deleted")
}
