package server

import (
	"net/http"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

func (s *Server) registerEnvironmentRoutes() {
	s.mux.HandleFunc(cmn.URLPathEnvironment.S+"/", s.handleEnvironmentByName)
	s.mux.HandleFunc(cmn.URLPathEnvironment.S, s.handleEnvironmentCollection)
}

func (s *Server) handleEnvironmentCollection(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform")); err != nil {
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
		envs, err := s.Store.FindEnvironments(r.Context(), spec)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, envs)
	case http.MethodPost:
		s.createEnvironment(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createEnvironment(w http.ResponseWriter, r *http.Request) {
	var e store.Environment
	if err := cmn.ReadJSON(r, &e); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Store.InsertEnvironment(r.Context(), &e); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, e)
}

func (s *Server) handleEnvironmentByName(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform")); err != nil {
		writeErr(w, err)
		return
	}
	name := pathSuffix(r, cmn.URLPathEnvironment.S)
	if name == "" {
		writeErr(w, cmn.NewMissingEntityRef("environment", ""))
		return
	}
	switch r.Method {
	case http.MethodGet:
		env, err := s.Store.FindEnvironmentByName(r.Context(), name)
		if err != nil {
			writeErr(w, err)
			return
		}
		if env == nil {
			writeErr(w, cmn.NewMissingEntityRef("environment", name))
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, env)
	case http.MethodDelete:
		if err := s.Store.DeleteEnvironment(r.Context(), name); err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, "deleted")
	default:
		methodNotAllowed(w)
	}
}
