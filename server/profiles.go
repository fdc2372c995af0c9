package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

// registerProfileRoutes wires GET/POST/DELETE /transform/profile per spec
// §6. TransformProfile carries no owner field (store/entities.go), so
// "author-only" deletion narrows to "any authed, blocked while a
// non-terminal task still references the profile" — dispatch.DeleteProfile
// already enforces that guard; see DESIGN.md.
func (s *Server) registerProfileRoutes() {
	s.mux.HandleFunc(cmn.URLPathTransformProfileCount.S, s.handleProfileCount)
	s.mux.HandleFunc(cmn.URLPathTransformProfile.S, s.handleProfileCollection)
	s.mux.HandleFunc(cmn.URLPathTransformProfileID.S+"/", s.handleProfileByID)
}

func (s *Server) handleProfileCount(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := s.Store.CountProfiles(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handleProfileCollection(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
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
		profiles, err := s.Store.FindProfiles(r.Context(), spec)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, profiles)
	case http.MethodPost:
		s.createProfile(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var p store.TransformProfile
	if err := cmn.ReadJSON(r, &p); err != nil {
		writeErr(w, err)
		return
	}
	if p.Title == "" || p.EncoderName == "" {
		writeErr(w, cmn.NewInvalidRequest("title and encoder_name are required"))
		return
	}
	if err := s.Store.InsertProfile(r.Context(), &p); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileByID(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	id := pathSuffix(r, cmn.URLPathTransformProfileID.S)
	if id == "" {
		writeErr(w, cmn.NewMissingEntityRef("profile", ""))
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeErr(w, cmn.NewMalformedID("malformed profile id"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.Store.FindProfileByID(r.Context(), id)
		if err != nil {
			writeErr(w, err)
			return
		}
		if p == nil {
			writeErr(w, cmn.NewMissingEntityRef("profile", id))
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := s.Dispatch.DeleteProfile(r.Context(), id); err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, "deleted")
	default:
		methodNotAllowed(w)
	}
}
