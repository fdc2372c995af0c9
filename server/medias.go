package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

func (s *Server) registerMediaRoutes() {
	s.mux.HandleFunc(cmn.URLPathMediaCount.S, s.handleMediaCount)
	s.mux.HandleFunc(cmn.URLPathMedia.S, s.handleMediaCollection)
	s.mux.HandleFunc(cmn.URLPathMediaID.S+"/", s.handleMediaByID)
}

func (s *Server) handleMediaCount(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	n, err := s.Store.CountMedias(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, n)
}

func (s *Server) handleMediaCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.listMedias(w, r)
	case http.MethodPost:
		s.createMedia(w, r)
	default:
		methodNotAllowed(w)
	}
}

// listMedias also answers a HEAD request (spec §6's "/media/HEAD"):
// everything runs identically, writeMaybeHead just skips the payload.
func (s *Server) listMedias(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	spec, err := parseSpec(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	medias, err := s.Store.FindMedias(r.Context(), spec)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeMaybeHead(w, r, http.StatusOK, medias)
}

type createMediaBody struct {
	ParentID string         `json:"parent_id"`
	URI      string         `json:"uri"`
	Filename string         `json:"filename"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) createMedia(w http.ResponseWriter, r *http.Request) {
	p, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny())
	if err != nil {
		writeErr(w, err)
		return
	}
	var body createMediaBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.URI == "" {
		writeErr(w, cmn.NewInvalidRequest("uri is required"))
		return
	}
	if body.Metadata == nil {
		body.Metadata = map[string]any{}
	}
	body.Metadata["add_date"] = cmn.FormatTime(cmn.Now())
	ownerID := ""
	if p.IsUser() {
		ownerID = p.User.ID
	}
	m := &store.Media{
		UserID: ownerID, ParentID: body.ParentID, URI: body.URI,
		Filename: body.Filename, Metadata: body.Metadata, Status: store.MediaPending,
		PublicURIs: map[string]string{},
	}
	if err := s.Store.InsertMedia(r.Context(), m); err != nil {
		writeErr(w, err)
		return
	}
	// body.URI names wherever the client staged the upload; Rename moves it
	// onto the shared storage's canonical path and hands back the
	// externally addressable uri, mirroring the original orchestrator's
	// POST /media registration step.
	if s.Blobs != nil {
		uri, err := s.Blobs.Rename(r.Context(), body.URI, ownerID, m.ID, body.Filename)
		if err != nil {
			writeErr(w, cmn.Wrap(err, cmn.KindTransient, "failed to register media"))
			return
		}
		m.URI = uri
		if size, err := s.Blobs.ProbeSize(r.Context(), uri); err == nil {
			m.Metadata["size"] = size
		}
		if dur, err := s.Blobs.ProbeDuration(r.Context(), uri); err == nil {
			m.Metadata["duration"] = dur
		}
		m.Status = store.MediaReady
		if err := s.Store.UpdateMedia(r.Context(), m); err != nil {
			writeErr(w, err)
			return
		}
	}
	_ = cmn.WriteJSON(w, http.StatusOK, m)
}

func (s *Server) handleMediaByID(w http.ResponseWriter, r *http.Request) {
	seg := splitSegments(pathSuffix(r, cmn.URLPathMediaID.S))
	if len(seg) == 0 || seg[0] == "" {
		writeErr(w, cmn.NewMissingEntityRef("media", ""))
		return
	}
	id := seg[0]
	if _, err := uuid.Parse(id); err != nil {
		writeErr(w, cmn.NewMalformedID("malformed media id"))
		return
	}
	media, err := s.Store.FindMediaByID(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if media == nil {
		writeErr(w, cmn.NewMissingEntityRef("media", id))
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.getMedia(w, r, media)
	case http.MethodPatch, http.MethodPut:
		s.updateMedia(w, r, media)
	case http.MethodDelete:
		s.deleteMedia(w, r, media)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request, media *store.Media) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.AllowAny()); err != nil {
		writeErr(w, err)
		return
	}
	writeMaybeHead(w, r, http.StatusOK, media)
}

type updateMediaBody struct {
	Filename *string        `json:"filename"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) updateMedia(w http.ResponseWriter, r *http.Request, media *store.Media) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform"), authn.SelfID(media.UserID)); err != nil {
		writeErr(w, err)
		return
	}
	var body updateMediaBody
	if err := cmn.ReadJSON(r, &body); err != nil {
		writeErr(w, err)
		return
	}
	if body.Filename != nil {
		media.Filename = *body.Filename
	}
	for k, v := range body.Metadata {
		media.Metadata[k] = v
	}
	if err := s.Store.UpdateMedia(r.Context(), media); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "updated")
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request, media *store.Media) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform"), authn.SelfID(media.UserID)); err != nil {
		writeErr(w, err)
		return
	}
	nonTerminal, err := s.mediaReferencedByLiveTask(r, media.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if nonTerminal {
		writeErr(w, cmn.NewInvalidRequest("media is referenced by a non-terminal task"))
		return
	}
	// Soft delete: the row is retained with status=DELETED so historical
	// tasks that reference this media stay resolvable (spec §3).
	media.Status = store.MediaDeleted
	media.PublicURIs = map[string]string{}
	if s.Blobs != nil {
		_ = s.Blobs.DeleteTree(r.Context(), media.URI)
	}
	if err := s.Store.UpdateMedia(r.Context(), media); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "deleted")
}

// mediaReferencedByLiveTask blocks deleting a media still in use by a
// non-terminal transform or publisher task (spec §7: "cannot delete a
// media in use").
func (s *Server) mediaReferencedByLiveTask(r *http.Request, mediaID string) (bool, error) {
	in, err := s.Store.FindTransformTasks(r.Context(), store.Spec{Filter: map[string]any{"media_in_id": mediaID}})
	if err != nil {
		return false, cmn.Wrap(err, cmn.KindInternal, "failed to list transform tasks")
	}
	out, err := s.Store.FindTransformTasks(r.Context(), store.Spec{Filter: map[string]any{"media_out_id": mediaID}})
	if err != nil {
		return false, cmn.Wrap(err, cmn.KindInternal, "failed to list transform tasks")
	}
	pub, err := s.Store.FindPublisherTasks(r.Context(), store.Spec{Filter: map[string]any{"media_id": mediaID}})
	if err != nil {
		return false, cmn.Wrap(err, cmn.KindInternal, "failed to list publisher tasks")
	}
	for _, t := range append(in, out...) {
		if !t.Status.Terminal() {
			return true, nil
		}
	}
	for _, t := range pub {
		if !t.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// writeMaybeHead writes the full envelope for GET but only the status line
// for HEAD, matching net/http's ResponseWriter contract for HEAD requests.
func writeMaybeHead(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}
	_ = cmn.WriteJSON(w, status, v)
}
