// Package server implements the REST surface (spec §6, component C7): a
// flat http.ServeMux with manual path-segment parsing, composing
// authn/store/dispatch/callback/capacity/blobstore behind the uniform
// {"status": <code>, "value": <payload>} envelope. Grounded on the
// teacher's own httprunner (ais/proxy.go, ais/target.go): no third-party
// router is ever pulled in, matching the teacher's go.mod exactly.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package server

import (
	"net/http"
	"strings"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/callback"
	"github.com/oscied/orchestrator/capacity"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/dispatch"
	"github.com/oscied/orchestrator/observer"
	"github.com/oscied/orchestrator/queue"
	"github.com/oscied/orchestrator/store"
)

const aboutText = "OSCIED orchestrator"

// Server composes every domain component behind the HTTP surface.
type Server struct {
	Auth     *authn.Authenticator
	Store    store.Store
	Dispatch *dispatch.Dispatcher
	Callback *callback.Handler
	Capacity *capacity.Controller
	Observer *observer.Observer
	Queue    queue.JobQueue
	Blobs    blobstore.BlobStore
	Config   *cmn.Config

	mux *http.ServeMux
}

// New builds a Server and registers every route named in spec §6.
func New(auth *authn.Authenticator, st store.Store, disp *dispatch.Dispatcher, cb *callback.Handler,
	cap *capacity.Controller, obs *observer.Observer, q queue.JobQueue, blobs blobstore.BlobStore, cfg *cmn.Config) *Server {
	s := &Server{Auth: auth, Store: st, Dispatch: disp, Callback: cb, Capacity: cap, Observer: obs,
		Queue: q, Blobs: blobs, Config: cfg, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// Handler returns the composed http.Handler, ready to be passed to
// http.Server (cmd/orchestrator sets only Addr and Handler on it).
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) registerRoutes() {
	s.mux.HandleFunc(cmn.URLPathIndex.S, s.handleAbout)
	s.mux.HandleFunc("/", s.handleAbout) // GET "/" is the same about string, per spec §6
	s.mux.HandleFunc(cmn.URLPathFlush.S, s.handleFlush)

	s.registerUserRoutes()
	s.registerMediaRoutes()
	s.registerProfileRoutes()
	s.registerEnvironmentRoutes()
	s.registerTransformRoutes()
	s.registerPublisherRoutes()
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != cmn.URLPathIndex.S {
		writeErr(w, cmn.NewMissingEntityRef("route", r.URL.Path))
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, aboutText)
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Auth.Authorize(r, authn.AllowRoot()); err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Store.Flush(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	_ = cmn.WriteJSON(w, http.StatusOK, "flushed")
}

// writeErr maps a domain error to its HTTP status and writes the envelope.
func writeErr(w http.ResponseWriter, err error) {
	_ = cmn.WriteJSON(w, cmn.HTTPStatus(err), err.Error())
}

// pathSuffix strips prefix (an exact cmn.URLPath.S) from r.URL.Path and
// trims surrounding slashes, yielding the trailing segments a handler must
// parse itself (e.g. "id/<uuid>" or "count").
func pathSuffix(r *http.Request, prefix string) string {
	return strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

// splitSegments splits a trimmed path suffix on "/", dropping empty
// segments from a trailing slash.
func splitSegments(suffix string) []string {
	if suffix == "" {
		return nil
	}
	return strings.Split(suffix, "/")
}

func methodNotAllowed(w http.ResponseWriter) {
	writeErr(w, cmn.NewInvalidRequest("method not allowed"))
}
